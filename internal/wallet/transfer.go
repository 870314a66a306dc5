package wallet

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/l2pay/internal/domain"
)

const (
	typedDataDomainName    = "Loopring Protocol"
	typedDataDomainVersion = "3.6.0"
)

// SignTransfer signs a layer-2 transfer with the wallet key (EIP-712) and the layer-2 key.
func (w *Wallet) SignTransfer(ctx context.Context, req domain.TransferRequest, tokens []domain.SupportedToken) (domain.SignedTransfer, error) {
	w.mu.RLock()
	accountID, l2key := w.accountID, w.l2key
	w.mu.RUnlock()
	if l2key == nil {
		return domain.SignedTransfer{}, errors.New("wallet is not bound to an account")
	}

	token, ok := domain.TokenBySymbol(tokens, req.Token)
	if !ok {
		return domain.SignedTransfer{}, fmt.Errorf("unknown token %s", req.Token)
	}
	feeToken, ok := domain.TokenBySymbol(tokens, req.FeeToken)
	if !ok {
		return domain.SignedTransfer{}, fmt.Errorf("unknown fee token %s", req.FeeToken)
	}
	amount, err := domain.ToWei(token.Symbol, req.Amount, tokens)
	if err != nil {
		return domain.SignedTransfer{}, err
	}
	fee, err := domain.ToWei(feeToken.Symbol, req.FeeAmount, tokens)
	if err != nil {
		return domain.SignedTransfer{}, err
	}

	transfer := domain.SignedTransfer{
		ExchangeID: req.ExchangeID,
		Sender:     accountID,
		Receiver:   req.Receiver,
		TokenID:    token.TokenID,
		Amount:     amount.String(),
		FeeTokenID: feeToken.TokenID,
		FeeAmount:  fee.String(),
		Nonce:      req.Nonce,
		Label:      req.Label,
		Memo:       req.Memo,
	}

	details := fmt.Sprintf("%s %s to account %d, fee %s %s", req.Amount, token.Symbol, req.Receiver, req.FeeAmount, feeToken.Symbol)
	if err := w.confirm(ctx, "Sign transfer", details); err != nil {
		return domain.SignedTransfer{}, err
	}

	hash, _, err := apitypes.TypedDataAndHash(transferTypedData(req, transfer))
	if err != nil {
		return domain.SignedTransfer{}, errors.Wrap(err, "hash transfer")
	}

	ecdsaSig, err := crypto.Sign(hash, w.key)
	if err != nil {
		return domain.SignedTransfer{}, errors.Wrap(err, "sign transfer")
	}
	ecdsaSig[64] += 27

	l2sig, err := crypto.Sign(hash, l2key)
	if err != nil {
		return domain.SignedTransfer{}, errors.Wrap(err, "sign transfer with layer-2 key")
	}

	transfer.ECDSASig = hexutil.Encode(ecdsaSig)
	transfer.Signature = hexutil.Encode(l2sig)
	return transfer, nil
}

func transferTypedData(req domain.TransferRequest, t domain.SignedTransfer) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Transfer": {
				{Name: "from", Type: "uint256"},
				{Name: "to", Type: "uint256"},
				{Name: "tokenID", Type: "uint256"},
				{Name: "amount", Type: "uint256"},
				{Name: "feeTokenID", Type: "uint256"},
				{Name: "fee", Type: "uint256"},
				{Name: "label", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "memo", Type: "string"},
			},
		},
		PrimaryType: "Transfer",
		Domain: apitypes.TypedDataDomain{
			Name:              typedDataDomainName,
			Version:           typedDataDomainVersion,
			ChainId:           ethmath.NewHexOrDecimal256(req.ChainID),
			VerifyingContract: req.ExchangeAddress,
		},
		Message: map[string]any{
			"from":       strconv.FormatUint(t.Sender, 10),
			"to":         strconv.FormatUint(t.Receiver, 10),
			"tokenID":    strconv.FormatUint(uint64(t.TokenID), 10),
			"amount":     t.Amount,
			"feeTokenID": strconv.FormatUint(uint64(t.FeeTokenID), 10),
			"fee":        t.FeeAmount,
			"label":      strconv.FormatUint(uint64(t.Label), 10),
			"nonce":      strconv.FormatUint(t.Nonce, 10),
			"memo":       t.Memo,
		},
	}
}
