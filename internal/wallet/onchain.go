package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/l2pay/internal/domain"
)

// approveMethodID keccak256("approve(address,uint256)")[:4]
var approveMethodID = []byte{0x09, 0x5e, 0xa7, 0xb3}

const exchangeABI = `[
	{"type":"function","name":"deposit","stateMutability":"payable","inputs":[
		{"name":"tokenAddress","type":"address"},
		{"name":"amount","type":"uint96"}],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"payable","inputs":[
		{"name":"tokenAddress","type":"address"},
		{"name":"amount","type":"uint96"}],"outputs":[]},
	{"type":"function","name":"updateAccountAndDeposit","stateMutability":"payable","inputs":[
		{"name":"pubKeyX","type":"uint256"},
		{"name":"pubKeyY","type":"uint256"},
		{"name":"tokenAddress","type":"address"},
		{"name":"amount","type":"uint96"},
		{"name":"permission","type":"bytes"}],"outputs":[]}
]`

// ApproveMax lets the exchange contract spend an unlimited amount of the token.
func (w *Wallet) ApproveMax(ctx context.Context, tokenAddress, exchangeAddress string, chainID int64, nonce uint64, gasPrice *big.Int) (string, error) {
	if !common.IsHexAddress(tokenAddress) || !common.IsHexAddress(exchangeAddress) {
		return "", fmt.Errorf("invalid approve addresses %s, %s", tokenAddress, exchangeAddress)
	}

	data := make([]byte, 0, 4+32+32)
	data = append(data, approveMethodID...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(exchangeAddress).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(math.MaxBig256.Bytes(), 32)...)

	if err := w.confirm(ctx, "Approve token", fmt.Sprintf("unlimited allowance of %s for %s", tokenAddress, exchangeAddress)); err != nil {
		return "", err
	}

	return w.send(ctx, txParams{
		to:       common.HexToAddress(tokenAddress),
		value:    big.NewInt(0),
		gas:      approveGasLimit,
		nonce:    nonce,
		gasPrice: gasPrice,
		chainID:  chainID,
		data:     data,
	})
}

// DepositTo moves funds from the wallet into its exchange account.
func (w *Wallet) DepositTo(ctx context.Context, req domain.OnchainRequest) (string, error) {
	tokenAddr, amount, value, err := depositAmounts(req)
	if err != nil {
		return "", err
	}

	data, err := w.exchange.Pack("deposit", tokenAddr, amount)
	if err != nil {
		return "", errors.Wrap(err, "pack deposit")
	}

	if err := w.confirm(ctx, "Deposit", fmt.Sprintf("%s %s, fee %s wei", req.Amount, req.Token.Symbol, req.Fee)); err != nil {
		return "", err
	}

	return w.send(ctx, txParams{
		to:       common.HexToAddress(req.ExchangeAddress),
		value:    value,
		gas:      depositGasLimit,
		nonce:    req.Nonce,
		gasPrice: req.GasPrice,
		chainID:  req.ChainID,
		data:     data,
	})
}

// CreateOrUpdateAccount registers the key pair on the exchange together with a deposit.
func (w *Wallet) CreateOrUpdateAccount(ctx context.Context, keyPair domain.KeyPair, req domain.OnchainRequest) (string, error) {
	pubX, err := hexutil.DecodeBig(keyPair.PublicKeyX)
	if err != nil {
		return "", errors.Wrap(err, "decode public key x")
	}
	pubY, err := hexutil.DecodeBig(keyPair.PublicKeyY)
	if err != nil {
		return "", errors.Wrap(err, "decode public key y")
	}

	tokenAddr, amount, value, err := depositAmounts(req)
	if err != nil {
		return "", err
	}

	// empty permission: the sender signs the key update itself
	data, err := w.exchange.Pack("updateAccountAndDeposit", pubX, pubY, tokenAddr, amount, []byte{})
	if err != nil {
		return "", errors.Wrap(err, "pack account update")
	}

	if err := w.confirm(ctx, "Register account", fmt.Sprintf("fee %s wei", req.Fee)); err != nil {
		return "", err
	}

	return w.send(ctx, txParams{
		to:       common.HexToAddress(req.ExchangeAddress),
		value:    value,
		gas:      updateGasLimit,
		nonce:    req.Nonce,
		gasPrice: req.GasPrice,
		chainID:  req.ChainID,
		data:     data,
	})
}

// OnchainWithdrawal requests a withdrawal from the exchange account back to the wallet.
func (w *Wallet) OnchainWithdrawal(ctx context.Context, req domain.OnchainRequest) (string, error) {
	amount, err := tokenAmount(req)
	if err != nil {
		return "", err
	}

	data, err := w.exchange.Pack("withdraw", tokenAddress(req.Token), amount)
	if err != nil {
		return "", errors.Wrap(err, "pack withdrawal")
	}

	if err := w.confirm(ctx, "Withdraw", fmt.Sprintf("%s %s, fee %s wei", req.Amount, req.Token.Symbol, req.Fee)); err != nil {
		return "", err
	}

	return w.send(ctx, txParams{
		to:       common.HexToAddress(req.ExchangeAddress),
		value:    feeOrZero(req.Fee),
		gas:      withdrawGasLimit,
		nonce:    req.Nonce,
		gasPrice: req.GasPrice,
		chainID:  req.ChainID,
		data:     data,
	})
}

type txParams struct {
	to       common.Address
	value    *big.Int
	gas      uint64
	nonce    uint64
	gasPrice *big.Int
	chainID  int64
	data     []byte
}

func (w *Wallet) send(ctx context.Context, p txParams) (string, error) {
	if w.backend == nil {
		return "", errors.New("wallet has no transaction backend")
	}
	if p.gasPrice == nil {
		return "", errors.New("gas price is required")
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    p.nonce,
		To:       &p.to,
		Value:    p.value,
		Gas:      p.gas,
		GasPrice: p.gasPrice,
		Data:     p.data,
	})

	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(p.chainID)), w.key)
	if err != nil {
		return "", errors.Wrap(err, "sign transaction")
	}

	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return "", errors.Wrap(err, "send transaction")
	}

	return signed.Hash().Hex(), nil
}

// depositAmounts returns the token address, the raw amount and the transaction value.
// Native deposits carry the amount in the value on top of the fee.
func depositAmounts(req domain.OnchainRequest) (common.Address, *big.Int, *big.Int, error) {
	amount, err := tokenAmount(req)
	if err != nil {
		return common.Address{}, nil, nil, err
	}

	value := new(big.Int).Set(feeOrZero(req.Fee))
	if req.Token.IsNative() {
		value.Add(value, amount)
	}

	return tokenAddress(req.Token), amount, value, nil
}

func tokenAmount(req domain.OnchainRequest) (*big.Int, error) {
	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", req.Amount)
	}
	return req.Amount.Shift(req.Token.Decimals).Truncate(0).BigInt(), nil
}

func tokenAddress(token domain.SupportedToken) common.Address {
	if token.IsNative() || token.Address == "" {
		return common.Address{}
	}
	return common.HexToAddress(token.Address)
}

func feeOrZero(fee *big.Int) *big.Int {
	if fee == nil {
		return big.NewInt(0)
	}
	return fee
}
