package workflow

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/l2pay/internal/domain"
	"github.com/vadiminshakov/l2pay/internal/notify"
	"github.com/vadiminshakov/l2pay/internal/store"
)

// transferLabel label the exchange expects on wallet-originated transfers.
const transferLabel = 211

// TransferInput user-provided part of a transfer.
type TransferInput struct {
	Symbol   string
	Receiver string
	Memo     string
	Amount   decimal.Decimal
}

// SubmitTransfer signs and submits a layer-2 transfer. The fee is paid in the
// transferred token and is zero when the exchange lists no fee for it.
func (o *Orchestrator) SubmitTransfer(ctx context.Context, w domain.Wallet, info domain.ExchangeInfo, in TransferInput, tokens []domain.SupportedToken) {
	r := o.start(ctx, "submit_transfer")
	end := r.loading(store.LoadingTransfer)
	defer end()

	own, err := o.exchange.Account(ctx, w.Address())
	if err != nil {
		r.fail(notify.ErrTransfer, errors.Wrap(err, "own account"))
		return
	}
	receiver, err := o.exchange.Account(ctx, in.Receiver)
	if err != nil {
		r.fail(notify.ErrTransfer, errors.Wrapf(err, "receiver account %s", in.Receiver))
		return
	}

	fee := decimal.Zero
	if raw, ok := info.TransferFee(in.Symbol); ok {
		fee, err = domain.FromWei(in.Symbol, raw, tokens)
		if err != nil {
			r.fail(notify.ErrTransfer, err)
			return
		}
	}

	signed, err := w.SignTransfer(ctx, domain.TransferRequest{
		ExchangeID:      info.ExchangeID,
		ExchangeAddress: info.ExchangeAddress,
		ChainID:         info.ChainID,
		Receiver:        receiver.AccountID,
		Token:           in.Symbol,
		Amount:          in.Amount,
		FeeToken:        in.Symbol,
		FeeAmount:       fee,
		Nonce:           own.Nonce,
		Label:           transferLabel,
		Memo:            in.Memo,
	}, tokens)
	if err != nil {
		if domain.IsUserAbort(err) {
			r.abort()
			return
		}
		r.fail(notify.ErrTransfer, err)
		return
	}

	apiKey, err := o.apiKey(ctx, w)
	if err != nil {
		if domain.IsUserAbort(err) {
			r.abort()
			return
		}
		r.fail(notify.ErrTransfer, err)
		return
	}

	hash, err := o.exchange.SubmitTransfer(ctx, signed, apiKey)
	if err != nil {
		r.fail(notify.ErrTransfer, err)
		return
	}

	r.emit(store.TransferSubmitted{Ticket: r.ticket, Hash: hash})
	r.done(hash)
}

// GrantAllowance approves the exchange contract to pull an unlimited amount of a token.
// The transaction nonce is the on-chain nonce of the wallet address.
func (o *Orchestrator) GrantAllowance(ctx context.Context, w domain.Wallet, info domain.ExchangeInfo, symbol, tokenAddress string) {
	r := o.start(ctx, "grant_allowance")
	end := r.loading(store.LoadingGrantAllowance)
	defer end()

	nonce, gasPrice, err := o.txParams(ctx, w.Address())
	if err != nil {
		r.fail(notify.ErrTokenAllowanceGrant, errors.Wrapf(err, "approve %s", symbol))
		return
	}

	hash, err := w.ApproveMax(ctx, tokenAddress, info.ExchangeAddress, info.ChainID, nonce, gasPrice)
	if err != nil {
		if domain.IsUserAbort(err) {
			r.abort()
			return
		}
		r.fail(notify.ErrTokenAllowanceGrant, errors.Wrapf(err, "approve %s", symbol))
		return
	}

	r.emit(store.AllowanceGranted{Ticket: r.ticket, Hash: hash})
	r.done(hash)
}

// Deposit moves funds from the wallet into the exchange.
func (o *Orchestrator) Deposit(ctx context.Context, w domain.Wallet, info domain.ExchangeInfo, tokens []domain.SupportedToken, symbol string, amount decimal.Decimal) {
	r := o.start(ctx, "deposit")

	req, err := o.onchainRequest(ctx, w, info, tokens, symbol, amount, domain.OnchainFeeDeposit)
	if err != nil {
		r.fail(notify.ErrDeposit, err)
		return
	}

	hash, err := w.DepositTo(ctx, req)
	if err != nil {
		if domain.IsUserAbort(err) {
			r.abort()
			return
		}
		r.fail(notify.ErrDeposit, err)
		return
	}

	r.emit(store.DepositSubmitted{Ticket: r.ticket, Hash: hash})
	r.done(hash)
}

// OnchainWithdrawal requests a withdrawal through the exchange contract.
func (o *Orchestrator) OnchainWithdrawal(ctx context.Context, w domain.Wallet, info domain.ExchangeInfo, symbol string, tokens []domain.SupportedToken, amount decimal.Decimal) {
	r := o.start(ctx, "onchain_withdrawal")

	req, err := o.onchainRequest(ctx, w, info, tokens, symbol, amount, domain.OnchainFeeWithdraw)
	if err != nil {
		r.fail(notify.ErrWithdrawal, err)
		return
	}

	hash, err := w.OnchainWithdrawal(ctx, req)
	if err != nil {
		if domain.IsUserAbort(err) {
			r.abort()
			return
		}
		r.fail(notify.ErrWithdrawal, err)
		return
	}

	r.emit(store.WithdrawalSubmitted{Ticket: r.ticket, Hash: hash})
	r.done(hash)
}

func (o *Orchestrator) onchainRequest(ctx context.Context, w domain.Wallet, info domain.ExchangeInfo, tokens []domain.SupportedToken,
	symbol string, amount decimal.Decimal, feeType domain.OnchainFeeType) (domain.OnchainRequest, error) {
	token, ok := domain.TokenBySymbol(tokens, symbol)
	if !ok {
		return domain.OnchainRequest{}, errors.Errorf("unknown token %s", symbol)
	}
	fee, err := info.OnchainFeeWei(feeType)
	if err != nil {
		return domain.OnchainRequest{}, err
	}
	nonce, gasPrice, err := o.txParams(ctx, w.Address())
	if err != nil {
		return domain.OnchainRequest{}, err
	}

	return domain.OnchainRequest{
		ExchangeAddress: info.ExchangeAddress,
		ChainID:         info.ChainID,
		Token:           token,
		Fee:             fee,
		Amount:          amount,
		Nonce:           nonce,
		GasPrice:        gasPrice,
	}, nil
}

func (o *Orchestrator) txParams(ctx context.Context, address string) (uint64, *big.Int, error) {
	nonce, err := o.exchange.EthNonce(ctx, address)
	if err != nil {
		return 0, nil, errors.Wrap(err, "eth nonce")
	}
	gasPrice, err := o.exchange.RecommendedGasPrice(ctx)
	if err != nil {
		return 0, nil, errors.Wrap(err, "gas price")
	}
	return nonce, gasPrice, nil
}
