package workflow

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/l2pay/internal/domain"
	"github.com/vadiminshakov/l2pay/internal/notify"
	"github.com/vadiminshakov/l2pay/internal/store"
)

// FetchSupportedTokens loads the exchange token list.
func (o *Orchestrator) FetchSupportedTokens(ctx context.Context) {
	r := o.start(ctx, "fetch_supported_tokens")
	end := r.loading(store.LoadingSupportedTokens)
	defer end()

	tokens, err := o.exchange.TokenInfo(ctx)
	if err != nil {
		r.fail(notify.ErrSupportedTokens, err)
		return
	}

	r.emit(store.SupportedTokensLoaded{Ticket: r.ticket, Tokens: tokens})
	r.done("")
}

// FetchBalances loads layer-2 balances and values them in fiat.
func (o *Orchestrator) FetchBalances(ctx context.Context, w domain.Wallet, tokens []domain.SupportedToken, fiat domain.Fiat) {
	r := o.start(ctx, "fetch_balances")
	end := r.loading(store.LoadingBalances)
	defer end()

	apiKey, err := o.apiKey(ctx, w)
	if err != nil {
		if domain.IsUserAbort(err) {
			r.abort()
			return
		}
		r.fail(notify.ErrUserBalances, err)
		return
	}

	raw, err := o.exchange.Balances(ctx, w.AccountID(), apiKey, tokens)
	if err != nil {
		r.fail(notify.ErrUserBalances, err)
		return
	}
	prices, err := o.exchange.Prices(ctx, fiat.Name)
	if err != nil {
		r.fail(notify.ErrUserBalances, err)
		return
	}

	balances := domain.BuildBalances(tokens, raw, prices)
	r.l.Debug("balances loaded", zap.Int("count", len(balances)), zap.String("fiat", fiat.Name))
	r.emit(store.BalancesLoaded{Ticket: r.ticket, Balances: balances})
	r.done("")
}

// FetchDepositBalance loads the on-chain wallet balance of a token.
func (o *Orchestrator) FetchDepositBalance(ctx context.Context, w domain.Wallet, symbol string, tokens []domain.SupportedToken) {
	r := o.start(ctx, "fetch_deposit_balance")

	var (
		balance decimal.Decimal
		err     error
	)
	if strings.EqualFold(symbol, domain.NativeSymbol) {
		balance, err = o.exchange.EthBalance(ctx, w.Address())
	} else {
		balance, err = o.exchange.TokenBalance(ctx, w.Address(), symbol, tokens)
	}
	if err != nil {
		r.fail(notify.ErrDepositBalance, err)
		return
	}

	r.emit(store.DepositBalanceLoaded{Ticket: r.ticket, Symbol: symbol, Balance: balance})
	r.done("")
}

// FetchTransactions reloads the whole history of a token for the filter.
// History pages are fetched concurrently and merged oldest first.
func (o *Orchestrator) FetchTransactions(ctx context.Context, w domain.Wallet, symbol string, tokens []domain.SupportedToken, limit int, filter domain.TxFilter) {
	r := o.start(ctx, "fetch_transactions")
	end := r.loading(store.LoadingTransactions)
	defer end()

	if !filter.IsValid() {
		r.fail(notify.ErrTokenTransactions, errors.Errorf("unknown transaction filter %q", filter))
		return
	}

	apiKey, err := o.apiKey(ctx, w)
	if err != nil {
		if domain.IsUserAbort(err) {
			r.abort()
			return
		}
		r.fail(notify.ErrTokenTransactions, err)
		return
	}

	var (
		transfers   []domain.Transfer
		deposits    []domain.Deposit
		withdrawals []domain.Withdrawal
		accountID   = w.AccountID()
	)

	g, gctx := errgroup.WithContext(ctx)
	if filter.Includes(domain.TxKindTransfer) {
		g.Go(func() error {
			page, err := o.exchange.TransferHistory(gctx, accountID, symbol, limit, 0, apiKey, tokens)
			if err != nil {
				return errors.Wrap(err, "transfer history")
			}
			transfers = page
			return nil
		})
	}
	if filter.Includes(domain.TxKindDeposit) {
		g.Go(func() error {
			page, err := o.exchange.DepositHistory(gctx, accountID, symbol, limit, 0, apiKey, tokens)
			if err != nil {
				return errors.Wrap(err, "deposit history")
			}
			deposits = page
			return nil
		})
	}
	if filter.Includes(domain.TxKindWithdrawal) {
		g.Go(func() error {
			page, err := o.exchange.WithdrawalHistory(gctx, accountID, symbol, limit, 0, apiKey, tokens)
			if err != nil {
				return errors.Wrap(err, "withdrawal history")
			}
			withdrawals = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.fail(notify.ErrTokenTransactions, err)
		return
	}

	for i := range transfers {
		transfers[i].Sent = strings.EqualFold(transfers[i].Sender, w.Address())
	}

	r.emit(store.TransactionsLoaded{
		Ticket:       r.ticket,
		Transactions: domain.MergeTransactions(transfers, deposits, withdrawals),
	})
	r.done("")
}

// FetchAllowance loads how much of a token the exchange may pull from the wallet.
func (o *Orchestrator) FetchAllowance(ctx context.Context, w domain.Wallet, symbol string, tokens []domain.SupportedToken) {
	r := o.start(ctx, "fetch_allowance")
	end := r.loading(store.LoadingAllowance)
	defer end()

	allowance, err := o.exchange.Allowance(ctx, w.Address(), symbol, tokens)
	if err != nil {
		r.fail(notify.ErrTokenAllowanceGet, err)
		return
	}

	r.emit(store.AllowanceLoaded{Ticket: r.ticket, Symbol: symbol, Allowance: allowance})
	r.done("")
}
