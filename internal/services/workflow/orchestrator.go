// Package workflow composes exchange and wallet calls into user-facing operations.
// Workflows never return errors: failures become notifications, log entries and
// journal records, and the store only receives events for steps that succeeded.
package workflow

import (
	"context"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/l2pay/internal/domain"
	"github.com/vadiminshakov/l2pay/internal/notify"
	"github.com/vadiminshakov/l2pay/internal/storage/journal"
	"github.com/vadiminshakov/l2pay/internal/store"
)

type exchange interface {
	Account(ctx context.Context, address string) (domain.Account, error)
	ExchangeInfo(ctx context.Context) (domain.ExchangeInfo, error)
	TokenInfo(ctx context.Context) ([]domain.SupportedToken, error)
	APIKey(ctx context.Context, accountID uint64, keyPair domain.KeyPair, signature string) (string, error)
	Balances(ctx context.Context, accountID uint64, apiKey string, tokens []domain.SupportedToken) ([]domain.TokenBalance, error)
	Prices(ctx context.Context, fiat string) ([]domain.Price, error)
	TransferHistory(ctx context.Context, accountID uint64, symbol string, limit, offset int, apiKey string, tokens []domain.SupportedToken) ([]domain.Transfer, error)
	DepositHistory(ctx context.Context, accountID uint64, symbol string, limit, offset int, apiKey string, tokens []domain.SupportedToken) ([]domain.Deposit, error)
	WithdrawalHistory(ctx context.Context, accountID uint64, symbol string, limit, offset int, apiKey string, tokens []domain.SupportedToken) ([]domain.Withdrawal, error)
	SubmitTransfer(ctx context.Context, transfer domain.SignedTransfer, apiKey string) (string, error)
	Allowance(ctx context.Context, owner, symbol string, tokens []domain.SupportedToken) (decimal.Decimal, error)
	RecommendedGasPrice(ctx context.Context) (*big.Int, error)
	EthNonce(ctx context.Context, address string) (uint64, error)
	EthBalance(ctx context.Context, address string) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, address, symbol string, tokens []domain.SupportedToken) (decimal.Decimal, error)
}

type dispatcher interface {
	Begin() store.Ticket
	Dispatch(e store.Event) bool
}

type runJournal interface {
	Append(rec journal.Record) (uint64, error)
}

// WalletFactory connects a wallet for an address exposed by the provider.
type WalletFactory func(ctx context.Context, address string) (domain.Wallet, error)

// Orchestrator runs workflows against the exchange and the connected wallet.
type Orchestrator struct {
	l        *zap.Logger
	exchange exchange
	store    dispatcher
	notifier notify.Notifier
	journal  runJournal
	connect  WalletFactory
}

// New creates an orchestrator. journal may be nil.
func New(l *zap.Logger, ex exchange, st dispatcher, notifier notify.Notifier, j runJournal, connect WalletFactory) *Orchestrator {
	return &Orchestrator{
		l:        l,
		exchange: ex,
		store:    st,
		notifier: notifier,
		journal:  j,
		connect:  connect,
	}
}

// SelectAsset marks the asset the user works with.
func (o *Orchestrator) SelectAsset(asset domain.Balance) {
	o.store.Dispatch(store.AssetSelected{Asset: asset})
}

// SelectFiat changes the valuation currency.
func (o *Orchestrator) SelectFiat(fiat domain.Fiat) {
	o.store.Dispatch(store.FiatSelected{Fiat: fiat})
}

// ClearHash acknowledges a reported transaction hash.
func (o *Orchestrator) ClearHash(kind store.HashKind) {
	o.store.Dispatch(store.HashCleared{Kind: kind})
}

// Logout drops the session. Runs still in flight finish but their results are discarded.
func (o *Orchestrator) Logout() {
	o.store.Dispatch(store.LoggedOut{})
}

type run struct {
	o      *Orchestrator
	ctx    context.Context
	id     string
	name   string
	ticket store.Ticket
	l      *zap.Logger
}

func (o *Orchestrator) start(ctx context.Context, name string) *run {
	r := &run{
		o:      o,
		ctx:    ctx,
		id:     uuid.New().String(),
		name:   name,
		ticket: o.store.Begin(),
	}
	r.l = o.l.With(zap.String("workflow", name), zap.String("run_id", r.id))
	r.l.Debug("workflow started")
	r.record(journal.StatusPending, "", nil)
	return r
}

func (r *run) emit(e store.Event) {
	r.o.store.Dispatch(e)
}

func (r *run) loading(kind store.LoadingKind) func() {
	r.emit(store.LoadingStarted{Ticket: r.ticket, Kind: kind})
	return func() {
		r.emit(store.LoadingFinished{Ticket: r.ticket, Kind: kind})
	}
}

func (r *run) done(hash string) {
	if hash != "" {
		r.l.Info("workflow finished", zap.String("hash", hash))
	} else {
		r.l.Debug("workflow finished")
	}
	r.record(journal.StatusDone, hash, nil)
}

// abort ends the run silently, the user declined to sign.
func (r *run) abort() {
	r.l.Info("workflow aborted by user")
	r.record(journal.StatusAborted, "", nil)
}

func (r *run) warn(id notify.MessageID, err error) {
	r.l.Warn("workflow stopped", zap.String("message", string(id)), zap.Error(err))
	r.notify(notify.LevelWarn, id, err)
	r.record(journal.StatusAborted, "", err)
}

func (r *run) fail(id notify.MessageID, err error) {
	r.l.Error("workflow failed", zap.String("message", string(id)), zap.Error(err))
	r.notify(notify.LevelError, id, err)
	r.record(journal.StatusFailed, "", err)
}

func (r *run) notify(level notify.Level, id notify.MessageID, err error) {
	if r.o.notifier == nil {
		return
	}
	n := notify.Notification{
		Time:     time.Now(),
		Level:    level,
		ID:       id,
		Workflow: r.name,
		RunID:    r.id,
	}
	if err != nil {
		n.Detail = err.Error()
	}
	r.o.notifier.Notify(r.ctx, n)
}

func (r *run) record(status journal.Status, hash string, err error) {
	if r.o.journal == nil {
		return
	}
	rec := journal.Record{
		Kind:     journal.KindRun,
		RunID:    r.id,
		Workflow: r.name,
		Status:   status,
		Hash:     hash,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if _, jerr := r.o.journal.Append(rec); jerr != nil {
		r.l.Error("failed to journal workflow run", zap.Error(jerr))
	}
}

func (o *Orchestrator) apiKey(ctx context.Context, w domain.Wallet) (string, error) {
	sig, err := w.APIKeySignature(ctx)
	if err != nil {
		return "", err
	}
	return o.exchange.APIKey(ctx, w.AccountID(), w.KeyPair(), sig)
}
