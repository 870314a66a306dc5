package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/l2pay/config"
	"github.com/vadiminshakov/l2pay/internal/app"
	"github.com/vadiminshakov/l2pay/internal/clients"
	"github.com/vadiminshakov/l2pay/internal/domain"
	"github.com/vadiminshakov/l2pay/internal/notify"
	"github.com/vadiminshakov/l2pay/internal/services/workflow"
	"github.com/vadiminshakov/l2pay/internal/setup"
	"github.com/vadiminshakov/l2pay/internal/storage/journal"
	"github.com/vadiminshakov/l2pay/internal/storage/prefs"
	"github.com/vadiminshakov/l2pay/internal/store"
	"github.com/vadiminshakov/l2pay/internal/theme"
	"github.com/vadiminshakov/l2pay/internal/wallet"
)

const readyTimeout = 30 * time.Second

var errNotLoggedIn = errors.New("could not unlock the exchange account")

// env wires the application for a single command invocation.
type env struct {
	l            *zap.Logger
	cfg          config.Config
	prefs        *prefs.Store
	theme        *theme.Manager
	journal      *journal.WALStore
	store        *store.Store
	exchange     *clients.ExchangeClient
	provider     *clients.ChainProvider
	orchestrator *workflow.Orchestrator
	controller   *app.Controller
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// newEnv builds the application. console selects terminal notifications
// instead of log-only ones.
func newEnv(c *cli.Context, console bool) (*env, error) {
	cfg, err := config.FromContext(c)
	if err != nil {
		return nil, err
	}

	l, err := newLogger(c.Bool(config.FlagDebug))
	if err != nil {
		return nil, errors.Wrap(err, "create logger")
	}

	e := &env{l: l, cfg: cfg}

	e.prefs, err = prefs.NewStore(cfg.StateDir)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.theme = theme.NewManager(e.prefs)

	e.journal, err = journal.NewWALStore(cfg.JournalDir)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.provider, err = clients.NewChainProvider(c.Context, cfg.RPCURL, cfg.PrivateKey)
	if err != nil {
		e.Close()
		return nil, err
	}

	var confirmer wallet.Confirmer = setup.Confirmer{}
	if c.Bool(config.FlagYes) {
		confirmer = wallet.AutoConfirm{}
	}
	connect := func(_ context.Context, address string) (domain.Wallet, error) {
		key, err := e.provider.Key(address)
		if err != nil {
			return nil, err
		}
		return wallet.New(key, e.provider, confirmer)
	}

	var notifier notify.Notifier = notify.NewLogNotifier(l)
	if console {
		notifier = consoleNotifier{theme: e.theme}
	}

	e.store = store.New(l.Named("store"))
	e.exchange = clients.NewExchangeClient(cfg.ExchangeURL, cfg.RequestsPerSecond.InexactFloat64())
	e.orchestrator = workflow.New(l.Named("workflow"), e.exchange, e.store,
		notify.Multi{notifier, journal.NewNotifier(e.journal, l)}, e.journal, connect)
	e.controller = app.NewController(l.Named("app"), e.orchestrator, e.store, e.prefs, e.theme)

	if err := e.theme.Init(); err != nil {
		l.Warn("failed to load theme", zap.Error(err))
	}

	return e, nil
}

// Close releases the journal and the RPC connection.
func (e *env) Close() {
	if e.provider != nil {
		e.provider.Close()
	}
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			e.l.Warn("failed to close journal", zap.Error(err))
		}
	}
	_ = e.l.Sync()
}

// withController runs the controller while fn executes.
func (e *env) withController(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.controller.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	err := fn(gctx)
	cancel()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

// withSession unlocks the account, waits until balances are loaded and runs fn.
func (e *env) withSession(ctx context.Context, fn func(ctx context.Context, st store.State) error) error {
	return e.withController(ctx, func(ctx context.Context) error {
		e.orchestrator.Initialize(ctx, e.provider)
		if e.store.State().Session == nil {
			return errNotLoggedIn
		}

		wctx, cancel := context.WithTimeout(ctx, readyTimeout)
		defer cancel()
		if err := e.controller.WaitReady(wctx); err != nil {
			return errors.Wrap(err, "wait for balances")
		}

		return fn(ctx, e.store.State())
	})
}
