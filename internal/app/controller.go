// Package app keeps the session moving: it reacts to store changes by
// loading what the current state is missing and tracks the derived login state.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/l2pay/internal/domain"
	"github.com/vadiminshakov/l2pay/internal/session"
	"github.com/vadiminshakov/l2pay/internal/store"
)

type workflows interface {
	FetchSupportedTokens(ctx context.Context)
	FetchBalances(ctx context.Context, w domain.Wallet, tokens []domain.SupportedToken, fiat domain.Fiat)
	SelectAsset(asset domain.Balance)
	SelectFiat(fiat domain.Fiat)
	Logout()
}

type stateSource interface {
	State() store.State
	Subscribe() chan store.Change
	Unsubscribe(ch chan store.Change)
}

type preferences interface {
	Fiat() (domain.Fiat, error)
	SetFiat(fiat domain.Fiat) error
}

type themes interface {
	Init() error
	Toggle() (domain.Theme, error)
}

// Controller drives data loading for the logged-in session.
type Controller struct {
	l       *zap.Logger
	wf      workflows
	st      stateSource
	prefs   preferences
	theme   themes
	machine *session.Machine

	mu            sync.Mutex
	tokensEpoch   uint64
	balancesQuery string
	readyCh       chan struct{}

	inflight sync.WaitGroup
}

// NewController creates a controller.
func NewController(l *zap.Logger, wf workflows, st stateSource, prefs preferences, theme themes) *Controller {
	return &Controller{
		l:       l,
		wf:      wf,
		st:      st,
		prefs:   prefs,
		theme:   theme,
		machine: session.NewMachine(),
		readyCh: make(chan struct{}),
	}
}

// Boot restores persisted preferences.
func (c *Controller) Boot() error {
	if c.theme != nil {
		if err := c.theme.Init(); err != nil {
			return errors.Wrap(err, "load theme")
		}
	}

	fiat := domain.DefaultFiat()
	if c.prefs != nil {
		stored, err := c.prefs.Fiat()
		if err != nil {
			return errors.Wrap(err, "load fiat")
		}
		fiat = stored
	}
	c.wf.SelectFiat(fiat)
	return nil
}

// Run boots the controller and reacts to store changes until ctx is done.
// Loads started by the controller finish before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	changes := c.st.Subscribe()
	defer c.st.Unsubscribe(changes)
	defer c.inflight.Wait()

	if err := c.Boot(); err != nil {
		return err
	}
	c.react(ctx, c.st.State())

	for {
		select {
		case <-ctx.Done():
			c.l.Debug("controller stopped")
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			c.react(ctx, c.st.State())
		}
	}
}

func (c *Controller) react(ctx context.Context, st store.State) {
	c.loadTokens(ctx, st)
	c.loadBalances(ctx, st)

	if len(st.Balances) > 0 && st.SelectedAsset == nil {
		if asset, ok := domain.DefaultAsset(st.Balances); ok {
			c.l.Debug("selecting default asset", zap.String("symbol", asset.Symbol))
			c.wf.SelectAsset(asset)
		}
	}

	c.track(session.SignalsFromState(st))
}

func (c *Controller) loadTokens(ctx context.Context, st store.State) {
	if st.Session == nil || st.Wallet == nil {
		return
	}

	c.mu.Lock()
	requested := c.tokensEpoch == st.Epoch
	c.tokensEpoch = st.Epoch
	c.mu.Unlock()
	if requested {
		return
	}

	c.spawn(ctx, func(ctx context.Context) {
		c.wf.FetchSupportedTokens(ctx)
	})
}

// loadBalances refetches when the account, the token list or the fiat changes.
func (c *Controller) loadBalances(ctx context.Context, st store.State) {
	if st.Session == nil || st.Wallet == nil || len(st.SupportedTokens) == 0 || st.SelectedFiat == nil {
		return
	}

	query := fmt.Sprintf("%d/%d/%s/%d", st.Epoch, st.Session.AccountID, st.SelectedFiat.Name, len(st.SupportedTokens))

	c.mu.Lock()
	same := c.balancesQuery == query
	c.balancesQuery = query
	c.mu.Unlock()
	if same {
		return
	}

	w, tokens, fiat := st.Wallet, st.SupportedTokens, *st.SelectedFiat
	c.spawn(ctx, func(ctx context.Context) {
		c.wf.FetchBalances(ctx, w, tokens, fiat)
	})
}

func (c *Controller) track(signals session.Signals) {
	t, changed := c.machine.Update(signals)
	if !changed {
		return
	}
	c.l.Info("session state changed", zap.Stringer("from", t.From), zap.Stringer("to", t.To))

	c.mu.Lock()
	switch {
	case t.To == session.Ready:
		close(c.readyCh)
	case t.From == session.Ready:
		c.readyCh = make(chan struct{})
	}
	c.mu.Unlock()

	// a signal was lost after login: drop whatever is left of the session
	if t.From == session.Ready && signals != (session.Signals{}) {
		c.l.Warn("session lost a signal, logging out")
		c.wf.Logout()
	}
}

func (c *Controller) spawn(ctx context.Context, fn func(ctx context.Context)) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		fn(ctx)
	}()
}

// State returns the derived login state.
func (c *Controller) State() session.State {
	return c.machine.Current()
}

// Logged reports whether every piece of the session is loaded.
func (c *Controller) Logged() bool {
	return c.machine.Current() == session.Ready
}

// Blocking reports whether a full-screen loader should be shown.
func (c *Controller) Blocking() bool {
	st := c.st.State()
	return session.Blocking(c.machine.Current(),
		st.IsLoading(store.LoadingSupportedTokens),
		st.IsLoading(store.LoadingBalances))
}

// WaitReady blocks until the session is Ready or ctx is done.
func (c *Controller) WaitReady(ctx context.Context) error {
	c.mu.Lock()
	ch := c.readyCh
	c.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChangeFiat persists fiat and applies it. Balances are revalued by Run.
func (c *Controller) ChangeFiat(fiat domain.Fiat) error {
	if _, ok := domain.FiatByName(fiat.Name); !ok {
		return errors.Errorf("unsupported fiat %q", fiat.Name)
	}
	if c.prefs != nil {
		if err := c.prefs.SetFiat(fiat); err != nil {
			return errors.Wrap(err, "save fiat")
		}
	}
	c.wf.SelectFiat(fiat)
	return nil
}

// ToggleTheme switches and persists the theme.
func (c *Controller) ToggleTheme() (domain.Theme, error) {
	if c.theme == nil {
		return "", errors.New("theme is not configured")
	}
	return c.theme.Toggle()
}

// Logout ends the session.
func (c *Controller) Logout() {
	c.wf.Logout()
}
