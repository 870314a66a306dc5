// Package session derives the login state from independently arriving signals.
package session

import (
	"sync"

	"github.com/vadiminshakov/l2pay/internal/store"
)

// State derived login state.
type State string

const (
	Anonymous       State = "anonymous"
	PartiallyLoaded State = "partially_loaded"
	Ready           State = "ready"
)

// String returns the string representation.
func (s State) String() string {
	return string(s)
}

// Signals presence of every input the login state depends on.
type Signals struct {
	ProviderConnected bool
	AccountResolved   bool
	WalletKeyed       bool
	ExchangeLoaded    bool
	TokensLoaded      bool
	BalancesLoaded    bool
	AssetSelected     bool
}

func (s Signals) all() bool {
	return s.ProviderConnected && s.AccountResolved && s.WalletKeyed && s.ExchangeLoaded &&
		s.TokensLoaded && s.BalancesLoaded && s.AssetSelected
}

func (s Signals) none() bool {
	return s == Signals{}
}

// Derive maps a signal set to its state.
func Derive(s Signals) State {
	switch {
	case s.all():
		return Ready
	case s.none():
		return Anonymous
	default:
		return PartiallyLoaded
	}
}

// SignalsFromState projects the store state onto the signal set.
func SignalsFromState(st store.State) Signals {
	return Signals{
		ProviderConnected: st.ProviderConnected,
		AccountResolved:   st.Session != nil,
		WalletKeyed:       st.Wallet != nil && st.Wallet.KeyPair().SecretKey != "",
		ExchangeLoaded:    st.Exchange != nil,
		TokensLoaded:      len(st.SupportedTokens) > 0,
		BalancesLoaded:    len(st.Balances) > 0,
		AssetSelected:     st.SelectedAsset != nil,
	}
}

// Blocking reports whether the blocking spinner is shown. Loading only blocks before login.
func Blocking(state State, loadingTokens, loadingBalances bool) bool {
	return state != Ready && (loadingTokens || loadingBalances)
}

// Transition change of derived state.
type Transition struct {
	From State
	To   State
}

// Machine tracks the derived state across updates.
type Machine struct {
	mu      sync.RWMutex
	current State
}

// NewMachine creates a machine in the Anonymous state.
func NewMachine() *Machine {
	return &Machine{current: Anonymous}
}

// Update recomputes the state from signals. ok is false when nothing changed.
// Losing any signal while Ready resets to Anonymous.
func (m *Machine) Update(s Signals) (t Transition, ok bool) {
	next := Derive(s)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == Ready && next != Ready {
		next = Anonymous
	}

	if next == m.current {
		return Transition{}, false
	}
	t = Transition{From: m.current, To: next}
	m.current = next
	return t, true
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}
