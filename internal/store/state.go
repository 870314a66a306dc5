package store

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/l2pay/internal/domain"
)

// DepositBalance on-chain wallet balance of the token being deposited.
type DepositBalance struct {
	Symbol  string
	Balance decimal.Decimal
}

// State application state. Values are never mutated in place, so snapshots
// handed to subscribers stay valid.
type State struct {
	// Epoch increments on every logout.
	Epoch uint64

	ProviderConnected bool
	Session           *domain.Session
	Wallet            domain.Wallet
	Exchange          *domain.ExchangeInfo

	SupportedTokens []domain.SupportedToken
	Balances        []domain.Balance
	Transactions    []domain.Transaction
	DepositBalance  *DepositBalance
	Allowances      map[string]decimal.Decimal

	Loading map[LoadingKind]int
	Hashes  map[HashKind]string

	SelectedAsset *domain.Balance
	SelectedFiat  *domain.Fiat

	latest map[string]uint64
}

// IsLoading reports whether any run of kind is in flight.
func (s State) IsLoading(kind LoadingKind) bool {
	return s.Loading[kind] > 0
}

// Hash returns the unacknowledged transaction hash of kind.
func (s State) Hash(kind HashKind) string {
	return s.Hashes[kind]
}

// Allowance returns the last fetched allowance of the token.
func (s State) Allowance(symbol string) (decimal.Decimal, bool) {
	v, ok := s.Allowances[strings.ToUpper(symbol)]
	return v, ok
}

// Reduce applies e to s. The second result is false when the event was
// discarded as stale.
func Reduce(s State, e Event) (State, bool) {
	if f, ok := e.(fenced); ok {
		t := f.ticket()
		if t.Epoch != s.Epoch {
			return s, false
		}
		if lw, ok := e.(latestWins); ok {
			key := lw.fenceKey()
			if t.Seq < s.latest[key] {
				return s, false
			}
			s.latest = withEntry(s.latest, key, t.Seq)
		}
	}

	switch ev := e.(type) {
	case ProviderConnected:
		s.ProviderConnected = ev.Connected
	case Initialized:
		session := ev.Session
		exchange := ev.Exchange
		s.ProviderConnected = true
		s.Session = &session
		s.Wallet = ev.Wallet
		s.Exchange = &exchange
	case LoadingStarted:
		s.Loading = withEntry(s.Loading, ev.Kind, s.Loading[ev.Kind]+1)
	case LoadingFinished:
		n := s.Loading[ev.Kind] - 1
		if n < 0 {
			n = 0
		}
		s.Loading = withEntry(s.Loading, ev.Kind, n)
	case SupportedTokensLoaded:
		s.SupportedTokens = ev.Tokens
	case BalancesLoaded:
		s.Balances = ev.Balances
		s.SelectedAsset = refreshSelection(s.SelectedAsset, ev.Balances)
	case DepositBalanceLoaded:
		s.DepositBalance = &DepositBalance{Symbol: ev.Symbol, Balance: ev.Balance}
	case TransactionsLoaded:
		s.Transactions = ev.Transactions
	case TransferSubmitted:
		s.Hashes = withEntry(s.Hashes, HashTransfer, ev.Hash)
	case AllowanceLoaded:
		s.Allowances = withEntry(s.Allowances, strings.ToUpper(ev.Symbol), ev.Allowance)
	case AllowanceGranted:
		s.Hashes = withEntry(s.Hashes, HashAllowance, ev.Hash)
	case DepositSubmitted:
		s.Hashes = withEntry(s.Hashes, HashDeposit, ev.Hash)
	case WithdrawalSubmitted:
		s.Hashes = withEntry(s.Hashes, HashWithdrawal, ev.Hash)
	case Registered:
		s.Hashes = withEntry(s.Hashes, HashRegistration, ev.Hash)
	case HashCleared:
		s.Hashes = withoutEntry(s.Hashes, ev.Kind)
	case AssetSelected:
		asset := ev.Asset
		s.SelectedAsset = &asset
	case FiatSelected:
		fiat := ev.Fiat
		s.SelectedFiat = &fiat
	case LoggedOut:
		s = State{
			Epoch:        s.Epoch + 1,
			SelectedFiat: s.SelectedFiat,
		}
	}

	return s, true
}

// refreshSelection points the selected asset at its entry in a fresh balance list.
func refreshSelection(selected *domain.Balance, balances []domain.Balance) *domain.Balance {
	if selected == nil {
		return nil
	}
	if b, ok := domain.BalanceBySymbol(balances, selected.Symbol); ok {
		return &b
	}
	return nil
}

func withEntry[K comparable, V any](m map[K]V, k K, v V) map[K]V {
	out := make(map[K]V, len(m)+1)
	for key, val := range m {
		out[key] = val
	}
	out[k] = v
	return out
}

func withoutEntry[K comparable, V any](m map[K]V, k K) map[K]V {
	if _, ok := m[k]; !ok {
		return m
	}
	out := make(map[K]V, len(m))
	for key, val := range m {
		if key != k {
			out[key] = val
		}
	}
	return out
}
