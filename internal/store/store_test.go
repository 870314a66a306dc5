package store

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/l2pay/internal/domain"
)

func balances(symbols ...string) []domain.Balance {
	out := make([]domain.Balance, 0, len(symbols))
	for i, s := range symbols {
		out = append(out, domain.Balance{Symbol: s, Balance: decimal.NewFromInt(int64(i + 1))})
	}
	return out
}

func TestReduce_LoadingCounters(t *testing.T) {
	s := State{}
	s, _ = Reduce(s, LoadingStarted{Kind: LoadingBalances})
	s, _ = Reduce(s, LoadingStarted{Kind: LoadingBalances})
	assert.Equal(t, 2, s.Loading[LoadingBalances])

	s, _ = Reduce(s, LoadingFinished{Kind: LoadingBalances})
	assert.True(t, s.IsLoading(LoadingBalances))

	s, _ = Reduce(s, LoadingFinished{Kind: LoadingBalances})
	s, _ = Reduce(s, LoadingFinished{Kind: LoadingBalances})
	assert.Equal(t, 0, s.Loading[LoadingBalances])
	assert.False(t, s.IsLoading(LoadingBalances))
}

func TestReduce_DoesNotMutatePreviousState(t *testing.T) {
	before, _ := Reduce(State{}, TransferSubmitted{Hash: "0x1"})
	after, _ := Reduce(before, HashCleared{Kind: HashTransfer})

	assert.Equal(t, "0x1", before.Hash(HashTransfer))
	assert.Empty(t, after.Hash(HashTransfer))
}

func TestReduce_LatestStartedWins(t *testing.T) {
	s := State{Epoch: 1}

	older := Ticket{Epoch: 1, Seq: 1}
	newer := Ticket{Epoch: 1, Seq: 2}

	s, applied := Reduce(s, BalancesLoaded{Ticket: newer, Balances: balances("LRC")})
	require.True(t, applied)

	s, applied = Reduce(s, BalancesLoaded{Ticket: older, Balances: balances("ETH")})
	assert.False(t, applied)
	assert.Equal(t, "LRC", s.Balances[0].Symbol)

	// other event kinds are fenced independently
	_, applied = Reduce(s, SupportedTokensLoaded{Ticket: older})
	assert.True(t, applied)
}

func TestReduce_AllowancesPerSymbol(t *testing.T) {
	s := State{}
	s, _ = Reduce(s, AllowanceLoaded{Ticket: Ticket{Seq: 2}, Symbol: "lrc", Allowance: decimal.NewFromInt(5)})
	s, applied := Reduce(s, AllowanceLoaded{Ticket: Ticket{Seq: 1}, Symbol: "USDT", Allowance: decimal.NewFromInt(1)})
	require.True(t, applied)

	lrc, ok := s.Allowance("LRC")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(5).Equal(lrc))
	_, ok = s.Allowance("USDT")
	assert.True(t, ok)
}

func TestReduce_AllowanceFenceIgnoresSymbolCase(t *testing.T) {
	s := State{}
	s, applied := Reduce(s, AllowanceLoaded{Ticket: Ticket{Seq: 2}, Symbol: "lrc", Allowance: decimal.NewFromInt(5)})
	require.True(t, applied)

	s, applied = Reduce(s, AllowanceLoaded{Ticket: Ticket{Seq: 1}, Symbol: "LRC", Allowance: decimal.NewFromInt(1)})
	assert.False(t, applied, "older fetch of the same token")

	lrc, ok := s.Allowance("LRC")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(5).Equal(lrc))
}

func TestReduce_LogoutClearsSessionAndFencesOldRuns(t *testing.T) {
	fiat := domain.DefaultFiat()
	s := State{Epoch: 1, SelectedFiat: &fiat}
	ticket := Ticket{Epoch: 1, Seq: 1}

	s, _ = Reduce(s, Initialized{Ticket: ticket, Session: domain.Session{AccountID: 3}})
	s, _ = Reduce(s, SupportedTokensLoaded{Ticket: ticket, Tokens: []domain.SupportedToken{{Symbol: "LRC"}}})
	s, _ = Reduce(s, BalancesLoaded{Ticket: ticket, Balances: balances("LRC")})
	s, _ = Reduce(s, AssetSelected{Asset: s.Balances[0]})
	s, _ = Reduce(s, LoadingStarted{Ticket: ticket, Kind: LoadingTransactions})
	require.NotNil(t, s.Session)

	s, _ = Reduce(s, LoggedOut{})
	assert.Equal(t, uint64(2), s.Epoch)
	assert.Nil(t, s.Session)
	assert.Nil(t, s.Exchange)
	assert.Nil(t, s.SelectedAsset)
	assert.Empty(t, s.SupportedTokens)
	assert.Empty(t, s.Balances)
	assert.False(t, s.ProviderConnected)
	assert.False(t, s.IsLoading(LoadingTransactions))
	require.NotNil(t, s.SelectedFiat)
	assert.Equal(t, fiat, *s.SelectedFiat)

	s, applied := Reduce(s, BalancesLoaded{Ticket: ticket, Balances: balances("ETH")})
	assert.False(t, applied)
	assert.Empty(t, s.Balances)

	_, applied = Reduce(s, LoadingFinished{Ticket: ticket, Kind: LoadingTransactions})
	assert.False(t, applied)
}

func TestReduce_BalancesRefreshSelection(t *testing.T) {
	s := State{}
	s, _ = Reduce(s, BalancesLoaded{Balances: balances("LRC", "ETH")})
	s, _ = Reduce(s, AssetSelected{Asset: s.Balances[1]})

	updated := []domain.Balance{{Symbol: "ETH", Balance: decimal.NewFromInt(9)}}
	s, _ = Reduce(s, BalancesLoaded{Balances: updated})
	require.NotNil(t, s.SelectedAsset)
	assert.True(t, decimal.NewFromInt(9).Equal(s.SelectedAsset.Balance))

	s, _ = Reduce(s, BalancesLoaded{Balances: balances("USDT")})
	assert.Nil(t, s.SelectedAsset)
}

func TestStore_DispatchPublishes(t *testing.T) {
	st := New(zap.NewNop())
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	ticket := st.Begin()
	require.True(t, st.Dispatch(SupportedTokensLoaded{Ticket: ticket, Tokens: []domain.SupportedToken{{Symbol: "ETH"}}}))

	change := <-ch
	assert.Equal(t, EventSupportedTokens, change.Event.Type())
	assert.Len(t, change.State.SupportedTokens, 1)

	st.Dispatch(LoggedOut{})
	<-ch

	assert.False(t, st.Dispatch(SupportedTokensLoaded{Ticket: ticket}))
	select {
	case c := <-ch:
		t.Fatalf("stale event published: %s", c.Event.Type())
	default:
	}
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	st := New(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket := st.Begin()
			st.Dispatch(LoadingStarted{Ticket: ticket, Kind: LoadingBalances})
			st.Dispatch(LoadingFinished{Ticket: ticket, Kind: LoadingBalances})
		}()
	}
	wg.Wait()

	assert.False(t, st.State().IsLoading(LoadingBalances))
}
