package workflow

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/l2pay/internal/domain"
	"github.com/vadiminshakov/l2pay/internal/notify"
	"github.com/vadiminshakov/l2pay/internal/storage/journal"
	"github.com/vadiminshakov/l2pay/internal/store"
)

const (
	ownerAddress    = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
	receiverAddress = "0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F"
	exchangeAddress = "0x944644Ea989Ec64c2Ab9eF341D383cEf586A5777"
)

type fixture struct {
	o       *Orchestrator
	ex      *exchangeMock
	w       *walletMock
	st      *store.Store
	rec     *notify.Recorder
	changes chan store.Change
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		ex:  newExchangeMock(t),
		w:   newWalletMock(t, ownerAddress),
		st:  store.New(zap.NewNop()),
		rec: &notify.Recorder{},
	}
	f.changes = f.st.Subscribe()
	connect := func(context.Context, string) (domain.Wallet, error) { return f.w, nil }
	f.o = New(zap.NewNop(), f.ex, f.st, f.rec, nil, connect)
	return f
}

// events drains the changes published so far.
func (f *fixture) events() []store.EventType {
	var types []store.EventType
	for {
		select {
		case c := <-f.changes:
			types = append(types, c.Event.Type())
		default:
			return types
		}
	}
}

func testTokens() []domain.SupportedToken {
	return []domain.SupportedToken{
		{TokenID: 0, Symbol: "ETH", Name: "Ether", Decimals: 18, Enabled: true, DepositEnabled: true},
		{TokenID: 2, Symbol: "LRC", Name: "Loopring", Address: "0xbbbb", Decimals: 18, Enabled: true, DepositEnabled: true},
		{TokenID: 3, Symbol: "USDT", Name: "Tether", Address: "0xcccc", Decimals: 6, Enabled: true},
	}
}

func testExchange() domain.ExchangeInfo {
	return domain.ExchangeInfo{
		ExchangeID:      2,
		ExchangeAddress: exchangeAddress,
		ChainID:         1,
		TransferFees:    []domain.TokenFee{{Token: "LRC", Fee: "1000000000000000000"}},
		OnchainFees: []domain.OnchainFee{
			{Type: domain.OnchainFeeCreate, Fee: "1000"},
			{Type: domain.OnchainFeeDeposit, Fee: "500"},
			{Type: domain.OnchainFeeWithdraw, Fee: "700"},
		},
	}
}

func testAccount() domain.Account {
	return domain.Account{
		AccountID:  11,
		Owner:      ownerAddress,
		PublicKeyX: "0x01",
		PublicKeyY: "0x02",
		Nonce:      4,
		KeyNonce:   1,
	}
}

func notFound() error {
	return domain.ErrAccountNotFound
}

func TestInitialize(t *testing.T) {
	keyPair := domain.KeyPair{PublicKeyX: "0x01", PublicKeyY: "0x02", SecretKey: "0x03"}

	t.Run("unlocks the account", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("Account", mock.Anything, ownerAddress).Return(testAccount(), nil)
		f.ex.On("ExchangeInfo", mock.Anything).Return(testExchange(), nil)
		f.w.On("GenerateKeyPair", mock.Anything, exchangeAddress, uint64(1)).Return(keyPair, nil)
		f.w.On("Bind", uint64(11), keyPair).Return(nil)

		f.o.Initialize(context.Background(), staticProvider{accounts: []string{ownerAddress}})

		st := f.st.State()
		require.NotNil(t, st.Session)
		require.Equal(t, uint64(11), st.Session.AccountID)
		require.Equal(t, uint64(4), st.Session.AccountNonce)
		require.Equal(t, ownerAddress, st.Session.WalletAddress)
		require.NotNil(t, st.Exchange)
		require.Equal(t, exchangeAddress, st.Exchange.ExchangeAddress)
		require.Equal(t, f.w, st.Wallet)
		require.True(t, st.ProviderConnected)
		require.Empty(t, f.rec.All())
		require.Equal(t, []store.EventType{store.EventProviderConnected, store.EventInitialized}, f.events())
	})

	t.Run("unregistered account warns", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("Account", mock.Anything, ownerAddress).Return(domain.Account{}, notFound())

		f.o.Initialize(context.Background(), staticProvider{accounts: []string{ownerAddress}})

		st := f.st.State()
		require.Nil(t, st.Session)
		require.True(t, st.ProviderConnected)
		require.Equal(t, []notify.MessageID{notify.WarnAccountNotFound}, f.rec.IDs())
		require.Equal(t, notify.LevelWarn, f.rec.All()[0].Level)
	})

	t.Run("lookup failure is an error", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("Account", mock.Anything, ownerAddress).Return(domain.Account{}, errors.New("connection refused"))

		f.o.Initialize(context.Background(), staticProvider{accounts: []string{ownerAddress}})

		require.Nil(t, f.st.State().Session)
		require.Equal(t, []notify.MessageID{notify.ErrInitialization}, f.rec.IDs())
	})

	t.Run("user abort is silent", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("Account", mock.Anything, ownerAddress).Return(testAccount(), nil)
		f.ex.On("ExchangeInfo", mock.Anything).Return(testExchange(), nil)
		f.w.On("GenerateKeyPair", mock.Anything, exchangeAddress, uint64(1)).Return(domain.KeyPair{}, domain.ErrUserAborted)

		f.o.Initialize(context.Background(), staticProvider{accounts: []string{ownerAddress}})

		require.Nil(t, f.st.State().Session)
		require.Empty(t, f.rec.All())
	})

	t.Run("key mismatch is an error", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("Account", mock.Anything, ownerAddress).Return(testAccount(), nil)
		f.ex.On("ExchangeInfo", mock.Anything).Return(testExchange(), nil)
		f.w.On("GenerateKeyPair", mock.Anything, exchangeAddress, uint64(1)).
			Return(domain.KeyPair{PublicKeyX: "0x01", PublicKeyY: "0x09", SecretKey: "0x03"}, nil)

		f.o.Initialize(context.Background(), staticProvider{accounts: []string{ownerAddress}})

		require.Nil(t, f.st.State().Session)
		require.Equal(t, []notify.MessageID{notify.ErrInitialization}, f.rec.IDs())
		require.Contains(t, f.rec.All()[0].Detail, domain.ErrKeyMismatch.Error())
	})

	t.Run("provider without accounts", func(t *testing.T) {
		f := newFixture(t)

		f.o.Initialize(context.Background(), staticProvider{})

		require.False(t, f.st.State().ProviderConnected)
		require.Equal(t, []notify.MessageID{notify.ErrInitialization}, f.rec.IDs())
	})
}

func TestRegister(t *testing.T) {
	keyPair := domain.KeyPair{PublicKeyX: "0x01", PublicKeyY: "0x02", SecretKey: "0x03"}

	t.Run("fee is create plus deposit", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("Account", mock.Anything, ownerAddress).Return(domain.Account{}, notFound())
		f.ex.On("ExchangeInfo", mock.Anything).Return(testExchange(), nil)
		f.ex.On("TokenInfo", mock.Anything).Return(testTokens(), nil)
		f.ex.On("EthNonce", mock.Anything, ownerAddress).Return(uint64(9), nil)
		f.ex.On("RecommendedGasPrice", mock.Anything).Return(big.NewInt(20_000_000_000), nil)
		f.w.On("GenerateKeyPair", mock.Anything, exchangeAddress, uint64(0)).Return(keyPair, nil)
		f.w.On("CreateOrUpdateAccount", mock.Anything, keyPair, mock.MatchedBy(func(req domain.OnchainRequest) bool {
			return req.Fee.Cmp(big.NewInt(1500)) == 0 &&
				req.Token.Symbol == "ETH" &&
				req.Amount.IsZero() &&
				req.Nonce == 9 &&
				req.ExchangeAddress == exchangeAddress
		})).Return("0xreg", nil)

		f.o.Register(context.Background(), staticProvider{accounts: []string{ownerAddress}})

		require.Equal(t, "0xreg", f.st.State().Hash(store.HashRegistration))
		require.Empty(t, f.rec.All())
	})

	t.Run("existing account warns", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("Account", mock.Anything, ownerAddress).Return(testAccount(), nil)

		f.o.Register(context.Background(), staticProvider{accounts: []string{ownerAddress}})

		require.Empty(t, f.st.State().Hash(store.HashRegistration))
		require.Equal(t, []notify.MessageID{notify.WarnRegisterExistingAccount}, f.rec.IDs())
	})

	t.Run("lookup failure stops registration", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("Account", mock.Anything, ownerAddress).Return(domain.Account{}, errors.New("timeout"))

		f.o.Register(context.Background(), staticProvider{accounts: []string{ownerAddress}})

		require.Equal(t, []notify.MessageID{notify.ErrRegister}, f.rec.IDs())
	})

	t.Run("missing secret key fails", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("Account", mock.Anything, ownerAddress).Return(domain.Account{}, notFound())
		f.ex.On("ExchangeInfo", mock.Anything).Return(testExchange(), nil)
		f.ex.On("TokenInfo", mock.Anything).Return(testTokens(), nil)
		f.w.On("GenerateKeyPair", mock.Anything, exchangeAddress, uint64(0)).
			Return(domain.KeyPair{PublicKeyX: "0x01", PublicKeyY: "0x02"}, nil)

		f.o.Register(context.Background(), staticProvider{accounts: []string{ownerAddress}})

		require.Equal(t, []notify.MessageID{notify.ErrRegister}, f.rec.IDs())
	})
}

func TestFetchSupportedTokens(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("TokenInfo", mock.Anything).Return(testTokens(), nil)

		f.o.FetchSupportedTokens(context.Background())

		st := f.st.State()
		require.Len(t, st.SupportedTokens, 3)
		require.False(t, st.IsLoading(store.LoadingSupportedTokens))
		require.Equal(t, []store.EventType{
			store.EventLoadingStarted,
			store.EventSupportedTokens,
			store.EventLoadingFinished,
		}, f.events())
	})

	t.Run("failure ends loading", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("TokenInfo", mock.Anything).Return(nil, errors.New("502"))

		f.o.FetchSupportedTokens(context.Background())

		require.False(t, f.st.State().IsLoading(store.LoadingSupportedTokens))
		require.Equal(t, []store.EventType{store.EventLoadingStarted, store.EventLoadingFinished}, f.events())
		require.Equal(t, []notify.MessageID{notify.ErrSupportedTokens}, f.rec.IDs())
	})

	t.Run("result arriving after logout is discarded", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("TokenInfo", mock.Anything).
			Run(func(mock.Arguments) { f.o.Logout() }).
			Return(testTokens(), nil)

		f.o.FetchSupportedTokens(context.Background())

		st := f.st.State()
		require.Empty(t, st.SupportedTokens)
		require.Equal(t, uint64(2), st.Epoch)
		require.False(t, st.IsLoading(store.LoadingSupportedTokens))
	})
}

func TestFetchBalances(t *testing.T) {
	f := newFixture(t)
	f.w.accountID = 11
	tokens := testTokens()
	f.w.On("APIKeySignature", mock.Anything).Return("0xsig", nil)
	f.ex.On("APIKey", mock.Anything, uint64(11), domain.KeyPair{}, "0xsig").Return("key", nil)
	f.ex.On("Balances", mock.Anything, uint64(11), "key", tokens).Return([]domain.TokenBalance{
		{TokenID: 0, Amount: decimal.RequireFromString("1")},
		{TokenID: 2, Amount: decimal.RequireFromString("1000")},
	}, nil)
	f.ex.On("Prices", mock.Anything, "EUR").Return([]domain.Price{
		{Symbol: "ETH", Price: decimal.RequireFromString("2000")},
		{Symbol: "LRC", Price: decimal.RequireFromString("3")},
		{Symbol: "USDT", Price: decimal.RequireFromString("0.9")},
	}, nil)

	f.o.FetchBalances(context.Background(), f.w, tokens, domain.Fiat{Name: "EUR", Symbol: "€"})

	st := f.st.State()
	require.Len(t, st.Balances, 3)
	require.Equal(t, "LRC", st.Balances[0].Symbol)
	require.Equal(t, "ETH", st.Balances[1].Symbol)
	require.Equal(t, "USDT", st.Balances[2].Symbol)
	require.True(t, st.Balances[2].Balance.IsZero())
	require.False(t, st.IsLoading(store.LoadingBalances))
	require.Empty(t, f.rec.All())
}

func TestFetchDepositBalance(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		setup  func(ex *exchangeMock, tokens []domain.SupportedToken)
		want   string
	}{
		{
			name:   "native balance",
			symbol: "ETH",
			setup: func(ex *exchangeMock, _ []domain.SupportedToken) {
				ex.On("EthBalance", mock.Anything, ownerAddress).Return(decimal.RequireFromString("1.5"), nil)
			},
			want: "1.5",
		},
		{
			name:   "native symbol in lower case",
			symbol: "eth",
			setup: func(ex *exchangeMock, _ []domain.SupportedToken) {
				ex.On("EthBalance", mock.Anything, ownerAddress).Return(decimal.RequireFromString("0.25"), nil)
			},
			want: "0.25",
		},
		{
			name:   "token balance",
			symbol: "LRC",
			setup: func(ex *exchangeMock, tokens []domain.SupportedToken) {
				ex.On("TokenBalance", mock.Anything, ownerAddress, "LRC", tokens).Return(decimal.RequireFromString("42"), nil)
			},
			want: "42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tokens := testTokens()
			tt.setup(f.ex, tokens)

			f.o.FetchDepositBalance(context.Background(), f.w, tt.symbol, tokens)

			st := f.st.State()
			require.NotNil(t, st.DepositBalance)
			require.Equal(t, tt.symbol, st.DepositBalance.Symbol)
			require.True(t, decimal.RequireFromString(tt.want).Equal(st.DepositBalance.Balance))
		})
	}
}

func TestFetchTransactions(t *testing.T) {
	at := func(sec int64) time.Time { return time.Unix(sec, 0) }

	t.Run("merges all kinds oldest first", func(t *testing.T) {
		f := newFixture(t)
		f.w.accountID = 11
		tokens := testTokens()
		f.w.On("APIKeySignature", mock.Anything).Return("0xsig", nil)
		f.ex.On("APIKey", mock.Anything, uint64(11), domain.KeyPair{}, "0xsig").Return("key", nil)
		f.ex.On("TransferHistory", mock.Anything, uint64(11), "LRC", 50, 0, "key", tokens).Return([]domain.Transfer{
			{TxBase: domain.TxBase{Hash: "t3", Timestamp: at(3)}, Sender: "0x2C7536E3605D9C16A7A3D7B1898E529396A65C23"},
			{TxBase: domain.TxBase{Hash: "t1", Timestamp: at(1)}, Sender: receiverAddress},
		}, nil)
		f.ex.On("DepositHistory", mock.Anything, uint64(11), "LRC", 50, 0, "key", tokens).Return([]domain.Deposit{
			{TxBase: domain.TxBase{Hash: "d5", Timestamp: at(5)}},
			{TxBase: domain.TxBase{Hash: "create", Timestamp: at(0)}, DepositType: domain.DepositTypeCreateAccount},
		}, nil)
		f.ex.On("WithdrawalHistory", mock.Anything, uint64(11), "LRC", 50, 0, "key", tokens).Return([]domain.Withdrawal{
			{TxBase: domain.TxBase{Hash: "w2", Timestamp: at(2)}},
			{TxBase: domain.TxBase{Hash: "w4", Timestamp: at(4)}},
		}, nil)

		f.o.FetchTransactions(context.Background(), f.w, "LRC", tokens, 50, domain.TxFilterAll)

		st := f.st.State()
		hashes := make([]string, 0, len(st.Transactions))
		for _, tx := range st.Transactions {
			hashes = append(hashes, tx.Common().Hash)
		}
		require.Equal(t, []string{"t1", "w2", "t3", "w4", "d5"}, hashes)

		sent := st.Transactions[2].(*domain.Transfer)
		require.True(t, sent.Sent)
		received := st.Transactions[0].(*domain.Transfer)
		require.False(t, received.Sent)
		require.False(t, st.IsLoading(store.LoadingTransactions))
	})

	t.Run("filter limits requests", func(t *testing.T) {
		f := newFixture(t)
		tokens := testTokens()
		f.w.On("APIKeySignature", mock.Anything).Return("0xsig", nil)
		f.ex.On("APIKey", mock.Anything, uint64(0), domain.KeyPair{}, "0xsig").Return("key", nil)
		f.ex.On("DepositHistory", mock.Anything, uint64(0), "ETH", 10, 0, "key", tokens).Return([]domain.Deposit{
			{TxBase: domain.TxBase{Hash: "d1", Timestamp: at(1)}},
		}, nil)

		f.o.FetchTransactions(context.Background(), f.w, "ETH", tokens, 10, domain.TxFilterDeposits)

		require.Len(t, f.st.State().Transactions, 1)
		f.ex.AssertNotCalled(t, "TransferHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("page failure notifies", func(t *testing.T) {
		f := newFixture(t)
		tokens := testTokens()
		f.w.On("APIKeySignature", mock.Anything).Return("0xsig", nil)
		f.ex.On("APIKey", mock.Anything, uint64(0), domain.KeyPair{}, "0xsig").Return("key", nil)
		f.ex.On("WithdrawalHistory", mock.Anything, uint64(0), "ETH", 10, 0, "key", tokens).Return(nil, errors.New("boom"))

		f.o.FetchTransactions(context.Background(), f.w, "ETH", tokens, 10, domain.TxFilterWithdrawals)

		require.Empty(t, f.st.State().Transactions)
		require.Equal(t, []notify.MessageID{notify.ErrTokenTransactions}, f.rec.IDs())
	})
}

func TestSubmitTransfer(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		wantFee string
	}{
		{name: "fee listed for token", symbol: "LRC", wantFee: "1"},
		{name: "fee defaults to zero", symbol: "USDT", wantFee: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.w.accountID = 11
			tokens := testTokens()
			signed := domain.SignedTransfer{Sender: 11, Receiver: 12, Signature: "0xl2"}

			f.ex.On("Account", mock.Anything, ownerAddress).Return(testAccount(), nil)
			f.ex.On("Account", mock.Anything, receiverAddress).Return(domain.Account{AccountID: 12}, nil)
			f.w.On("SignTransfer", mock.Anything, mock.MatchedBy(func(req domain.TransferRequest) bool {
				return req.Receiver == 12 &&
					req.Nonce == 4 &&
					req.Token == tt.symbol &&
					req.FeeToken == tt.symbol &&
					req.FeeAmount.Equal(decimal.RequireFromString(tt.wantFee)) &&
					req.Amount.Equal(decimal.RequireFromString("10")) &&
					req.Memo == "rent" &&
					req.ExchangeID == 2
			}), tokens).Return(signed, nil)
			f.w.On("APIKeySignature", mock.Anything).Return("0xsig", nil)
			f.ex.On("APIKey", mock.Anything, uint64(11), domain.KeyPair{}, "0xsig").Return("key", nil)
			f.ex.On("SubmitTransfer", mock.Anything, signed, "key").Return("0xtransfer", nil)

			f.o.SubmitTransfer(context.Background(), f.w, testExchange(), TransferInput{
				Symbol:   tt.symbol,
				Receiver: receiverAddress,
				Memo:     "rent",
				Amount:   decimal.RequireFromString("10"),
			}, tokens)

			st := f.st.State()
			require.Equal(t, "0xtransfer", st.Hash(store.HashTransfer))
			require.False(t, st.IsLoading(store.LoadingTransfer))
			require.Empty(t, f.rec.All())

			f.o.ClearHash(store.HashTransfer)
			require.Empty(t, f.st.State().Hash(store.HashTransfer))
		})
	}

	t.Run("signing declined", func(t *testing.T) {
		f := newFixture(t)
		tokens := testTokens()
		f.ex.On("Account", mock.Anything, ownerAddress).Return(testAccount(), nil)
		f.ex.On("Account", mock.Anything, receiverAddress).Return(domain.Account{AccountID: 12}, nil)
		f.w.On("SignTransfer", mock.Anything, mock.Anything, tokens).Return(domain.SignedTransfer{}, domain.ErrUserAborted)

		f.o.SubmitTransfer(context.Background(), f.w, testExchange(), TransferInput{
			Symbol:   "ETH",
			Receiver: receiverAddress,
			Amount:   decimal.RequireFromString("1"),
		}, tokens)

		require.Empty(t, f.st.State().Hash(store.HashTransfer))
		require.Empty(t, f.rec.All())
	})

	t.Run("unknown receiver", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("Account", mock.Anything, ownerAddress).Return(testAccount(), nil)
		f.ex.On("Account", mock.Anything, receiverAddress).Return(domain.Account{}, notFound())

		f.o.SubmitTransfer(context.Background(), f.w, testExchange(), TransferInput{
			Symbol:   "ETH",
			Receiver: receiverAddress,
			Amount:   decimal.RequireFromString("1"),
		}, testTokens())

		require.Equal(t, []notify.MessageID{notify.ErrTransfer}, f.rec.IDs())
	})
}

func TestAllowance(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		f := newFixture(t)
		tokens := testTokens()
		f.ex.On("Allowance", mock.Anything, ownerAddress, "LRC", tokens).Return(decimal.RequireFromString("5"), nil)

		f.o.FetchAllowance(context.Background(), f.w, "LRC", tokens)

		got, ok := f.st.State().Allowance("lrc")
		require.True(t, ok)
		require.True(t, got.Equal(decimal.NewFromInt(5)))
	})

	t.Run("grant uses on-chain nonce", func(t *testing.T) {
		f := newFixture(t)
		gas := big.NewInt(30)
		f.ex.On("EthNonce", mock.Anything, ownerAddress).Return(uint64(7), nil)
		f.ex.On("RecommendedGasPrice", mock.Anything).Return(gas, nil)
		f.w.On("ApproveMax", mock.Anything, "0xbbbb", exchangeAddress, int64(1), uint64(7), gas).Return("0xapprove", nil)

		f.o.GrantAllowance(context.Background(), f.w, testExchange(), "LRC", "0xbbbb")

		st := f.st.State()
		require.Equal(t, "0xapprove", st.Hash(store.HashAllowance))
		require.False(t, st.IsLoading(store.LoadingGrantAllowance))
	})

	t.Run("grant failure", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("EthNonce", mock.Anything, ownerAddress).Return(uint64(0), errors.New("rpc down"))

		f.o.GrantAllowance(context.Background(), f.w, testExchange(), "LRC", "0xbbbb")

		require.Equal(t, []notify.MessageID{notify.ErrTokenAllowanceGrant}, f.rec.IDs())
		require.False(t, f.st.State().IsLoading(store.LoadingGrantAllowance))
	})
}

func TestOnchainOperations(t *testing.T) {
	gas := big.NewInt(40)

	t.Run("deposit", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("EthNonce", mock.Anything, ownerAddress).Return(uint64(3), nil)
		f.ex.On("RecommendedGasPrice", mock.Anything).Return(gas, nil)
		f.w.On("DepositTo", mock.Anything, mock.MatchedBy(func(req domain.OnchainRequest) bool {
			return req.Fee.Cmp(big.NewInt(500)) == 0 && req.Token.Symbol == "LRC" && req.Nonce == 3 &&
				req.Amount.Equal(decimal.NewFromInt(2))
		})).Return("0xdeposit", nil)

		f.o.Deposit(context.Background(), f.w, testExchange(), testTokens(), "LRC", decimal.NewFromInt(2))

		require.Equal(t, "0xdeposit", f.st.State().Hash(store.HashDeposit))
		require.Equal(t, []store.EventType{store.EventDepositSubmitted}, f.events())
	})

	t.Run("withdrawal", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("EthNonce", mock.Anything, ownerAddress).Return(uint64(3), nil)
		f.ex.On("RecommendedGasPrice", mock.Anything).Return(gas, nil)
		f.w.On("OnchainWithdrawal", mock.Anything, mock.MatchedBy(func(req domain.OnchainRequest) bool {
			return req.Fee.Cmp(big.NewInt(700)) == 0 && req.Token.Symbol == "ETH"
		})).Return("0xwithdraw", nil)

		f.o.OnchainWithdrawal(context.Background(), f.w, testExchange(), "ETH", testTokens(), decimal.NewFromInt(1))

		require.Equal(t, "0xwithdraw", f.st.State().Hash(store.HashWithdrawal))
	})

	t.Run("withdrawal declined", func(t *testing.T) {
		f := newFixture(t)
		f.ex.On("EthNonce", mock.Anything, ownerAddress).Return(uint64(3), nil)
		f.ex.On("RecommendedGasPrice", mock.Anything).Return(gas, nil)
		f.w.On("OnchainWithdrawal", mock.Anything, mock.Anything).Return("", domain.ErrUserAborted)

		f.o.OnchainWithdrawal(context.Background(), f.w, testExchange(), "ETH", testTokens(), decimal.NewFromInt(1))

		require.Empty(t, f.st.State().Hash(store.HashWithdrawal))
		require.Empty(t, f.rec.All())
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)

		f.o.Deposit(context.Background(), f.w, testExchange(), testTokens(), "DOGE", decimal.NewFromInt(1))

		require.Equal(t, []notify.MessageID{notify.ErrDeposit}, f.rec.IDs())
	})
}

func TestRunsAreJournaled(t *testing.T) {
	j, err := journal.NewWALStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	ex := newExchangeMock(t)
	ex.On("TokenInfo", mock.Anything).Return(nil, errors.New("502"))
	rec := &notify.Recorder{}
	o := New(zap.NewNop(), ex, store.New(zap.NewNop()), rec, j, nil)

	o.FetchSupportedTokens(context.Background())

	records, err := j.RecordsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, journal.StatusPending, records[0].Status)
	require.Equal(t, journal.StatusFailed, records[1].Status)
	require.Equal(t, records[0].RunID, records[1].RunID)
	require.Equal(t, "fetch_supported_tokens", records[1].Workflow)
	require.Contains(t, records[1].Error, "502")
}
