package workflow

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/vadiminshakov/l2pay/internal/domain"
)

type exchangeMock struct {
	mock.Mock
}

func newExchangeMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *exchangeMock {
	m := &exchangeMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *exchangeMock) Account(ctx context.Context, address string) (domain.Account, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(domain.Account), args.Error(1)
}

func (m *exchangeMock) ExchangeInfo(ctx context.Context) (domain.ExchangeInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ExchangeInfo), args.Error(1)
}

func (m *exchangeMock) TokenInfo(ctx context.Context) ([]domain.SupportedToken, error) {
	args := m.Called(ctx)
	tokens, _ := args.Get(0).([]domain.SupportedToken)
	return tokens, args.Error(1)
}

func (m *exchangeMock) APIKey(ctx context.Context, accountID uint64, keyPair domain.KeyPair, signature string) (string, error) {
	args := m.Called(ctx, accountID, keyPair, signature)
	return args.String(0), args.Error(1)
}

func (m *exchangeMock) Balances(ctx context.Context, accountID uint64, apiKey string, tokens []domain.SupportedToken) ([]domain.TokenBalance, error) {
	args := m.Called(ctx, accountID, apiKey, tokens)
	balances, _ := args.Get(0).([]domain.TokenBalance)
	return balances, args.Error(1)
}

func (m *exchangeMock) Prices(ctx context.Context, fiat string) ([]domain.Price, error) {
	args := m.Called(ctx, fiat)
	prices, _ := args.Get(0).([]domain.Price)
	return prices, args.Error(1)
}

func (m *exchangeMock) TransferHistory(ctx context.Context, accountID uint64, symbol string, limit, offset int, apiKey string, tokens []domain.SupportedToken) ([]domain.Transfer, error) {
	args := m.Called(ctx, accountID, symbol, limit, offset, apiKey, tokens)
	page, _ := args.Get(0).([]domain.Transfer)
	return page, args.Error(1)
}

func (m *exchangeMock) DepositHistory(ctx context.Context, accountID uint64, symbol string, limit, offset int, apiKey string, tokens []domain.SupportedToken) ([]domain.Deposit, error) {
	args := m.Called(ctx, accountID, symbol, limit, offset, apiKey, tokens)
	page, _ := args.Get(0).([]domain.Deposit)
	return page, args.Error(1)
}

func (m *exchangeMock) WithdrawalHistory(ctx context.Context, accountID uint64, symbol string, limit, offset int, apiKey string, tokens []domain.SupportedToken) ([]domain.Withdrawal, error) {
	args := m.Called(ctx, accountID, symbol, limit, offset, apiKey, tokens)
	page, _ := args.Get(0).([]domain.Withdrawal)
	return page, args.Error(1)
}

func (m *exchangeMock) SubmitTransfer(ctx context.Context, transfer domain.SignedTransfer, apiKey string) (string, error) {
	args := m.Called(ctx, transfer, apiKey)
	return args.String(0), args.Error(1)
}

func (m *exchangeMock) Allowance(ctx context.Context, owner, symbol string, tokens []domain.SupportedToken) (decimal.Decimal, error) {
	args := m.Called(ctx, owner, symbol, tokens)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *exchangeMock) RecommendedGasPrice(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	price, _ := args.Get(0).(*big.Int)
	return price, args.Error(1)
}

func (m *exchangeMock) EthNonce(ctx context.Context, address string) (uint64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *exchangeMock) EthBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *exchangeMock) TokenBalance(ctx context.Context, address, symbol string, tokens []domain.SupportedToken) (decimal.Decimal, error) {
	args := m.Called(ctx, address, symbol, tokens)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type walletMock struct {
	mock.Mock
	address   string
	accountID uint64
	keyPair   domain.KeyPair
}

func newWalletMock(t interface {
	mock.TestingT
	Cleanup(func())
}, address string) *walletMock {
	m := &walletMock{address: address}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *walletMock) Address() string         { return m.address }
func (m *walletMock) AccountID() uint64       { return m.accountID }
func (m *walletMock) KeyPair() domain.KeyPair { return m.keyPair }

func (m *walletMock) Bind(accountID uint64, keyPair domain.KeyPair) error {
	args := m.Called(accountID, keyPair)
	if args.Error(0) == nil {
		m.accountID, m.keyPair = accountID, keyPair
	}
	return args.Error(0)
}

func (m *walletMock) GenerateKeyPair(ctx context.Context, exchangeAddress string, keyNonce uint64) (domain.KeyPair, error) {
	args := m.Called(ctx, exchangeAddress, keyNonce)
	return args.Get(0).(domain.KeyPair), args.Error(1)
}

func (m *walletMock) APIKeySignature(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *walletMock) SignTransfer(ctx context.Context, req domain.TransferRequest, tokens []domain.SupportedToken) (domain.SignedTransfer, error) {
	args := m.Called(ctx, req, tokens)
	return args.Get(0).(domain.SignedTransfer), args.Error(1)
}

func (m *walletMock) ApproveMax(ctx context.Context, tokenAddress, exchangeAddress string, chainID int64, nonce uint64, gasPrice *big.Int) (string, error) {
	args := m.Called(ctx, tokenAddress, exchangeAddress, chainID, nonce, gasPrice)
	return args.String(0), args.Error(1)
}

func (m *walletMock) DepositTo(ctx context.Context, req domain.OnchainRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *walletMock) CreateOrUpdateAccount(ctx context.Context, keyPair domain.KeyPair, req domain.OnchainRequest) (string, error) {
	args := m.Called(ctx, keyPair, req)
	return args.String(0), args.Error(1)
}

func (m *walletMock) OnchainWithdrawal(ctx context.Context, req domain.OnchainRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type staticProvider struct {
	accounts []string
	err      error
}

func (p staticProvider) Accounts(context.Context) ([]string, error) {
	return p.accounts, p.err
}
