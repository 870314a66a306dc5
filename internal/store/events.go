package store

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/l2pay/internal/domain"
)

// EventType name of a state change.
type EventType string

const (
	EventProviderConnected   EventType = "provider_connected"
	EventInitialized         EventType = "initialize_success"
	EventLoadingStarted      EventType = "loading_start"
	EventLoadingFinished     EventType = "loading_end"
	EventSupportedTokens     EventType = "get_supported_tokens_success"
	EventBalances            EventType = "get_balances_success"
	EventDepositBalance      EventType = "get_deposit_balance_success"
	EventTransactions        EventType = "get_transactions_success"
	EventTransferSubmitted   EventType = "post_transfer_success"
	EventAllowance           EventType = "get_allowance_success"
	EventAllowanceGranted    EventType = "grant_allowance_success"
	EventDepositSubmitted    EventType = "post_deposit_success"
	EventWithdrawalSubmitted EventType = "post_withdrawal_success"
	EventRegistered          EventType = "post_registration_success"
	EventHashCleared         EventType = "delete_hash"
	EventAssetSelected       EventType = "post_selected_asset"
	EventFiatSelected        EventType = "post_selected_fiat"
	EventLoggedOut           EventType = "post_logout"
)

// LoadingKind operation tracked by a loading counter.
type LoadingKind string

const (
	LoadingSupportedTokens LoadingKind = "supported_tokens"
	LoadingBalances        LoadingKind = "balances"
	LoadingTransactions    LoadingKind = "transactions"
	LoadingTransfer        LoadingKind = "transfer"
	LoadingAllowance       LoadingKind = "allowance"
	LoadingGrantAllowance  LoadingKind = "grant_allowance"
)

// HashKind transaction hash slot awaiting acknowledgement.
type HashKind string

const (
	HashTransfer     HashKind = "transfer"
	HashAllowance    HashKind = "grant_allowance"
	HashDeposit      HashKind = "deposit"
	HashWithdrawal   HashKind = "withdrawal"
	HashRegistration HashKind = "registration"
)

// Event state change dispatched to the store.
type Event interface {
	Type() EventType
}

// Ticket identifies a workflow run. Events carrying a ticket from an older
// epoch are discarded, as are data events older than the newest one applied.
type Ticket struct {
	Epoch uint64 `json:"epoch"`
	Seq   uint64 `json:"seq"`
}

func (t Ticket) ticket() Ticket { return t }

type fenced interface {
	ticket() Ticket
}

type latestWins interface {
	fenceKey() string
}

// ProviderConnected chain provider became available or went away.
type ProviderConnected struct {
	Ticket
	Connected bool
}

// Initialized session unlocked.
type Initialized struct {
	Ticket
	Session  domain.Session
	Wallet   domain.Wallet
	Exchange domain.ExchangeInfo
}

// LoadingStarted operation began.
type LoadingStarted struct {
	Ticket
	Kind LoadingKind
}

// LoadingFinished operation ended, successfully or not.
type LoadingFinished struct {
	Ticket
	Kind LoadingKind
}

// SupportedTokensLoaded token list fetched.
type SupportedTokensLoaded struct {
	Ticket
	Tokens []domain.SupportedToken
}

// BalancesLoaded balance list rebuilt.
type BalancesLoaded struct {
	Ticket
	Balances []domain.Balance
}

// DepositBalanceLoaded on-chain wallet balance of a token fetched.
type DepositBalanceLoaded struct {
	Ticket
	Symbol  string
	Balance decimal.Decimal
}

// TransactionsLoaded merged history fetched.
type TransactionsLoaded struct {
	Ticket
	Transactions []domain.Transaction
}

// TransferSubmitted transfer accepted by the exchange.
type TransferSubmitted struct {
	Ticket
	Hash string
}

// AllowanceLoaded allowance of a token fetched.
type AllowanceLoaded struct {
	Ticket
	Symbol    string
	Allowance decimal.Decimal
}

// AllowanceGranted approve transaction sent.
type AllowanceGranted struct {
	Ticket
	Hash string
}

// DepositSubmitted deposit transaction sent.
type DepositSubmitted struct {
	Ticket
	Hash string
}

// WithdrawalSubmitted withdrawal transaction sent.
type WithdrawalSubmitted struct {
	Ticket
	Hash string
}

// Registered registration transaction sent.
type Registered struct {
	Ticket
	Hash string
}

// HashCleared acknowledges a reported transaction hash.
type HashCleared struct {
	Kind HashKind
}

// AssetSelected user or default asset selection.
type AssetSelected struct {
	Asset domain.Balance
}

// FiatSelected valuation currency changed.
type FiatSelected struct {
	Fiat domain.Fiat
}

// LoggedOut session ended.
type LoggedOut struct{}

func (ProviderConnected) Type() EventType     { return EventProviderConnected }
func (Initialized) Type() EventType           { return EventInitialized }
func (LoadingStarted) Type() EventType        { return EventLoadingStarted }
func (LoadingFinished) Type() EventType       { return EventLoadingFinished }
func (SupportedTokensLoaded) Type() EventType { return EventSupportedTokens }
func (BalancesLoaded) Type() EventType        { return EventBalances }
func (DepositBalanceLoaded) Type() EventType  { return EventDepositBalance }
func (TransactionsLoaded) Type() EventType    { return EventTransactions }
func (TransferSubmitted) Type() EventType     { return EventTransferSubmitted }
func (AllowanceLoaded) Type() EventType       { return EventAllowance }
func (AllowanceGranted) Type() EventType      { return EventAllowanceGranted }
func (DepositSubmitted) Type() EventType      { return EventDepositSubmitted }
func (WithdrawalSubmitted) Type() EventType   { return EventWithdrawalSubmitted }
func (Registered) Type() EventType            { return EventRegistered }
func (HashCleared) Type() EventType           { return EventHashCleared }
func (AssetSelected) Type() EventType         { return EventAssetSelected }
func (FiatSelected) Type() EventType          { return EventFiatSelected }
func (LoggedOut) Type() EventType             { return EventLoggedOut }

func (Initialized) fenceKey() string           { return string(EventInitialized) }
func (SupportedTokensLoaded) fenceKey() string { return string(EventSupportedTokens) }
func (BalancesLoaded) fenceKey() string        { return string(EventBalances) }
func (TransactionsLoaded) fenceKey() string    { return string(EventTransactions) }
func (DepositBalanceLoaded) fenceKey() string  { return string(EventDepositBalance) }
func (e AllowanceLoaded) fenceKey() string {
	return string(EventAllowance) + ":" + strings.ToUpper(e.Symbol)
}
