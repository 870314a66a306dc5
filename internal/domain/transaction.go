package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TxKind kind of a history entry.
type TxKind string

const (
	TxKindTransfer   TxKind = "transfer"
	TxKindDeposit    TxKind = "deposit"
	TxKindWithdrawal TxKind = "withdrawal"
)

// DepositTypeCreateAccount deposit made as part of account registration.
const DepositTypeCreateAccount = "create_account"

// Transaction history entry. Concrete values are *Transfer, *Deposit or *Withdrawal.
type Transaction interface {
	Kind() TxKind
	Common() TxBase
}

// TxBase fields shared by every transaction kind.
type TxBase struct {
	Hash      string          `json:"hash"`
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`
	FeeAmount decimal.Decimal `json:"feeAmount"`
	Timestamp time.Time       `json:"timestamp"`
	Status    string          `json:"status"`
}

// Common returns the shared fields.
func (b TxBase) Common() TxBase { return b }

// Transfer layer-2 transfer between two accounts.
type Transfer struct {
	TxBase
	Sender   string `json:"senderAddress"`
	Receiver string `json:"receiverAddress"`
	Memo     string `json:"memo,omitempty"`
	// Sent is true when the viewing wallet is the sender.
	Sent bool `json:"sent"`
}

// Kind implements Transaction.
func (*Transfer) Kind() TxKind { return TxKindTransfer }

// Deposit on-chain deposit into the exchange.
type Deposit struct {
	TxBase
	DepositType string `json:"depositType"`
}

// Kind implements Transaction.
func (*Deposit) Kind() TxKind { return TxKindDeposit }

// Withdrawal on-chain withdrawal out of the exchange.
type Withdrawal struct {
	TxBase
	Recipient string `json:"recipient"`
}

// Kind implements Transaction.
func (*Withdrawal) Kind() TxKind { return TxKindWithdrawal }

// TxFilter selects which history kinds are fetched.
type TxFilter string

const (
	TxFilterAll         TxFilter = "all"
	TxFilterTransfers   TxFilter = "transfers"
	TxFilterDeposits    TxFilter = "deposits"
	TxFilterWithdrawals TxFilter = "withdrawals"
)

// IsValid checks if the TxFilter value is valid.
func (f TxFilter) IsValid() bool {
	switch f {
	case TxFilterAll, TxFilterTransfers, TxFilterDeposits, TxFilterWithdrawals:
		return true
	}
	return false
}

// Includes reports whether the filter covers the kind.
func (f TxFilter) Includes(kind TxKind) bool {
	switch f {
	case TxFilterAll:
		return true
	case TxFilterTransfers:
		return kind == TxKindTransfer
	case TxFilterDeposits:
		return kind == TxKindDeposit
	case TxFilterWithdrawals:
		return kind == TxKindWithdrawal
	}
	return false
}

// MergeTransactions combines history pages, drops account-creation deposits
// and orders the result by timestamp, oldest first.
func MergeTransactions(transfers []Transfer, deposits []Deposit, withdrawals []Withdrawal) []Transaction {
	merged := make([]Transaction, 0, len(transfers)+len(deposits)+len(withdrawals))
	for i := range transfers {
		merged = append(merged, &transfers[i])
	}
	for i := range deposits {
		if deposits[i].DepositType == DepositTypeCreateAccount {
			continue
		}
		merged = append(merged, &deposits[i])
	}
	for i := range withdrawals {
		merged = append(merged, &withdrawals[i])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Common().Timestamp.Before(merged[j].Common().Timestamp)
	})

	return merged
}
