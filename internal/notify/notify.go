// Package notify maps workflow outcomes to user-facing message identifiers.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level severity of a notification.
type Level string

const (
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// MessageID stable identifier of a user-facing message.
type MessageID string

const (
	WarnAccountNotFound         MessageID = "warn.account.not.found"
	ErrInitialization           MessageID = "error.loopring.initialization"
	ErrSupportedTokens          MessageID = "error.loopring.supported.tokens"
	ErrUserBalances             MessageID = "error.loopring.user.balances"
	ErrDepositBalance           MessageID = "error.loopring.deposit.balance"
	ErrTokenTransactions        MessageID = "error.loopring.token.transactions"
	ErrTransfer                 MessageID = "error.loopring.transfer"
	ErrTokenAllowanceGet        MessageID = "error.loopring.token.allowance.get"
	ErrTokenAllowanceGrant      MessageID = "error.loopring.token.allowance.grant"
	ErrDeposit                  MessageID = "error.loopring.deposit"
	WarnRegisterExistingAccount MessageID = "warn.register.existing.account"
	ErrRegister                 MessageID = "error.loopring.register"
	ErrWithdrawal               MessageID = "error.loopring.withdrawal"
)

var catalogue = map[MessageID]string{
	WarnAccountNotFound:         "No exchange account is registered for this wallet.",
	ErrInitialization:           "Could not unlock your exchange account.",
	ErrSupportedTokens:          "Could not load the list of supported tokens.",
	ErrUserBalances:             "Could not load your balances.",
	ErrDepositBalance:           "Could not load your wallet balance.",
	ErrTokenTransactions:        "Could not load your transactions.",
	ErrTransfer:                 "The transfer failed.",
	ErrTokenAllowanceGet:        "Could not load the token allowance.",
	ErrTokenAllowanceGrant:      "Could not grant the token allowance.",
	ErrDeposit:                  "The deposit failed.",
	WarnRegisterExistingAccount: "This wallet already has an exchange account.",
	ErrRegister:                 "Registration failed.",
	ErrWithdrawal:               "The withdrawal failed.",
}

// Text returns the English text of a message, or the id itself when unknown.
func (id MessageID) Text() string {
	if text, ok := catalogue[id]; ok {
		return text
	}
	return string(id)
}

// Notification user-facing warning or error.
type Notification struct {
	Time     time.Time `json:"time"`
	Level    Level     `json:"level"`
	ID       MessageID `json:"id"`
	Workflow string    `json:"workflow"`
	RunID    string    `json:"runId,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

// Notifier delivers notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the logger.
type LogNotifier struct {
	l *zap.Logger
}

// NewLogNotifier creates a notifier backed by l.
func NewLogNotifier(l *zap.Logger) *LogNotifier {
	return &LogNotifier{l: l}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, msg Notification) {
	fields := []zap.Field{
		zap.String("id", string(msg.ID)),
		zap.String("workflow", msg.Workflow),
		zap.String("run_id", msg.RunID),
	}
	if msg.Detail != "" {
		fields = append(fields, zap.String("detail", msg.Detail))
	}

	if msg.Level == LevelWarn {
		n.l.Warn(msg.ID.Text(), fields...)
		return
	}
	n.l.Error(msg.ID.Text(), fields...)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu   sync.Mutex
	list []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.list = append(r.list, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.list...)
}

// IDs returns recorded message ids in order.
func (r *Recorder) IDs() []MessageID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]MessageID, 0, len(r.list))
	for _, n := range r.list {
		ids = append(ids, n.ID)
	}
	return ids
}
