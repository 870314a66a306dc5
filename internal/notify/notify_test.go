package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifier_Levels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	n := NewLogNotifier(zap.New(core))

	n.Notify(context.Background(), Notification{Level: LevelWarn, ID: WarnAccountNotFound, Workflow: "initialize"})
	n.Notify(context.Background(), Notification{Level: LevelError, ID: ErrTransfer, Workflow: "transfer", Detail: "boom"})

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, WarnAccountNotFound.Text(), entries[0].Message)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["detail"])
}

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Multi{a, nil, b}.Notify(context.Background(), Notification{ID: ErrDeposit})

	assert.Equal(t, []MessageID{ErrDeposit}, a.IDs())
	assert.Equal(t, []MessageID{ErrDeposit}, b.IDs())
}

func TestMessageText(t *testing.T) {
	assert.Equal(t, "The withdrawal failed.", ErrWithdrawal.Text())
	assert.Equal(t, "unknown.id", MessageID("unknown.id").Text())
}
