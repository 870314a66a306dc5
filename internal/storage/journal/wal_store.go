package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/l2pay/internal/notify"
)

const (
	defaultJournalDir   = "./wal/journal"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	runKeyPrefix        = "run_"
	notificationKey     = "notification"
)

// Kind type of a journal record.
type Kind string

const (
	KindRun          Kind = "run"
	KindNotification Kind = "notification"
)

// Status state of a workflow run.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusAborted Status = "aborted"
	StatusFailed  Status = "failed"
)

// Record journal entry describing a workflow run state or a notification.
type Record struct {
	Index        uint64               `json:"index"`
	Kind         Kind                 `json:"kind"`
	Time         time.Time            `json:"time"`
	RunID        string               `json:"runId,omitempty"`
	Workflow     string               `json:"workflow,omitempty"`
	Status       Status               `json:"status,omitempty"`
	Hash         string               `json:"hash,omitempty"`
	Error        string               `json:"error,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
}

// WALStore persists journal records in a WAL for inspection and streaming.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed journal under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes the record and returns its index.
func (s *WALStore) Append(rec Record) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errors.New("journal is not initialized")
	}
	if rec.Kind == "" {
		return 0, fmt.Errorf("journal record kind is required")
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Index = s.wal.CurrentIndex() + 1
	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, errors.Wrap(err, "marshal journal record")
	}

	key := notificationKey
	if rec.Kind == KindRun {
		key = runKeyPrefix + rec.RunID
	}

	if err := s.wal.Write(rec.Index, key, payload); err != nil {
		return 0, errors.Wrap(err, "write journal record")
	}
	return rec.Index, nil
}

// RecordsAfter returns all records written after the provided index.
func (s *WALStore) RecordsAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wal.CurrentIndex() <= index {
		return nil, nil
	}

	var records []Record
	for msg := range s.wal.Iterator() {
		var rec Record
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			return nil, errors.Wrapf(err, "decode journal record %s", msg.Key)
		}
		if rec.Index > index {
			records = append(records, rec)
		}
	}

	return records, nil
}

// CurrentIndex returns the latest index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

// Notifier records notifications in the journal.
type Notifier struct {
	store *WALStore
	l     *zap.Logger
}

// NewNotifier creates a notifier writing to store.
func NewNotifier(store *WALStore, l *zap.Logger) *Notifier {
	return &Notifier{store: store, l: l}
}

// Notify implements notify.Notifier.
func (n *Notifier) Notify(_ context.Context, msg notify.Notification) {
	rec := Record{
		Kind:         KindNotification,
		Time:         msg.Time,
		RunID:        msg.RunID,
		Workflow:     msg.Workflow,
		Notification: &msg,
	}
	if _, err := n.store.Append(rec); err != nil {
		n.l.Error("failed to journal notification", zap.String("id", string(msg.ID)), zap.Error(err))
	}
}
