package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"study-session/internal/domain"
	"study-session/internal/logger"
	"study-session/internal/metrics"
	"go.uber.org/zap"
)

const (
	// LedgerCapacity bounds the number of stored quiz results.
	LedgerCapacity = 20
	// DefaultLedgerKey is the storage key holding the serialized ledger.
	DefaultLedgerKey = "quizResults"
)

// KVStore abstracts the key-value storage backing the ledger (memory, SQLite, Redis, Postgres).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Ledger is the capacity-bounded record of finished quizzes, stored as one JSON array.
type Ledger struct {
	store    KVStore
	key      string
	capacity int
	log      *zap.Logger

	mu sync.Mutex
}

// LedgerOption customizes a Ledger.
type LedgerOption func(*Ledger)

// WithLedgerKey overrides the storage key.
func WithLedgerKey(key string) LedgerOption {
	return func(l *Ledger) {
		if key != "" {
			l.key = key
		}
	}
}

// WithLedgerLogger attaches a logger.
func WithLedgerLogger(log *zap.Logger) LedgerOption {
	return func(l *Ledger) { l.log = logger.OrNop(log) }
}

func NewLedger(store KVStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:    store,
		key:      DefaultLedgerKey,
		capacity: LedgerCapacity,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append adds result to the end, evicting the oldest entries beyond capacity.
// The whole sequence is written with a single Set. Stored entries that cannot be decoded
// are written back unchanged and count toward capacity.
func (l *Ledger) Append(ctx context.Context, result domain.QuizResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read(ctx)
	if err != nil {
		// Never overwrite entries the store failed to return.
		return fmt.Errorf("read ledger: %w", err)
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	entries = append(entries, encoded)
	if over := len(entries) - l.capacity; over > 0 {
		entries = entries[over:]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	err = l.store.Set(ctx, l.key, data)
	metrics.LedgerWrites.WithLabelValues("append", metrics.Outcome(err)).Inc()
	if err != nil {
		l.log.Error("ledger append failed", zap.String("key", l.key), zap.Error(err))
		return fmt.Errorf("write ledger: %w", err)
	}
	l.log.Debug("ledger appended",
		zap.Int("entries", len(entries)),
		zap.Int("score", result.Score),
		zap.Int("total", result.TotalQuestions))
	return nil
}

// LoadAll returns the stored results oldest first. Missing or unreadable data yields an
// empty slice; individual entries that cannot be decoded are skipped.
func (l *Ledger) LoadAll(ctx context.Context) []domain.QuizResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read(ctx)
	if err != nil {
		l.log.Warn("ledger unreadable, treating as empty", zap.String("key", l.key), zap.Error(err))
		return []domain.QuizResult{}
	}
	results := make([]domain.QuizResult, 0, len(entries))
	for i, raw := range entries {
		var r domain.QuizResult
		if err := json.Unmarshal(raw, &r); err != nil {
			l.log.Warn("skipping malformed ledger entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		results = append(results, r)
	}
	return results
}

// Clear removes every stored result.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.store.Delete(ctx, l.key)
	metrics.LedgerWrites.WithLabelValues("clear", metrics.Outcome(err)).Inc()
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("clear ledger: %w", err)
	}
	l.log.Info("ledger cleared", zap.String("key", l.key))
	return nil
}

// read splits the stored array into its raw entries. Absent data, or data that is not a
// JSON array, is an empty ledger; only store failures are returned as errors.
func (l *Ledger) read(ctx context.Context) ([]json.RawMessage, error) {
	raw, err := l.store.Get(ctx, l.key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		l.log.Warn("ledger malformed, treating as empty", zap.String("key", l.key), zap.Error(err))
		return nil, nil
	}
	return entries, nil
}
