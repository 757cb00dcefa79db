package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"aggregator/internal/domain/event"
	"aggregator/internal/domain/record"
	"aggregator/internal/ledger"
)

// Ledger is an in-process ledger backed by a mutex-guarded map. The map
// lookup and insert happen under one lock acquisition, so it provides the
// same atomic check-and-insert contract as the database's unique index.
// Used by tests and local runs; it does not survive restarts.
type Ledger struct {
	mu      sync.Mutex
	records map[event.DedupKey]*record.Record
	seq     int64

	err error
}

func NewLedger() *Ledger {
	return &Ledger{records: make(map[event.DedupKey]*record.Record)}
}

var _ ledger.Ledger = (*Ledger)(nil)
var _ record.Reader = (*Ledger)(nil)

// SetErr forces every subsequent Commit to fail with the given error.
// Pass nil to restore normal operation.
func (l *Ledger) SetErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func (l *Ledger) Commit(ctx context.Context, env *event.Envelope) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return false, l.err
	}

	key := env.DedupKey()
	if _, ok := l.records[key]; ok {
		return false, nil
	}

	l.seq++
	l.records[key] = &record.Record{
		EventID:  env.EventID,
		Topic:    env.Topic,
		Payload:  append([]byte(nil), env.Payload...),
		StoredAt: time.Now().UTC(),
	}
	return true, nil
}

func (l *Ledger) List(ctx context.Context, f record.ListFilter) ([]*record.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	all := make([]*record.Record, 0, len(l.records))
	for _, r := range l.records {
		if f.Topic != "" && r.Topic != f.Topic {
			continue
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StoredAt.After(all[j].StoredAt) })

	if offset >= len(all) {
		return []*record.Record{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (l *Ledger) Count(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.records)), nil
}

// Get returns the stored record for a key, or nil. Test helper.
func (l *Ledger) Get(key event.DedupKey) *record.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.records[key]
}
