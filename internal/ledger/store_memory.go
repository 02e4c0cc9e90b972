package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"guardian/pkg/platform/sentinel"
)

// DefaultSeed is the first request id when none is configured.
const DefaultSeed int64 = 1001

// InMemory is an append-only ledger guarded by a single mutex. Id assignment
// and storage happen under the same lock, so ids are distinct, increase in
// append order, and readers never see a gap.
type InMemory struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64
	clock   func() time.Time
	metrics *Metrics
}

// Option configures an InMemory ledger.
type Option func(*InMemory)

// WithClock overrides the append-time clock.
func WithClock(clock func() time.Time) Option {
	return func(l *InMemory) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithMetrics records append counts.
func WithMetrics(m *Metrics) Option {
	return func(l *InMemory) {
		l.metrics = m
	}
}

// NewInMemory creates an empty ledger whose first id is seed.
func NewInMemory(seed int64, opts ...Option) *InMemory {
	l := &InMemory{
		nextID: seed,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stores the draft and returns the populated entry.
func (l *InMemory) Append(ctx context.Context, draft Draft) (*Entry, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	entry := Entry{
		RequestID:     l.nextID,
		Timestamp:     l.clock().UTC(),
		EmployeeEmail: draft.EmployeeEmail,
		RequestType:   draft.RequestType,
		SoftwareName:  draft.SoftwareName,
		Status:        draft.Status,
		Notes:         draft.Notes,
	}
	l.nextID++
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	l.metrics.IncAppended(entry.Status)
	return &entry, nil
}

// FindActiveDuplicate scans newest-first so the most recent active entry wins.
// Email compares case-insensitively, software exactly.
func (l *InMemory) FindActiveDuplicate(_ context.Context, employeeEmail, softwareName string) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.SoftwareName != softwareName || !strings.EqualFold(e.EmployeeEmail, employeeEmail) {
			continue
		}
		if e.Status.IsActive() {
			return &e, nil
		}
	}
	return nil, nil
}

// All returns a copy of every entry in append order.
func (l *InMemory) All(_ context.Context) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...), nil
}

// Import loads historical entries into an empty ledger, keeping their ids and
// timestamps. Ids must strictly increase. The next appended id is the larger
// of the seed and the last imported id plus one.
func (l *InMemory) Import(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, e := range entries {
		if i > 0 && e.RequestID <= entries[i-1].RequestID {
			return fmt.Errorf("import: request id %d does not follow %d", e.RequestID, entries[i-1].RequestID)
		}
		draft := Draft{
			EmployeeEmail: e.EmployeeEmail,
			RequestType:   e.RequestType,
			SoftwareName:  e.SoftwareName,
			Status:        e.Status,
			Notes:         e.Notes,
		}
		if err := draft.Validate(); err != nil {
			return fmt.Errorf("import request %d: %w", e.RequestID, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) > 0 {
		return fmt.Errorf("import: %w: ledger already has entries", sentinel.ErrInvalidState)
	}
	for _, e := range entries {
		e.Timestamp = e.Timestamp.UTC()
		l.entries = append(l.entries, e)
	}
	if n := len(entries); n > 0 && entries[n-1].RequestID >= l.nextID {
		l.nextID = entries[n-1].RequestID + 1
	}
	return nil
}
