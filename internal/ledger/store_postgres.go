package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"guardian/pkg/platform/sentinel"
)

// appendLockKey is the transaction-scoped advisory lock that serializes
// appends across every process sharing the database.
const appendLockKey int64 = 0x6775617264

const uniqueViolation = "23505"

// PostgresStore keeps the ledger in the audit_ledger table. Appends take an
// advisory lock, read MAX(request_id) and insert inside one transaction, so
// ids are gap-free and commit order equals id order.
type PostgresStore struct {
	db      *sql.DB
	seed    int64
	clock   func() time.Time
	metrics *Metrics
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresClock overrides the append-time clock.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPostgresMetrics records append counts.
func WithPostgresMetrics(m *Metrics) PostgresOption {
	return func(s *PostgresStore) {
		s.metrics = m
	}
}

// NewPostgres constructs a PostgreSQL-backed ledger whose first id is seed.
func NewPostgres(db *sql.DB, seed int64, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		db:    db,
		seed:  seed,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Append assigns the next id and append time and stores the entry atomically.
func (s *PostgresStore) Append(ctx context.Context, draft Draft) (*Entry, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	entry, err := s.appendTx(ctx, draft)
	if err != nil {
		s.metrics.IncAppendFailures()
		return nil, err
	}
	s.metrics.IncAppended(entry.Status)
	return entry, nil
}

func (s *PostgresStore) appendTx(ctx context.Context, draft Draft) (*Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ledger append: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
		return nil, fmt.Errorf("lock ledger: %w: %w", sentinel.ErrUnavailable, err)
	}

	var nextID int64
	err = tx.QueryRowContext(ctx,
		`SELECT GREATEST(COALESCE(MAX(request_id) + 1, $1), $1) FROM audit_ledger`,
		s.seed,
	).Scan(&nextID)
	if err != nil {
		return nil, fmt.Errorf("next request id: %w: %w", sentinel.ErrUnavailable, err)
	}

	entry := &Entry{
		RequestID:     nextID,
		Timestamp:     s.clock().UTC(),
		EmployeeEmail: draft.EmployeeEmail,
		RequestType:   draft.RequestType,
		SoftwareName:  draft.SoftwareName,
		Status:        draft.Status,
		Notes:         draft.Notes,
	}

	query := `
		INSERT INTO audit_ledger (
			request_id, timestamp, employee_email, request_type,
			software_name, status, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.ExecContext(ctx, query,
		entry.RequestID,
		entry.Timestamp,
		entry.EmployeeEmail,
		string(entry.RequestType),
		entry.SoftwareName,
		string(entry.Status),
		entry.Notes,
	)
	if err != nil {
		return nil, classify("insert ledger entry", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, classify("commit ledger entry", err)
	}
	return entry, nil
}

// FindActiveDuplicate returns the newest active entry for the pair, or nil.
func (s *PostgresStore) FindActiveDuplicate(ctx context.Context, employeeEmail, softwareName string) (*Entry, error) {
	statuses := make([]string, 0, len(activeStatuses))
	for _, status := range ActiveStatuses() {
		statuses = append(statuses, string(status))
	}

	query := `
		SELECT request_id, timestamp, employee_email, request_type,
			   software_name, status, notes
		FROM audit_ledger
		WHERE lower(employee_email) = lower($1)
		  AND software_name = $2
		  AND status = ANY($3)
		ORDER BY request_id DESC
		LIMIT 1
	`
	rows, err := s.db.QueryContext(ctx, query, employeeEmail, softwareName, pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("query active duplicate: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// All returns every entry in request id order.
func (s *PostgresStore) All(ctx context.Context) ([]Entry, error) {
	query := `
		SELECT request_id, timestamp, employee_email, request_type,
			   software_name, status, notes
		FROM audit_ledger
		ORDER BY request_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			requestType string
			status      string
		)
		err := rows.Scan(
			&e.RequestID,
			&e.Timestamp,
			&e.EmployeeEmail,
			&requestType,
			&e.SoftwareName,
			&status,
			&e.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if e.RequestType, err = ParseRequestType(requestType); err != nil {
			return nil, fmt.Errorf("ledger entry %d: %w: %w", e.RequestID, sentinel.ErrInvalidState, err)
		}
		if e.Status, err = ParseStatus(status); err != nil {
			return nil, fmt.Errorf("ledger entry %d: %w: %w", e.RequestID, sentinel.ErrInvalidState, err)
		}
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return entries, nil
}

// classify maps a unique violation to ErrConflict and anything else to ErrUnavailable.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
