package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// PostgresLoader bulk-loads a dataset with COPY. Reference tables are replaced
// on every load; ledger history is only copied into an empty ledger so a
// restart never rewrites the audit trail.
type PostgresLoader struct {
	url    string
	logger *slog.Logger
}

// NewPostgresLoader constructs a loader for the database at url.
func NewPostgresLoader(url string, logger *slog.Logger) *PostgresLoader {
	return &PostgresLoader{url: url, logger: logger}
}

// LoadResult reports what a load wrote.
type LoadResult struct {
	Employees     int64
	Policies      int64
	LedgerEntries int64
}

// Load writes d in a single transaction.
func (l *PostgresLoader) Load(ctx context.Context, d *Dataset) (*LoadResult, error) {
	policyRows, err := d.PolicyRows()
	if err != nil {
		return nil, err
	}
	history, err := d.LedgerEntries()
	if err != nil {
		return nil, err
	}

	conn, err := pgx.Connect(ctx, l.url)
	if err != nil {
		return nil, fmt.Errorf("connect for seed: %w", err)
	}
	defer func() { _ = conn.Close(context.Background()) }()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE employee_directory, software_access_policy`); err != nil {
		return nil, fmt.Errorf("clear reference tables: %w", err)
	}

	res := &LoadResult{}
	employees := d.DirectoryRows()
	res.Employees, err = tx.CopyFrom(ctx,
		pgx.Identifier{"employee_directory"},
		[]string{"email", "name", "role", "manager_email"},
		pgx.CopyFromSlice(len(employees), func(i int) ([]any, error) {
			e := employees[i]
			return []any{e.Email, e.Name, e.Role, e.ManagerEmail}, nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("copy employees: %w", err)
	}

	res.Policies, err = tx.CopyFrom(ctx,
		pgx.Identifier{"software_access_policy"},
		[]string{"software_name", "role", "requires_manager_approval", "approval_contact_email"},
		pgx.CopyFromSlice(len(policyRows), func(i int) ([]any, error) {
			p := policyRows[i]
			return []any{p.SoftwareName, p.Role, p.RequiresManagerApproval, p.ApprovalContactEmail}, nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("copy policies: %w", err)
	}

	var hasHistory bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM audit_ledger)`).Scan(&hasHistory); err != nil {
		return nil, fmt.Errorf("check ledger: %w", err)
	}
	if hasHistory {
		l.logger.InfoContext(ctx, "ledger already has entries, skipping history import")
	} else {
		res.LedgerEntries, err = tx.CopyFrom(ctx,
			pgx.Identifier{"audit_ledger"},
			[]string{"request_id", "timestamp", "employee_email", "request_type", "software_name", "status", "notes"},
			pgx.CopyFromSlice(len(history), func(i int) ([]any, error) {
				e := history[i]
				return []any{e.RequestID, e.Timestamp, e.EmployeeEmail, string(e.RequestType), e.SoftwareName, string(e.Status), e.Notes}, nil
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("copy ledger history: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit seed: %w", err)
	}
	l.logger.InfoContext(ctx, "seed data loaded",
		"employees", res.Employees,
		"policies", res.Policies,
		"ledger_entries", res.LedgerEntries,
	)
	return res, nil
}
