package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"guardian/pkg/platform/sentinel"
)

// PostgresStore reads the software_access_policy table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed policy table.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Resolve compares both columns with plain equality; the column collation
// must stay case-sensitive for the match to be exact.
func (s *PostgresStore) Resolve(ctx context.Context, softwareName, role string) (*Policy, error) {
	query := `
		SELECT software_name, role, requires_manager_approval, approval_contact_email
		FROM software_access_policy
		WHERE software_name = $1 AND role = $2
	`
	var p Policy
	err := s.db.QueryRowContext(ctx, query, softwareName, role).Scan(
		&p.SoftwareName,
		&p.Role,
		&p.RequiresManagerApproval,
		&p.ApprovalContactEmail,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve policy: %w: %w", sentinel.ErrUnavailable, err)
	}
	return &p, nil
}
