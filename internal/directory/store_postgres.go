package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"guardian/pkg/platform/sentinel"
)

// PostgresStore reads the employee_directory table. The engine never writes
// it; rows are loaded by the seed loader or an external HR sync.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed directory.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Lookup matches on lower(email) so mixed-case rows and inputs agree.
func (s *PostgresStore) Lookup(ctx context.Context, email string) (*Employee, error) {
	query := `
		SELECT email, name, role, manager_email
		FROM employee_directory
		WHERE lower(email) = $1
	`
	var employee Employee
	err := s.db.QueryRowContext(ctx, query, NormalizeEmail(email)).Scan(
		&employee.Email,
		&employee.Name,
		&employee.Role,
		&employee.ManagerEmail,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup employee: %w: %w", sentinel.ErrUnavailable, err)
	}
	return &employee, nil
}
