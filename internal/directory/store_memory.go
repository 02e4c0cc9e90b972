package directory

import (
	"context"
	"fmt"
)

// InMemory is an immutable directory built once at startup. Reads need no
// locking because the map is never written after construction.
type InMemory struct {
	employees map[string]Employee
}

// NewInMemory builds a directory from rows. Two rows whose emails differ only
// in case are rejected since they would be indistinguishable on lookup.
func NewInMemory(rows []Employee) (*InMemory, error) {
	employees := make(map[string]Employee, len(rows))
	for _, row := range rows {
		key := NormalizeEmail(row.Email)
		if key == "" {
			return nil, fmt.Errorf("directory row for %q has no email", row.Name)
		}
		if _, exists := employees[key]; exists {
			return nil, fmt.Errorf("duplicate directory email %q", row.Email)
		}
		employees[key] = row
	}
	return &InMemory{employees: employees}, nil
}

// Lookup returns the employee for email, or nil when the directory has no such
// row. A miss is a normal outcome, not an error.
func (d *InMemory) Lookup(_ context.Context, email string) (*Employee, error) {
	if employee, ok := d.employees[NormalizeEmail(email)]; ok {
		return &employee, nil
	}
	return nil, nil
}

// Len reports the number of employees loaded.
func (d *InMemory) Len() int {
	return len(d.employees)
}
