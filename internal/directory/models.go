package directory

import "strings"

// Employee is a read-only directory row. Email is the unique key and is
// matched case-insensitively.
type Employee struct {
	Email        string
	Name         string
	Role         string
	ManagerEmail string
}

// NormalizeEmail trims and lowercases an email for keying and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
