package policy

import (
	"context"
	"fmt"
)

type key struct {
	software string
	role     string
}

// InMemory is an immutable policy table. It is safe for concurrent reads
// because nothing writes the map after NewInMemory returns.
type InMemory struct {
	policies map[key]Policy
}

// NewInMemory builds the table, rejecting repeated (software, role) keys.
func NewInMemory(rows []Policy) (*InMemory, error) {
	policies := make(map[key]Policy, len(rows))
	for _, row := range rows {
		if row.SoftwareName == "" || row.Role == "" {
			return nil, fmt.Errorf("policy row needs software and role, got (%q, %q)", row.SoftwareName, row.Role)
		}
		k := key{software: row.SoftwareName, role: row.Role}
		if _, exists := policies[k]; exists {
			return nil, fmt.Errorf("duplicate policy for %s/%s", row.SoftwareName, row.Role)
		}
		policies[k] = row
	}
	return &InMemory{policies: policies}, nil
}

// Resolve returns the rule for (softwareName, role), or nil when none exists.
func (t *InMemory) Resolve(_ context.Context, softwareName, role string) (*Policy, error) {
	if p, ok := t.policies[key{software: softwareName, role: role}]; ok {
		return &p, nil
	}
	return nil, nil
}

// Len reports the number of rules loaded.
func (t *InMemory) Len() int {
	return len(t.policies)
}
