package seed

import (
	"context"
	"fmt"

	"guardian/internal/directory"
	"guardian/internal/ledger"
	"guardian/internal/policy"
)

// Stores groups the in-memory backends built from a dataset.
type Stores struct {
	Directory *directory.InMemory
	Policies  *policy.InMemory
	Ledger    *ledger.InMemory
}

// BuildMemory builds in-memory stores from d. The ledger starts at seed unless
// the imported history already runs past it.
func BuildMemory(ctx context.Context, d *Dataset, seed int64, opts ...ledger.Option) (*Stores, error) {
	dir, err := directory.NewInMemory(d.DirectoryRows())
	if err != nil {
		return nil, fmt.Errorf("build directory: %w", err)
	}

	policyRows, err := d.PolicyRows()
	if err != nil {
		return nil, err
	}
	policies, err := policy.NewInMemory(policyRows)
	if err != nil {
		return nil, fmt.Errorf("build policy table: %w", err)
	}

	history, err := d.LedgerEntries()
	if err != nil {
		return nil, err
	}
	l := ledger.NewInMemory(seed, opts...)
	if err := l.Import(ctx, history); err != nil {
		return nil, fmt.Errorf("import ledger history: %w", err)
	}

	return &Stores{Directory: dir, Policies: policies, Ledger: l}, nil
}
