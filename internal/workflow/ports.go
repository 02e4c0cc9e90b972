package workflow

import (
	"context"

	"guardian/internal/directory"
	"guardian/internal/ledger"
	"guardian/internal/notify"
	"guardian/internal/policy"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Directory resolves an email to an employee. A miss returns (nil, nil).
type Directory interface {
	Lookup(ctx context.Context, email string) (*directory.Employee, error)
}

// PolicyTable resolves the approval rule for a (software, role) pair. A miss returns (nil, nil).
type PolicyTable interface {
	Resolve(ctx context.Context, softwareName, role string) (*policy.Policy, error)
}

// Ledger is the append-only audit trail.
type Ledger interface {
	Append(ctx context.Context, draft ledger.Draft) (*ledger.Entry, error)
	FindActiveDuplicate(ctx context.Context, employeeEmail, softwareName string) (*ledger.Entry, error)
}

// Notifier delivers one message, retrying as it sees fit.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}

// Locker serializes decisions for the same key. The returned release func must
// be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
