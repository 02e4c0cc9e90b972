package workflow

import (
	"strings"

	"guardian/internal/ledger"
	dErrors "guardian/pkg/domain-errors"
)

// Intent is what the employee wants done.
type Intent string

const (
	IntentGetAccess    Intent = "get_access"
	IntentRemoveAccess Intent = "remove_access"
)

// Request is one fully slot-filled call from the conversational front end.
type Request struct {
	Intent           Intent
	EmployeeEmail    string
	SoftwareName     string
	ManagerConfirmed bool
}

// Normalize trims surrounding whitespace from the free-text fields.
func (r *Request) Normalize() {
	r.EmployeeEmail = strings.TrimSpace(r.EmployeeEmail)
	r.SoftwareName = strings.TrimSpace(r.SoftwareName)
}

// Validate checks the fields every workflow needs. The software name is only
// required once the employee is known, so it is checked later.
func (r Request) Validate() error {
	if r.EmployeeEmail == "" {
		return dErrors.New(dErrors.CodeValidation, "employee email is required")
	}
	switch r.Intent {
	case IntentGetAccess, IntentRemoveAccess:
		return nil
	default:
		return dErrors.New(dErrors.CodeValidation, "intent must be get_access or remove_access")
	}
}

// Outcome tags the branch a decision took.
type Outcome string

const (
	OutcomeApproved               Outcome = "approved"
	OutcomePendingManager         Outcome = "pending_manager"
	OutcomeRejected               Outcome = "rejected_no_policy"
	OutcomeEmployeeNotFound       Outcome = "employee_not_found"
	OutcomePendingDeprovisioning  Outcome = "pending_deprovisioning"
	OutcomeDuplicateActiveRequest Outcome = "duplicate_active_request"
	OutcomeAwaitingConfirmation   Outcome = "awaiting_confirmation"
)

// Records reports whether the outcome appends a ledger entry.
func (o Outcome) Records() bool {
	switch o {
	case OutcomeDuplicateActiveRequest, OutcomeAwaitingConfirmation:
		return false
	default:
		return true
	}
}

// Result is returned for every business outcome.
//
// Entry is the appended entry, or for a duplicate the existing one. It is nil
// when the engine is awaiting confirmation. DeliveryDegraded is set when the
// decision was recorded but its notification could not be delivered.
type Result struct {
	Outcome          Outcome
	Status           ledger.Status
	Entry            *ledger.Entry
	EmployeeName     string
	ManagerEmail     string
	Message          string
	Notified         bool
	DeliveryDegraded bool
}
