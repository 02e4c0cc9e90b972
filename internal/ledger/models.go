package ledger

import (
	"fmt"
	"time"
)

// RequestType classifies what the employee asked for.
type RequestType string

const (
	RequestTypeGrant  RequestType = "Grant"
	RequestTypeRemove RequestType = "Remove"
	RequestTypeError  RequestType = "Error"
)

// Status is the recorded outcome of a request. String values match the audit
// sheet columns so exported rows stay readable by the approvers.
type Status string

const (
	StatusApproved              Status = "Approved"
	StatusRejected              Status = "Rejected"
	StatusPendingManager        Status = "Pending Manager"
	StatusPendingDeprovisioning Status = "Pending Deprovisioning"
	StatusErrorUserNotFound     Status = "Error - User Not Found"
)

// NoSoftware is recorded when a request never reached a software name.
const NoSoftware = "N/A"

// activeStatuses block a new Grant for the same (employee, software) pair.
// Rejected and not-found history deliberately does not block a retry.
var activeStatuses = map[Status]bool{
	StatusApproved:              true,
	StatusPendingManager:        true,
	StatusPendingDeprovisioning: true,
}

// IsActive reports whether s suppresses a duplicate request.
func (s Status) IsActive() bool {
	return activeStatuses[s]
}

// ActiveStatuses lists the active set in a stable order.
func ActiveStatuses() []Status {
	return []Status{StatusApproved, StatusPendingManager, StatusPendingDeprovisioning}
}

// ParseStatus accepts the wire strings above.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusApproved, StatusRejected, StatusPendingManager, StatusPendingDeprovisioning, StatusErrorUserNotFound:
		return s, nil
	default:
		return "", fmt.Errorf("unknown ledger status %q", raw)
	}
}

// ParseRequestType accepts the wire strings above.
func ParseRequestType(raw string) (RequestType, error) {
	switch t := RequestType(raw); t {
	case RequestTypeGrant, RequestTypeRemove, RequestTypeError:
		return t, nil
	default:
		return "", fmt.Errorf("unknown request type %q", raw)
	}
}

// Draft is what a caller hands to Append. The ledger fills in the id and time.
type Draft struct {
	EmployeeEmail string
	RequestType   RequestType
	SoftwareName  string
	Status        Status
	Notes         string
}

// Entry is an immutable ledger row.
type Entry struct {
	RequestID     int64
	Timestamp     time.Time
	EmployeeEmail string
	RequestType   RequestType
	SoftwareName  string
	Status        Status
	Notes         string
}

// Validate rejects drafts the ledger must never store.
func (d Draft) Validate() error {
	if d.EmployeeEmail == "" {
		return fmt.Errorf("ledger draft requires employee email")
	}
	if _, err := ParseRequestType(string(d.RequestType)); err != nil {
		return err
	}
	if _, err := ParseStatus(string(d.Status)); err != nil {
		return err
	}
	if d.SoftwareName == "" {
		return fmt.Errorf("ledger draft requires software name (use %q)", NoSoftware)
	}
	return nil
}
