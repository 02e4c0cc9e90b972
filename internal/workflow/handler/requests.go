package handler

import (
	"strings"

	"guardian/internal/workflow"
	dErrors "guardian/pkg/domain-errors"
)

const (
	maxEmailLength    = 254
	maxSoftwareLength = 200
)

// AccessRequest is the HTTP request body for POST /v1/access-requests.
type AccessRequest struct {
	Intent           string `json:"intent"`
	EmployeeEmail    string `json:"employee_email"`
	SoftwareName     string `json:"software_name"`
	ManagerConfirmed bool   `json:"manager_confirmed"`
}

// Validate implements httputil.Validatable. Only the transport-level shape is
// checked here; the engine owns the workflow rules.
func (r *AccessRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.EmployeeEmail) > maxEmailLength {
		return dErrors.New(dErrors.CodeValidation, "employee_email is too long")
	}
	if len(r.SoftwareName) > maxSoftwareLength {
		return dErrors.New(dErrors.CodeValidation, "software_name is too long")
	}
	r.Intent = strings.TrimSpace(r.Intent)
	if r.Intent == "" {
		return dErrors.New(dErrors.CodeValidation, "intent is required")
	}
	return nil
}

// ToRequest builds the engine request.
func (r *AccessRequest) ToRequest() workflow.Request {
	return workflow.Request{
		Intent:           workflow.Intent(r.Intent),
		EmployeeEmail:    r.EmployeeEmail,
		SoftwareName:     r.SoftwareName,
		ManagerConfirmed: r.ManagerConfirmed,
	}
}
