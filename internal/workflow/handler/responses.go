package handler

import (
	"time"

	"guardian/internal/ledger"
	"guardian/internal/workflow"
)

// AccessResponse is the HTTP response for POST /v1/access-requests.
type AccessResponse struct {
	Outcome          string         `json:"outcome"`
	Status           string         `json:"status,omitempty"`
	Message          string         `json:"message"`
	EmployeeName     string         `json:"employee_name,omitempty"`
	ManagerEmail     string         `json:"manager_email,omitempty"`
	Entry            *EntryResponse `json:"entry,omitempty"`
	Notified         bool           `json:"notified"`
	DeliveryDegraded bool           `json:"delivery_degraded"`
}

// EntryResponse is one audit ledger row.
type EntryResponse struct {
	RequestID     int64     `json:"request_id"`
	Timestamp     time.Time `json:"timestamp"`
	EmployeeEmail string    `json:"employee_email"`
	RequestType   string    `json:"request_type"`
	SoftwareName  string    `json:"software_name"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes"`
}

// AuditEntriesResponse is the HTTP response for GET /v1/audit-entries.
type AuditEntriesResponse struct {
	Entries []EntryResponse `json:"entries"`
	Count   int             `json:"count"`
}

// FromResult converts an engine result to an HTTP response.
func FromResult(res *workflow.Result) *AccessResponse {
	out := &AccessResponse{
		Outcome:          string(res.Outcome),
		Status:           string(res.Status),
		Message:          res.Message,
		EmployeeName:     res.EmployeeName,
		ManagerEmail:     res.ManagerEmail,
		Notified:         res.Notified,
		DeliveryDegraded: res.DeliveryDegraded,
	}
	if res.Entry != nil {
		entry := fromEntry(*res.Entry)
		out.Entry = &entry
	}
	return out
}

// FromEntries converts ledger rows, keeping their order.
func FromEntries(entries []ledger.Entry) *AuditEntriesResponse {
	out := &AuditEntriesResponse{
		Entries: make([]EntryResponse, 0, len(entries)),
		Count:   len(entries),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, fromEntry(e))
	}
	return out
}

func fromEntry(e ledger.Entry) EntryResponse {
	return EntryResponse{
		RequestID:     e.RequestID,
		Timestamp:     e.Timestamp,
		EmployeeEmail: e.EmployeeEmail,
		RequestType:   string(e.RequestType),
		SoftwareName:  e.SoftwareName,
		Status:        string(e.Status),
		Notes:         e.Notes,
	}
}
