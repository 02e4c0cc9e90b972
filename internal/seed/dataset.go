// Package seed loads the directory, policy table and ledger history from a
// YAML dataset. An embedded demo dataset is used when no file is configured.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"guardian/internal/directory"
	"guardian/internal/ledger"
	"guardian/internal/policy"
)

//go:embed demo.yaml
var demoYAML []byte

// Dataset mirrors the three reference sheets.
type Dataset struct {
	Employees []EmployeeRow `yaml:"employees"`
	Policies  []PolicyRow   `yaml:"policies"`
	AuditLog  []AuditRow    `yaml:"audit_log"`
}

type EmployeeRow struct {
	Email        string `yaml:"employee_email"`
	Name         string `yaml:"employee_name"`
	Role         string `yaml:"role"`
	ManagerEmail string `yaml:"manager_email"`
}

type PolicyRow struct {
	SoftwareName            string `yaml:"software_name"`
	Role                    string `yaml:"role"`
	RequiresManagerApproval string `yaml:"requires_manager_approval"`
	ApprovalContactEmail    string `yaml:"approval_contact_email"`
}

type AuditRow struct {
	RequestID     int64  `yaml:"request_id"`
	Timestamp     string `yaml:"timestamp"`
	EmployeeEmail string `yaml:"employee_email"`
	RequestType   string `yaml:"request_type"`
	SoftwareName  string `yaml:"software_name"`
	Status        string `yaml:"status"`
	Notes         string `yaml:"notes"`
}

// Demo returns the embedded demo dataset.
func Demo() (*Dataset, error) {
	return Parse(demoYAML)
}

// Load reads a dataset from path, or the demo dataset when path is empty.
func Load(path string) (*Dataset, error) {
	if path == "" {
		return Demo()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML strictly; unknown keys are errors.
func Parse(data []byte) (*Dataset, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var d Dataset
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode seed dataset: %w", err)
	}
	return &d, nil
}

// DirectoryRows converts the employee sheet.
func (d *Dataset) DirectoryRows() []directory.Employee {
	rows := make([]directory.Employee, 0, len(d.Employees))
	for _, e := range d.Employees {
		rows = append(rows, directory.Employee{
			Email:        e.Email,
			Name:         e.Name,
			Role:         e.Role,
			ManagerEmail: e.ManagerEmail,
		})
	}
	return rows
}

// PolicyRows converts the policy sheet, parsing the Yes/No approval flag.
func (d *Dataset) PolicyRows() ([]policy.Policy, error) {
	rows := make([]policy.Policy, 0, len(d.Policies))
	for i, p := range d.Policies {
		requires, err := policy.ParseApprovalFlag(p.RequiresManagerApproval)
		if err != nil {
			return nil, fmt.Errorf("policy row %d (%s/%s): %w", i+1, p.SoftwareName, p.Role, err)
		}
		rows = append(rows, policy.Policy{
			SoftwareName:            p.SoftwareName,
			Role:                    p.Role,
			RequiresManagerApproval: requires,
			ApprovalContactEmail:    p.ApprovalContactEmail,
		})
	}
	return rows, nil
}

// LedgerEntries converts the audit sheet. Timestamps are RFC 3339 and stored in UTC.
func (d *Dataset) LedgerEntries() ([]ledger.Entry, error) {
	entries := make([]ledger.Entry, 0, len(d.AuditLog))
	for _, r := range d.AuditLog {
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("audit row %d: timestamp: %w", r.RequestID, err)
		}
		requestType, err := ledger.ParseRequestType(r.RequestType)
		if err != nil {
			return nil, fmt.Errorf("audit row %d: %w", r.RequestID, err)
		}
		status, err := ledger.ParseStatus(r.Status)
		if err != nil {
			return nil, fmt.Errorf("audit row %d: %w", r.RequestID, err)
		}
		entries = append(entries, ledger.Entry{
			RequestID:     r.RequestID,
			Timestamp:     ts.UTC(),
			EmployeeEmail: r.EmployeeEmail,
			RequestType:   requestType,
			SoftwareName:  r.SoftwareName,
			Status:        status,
			Notes:         r.Notes,
		})
	}
	return entries, nil
}
