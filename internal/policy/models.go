package policy

import (
	"fmt"
	"strings"
)

// Policy is a read-only approval rule for one (software, role) pair.
// Both key fields match exactly, including case.
type Policy struct {
	SoftwareName            string
	Role                    string
	RequiresManagerApproval bool
	ApprovalContactEmail    string
}

// ParseApprovalFlag converts the sheet's "Yes"/"No" column into a bool.
func ParseApprovalFlag(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("requires_manager_approval must be Yes or No, got %q", raw)
	}
}

// ApprovalFlag renders the bool back into the sheet form.
func ApprovalFlag(requires bool) string {
	if requires {
		return "Yes"
	}
	return "No"
}
