package workflow

import (
	"fmt"

	"guardian/internal/ledger"
)

const (
	subjectUnknownUser = "New/Unknown User Flagged"
	subjectRemoval     = "CONFIRMATION NEEDED: Remove Access"

	notesUserNotFound = "User email not found in directory."
	notesAutoApproved = "Auto-approved per policy."
	notesManagerEmail = "Email sent to manager."
	notesRemoval      = "Removal email sent to manager."

	msgNotFound = "I couldn't find you in our directory. I have notified IT and HR."
	msgApproved = "Great news! This is pre-approved. I've sent the ticket to IT and logged your approval."
	msgPending  = "Done. I've sent the email to your manager and CC'd IT. This is logged as 'Pending Manager'."
	msgRemoval  = "For security, all removal requests must be confirmed. I have sent a confirmation to your manager and CC'd IT. This is logged as 'Pending Deprovisioning'."
)

func subjectAutoApproved(software, name string) string {
	return fmt.Sprintf("AUTO-APPROVED REQUEST: %s for %s", software, name)
}

func subjectApprovalNeeded(software, name string) string {
	return fmt.Sprintf("APPROVAL NEEDED: %s for %s", software, name)
}

func notesNoPolicy(role string) string {
	return fmt.Sprintf("No policy found for role %s.", role)
}

func msgDuplicate(software string, status ledger.Status) string {
	return fmt.Sprintf("I see you already have a request for %s. The current status is %s.", software, status)
}

func msgRejected(software, role string) string {
	return fmt.Sprintf("I'm sorry, this request cannot be processed. There is no policy for %s for your %s role. I have logged this rejection.", software, role)
}

func msgAwaitingConfirmation(software, managerEmail string) string {
	return fmt.Sprintf("%s requires your manager's approval. Shall I email your manager (%s) to request it?", software, managerEmail)
}

func bodyUnknownUser(email string) string {
	return fmt.Sprintf("An access request was made by %s, who is not in the employee directory. Please verify the user and start onboarding if appropriate.", email)
}

func bodyAutoApproved(name, email, software string) string {
	return fmt.Sprintf("%s (%s) has been granted %s per policy. Please provision access.", name, email, software)
}

func bodyApprovalNeeded(name, software string) string {
	return fmt.Sprintf("%s has requested access to %s. Please reply-all with 'Approved' or 'Denied'.", name, software)
}

func bodyRemoval(name, software string) string {
	return fmt.Sprintf("%s has requested removal of access to %s. Please reply-all with 'Confirm'.", name, software)
}
