package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and the workflow engine translates them into domain errors.
//
//   - ErrNotFound: row does not exist where the caller required one
//   - ErrConflict: a write collided with an existing row (e.g. duplicate request id)
//   - ErrUnavailable: backing store or broker cannot be reached
//   - ErrInvalidState: data read back violates a store invariant
//
// A lookup miss on the directory or policy table is not an error and never
// surfaces as ErrNotFound.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
