package engine

import "fmt"

// ValidationError rejects malformed input before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports a write that lost to the document's current state,
// such as a second quality score or a transition out of a terminal status.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string {
	return e.Reason
}

// DependencyError wraps a failure of an external collaborator (mail relay,
// object store). The store is untouched when one of these is returned.
type DependencyError struct {
	Op  string
	Err error
}

func (e DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e DependencyError) Unwrap() error { return e.Err }
