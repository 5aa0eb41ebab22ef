package workflow

import "errors"

// Failure taxonomy of the approval core. Callers branch on these with
// errors.Is; handlers map them to HTTP status codes.
var (
	// ErrNotFound: referenced expense, rule, or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation: request is malformed, rejected before any mutation.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized: acting user lacks the required role or belongs to
	// another company.
	ErrUnauthorized = errors.New("not authorized")

	// ErrInvalidState: a decision arrived for a user with no pending step
	// in a non-empty workflow.
	ErrInvalidState = errors.New("no pending approval found for this user")

	// ErrConflict: concurrent writers raced on the same expense; the loser
	// must reload and retry.
	ErrConflict = errors.New("expense state changed concurrently")

	// ErrWorkflowSetup: workflow materialization failed. The expense was
	// forced to pending_approval and the submission itself is not rolled
	// back.
	ErrWorkflowSetup = errors.New("workflow setup failed")
)
