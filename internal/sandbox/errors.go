package sandbox

import "errors"

// Call-level error kinds. Each failed tool call wraps exactly one of these;
// callers dispatch with errors.Is. None of them is a run-level failure.
var (
	// ErrPathViolation marks a path that is malformed or escapes the
	// confinement root, however it was constructed.
	ErrPathViolation = errors.New("path violation")

	// ErrOrderingViolation marks any call issued before the session's
	// initial directory listing.
	ErrOrderingViolation = errors.New("ordering violation")

	// ErrBudgetExceeded marks an exhausted per-kind call quota or read-line
	// quota. The failing call still counts as an attempt.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrMalformedRequest marks missing or nonsensical call arguments.
	ErrMalformedRequest = errors.New("malformed request")
)
