// Package sandbox exposes a constrained, read-only tool surface over a
// confined checkout directory for use by an external suggestion engine.
//
// A Surface is single-session state: it enforces call ordering (the
// directory listing must come first), per-kind call budgets, read-line
// quotas, and path confinement, and offers a heuristic scanner for common
// injection, XSS, and path-traversal sink patterns. It never creates or
// deletes files; the confinement root is owned by the caller and must
// outlive the surface.
//
// All violations are returned as call-level errors carrying a named kind so
// the calling loop can hand them back to the engine as retryable feedback.
package sandbox
