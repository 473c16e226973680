package domain

// Engine status values. StatusOK is the only value that can ever contribute
// to auto-approval; anything else, including an empty string from an engine
// that predates the status field, defaults to non-approval.
const (
	StatusOK        = "ok"
	StatusUncertain = "uncertain"
	StatusFailed    = "failed"
)

// NoIssuesSentinel is the canonical "all clear" comment. Approval requires
// the overall comment to equal it exactly, or the explicit ApprovalAllowed
// flag; a merely similar-looking comment never approves.
const NoIssuesSentinel = "No issues found."

// EngineVerdict is the suggestion engine's final output for a run: the raw
// candidate edits plus its self-reported assessment of the change set.
type EngineVerdict struct {
	// Status is the engine's self-reported status flag. Empty means the
	// engine never sent one.
	Status string `json:"status"`

	// Suggestions are the candidate inline edits, unvalidated.
	Suggestions []SuggestionCandidate `json:"suggestions"`

	// OverallComment is free-text commentary on the whole change set.
	OverallComment string `json:"overall_comment"`

	// ApprovalAllowed is the engine's explicit opt-in to auto-approval.
	// Absent in the wire format means false.
	ApprovalAllowed bool `json:"approval_allowed"`
}
