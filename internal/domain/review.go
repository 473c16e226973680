// Package domain contains the core types shared across the review pipeline.
package domain

// File status values reported by the host API.
const (
	FileStatusAdded    = "added"
	FileStatusModified = "modified"
	FileStatusRemoved  = "removed"
	FileStatusRenamed  = "renamed"
)

// ChangedFile describes one file changed in a pull request, as reported by
// the host API. Patch may be empty when the host omitted it; the review run
// backfills it from the full diff before the file is used.
type ChangedFile struct {
	Filename  string
	Status    string
	Additions int
	Deletions int
	Patch     string
}

// SinkCategory classifies a heuristic security finding.
type SinkCategory string

const (
	SinkXSS           SinkCategory = "xss"
	SinkInjection     SinkCategory = "injection"
	SinkCmdInjection  SinkCategory = "cmd-injection"
	SinkPathTraversal SinkCategory = "path-traversal"
)

// Confidence grades how likely a finding is to be real, based on
// co-occurring taint and sanitizer markers on the same line.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// SecurityFinding is one hit from the sink scanner. Findings are
// deduplicated by (Path, Line, Category).
type SecurityFinding struct {
	Path       string
	Line       int
	Category   SinkCategory
	Confidence Confidence
	Excerpt    string
	SourceHint string
}

// SuggestionCandidate is a proposed inline edit emitted by the suggestion
// engine. Line is 1-based in new-file numbering. Candidates are ephemeral:
// validated once by the reconciler and then discarded.
type SuggestionCandidate struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Body string `json:"body"`
}

// ReconciledComment is a validated, positioned review comment ready for
// posting. Position is always a valid patch position for the file's diff.
type ReconciledComment struct {
	Path     string
	Position int
	Body     string
}

// ReviewOutcome is the terminal state of a single review run.
type ReviewOutcome string

const (
	OutcomeApproved          ReviewOutcome = "approved"
	OutcomeCommentsPosted    ReviewOutcome = "comments-posted"
	OutcomeNoSafeSuggestions ReviewOutcome = "no-safe-suggestions"
	OutcomeSkipped           ReviewOutcome = "skipped"
)
