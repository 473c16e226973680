package sandbox

import "fmt"

// callKind identifies a tool-call category for budget accounting.
type callKind string

const (
	kindList       callKind = "list_dir"
	kindChanged    callKind = "get_changed_files"
	kindRead       callKind = "read_file"
	kindSearch     callKind = "search_text"
	kindGuidelines callKind = "read_guidelines"
	kindScan       callKind = "scan_security_sinks"
)

// Limits configures one session's quotas. It is passed to New and owned by
// that Surface alone; there is no process-wide budget state, so concurrent
// runs can never leak quota into each other.
type Limits struct {
	// Per-kind call budgets.
	ListDirCalls    int
	ReadFileCalls   int
	SearchCalls     int
	GuidelineCalls  int
	ScanCalls       int

	// MaxReadLinesPerCall caps the line span of a single ReadFile call.
	MaxReadLinesPerCall int

	// MaxReadLinesTotal caps the session's cumulative read-line total.
	// Zero disables the cap (the high-budget profile).
	MaxReadLinesTotal int

	// AllowExtraReads permits ReadFile on a fixed set of config-like
	// basenames beyond the changed-file allowlist.
	AllowExtraReads bool
}

// ConservativeLimits returns the default quota profile.
func ConservativeLimits() Limits {
	return Limits{
		ListDirCalls:        3,
		ReadFileCalls:       12,
		SearchCalls:         6,
		GuidelineCalls:      1,
		ScanCalls:           1,
		MaxReadLinesPerCall: 200,
		MaxReadLinesTotal:   1500,
		AllowExtraReads:     false,
	}
}

// HighLimits returns the high-budget profile: more calls, no cumulative
// read cap, and config-file reads enabled.
func HighLimits() Limits {
	return Limits{
		ListDirCalls:        8,
		ReadFileCalls:       40,
		SearchCalls:         20,
		GuidelineCalls:      2,
		ScanCalls:           2,
		MaxReadLinesPerCall: 400,
		MaxReadLinesTotal:   0,
		AllowExtraReads:     true,
	}
}

// budget tracks remaining per-kind call counts for one session.
type budget struct {
	remaining map[callKind]int
}

func newBudget(l Limits) *budget {
	return &budget{remaining: map[callKind]int{
		kindList:       l.ListDirCalls,
		kindRead:       l.ReadFileCalls,
		kindSearch:     l.SearchCalls,
		kindGuidelines: l.GuidelineCalls,
		kindScan:       l.ScanCalls,
	}}
}

// consume spends one call of the given kind. Counters never go negative:
// an exhausted kind fails the call instead of clamping.
func (b *budget) consume(k callKind) error {
	if b.remaining[k] <= 0 {
		return fmt.Errorf("%w: no %s calls remaining", ErrBudgetExceeded, k)
	}
	b.remaining[k]--
	return nil
}
