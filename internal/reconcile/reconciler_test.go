package reconcile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/reviewgate/internal/domain"
)

const samplePatch = "@@ -1,3 +1,4 @@\n line1\n-line2\n+line2-updated\n line3\n+line4"

func suggestion(path string, line int, block string) domain.SuggestionCandidate {
	return domain.SuggestionCandidate{
		Path: path,
		Line: line,
		Body: "Consider this instead:\n```suggestion\n" + block + "\n```",
	}
}

func TestReconcileAcceptsPositionedCandidate(t *testing.T) {
	verdict := domain.EngineVerdict{
		Status:      domain.StatusUncertain,
		Suggestions: []domain.SuggestionCandidate{suggestion("a.ts", 2, "fixed line")},
	}
	res := New(0).Reconcile(verdict, map[string]string{"a.ts": samplePatch})

	require.Len(t, res.Comments, 1)
	assert.Equal(t, "a.ts", res.Comments[0].Path)
	// Mapped patch position, not the raw line number.
	assert.Equal(t, 3, res.Comments[0].Position)
	assert.Contains(t, res.Comments[0].Body, "```suggestion\nfixed line\n```")
	assert.Empty(t, res.Fallback)
	assert.Equal(t, domain.OutcomeCommentsPosted, res.Outcome)
}

func TestReconcileFallbackRouting(t *testing.T) {
	tests := []struct {
		name   string
		cand   domain.SuggestionCandidate
		reason string
	}{
		{
			name:   "missing line",
			cand:   domain.SuggestionCandidate{Path: "a.ts", Line: 0, Body: "```\nx\n```"},
			reason: "missing path or line",
		},
		{
			name:   "no fenced block",
			cand:   domain.SuggestionCandidate{Path: "a.ts", Line: 2, Body: "just prose"},
			reason: "invalid replacement block",
		},
		{
			name:   "two fenced blocks",
			cand:   domain.SuggestionCandidate{Path: "a.ts", Line: 2, Body: "```\na\n```\n```\nb\n```"},
			reason: "invalid replacement block",
		},
		{
			name:   "oversized block",
			cand:   suggestion("a.ts", 2, strings.Repeat("line\n", 11)+"last"),
			reason: "invalid replacement block",
		},
		{
			name:   "unknown file",
			cand:   suggestion("missing.ts", 2, "x"),
			reason: "patch is unavailable",
		},
		{
			name:   "context line",
			cand:   suggestion("a.ts", 3, "x"),
			reason: "line is not an added diff line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := domain.EngineVerdict{Suggestions: []domain.SuggestionCandidate{tt.cand}}
			res := New(0).Reconcile(verdict, map[string]string{"a.ts": samplePatch})

			assert.Empty(t, res.Comments)
			require.Len(t, res.Fallback, 1)
			assert.Equal(t, tt.reason, res.Fallback[0].Reason)
			assert.Equal(t, domain.OutcomeCommentsPosted, res.Outcome)
			// The fallback section names location and reason only.
			assert.Contains(t, res.Body, tt.reason)
			assert.NotContains(t, res.Body, "```")
		})
	}
}

func TestReconcileCollapsesEchoedBlocks(t *testing.T) {
	echoed := "fix()\ncleanup()\nfix()\ncleanup()"
	verdict := domain.EngineVerdict{
		Suggestions: []domain.SuggestionCandidate{suggestion("a.ts", 2, echoed)},
	}
	res := New(0).Reconcile(verdict, map[string]string{"a.ts": samplePatch})

	require.Len(t, res.Comments, 1)
	assert.Contains(t, res.Comments[0].Body, "```suggestion\nfix()\ncleanup()\n```")

	// A triple echo of a 4-line block collapses under the 10-line cap.
	tripled := strings.TrimSuffix(strings.Repeat("a\nb\nc\nd\n", 3), "\n")
	verdict.Suggestions = []domain.SuggestionCandidate{suggestion("a.ts", 4, tripled)}
	res = New(0).Reconcile(verdict, map[string]string{"a.ts": samplePatch})
	require.Len(t, res.Comments, 1)
	assert.Contains(t, res.Comments[0].Body, "```suggestion\na\nb\nc\nd\n```")
}

func TestReconcileDeduplicatesAndCaps(t *testing.T) {
	dup := suggestion("a.ts", 2, "same fix")
	verdict := domain.EngineVerdict{
		Suggestions: []domain.SuggestionCandidate{dup, dup, suggestion("a.ts", 4, "other fix")},
	}

	res := New(1).Reconcile(verdict, map[string]string{"a.ts": samplePatch})

	// Duplicate vanishes silently; the over-cap candidate goes to fallback.
	require.Len(t, res.Comments, 1)
	assert.Contains(t, res.Comments[0].Body, "same fix")
	require.Len(t, res.Fallback, 1)
	assert.Equal(t, "comment limit reached", res.Fallback[0].Reason)
}

func TestReconcileNoSafeSuggestions(t *testing.T) {
	verdict := domain.EngineVerdict{Status: domain.StatusUncertain}
	res := New(0).Reconcile(verdict, nil)

	assert.Empty(t, res.Comments)
	assert.Empty(t, res.Fallback)
	assert.Equal(t, domain.OutcomeNoSafeSuggestions, res.Outcome)
}

func TestApprovalGate(t *testing.T) {
	tests := []struct {
		name    string
		verdict domain.EngineVerdict
		want    bool
	}{
		{
			name: "sentinel comment with ok status",
			verdict: domain.EngineVerdict{
				Status:         domain.StatusOK,
				OverallComment: domain.NoIssuesSentinel,
			},
			want: true,
		},
		{
			name: "explicit approval flag with ok status",
			verdict: domain.EngineVerdict{
				Status:          domain.StatusOK,
				OverallComment:  "Looks reasonable overall.",
				ApprovalAllowed: true,
			},
			want: true,
		},
		{
			name: "uncertain status never approves",
			verdict: domain.EngineVerdict{
				Status:         domain.StatusUncertain,
				OverallComment: domain.NoIssuesSentinel,
			},
			want: false,
		},
		{
			name: "missing status never approves even with flag",
			verdict: domain.EngineVerdict{
				ApprovalAllowed: true,
				OverallComment:  domain.NoIssuesSentinel,
			},
			want: false,
		},
		{
			name: "pending suggestions block approval",
			verdict: domain.EngineVerdict{
				Status:          domain.StatusOK,
				ApprovalAllowed: true,
				Suggestions:     []domain.SuggestionCandidate{{Path: "a.ts", Line: 1, Body: "x"}},
			},
			want: false,
		},
		{
			name: "near-sentinel comment is not enough",
			verdict: domain.EngineVerdict{
				Status:         domain.StatusOK,
				OverallComment: "no issues found",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Approvable(tt.verdict))
			res := New(0).Reconcile(tt.verdict, map[string]string{"a.ts": samplePatch})
			if tt.want {
				assert.Equal(t, domain.OutcomeApproved, res.Outcome)
			} else {
				assert.NotEqual(t, domain.OutcomeApproved, res.Outcome)
			}
		})
	}
}
