package reconcile

import "github.com/bkyoung/reviewgate/internal/domain"

// Approvable decides whether a change set may be auto-approved.
//
// Conservative by construction: every condition must hold simultaneously.
// The engine's status flag is the explicit "ok" value, the candidate list
// is empty, and either the overall comment equals the canonical sentinel
// exactly or the engine explicitly set the approval-allowed flag. A verdict
// with no status flag at all (older engine contracts) never approves; a
// sentinel string alone is never sufficient without the structured status.
func Approvable(v domain.EngineVerdict) bool {
	if v.Status != domain.StatusOK {
		return false
	}
	if len(v.Suggestions) != 0 {
		return false
	}
	return v.OverallComment == domain.NoIssuesSentinel || v.ApprovalAllowed
}
