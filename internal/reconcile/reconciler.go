// Package reconcile validates and positions the suggestion engine's raw
// candidate edits against ground-truth diff state, and makes the
// conservative auto-approval decision for a review run.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/bkyoung/reviewgate/internal/diff"
	"github.com/bkyoung/reviewgate/internal/domain"
)

// DefaultMaxComments caps inline comments per run regardless of how many
// candidates validate.
const DefaultMaxComments = 20

// maxBlockLines caps a replacement block after echo collapse.
const maxBlockLines = 10

// FallbackEntry records a candidate that could not be attached inline.
// Only location and reason are kept: the summary never repeats an unvetted
// suggestion body.
type FallbackEntry struct {
	Path   string
	Line   int
	Reason string
}

// Result is the reconciled output of a review run.
type Result struct {
	Comments []domain.ReconciledComment
	Fallback []FallbackEntry

	// Body is the overall review body, including the fallback section.
	Body string

	// Approve reports whether the auto-approval gate opened.
	Approve bool

	Outcome domain.ReviewOutcome
}

// Reconciler validates candidates against per-file patches.
type Reconciler struct {
	maxComments int
}

// New creates a Reconciler. maxComments <= 0 selects DefaultMaxComments.
func New(maxComments int) *Reconciler {
	if maxComments <= 0 {
		maxComments = DefaultMaxComments
	}
	return &Reconciler{maxComments: maxComments}
}

// Reconcile runs the per-candidate validation pipeline in order, routing
// failures to the fallback list, then assembles the final comment set and
// the approval decision. It never returns an error: unattachable
// suggestions are expected outcomes, not failures.
func (r *Reconciler) Reconcile(verdict domain.EngineVerdict, patches map[string]string) Result {
	res := Result{}

	type commentKey struct {
		path     string
		position int
		body     string
	}
	seen := make(map[commentKey]bool)
	positionMaps := make(map[string]map[int]int)

	for _, cand := range verdict.Suggestions {
		if cand.Path == "" || cand.Line < 1 {
			res.Fallback = append(res.Fallback, FallbackEntry{
				Path: cand.Path, Line: cand.Line, Reason: "missing path or line",
			})
			continue
		}

		body, ok := normalizeBody(cand.Body)
		if !ok {
			res.Fallback = append(res.Fallback, FallbackEntry{
				Path: cand.Path, Line: cand.Line, Reason: "invalid replacement block",
			})
			continue
		}

		patch, ok := patches[cand.Path]
		if !ok {
			res.Fallback = append(res.Fallback, FallbackEntry{
				Path: cand.Path, Line: cand.Line, Reason: "patch is unavailable",
			})
			continue
		}

		positions, ok := positionMaps[cand.Path]
		if !ok {
			positions = diff.BuildAddedLineToPositionMap(patch)
			positionMaps[cand.Path] = positions
		}
		position, ok := positions[cand.Line]
		if !ok {
			res.Fallback = append(res.Fallback, FallbackEntry{
				Path: cand.Path, Line: cand.Line, Reason: "line is not an added diff line",
			})
			continue
		}

		key := commentKey{path: cand.Path, position: position, body: body}
		if seen[key] {
			continue
		}
		seen[key] = true

		if len(res.Comments) >= r.maxComments {
			res.Fallback = append(res.Fallback, FallbackEntry{
				Path: cand.Path, Line: cand.Line, Reason: "comment limit reached",
			})
			continue
		}

		res.Comments = append(res.Comments, domain.ReconciledComment{
			Path:     cand.Path,
			Position: position,
			Body:     body,
		})
	}

	res.Approve = Approvable(verdict)
	res.Body = buildBody(verdict.OverallComment, res.Fallback)

	switch {
	case res.Approve:
		res.Outcome = domain.OutcomeApproved
	case len(res.Comments) == 0 && strings.TrimSpace(res.Body) == "":
		res.Outcome = domain.OutcomeNoSafeSuggestions
	default:
		res.Outcome = domain.OutcomeCommentsPosted
	}

	return res
}

// normalizeBody validates that a candidate body carries exactly one fenced
// replacement block, collapses a block that is literally two or three
// consecutive repeats of the same sub-block (engines echo themselves), and
// enforces the block-size cap. Returns the body with the collapsed block
// spliced back in.
func normalizeBody(body string) (string, bool) {
	open := strings.Index(body, "```")
	if open < 0 {
		return "", false
	}
	// Skip the info string on the opening fence line.
	rest := body[open+3:]
	nl := strings.Index(rest, "\n")
	if nl < 0 {
		return "", false
	}
	fence := rest[:nl]
	content := rest[nl+1:]

	closeIdx := strings.Index(content, "```")
	if closeIdx < 0 {
		return "", false
	}
	after := content[closeIdx+3:]
	if strings.Contains(after, "```") {
		// More than one block.
		return "", false
	}

	block := strings.TrimSuffix(content[:closeIdx], "\n")
	lines := collapseEcho(strings.Split(block, "\n"))
	if len(lines) > maxBlockLines {
		return "", false
	}

	var b strings.Builder
	b.WriteString(body[:open])
	b.WriteString("```")
	b.WriteString(fence)
	b.WriteString("\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n```")
	b.WriteString(strings.TrimRight(after, " \t"))
	return b.String(), true
}

// collapseEcho reduces a block that is exactly two or three consecutive
// copies of the same sub-block to a single copy.
func collapseEcho(lines []string) []string {
	for _, repeats := range []int{3, 2} {
		if len(lines)%repeats != 0 || len(lines) < repeats {
			continue
		}
		segment := len(lines) / repeats
		identical := true
		for copyIdx := 1; copyIdx < repeats && identical; copyIdx++ {
			for i := 0; i < segment; i++ {
				if lines[copyIdx*segment+i] != lines[i] {
					identical = false
					break
				}
			}
		}
		if identical {
			return lines[:segment]
		}
	}
	return lines
}

// buildBody appends the compact fallback section to the overall comment.
func buildBody(overall string, fallback []FallbackEntry) string {
	if len(fallback) == 0 {
		return overall
	}

	var b strings.Builder
	b.WriteString(overall)
	if overall != "" {
		b.WriteString("\n\n")
	}
	b.WriteString("Suggestions that could not be attached inline:\n")
	for _, f := range fallback {
		fmt.Fprintf(&b, "- %s:%d (%s)\n", f.Path, f.Line, f.Reason)
	}
	return strings.TrimRight(b.String(), "\n")
}
