package store

import (
	"context"

	"github.com/bkyoung/reviewgate/internal/store"
	"github.com/bkyoung/reviewgate/internal/usecase/review"
)

// Bridge adapts store.Store to the review.AuditRecorder interface.
// This avoids circular dependencies between packages.
type Bridge struct {
	store store.Store
}

var _ review.AuditRecorder = (*Bridge)(nil)

// NewBridge creates a new store adapter.
func NewBridge(s store.Store) *Bridge {
	return &Bridge{store: s}
}

// RecordRun persists one run together with its posted comments and
// security findings.
func (b *Bridge) RecordRun(ctx context.Context, run review.AuditRun) error {
	runID := store.GenerateRunID(run.Timestamp, run.Repository, run.PullNumber)

	rec := store.Run{
		RunID:         runID,
		Timestamp:     run.Timestamp,
		Repository:    run.Repository,
		PullNumber:    run.PullNumber,
		Ref:           run.Ref,
		Profile:       run.Profile,
		EngineStatus:  run.EngineStatus,
		Outcome:       run.Outcome,
		CommentCount:  len(run.Comments),
		FallbackCount: run.FallbackCount,
		Approved:      run.Approved,
	}
	if err := b.store.CreateRun(ctx, rec); err != nil {
		return err
	}

	comments := make([]store.CommentRecord, len(run.Comments))
	for i, c := range run.Comments {
		comments[i] = store.CommentRecord{
			CommentID: store.GenerateCommentID(runID, i),
			RunID:     runID,
			File:      c.Path,
			Position:  c.Position,
			Body:      c.Body,
		}
	}
	if err := b.store.SaveComments(ctx, comments); err != nil {
		return err
	}

	findings := make([]store.FindingRecord, len(run.Findings))
	for i, f := range run.Findings {
		findings[i] = store.FindingRecord{
			FindingID:  store.GenerateFindingID(runID, i),
			RunID:      runID,
			File:       f.Path,
			Line:       f.Line,
			Category:   string(f.Category),
			Confidence: string(f.Confidence),
			Excerpt:    f.Excerpt,
			SourceHint: f.SourceHint,
		}
	}
	return b.store.SaveFindings(ctx, findings)
}

// Close closes the underlying store.
func (b *Bridge) Close() error {
	return b.store.Close()
}
