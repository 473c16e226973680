package store

import (
	"context"
	"time"
)

// Store defines the persistence layer interface for the review audit trail.
type Store interface {
	// Run management
	CreateRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, runID string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Posted comment persistence
	SaveComments(ctx context.Context, comments []CommentRecord) error
	GetCommentsByRun(ctx context.Context, runID string) ([]CommentRecord, error)

	// Security finding persistence
	SaveFindings(ctx context.Context, findings []FindingRecord) error
	GetFindingsByRun(ctx context.Context, runID string) ([]FindingRecord, error)

	// Utility
	Close() error
}

// Run represents a single review execution against one pull request.
type Run struct {
	RunID         string
	Timestamp     time.Time
	Repository    string
	PullNumber    int
	Ref           string
	Profile       string
	EngineStatus  string
	Outcome       string
	CommentCount  int
	FallbackCount int
	Approved      bool
}

// CommentRecord stores one inline comment that was posted for a run.
type CommentRecord struct {
	CommentID string
	RunID     string
	File      string
	Position  int
	Body      string
}

// FindingRecord stores one security scan finding observed during a run.
type FindingRecord struct {
	FindingID  string
	RunID      string
	File       string
	Line       int
	Category   string
	Confidence string
	Excerpt    string
	SourceHint string
}
