package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateRunID creates a unique, time-ordered run ID.
// Format: run-<timestamp>-<hash>
// Example: run-20260829T143052Z-a3f9c2
func GenerateRunID(timestamp time.Time, repository string, pullNumber int) string {
	// UTC timestamp in ISO format for consistent ordering
	ts := timestamp.UTC().Format("20060102T150405Z")

	input := fmt.Sprintf("%s|%d|%d", repository, pullNumber, timestamp.UnixNano())
	hash := sha256.Sum256([]byte(input))
	shortHash := hex.EncodeToString(hash[:3]) // 6 character hash

	return fmt.Sprintf("run-%s-%s", ts, shortHash)
}

// GenerateCommentID creates a unique ID for a posted comment.
// Format: comment-<run_id>-<index>
// Index is zero-padded to 4 digits for proper sorting.
func GenerateCommentID(runID string, index int) string {
	return fmt.Sprintf("comment-%s-%04d", runID, index)
}

// GenerateFindingID creates a unique ID for a security finding.
// Format: finding-<run_id>-<index>
func GenerateFindingID(runID string, index int) string {
	return fmt.Sprintf("finding-%s-%04d", runID, index)
}
