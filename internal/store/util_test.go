package store_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bkyoung/reviewgate/internal/store"
)

func TestGenerateRunID(t *testing.T) {
	t.Run("format is correct", func(t *testing.T) {
		ts := time.Date(2026, 8, 29, 14, 30, 45, 0, time.UTC)
		id := store.GenerateRunID(ts, "acme/webapp", 42)

		assert.True(t, strings.HasPrefix(id, "run-20260829T143045Z-"))
		assert.Len(t, id, len("run-20260829T143045Z-")+6)
	})

	t.Run("ids are unique across timestamps", func(t *testing.T) {
		a := store.GenerateRunID(time.Now(), "acme/webapp", 42)
		b := store.GenerateRunID(time.Now().Add(time.Nanosecond), "acme/webapp", 42)
		assert.NotEqual(t, a, b)
	})

	t.Run("ids order by time", func(t *testing.T) {
		earlier := store.GenerateRunID(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "a/b", 1)
		later := store.GenerateRunID(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), "a/b", 1)
		assert.Less(t, earlier, later)
	})
}

func TestGenerateCommentID(t *testing.T) {
	id := store.GenerateCommentID("run-x", 7)
	assert.Equal(t, "comment-run-x-0007", id)
}

func TestGenerateFindingID(t *testing.T) {
	id := store.GenerateFindingID("run-x", 0)
	assert.Equal(t, "finding-run-x-0000", id)
}
