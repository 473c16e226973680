package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/reviewgate/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-token")
	c.SetBaseURL(srv.URL)
	c.SetMaxRetries(0)
	return c
}

func TestListChangedFilesPagination(t *testing.T) {
	var pagesServed []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		page := r.URL.Query().Get("page")
		pagesServed = append(pagesServed, page)

		w.Header().Set("Content-Type", "application/json")
		if page == "1" {
			// A full page forces a second request.
			files := make([]map[string]interface{}, filesPerPage)
			for i := range files {
				files[i] = map[string]interface{}{
					"filename": fmt.Sprintf("file%d.ts", i), "status": "modified",
					"additions": 1, "deletions": 0, "patch": "@@ -1 +1 @@\n-a\n+b",
				}
			}
			require.NoError(t, json.NewEncoder(w).Encode(files))
			return
		}
		fmt.Fprint(w, `[{"filename":"last.ts","status":"added","additions":2,"deletions":0}]`)
	})

	c := newTestClient(t, handler)
	files, err := c.ListChangedFiles(context.Background(), "o", "r", 7)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, pagesServed)
	require.Len(t, files, filesPerPage+1)
	assert.Equal(t, "last.ts", files[filesPerPage].Filename)
	assert.Equal(t, domain.FileStatusAdded, files[filesPerPage].Status)
	// Patch absent on the wire stays empty for later backfill.
	assert.Empty(t, files[filesPerPage].Patch)
}

func TestGetFullDiffUsesDiffMediaType(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.github.v3.diff", r.Header.Get("Accept"))
		fmt.Fprint(w, "diff --git a/x b/x\n")
	})

	c := newTestClient(t, handler)
	diff, err := c.GetFullDiff(context.Background(), "o", "r", 7)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/x b/x\n", diff)
}

func TestCreateReviewPayload(t *testing.T) {
	var got createReviewRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/o/r/pulls/7/reviews", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"id": 1}`)
	})

	c := newTestClient(t, handler)
	comments := []domain.ReconciledComment{{Path: "a.ts", Position: 3, Body: "fix"}}
	err := c.CreateReview(context.Background(), "o", "r", 7, comments, "summary", false)
	require.NoError(t, err)

	assert.Equal(t, EventComment, got.Event)
	assert.Equal(t, "summary", got.Body)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, 3, got.Comments[0].Position)
}

func TestCreateReviewApproveEvent(t *testing.T) {
	var got createReviewRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"id": 2}`)
	})

	c := newTestClient(t, handler)
	err := c.CreateReview(context.Background(), "o", "r", 7, nil, domain.NoIssuesSentinel, true)
	require.NoError(t, err)
	assert.Equal(t, EventApprove, got.Event)
	assert.Empty(t, got.Comments)
}

func TestClientErrorIsNotRetried(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "nope", http.StatusUnprocessableEntity)
	})

	c := newTestClient(t, handler)
	c.SetMaxRetries(3)
	c.retryConf.InitialBackoff = time.Millisecond

	err := c.CreateReview(context.Background(), "o", "r", 7, nil, "b", false)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestServerErrorIsRetried(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "ok")
	})

	c := newTestClient(t, handler)
	c.SetMaxRetries(3)
	c.retryConf.InitialBackoff = time.Millisecond

	_, err := c.GetFullDiff(context.Background(), "o", "r", 7)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}
