// Package github is a minimal client for the GitHub pull request API: the
// changed-file and diff sources consumed by a review run, and the
// comment-posting sink it publishes through.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bkyoung/reviewgate/internal/domain"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second
	filesPerPage   = 100
	apiVersion     = "2022-11-28"
)

// Review events accepted by the reviews endpoint.
const (
	EventComment = "COMMENT"
	EventApprove = "APPROVE"
)

// Client is an HTTP client for the GitHub pull request API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	retryConf  RetryConfig
}

// NewClient creates a client authenticated with the given token.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryConf:  DefaultRetryConfig(),
	}
}

// SetBaseURL sets a custom base URL (for testing or GitHub Enterprise).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetMaxRetries sets the maximum number of retry attempts.
func (c *Client) SetMaxRetries(maxRetries int) {
	c.retryConf.MaxRetries = maxRetries
}

// prFile is the wire shape of one entry from the PR files endpoint.
type prFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch"`
}

// ListChangedFiles returns all changed files of a pull request, following
// pagination. Patch may be empty for large or binary files; callers
// backfill from the full diff.
func (c *Client) ListChangedFiles(ctx context.Context, owner, repo string, pullNumber int) ([]domain.ChangedFile, error) {
	var files []domain.ChangedFile

	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=%d&page=%d",
			c.baseURL, owner, repo, pullNumber, filesPerPage, page)

		var pageFiles []prFile
		err := c.doJSON(ctx, http.MethodGet, url, nil, "application/vnd.github+json", &pageFiles)
		if err != nil {
			return nil, fmt.Errorf("listing PR files: %w", err)
		}

		for _, f := range pageFiles {
			files = append(files, domain.ChangedFile{
				Filename:  f.Filename,
				Status:    f.Status,
				Additions: f.Additions,
				Deletions: f.Deletions,
				Patch:     f.Patch,
			})
		}

		if len(pageFiles) < filesPerPage {
			return files, nil
		}
	}
}

// GetFullDiff fetches the whole pull request as one unified diff via the
// diff media type. Used once per run, to backfill patches the structured
// file listing omitted.
func (c *Client) GetFullDiff(ctx context.Context, owner, repo string, pullNumber int) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, pullNumber)

	var diff string
	err := retryWithBackoff(ctx, c.retryConf, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &APIError{Message: err.Error()}
		}
		c.setHeaders(req, "application/vnd.github.v3.diff")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &APIError{Message: err.Error(), Retryable: true}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &APIError{Message: err.Error(), Retryable: true}
		}
		if resp.StatusCode >= 400 {
			return mapStatusError(resp.StatusCode, body)
		}
		diff = string(body)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fetching full diff: %w", err)
	}
	return diff, nil
}

// reviewComment is the wire shape of one inline comment.
type reviewComment struct {
	Path     string `json:"path"`
	Position int    `json:"position"`
	Body     string `json:"body"`
}

// createReviewRequest is the wire shape of the review creation call.
type createReviewRequest struct {
	Event    string          `json:"event"`
	Body     string          `json:"body,omitempty"`
	Comments []reviewComment `json:"comments,omitempty"`
}

// CreateReview posts a pull request review: the overall body, the inline
// comments, and either a COMMENT or APPROVE event.
func (c *Client) CreateReview(ctx context.Context, owner, repo string, pullNumber int, comments []domain.ReconciledComment, body string, approve bool) error {
	event := EventComment
	if approve {
		event = EventApprove
	}

	req := createReviewRequest{Event: event, Body: body}
	for _, cm := range comments {
		req.Comments = append(req.Comments, reviewComment{
			Path:     cm.Path,
			Position: cm.Position,
			Body:     cm.Body,
		})
	}

	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews", c.baseURL, owner, repo, pullNumber)
	if err := c.doJSON(ctx, http.MethodPost, url, req, "application/vnd.github+json", nil); err != nil {
		return fmt.Errorf("creating review: %w", err)
	}
	return nil
}

// doJSON performs one JSON request/response cycle with retry. A nil out
// skips response decoding.
func (c *Client) doJSON(ctx context.Context, method, url string, in interface{}, accept string, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
	}

	return retryWithBackoff(ctx, c.retryConf, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return &APIError{Message: err.Error()}
		}
		c.setHeaders(req, accept)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &APIError{Message: err.Error(), Retryable: true}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &APIError{Message: err.Error(), Retryable: true}
		}
		if resp.StatusCode >= 400 {
			return mapStatusError(resp.StatusCode, body)
		}
		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return &APIError{Message: fmt.Sprintf("decoding response: %v", err)}
			}
		}
		return nil
	})
}

func (c *Client) setHeaders(req *http.Request, accept string) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
}
