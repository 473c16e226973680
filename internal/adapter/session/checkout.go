// Package session provides confined checkout directories for review runs.
//
// A Session owns a freshly cloned copy of the repository at a specific ref
// inside a private temp directory. Ownership is exclusive per run: no other
// run sees the directory, and Cleanup must be called on every exit path.
package session

import (
	"context"
	"fmt"
	"os"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Session is one confined checkout.
type Session struct {
	root string
}

// Root returns the absolute confinement root of the checkout.
func (s *Session) Root() string {
	return s.root
}

// Cleanup removes the checkout directory. Safe to call more than once.
func (s *Session) Cleanup() error {
	if s.root == "" {
		return nil
	}
	err := os.RemoveAll(s.root)
	s.root = ""
	return err
}

// Provider clones repositories into per-run temp directories.
type Provider struct {
	baseURL string
	token   string
}

// NewProvider creates a provider. baseURL is the clone host, e.g.
// "https://github.com"; when empty the repository argument to Open is
// used verbatim as the clone URL, which supports local paths. The token
// is used as basic-auth credentials when non-empty.
func NewProvider(baseURL, token string) *Provider {
	return &Provider{baseURL: baseURL, token: token}
}

// cloneURL resolves the clone target for an "owner/name" repository.
func (p *Provider) cloneURL(repository string) string {
	if p.baseURL == "" {
		return repository
	}
	return strings.TrimSuffix(p.baseURL, "/") + "/" + repository + ".git"
}

// Open clones the repository at ref into a new temp directory and returns
// the session owning it. On any failure the partial directory is removed
// before returning.
func (p *Provider) Open(ctx context.Context, repository, ref string) (*Session, error) {
	dir, err := os.MkdirTemp("", "reviewgate-checkout-")
	if err != nil {
		return nil, fmt.Errorf("creating checkout dir: %w", err)
	}

	url := p.cloneURL(repository)
	opts := &gogit.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.ReferenceName(ref),
		SingleBranch:  true,
		Depth:         1,
	}
	if p.token != "" {
		opts.Auth = &http.BasicAuth{Username: "x-access-token", Password: p.token}
	}

	if _, err := gogit.PlainCloneContext(ctx, dir, false, opts); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("cloning %s at %s: %w", url, ref, err)
	}

	return &Session{root: dir}, nil
}
