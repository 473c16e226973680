package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bkyoung/reviewgate/internal/domain"
	"github.com/bkyoung/reviewgate/internal/reconcile"
	"github.com/bkyoung/reviewgate/internal/sandbox"
)

// HostClient is the outbound port to the code host.
type HostClient interface {
	ListChangedFiles(ctx context.Context, owner, repo string, pullNumber int) ([]domain.ChangedFile, error)
	GetFullDiff(ctx context.Context, owner, repo string, pullNumber int) (string, error)
	CreateReview(ctx context.Context, owner, repo string, pullNumber int, comments []domain.ReconciledComment, body string, approve bool) error
}

// Checkout is one confined working copy of the repository under review.
type Checkout interface {
	Root() string
	Cleanup() error
}

// SessionProvider opens confined checkouts.
type SessionProvider interface {
	Open(ctx context.Context, repository, ref string) (Checkout, error)
}

// Engine drives the suggestion engine against a sandboxed tool surface.
type Engine interface {
	Review(ctx context.Context, surface *sandbox.Surface, changed []domain.ChangedFile) (domain.EngineVerdict, error)
}

// PatchExtractor splits a full unified diff into per-file patch fragments.
// It backfills patches for files the host omitted them on.
type PatchExtractor func(fullDiff string) map[string]string

// AuditRun captures everything recorded about one run.
type AuditRun struct {
	Timestamp     time.Time
	Repository    string
	PullNumber    int
	Ref           string
	Profile       string
	EngineStatus  string
	Outcome       string
	Approved      bool
	FallbackCount int
	Comments      []domain.ReconciledComment
	Findings      []domain.SecurityFinding
}

// AuditRecorder is the outbound port for the run audit trail.
type AuditRecorder interface {
	RecordRun(ctx context.Context, run AuditRun) error
}

// Redactor scrubs secrets from outbound text before it is published.
type Redactor interface {
	Redact(input string) (string, error)
}

// Config bounds one orchestrator instance.
type Config struct {
	// Profile names the sandbox limit profile in effect, for the audit trail.
	Profile string

	// Limits are the per-session sandbox limits applied to every run.
	Limits sandbox.Limits

	// MaxComments caps inline comments per posted review.
	MaxComments int

	// RunTimeout bounds one full run. Zero disables the timeout.
	RunTimeout time.Duration
}

// Request identifies the pull request to review.
type Request struct {
	Owner      string
	Repo       string
	PullNumber int

	// HeadRef is the ref checked out for the sandboxed tool surface,
	// e.g. "refs/pull/42/head".
	HeadRef string
}

// Summary is the terminal state of one run.
type Summary struct {
	Outcome       domain.ReviewOutcome
	EngineStatus  string
	CommentCount  int
	FallbackCount int
	Approved      bool
}

// Orchestrator runs one pull request review end to end: fetch the change,
// open a confined checkout, drive the engine, reconcile its suggestions,
// post the review, and record the audit trail.
type Orchestrator struct {
	host           HostClient
	sessions       SessionProvider
	engine         Engine
	extractPatches PatchExtractor
	redactor       Redactor
	audit          AuditRecorder
	logger         Logger
	config         Config
}

// Deps captures the orchestrator's collaborators. Redactor, Audit, and
// Logger are optional; a nil Audit disables the audit trail and a nil
// Logger discards logs.
type Deps struct {
	Host           HostClient
	Sessions       SessionProvider
	Engine         Engine
	ExtractPatches PatchExtractor
	Redactor       Redactor
	Audit          AuditRecorder
	Logger         Logger
	Config         Config
}

// NewOrchestrator wires an orchestrator from its dependencies.
func NewOrchestrator(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Orchestrator{
		host:           deps.Host,
		sessions:       deps.Sessions,
		engine:         deps.Engine,
		extractPatches: deps.ExtractPatches,
		redactor:       deps.Redactor,
		audit:          deps.Audit,
		logger:         logger,
		config:         deps.Config,
	}
}

// Run reviews one pull request. A run that posts nothing is still a
// successful run; only infrastructure failures return an error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Summary, error) {
	if o.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.RunTimeout)
		defer cancel()
	}
	started := time.Now()

	changed, err := o.host.ListChangedFiles(ctx, req.Owner, req.Repo, req.PullNumber)
	if err != nil {
		return Summary{}, fmt.Errorf("listing changed files: %w", err)
	}
	if len(changed) == 0 {
		o.logger.LogInfo(ctx, "no changed files, skipping review", map[string]interface{}{
			"repository": req.Owner + "/" + req.Repo,
			"pull":       req.PullNumber,
		})
		sum := Summary{Outcome: domain.OutcomeSkipped}
		o.record(ctx, req, started, sum, nil, nil)
		return sum, nil
	}

	changed, err = o.backfillPatches(ctx, req, changed)
	if err != nil {
		return Summary{}, err
	}

	checkout, err := o.sessions.Open(ctx, req.Owner+"/"+req.Repo, req.HeadRef)
	if err != nil {
		return Summary{}, fmt.Errorf("opening checkout: %w", err)
	}
	defer func() {
		if cerr := checkout.Cleanup(); cerr != nil {
			o.logger.LogWarning(ctx, "checkout cleanup failed", map[string]interface{}{
				"error": cerr.Error(),
			})
		}
	}()

	surface, err := sandbox.New(checkout.Root(), changed, o.config.Limits)
	if err != nil {
		return Summary{}, fmt.Errorf("building tool surface: %w", err)
	}

	// The audit scan runs in its own session so the engine's budget is
	// untouched.
	findings := o.scanForAudit(checkout.Root(), changed)

	verdict, err := o.engine.Review(ctx, surface, changed)
	if err != nil {
		sum := Summary{Outcome: domain.OutcomeSkipped, EngineStatus: domain.StatusFailed}
		o.record(ctx, req, started, sum, nil, findings)
		return sum, fmt.Errorf("engine review: %w", err)
	}

	patches := make(map[string]string, len(changed))
	for _, f := range changed {
		if f.Patch != "" {
			patches[f.Filename] = f.Patch
		}
	}
	result := reconcile.New(o.config.MaxComments).Reconcile(verdict, patches)

	if err := o.post(ctx, req, result); err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Outcome:       result.Outcome,
		EngineStatus:  verdict.Status,
		CommentCount:  len(result.Comments),
		FallbackCount: len(result.Fallback),
		Approved:      result.Approve,
	}
	o.logger.LogInfo(ctx, "review run complete", map[string]interface{}{
		"repository": req.Owner + "/" + req.Repo,
		"pull":       req.PullNumber,
		"outcome":    string(sum.Outcome),
		"comments":   sum.CommentCount,
		"fallback":   sum.FallbackCount,
		"approved":   sum.Approved,
	})
	o.record(ctx, req, started, sum, result.Comments, findings)
	return sum, nil
}

// backfillPatches fills in per-file patches the host omitted, using one
// full-diff fetch. Files absent from the full diff keep an empty patch and
// fail position lookup later, which routes their suggestions to fallback.
func (o *Orchestrator) backfillPatches(ctx context.Context, req Request, changed []domain.ChangedFile) ([]domain.ChangedFile, error) {
	missing := false
	for _, f := range changed {
		if f.Patch == "" {
			missing = true
			break
		}
	}
	if !missing || o.extractPatches == nil {
		return changed, nil
	}

	fullDiff, err := o.host.GetFullDiff(ctx, req.Owner, req.Repo, req.PullNumber)
	if err != nil {
		return nil, fmt.Errorf("fetching full diff: %w", err)
	}
	byFile := o.extractPatches(fullDiff)

	for i := range changed {
		if changed[i].Patch == "" {
			changed[i].Patch = byFile[changed[i].Filename]
		}
	}
	return changed, nil
}

// post publishes the reconciled result. An approval carries no inline
// comments; a run with nothing postable publishes nothing.
func (o *Orchestrator) post(ctx context.Context, req Request, result reconcile.Result) error {
	switch {
	case result.Approve:
		if err := o.host.CreateReview(ctx, req.Owner, req.Repo, req.PullNumber, nil, domain.NoIssuesSentinel, true); err != nil {
			return fmt.Errorf("posting approval: %w", err)
		}
	case len(result.Comments) > 0 || strings.TrimSpace(result.Body) != "":
		comments := make([]domain.ReconciledComment, len(result.Comments))
		for i, c := range result.Comments {
			c.Body = o.redact(ctx, c.Body)
			comments[i] = c
		}
		if err := o.host.CreateReview(ctx, req.Owner, req.Repo, req.PullNumber, comments, o.redact(ctx, result.Body), false); err != nil {
			return fmt.Errorf("posting review: %w", err)
		}
	default:
		o.logger.LogInfo(ctx, "nothing safe to post", map[string]interface{}{
			"repository": req.Owner + "/" + req.Repo,
			"pull":       req.PullNumber,
		})
	}
	return nil
}

// redact scrubs secrets from text bound for the host. Redaction failures
// leave the text unchanged; the patterns never error in practice.
func (o *Orchestrator) redact(ctx context.Context, text string) string {
	if o.redactor == nil || text == "" {
		return text
	}
	scrubbed, err := o.redactor.Redact(text)
	if err != nil {
		o.logger.LogWarning(ctx, "redaction failed, posting original text", map[string]interface{}{
			"error": err.Error(),
		})
		return text
	}
	return scrubbed
}

// scanForAudit records sink findings for the audit trail in a separate
// sandbox session. Failures degrade to an empty finding set.
func (o *Orchestrator) scanForAudit(root string, changed []domain.ChangedFile) []domain.SecurityFinding {
	surface, err := sandbox.New(root, changed, o.config.Limits)
	if err != nil {
		return nil
	}
	if _, err := surface.ListDir("", 1, 1); err != nil {
		return nil
	}
	findings, err := surface.ScanSecuritySinks()
	if err != nil {
		return nil
	}
	return findings
}

func (o *Orchestrator) record(ctx context.Context, req Request, started time.Time, sum Summary, comments []domain.ReconciledComment, findings []domain.SecurityFinding) {
	if o.audit == nil {
		return
	}
	run := AuditRun{
		Timestamp:     started,
		Repository:    req.Owner + "/" + req.Repo,
		PullNumber:    req.PullNumber,
		Ref:           req.HeadRef,
		Profile:       o.config.Profile,
		EngineStatus:  sum.EngineStatus,
		Outcome:       string(sum.Outcome),
		Approved:      sum.Approved,
		FallbackCount: sum.FallbackCount,
		Comments:      comments,
		Findings:      findings,
	}
	if err := o.audit.RecordRun(ctx, run); err != nil {
		o.logger.LogWarning(ctx, "failed to record audit run", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
