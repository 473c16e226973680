package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bkyoung/reviewgate/internal/adapter/cli"
	"github.com/bkyoung/reviewgate/internal/adapter/engine"
	githubadapter "github.com/bkyoung/reviewgate/internal/adapter/github"
	"github.com/bkyoung/reviewgate/internal/adapter/llm/openai"
	"github.com/bkyoung/reviewgate/internal/adapter/observability"
	"github.com/bkyoung/reviewgate/internal/adapter/session"
	storeAdapter "github.com/bkyoung/reviewgate/internal/adapter/store"
	"github.com/bkyoung/reviewgate/internal/adapter/store/sqlite"
	"github.com/bkyoung/reviewgate/internal/config"
	"github.com/bkyoung/reviewgate/internal/determinism"
	"github.com/bkyoung/reviewgate/internal/diff"
	"github.com/bkyoung/reviewgate/internal/domain"
	"github.com/bkyoung/reviewgate/internal/redaction"
	"github.com/bkyoung/reviewgate/internal/sandbox"
	"github.com/bkyoung/reviewgate/internal/usecase/review"
	"github.com/bkyoung/reviewgate/internal/version"
)

func main() {
	if err := run(); err != nil {
		// check-skip signals "proceed with review" through the exit code;
		// it is not a failure worth logging.
		if !errors.Is(err, cli.ErrShouldReview) {
			log.Println(err)
		}
		os.Exit(1)
	}
}

func run() error {
	// Cancellable context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "reviewgate",
		EnvPrefix:   "RG",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := buildLogger(cfg.Observability.Logging)

	host := githubadapter.NewClient(cfg.Host.Token)
	if cfg.Host.BaseURL != "" {
		host.SetBaseURL(cfg.Host.BaseURL)
	}
	if cfg.Host.Timeout != "" {
		if timeout, err := time.ParseDuration(cfg.Host.Timeout); err == nil {
			host.SetTimeout(timeout)
		} else {
			log.Printf("warning: invalid host timeout %q, using default", cfg.Host.Timeout)
		}
	}

	sessions := session.NewProvider(cfg.Host.CloneBaseURL, cfg.Host.Token)

	llm := openai.NewHTTPClient(cfg.Engine.APIKey, cfg.Engine.Model)
	if cfg.Engine.BaseURL != "" {
		llm.SetBaseURL(cfg.Engine.BaseURL)
	}
	// A stable seed keeps completions reproducible across reruns of the
	// same configuration.
	llm.SetSeed(determinism.GenerateSeed(cfg.Host.Repository, cfg.Engine.Model))
	agent := engine.New(llm, engine.Config{MaxIterations: cfg.Engine.MaxIterations})

	// Initialize the audit store if enabled.
	var audit review.AuditRecorder
	var runs cli.RunLister
	if cfg.Store.Enabled {
		storeDir := filepath.Dir(cfg.Store.Path)
		if err := os.MkdirAll(storeDir, 0755); err != nil {
			log.Printf("warning: failed to create store directory: %v", err)
		} else {
			sqliteStore, err := sqlite.NewStore(cfg.Store.Path)
			if err != nil {
				log.Printf("warning: failed to initialize store: %v", err)
			} else {
				bridge := storeAdapter.NewBridge(sqliteStore)
				defer bridge.Close()
				audit = bridge
				runs = sqliteStore
			}
		}
	}

	runTimeout := 10 * time.Minute
	if cfg.Review.RunTimeout != "" {
		if parsed, err := time.ParseDuration(cfg.Review.RunTimeout); err == nil {
			runTimeout = parsed
		} else {
			log.Printf("warning: invalid run timeout %q, using default 10m", cfg.Review.RunTimeout)
		}
	}

	orchestrator := review.NewOrchestrator(review.Deps{
		Host:           host,
		Sessions:       sessionProvider{provider: sessions},
		Engine:         engineBridge{agent: agent},
		ExtractPatches: diff.ExtractPatchByFile,
		Redactor:       redaction.NewEngine(),
		Audit:          audit,
		Logger:         logger,
		Config: review.Config{
			Profile:     cfg.Sandbox.Profile,
			Limits:      cfg.Sandbox.Limits(),
			MaxComments: cfg.Review.MaxComments,
			RunTimeout:  runTimeout,
		},
	})

	root := cli.NewRootCommand(cli.Dependencies{
		Reviewer:    orchestrator,
		Runs:        runs,
		DefaultRepo: cfg.Host.Repository,
		Version:     version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		if errors.Is(err, cli.ErrShouldReview) {
			return err
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "reviewgate"))
	}
	return paths
}

// buildLogger resolves the logging configuration. The "auto" format picks
// human-readable output on a terminal and JSON otherwise.
func buildLogger(cfg config.LoggingConfig) *observability.DefaultLogger {
	format := observability.LogFormatJSON
	switch cfg.Format {
	case "human":
		format = observability.LogFormatHuman
	case "json":
		format = observability.LogFormatJSON
	default:
		if review.IsOutputTerminal() {
			format = observability.LogFormatHuman
		}
	}
	return observability.NewDefaultLogger(observability.ParseLevel(cfg.Level), format, os.Stderr)
}

// engineBridge adapts the engine agent to the orchestrator's Engine port.
// The agent accepts any tool surface; the orchestrator hands it the
// concrete sandboxed one.
type engineBridge struct {
	agent *engine.Agent
}

func (b engineBridge) Review(ctx context.Context, surface *sandbox.Surface, changed []domain.ChangedFile) (domain.EngineVerdict, error) {
	return b.agent.Review(ctx, surface, changed)
}

// sessionProvider adapts the checkout provider's concrete return type to
// the orchestrator's Checkout port.
type sessionProvider struct {
	provider *session.Provider
}

func (s sessionProvider) Open(ctx context.Context, repository, ref string) (review.Checkout, error) {
	return s.provider.Open(ctx, repository, ref)
}

// Compile-time interface compliance checks
var _ review.HostClient = (*githubadapter.Client)(nil)
var _ review.SessionProvider = sessionProvider{}
var _ review.Engine = engineBridge{}
var _ review.Redactor = (*redaction.Engine)(nil)
var _ review.AuditRecorder = (*storeAdapter.Bridge)(nil)
var _ cli.RunLister = (*sqlite.Store)(nil)
var _ engine.LLMClient = (*openai.HTTPClient)(nil)
