package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkyoung/reviewgate/internal/store"
	"github.com/bkyoung/reviewgate/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// PullRequestReviewer defines the dependency required to run the review command.
type PullRequestReviewer interface {
	Run(ctx context.Context, req review.Request) (review.Summary, error)
}

// RunLister lists recorded review runs from the audit trail.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Reviewer    PullRequestReviewer
	Runs        RunLister // nil when the audit store is disabled
	Args        Arguments
	DefaultRepo string // From config host.repository, "owner/name"
	Version     string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "reviewgate",
		Short: "Automated pull request review gate",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(reviewCommand(deps.Reviewer, deps.DefaultRepo))
	root.AddCommand(runsCommand(deps.Runs))
	root.AddCommand(checkSkipCommand())

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func reviewCommand(reviewer PullRequestReviewer, defaultRepo string) *cobra.Command {
	var repository string
	var pullNumber int
	var headRef string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review one pull request and post the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepository(repository)
			if err != nil {
				return err
			}
			if pullNumber <= 0 {
				return fmt.Errorf("--pr must be a positive pull request number")
			}
			if headRef == "" {
				headRef = fmt.Sprintf("refs/pull/%d/head", pullNumber)
			}

			sum, err := reviewer.Run(cmd.Context(), review.Request{
				Owner:      owner,
				Repo:       repo,
				PullNumber: pullNumber,
				HeadRef:    headRef,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "outcome:  %s\n", sum.Outcome)
			_, _ = fmt.Fprintf(out, "comments: %d (%d unattached)\n", sum.CommentCount, sum.FallbackCount)
			_, _ = fmt.Fprintf(out, "approved: %t\n", sum.Approved)
			return nil
		},
	}

	cmd.Flags().StringVar(&repository, "repo", defaultRepo, "Repository as owner/name")
	cmd.Flags().IntVar(&pullNumber, "pr", 0, "Pull request number")
	cmd.Flags().StringVar(&headRef, "ref", "", "Head ref to check out (defaults to refs/pull/<pr>/head)")

	return cmd
}

func runsCommand(runs RunLister) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent review runs from the audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runs == nil {
				return fmt.Errorf("audit store is not enabled; set store.enabled in the configuration")
			}
			if limit <= 0 {
				limit = 20
			}

			recorded, err := runs.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(recorded) == 0 {
				_, _ = fmt.Fprintln(out, "no recorded runs")
				return nil
			}
			for _, r := range recorded {
				_, _ = fmt.Fprintf(out, "%s  %s#%d  %s  comments=%d  approved=%t\n",
					r.Timestamp.UTC().Format("2006-01-02 15:04:05"),
					r.Repository, r.PullNumber, r.Outcome, r.CommentCount, r.Approved)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")

	return cmd
}

// splitRepository parses an owner/name repository reference.
func splitRepository(repository string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(repository), "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("--repo must be owner/name, got %q", repository)
	}
	return owner, repo, nil
}
