// Package engine drives the external suggestion engine through the
// sandboxed tool surface: one tool call at a time, answered or rejected,
// until the engine emits its final verdict.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bkyoung/reviewgate/internal/domain"
	"github.com/bkyoung/reviewgate/internal/sandbox"
)

// LLMClient abstracts the text-generation backend.
type LLMClient interface {
	// Call sends a prompt pair and returns the raw response text.
	Call(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ToolSurface is the subset of the sandbox surface the agent dispatches
// tool calls against. *sandbox.Surface satisfies it.
type ToolSurface interface {
	ListDir(path string, depth, maxEntries int) ([]string, error)
	ChangedFiles() ([]domain.ChangedFile, error)
	ReadFile(path string, startLine, endLine int) (string, error)
	SearchText(query string, maxResults int) ([]sandbox.SearchHit, error)
	ReadGuidelines() (map[string]string, error)
	ScanSecuritySinks() ([]domain.SecurityFinding, error)
}

var _ ToolSurface = (*sandbox.Surface)(nil)

// Config bounds the agent loop.
type Config struct {
	// MaxIterations limits LLM round trips per run.
	MaxIterations int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxIterations: 25}
}

// Agent runs the call/response loop for one review.
type Agent struct {
	llm    LLMClient
	config Config
}

// New creates an agent over the given LLM backend.
func New(llm LLMClient, config Config) *Agent {
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultConfig().MaxIterations
	}
	return &Agent{llm: llm, config: config}
}

// Review drives the engine until it produces a verdict or the iteration
// budget runs out. Tool-call failures are fed back to the engine as
// retryable feedback, never escalated to run failures. An engine that
// never yields a parseable verdict gets the conservative uncertain one.
func (a *Agent) Review(ctx context.Context, surface ToolSurface, changed []domain.ChangedFile) (domain.EngineVerdict, error) {
	systemPrompt := SystemPrompt()
	userPrompt := ReviewPrompt(changed)

	for i := 0; i < a.config.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return domain.EngineVerdict{}, err
		}

		response, err := a.llm.Call(ctx, systemPrompt, userPrompt)
		if err != nil {
			return domain.EngineVerdict{}, fmt.Errorf("llm call: %w", err)
		}

		if verdict, ok := parseVerdict(response); ok {
			return verdict, nil
		}

		toolName, toolInput, ok := parseToolCall(response)
		if !ok {
			// Neither a verdict nor a tool call: nudge once per
			// iteration until the budget runs out.
			userPrompt = "Respond with either a TOOL call or a final JSON verdict."
			continue
		}

		output := a.dispatch(surface, toolName, toolInput)
		userPrompt = ToolResultPrompt(toolName, toolInput, output)
	}

	return domain.EngineVerdict{
		Status:         domain.StatusUncertain,
		OverallComment: "Review did not complete within the tool-call budget.",
	}, nil
}

// toolCallPattern matches invocations like "TOOL: read_file\nINPUT: {...}".
var toolCallPattern = regexp.MustCompile(`(?s)TOOL:\s*(\w+)\s*\nINPUT:\s*(.+?)\s*(?:\nTOOL:|\z)`)

func parseToolCall(response string) (name, input string, ok bool) {
	m := toolCallPattern.FindStringSubmatch(response)
	if len(m) < 3 {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// verdictResponse is the engine's final-answer wire shape. Status is a
// pointer so an omitted field is distinguishable from an empty one: both
// default to non-approval downstream, but the distinction is logged.
type verdictResponse struct {
	Status          *string                      `json:"status"`
	Suggestions     []domain.SuggestionCandidate `json:"suggestions"`
	OverallComment  string                       `json:"overall_comment"`
	ApprovalAllowed bool                         `json:"approval_allowed"`
}

// parseVerdict attempts to extract a final verdict from the response.
// A response that parses as a tool call is never a verdict.
func parseVerdict(response string) (domain.EngineVerdict, bool) {
	if toolCallPattern.MatchString(response) {
		return domain.EngineVerdict{}, false
	}

	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return domain.EngineVerdict{}, false
	}

	var v verdictResponse
	if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
		return domain.EngineVerdict{}, false
	}
	if v.Status == nil && v.Suggestions == nil && v.OverallComment == "" {
		return domain.EngineVerdict{}, false
	}

	verdict := domain.EngineVerdict{
		Suggestions:     v.Suggestions,
		OverallComment:  v.OverallComment,
		ApprovalAllowed: v.ApprovalAllowed,
	}
	if v.Status != nil {
		verdict.Status = *v.Status
	}
	return verdict, true
}

// codeBlockPattern matches markdown code blocks with an optional json tag.
var codeBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.+?)\\n?```")

// jsonObjectPattern matches a bare JSON object.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.+\}`)

// extractJSON finds and extracts JSON from text, handling code blocks.
func extractJSON(text string) string {
	if m := codeBlockPattern.FindStringSubmatch(text); len(m) >= 2 {
		candidate := strings.TrimSpace(m[1])
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	if m := jsonObjectPattern.FindString(text); m != "" {
		if json.Valid([]byte(m)) {
			return m
		}
	}
	return ""
}
