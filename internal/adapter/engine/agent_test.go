package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/reviewgate/internal/domain"
	"github.com/bkyoung/reviewgate/internal/sandbox"
)

// scriptedLLM returns canned responses in order and records prompts.
type scriptedLLM struct {
	responses []string
	prompts   []string
	err       error
}

func (s *scriptedLLM) Call(_ context.Context, _, userPrompt string) (string, error) {
	s.prompts = append(s.prompts, userPrompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("script exhausted")
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

// fakeSurface records tool calls without sandbox enforcement.
type fakeSurface struct {
	listCalls   int
	readResult  string
	readErr     error
	scanResults []domain.SecurityFinding
}

func (f *fakeSurface) ListDir(string, int, int) ([]string, error) {
	f.listCalls++
	return []string{"src/", "src/app.ts", "package.json"}, nil
}

func (f *fakeSurface) ChangedFiles() ([]domain.ChangedFile, error) {
	return []domain.ChangedFile{{Filename: "src/app.ts", Status: domain.FileStatusModified, Additions: 3}}, nil
}

func (f *fakeSurface) ReadFile(string, int, int) (string, error) {
	return f.readResult, f.readErr
}

func (f *fakeSurface) SearchText(string, int) ([]sandbox.SearchHit, error) {
	return nil, nil
}

func (f *fakeSurface) ReadGuidelines() (map[string]string, error) {
	return map[string]string{"CONTRIBUTING.md": "be kind"}, nil
}

func (f *fakeSurface) ScanSecuritySinks() ([]domain.SecurityFinding, error) {
	return f.scanResults, nil
}

const verdictJSON = "```json\n" + `{
  "status": "ok",
  "suggestions": [{"path": "src/app.ts", "line": 3, "body": "Use textContent.\n` + "```suggestion\\n  el.textContent = v;\\n```" + `"}],
  "overall_comment": "One fix suggested.",
  "approval_allowed": false
}` + "\n```"

func TestReviewToolLoopThenVerdict(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"TOOL: list_dir\nINPUT: {}",
		"TOOL: read_file\nINPUT: {\"path\": \"src/app.ts\", \"start_line\": 1, \"end_line\": 40}",
		verdictJSON,
	}}
	surface := &fakeSurface{readResult: "1| el.innerHTML = v;\n"}

	agent := New(llm, DefaultConfig())
	verdict, err := agent.Review(context.Background(), surface, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOK, verdict.Status)
	require.Len(t, verdict.Suggestions, 1)
	assert.Equal(t, "src/app.ts", verdict.Suggestions[0].Path)
	assert.Equal(t, 3, verdict.Suggestions[0].Line)
	assert.Equal(t, 1, surface.listCalls)

	// Tool output was fed back into the next prompt.
	require.Len(t, llm.prompts, 3)
	assert.Contains(t, llm.prompts[1], "list_dir")
	assert.Contains(t, llm.prompts[2], "el.innerHTML = v;")
}

func TestReviewToolErrorIsFeedbackNotFailure(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"TOOL: read_file\nINPUT: {\"path\": \"src/app.ts\"}",
		verdictJSON,
	}}
	surface := &fakeSurface{readErr: errors.New("list_dir must be called before other tools")}

	agent := New(llm, DefaultConfig())
	verdict, err := agent.Review(context.Background(), surface, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOK, verdict.Status)
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "Error: list_dir must be called before other tools")
}

func TestReviewIterationBudgetYieldsUncertain(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"TOOL: list_dir\nINPUT: {}",
		"TOOL: list_dir\nINPUT: {}",
		"TOOL: list_dir\nINPUT: {}",
	}}
	agent := New(llm, Config{MaxIterations: 3})

	verdict, err := agent.Review(context.Background(), &fakeSurface{}, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusUncertain, verdict.Status)
	assert.Empty(t, verdict.Suggestions)
	assert.False(t, verdict.ApprovalAllowed)
}

func TestReviewUnparseableResponseIsNudged(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"I will now think about the code.",
		verdictJSON,
	}}
	agent := New(llm, DefaultConfig())

	verdict, err := agent.Review(context.Background(), &fakeSurface{}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOK, verdict.Status)
	assert.Contains(t, llm.prompts[1], "Respond with either")
}

func TestReviewLLMErrorPropagates(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("connection refused")}
	agent := New(llm, DefaultConfig())

	_, err := agent.Review(context.Background(), &fakeSurface{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm call")
}

func TestReviewContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agent := New(&scriptedLLM{responses: []string{verdictJSON}}, DefaultConfig())
	_, err := agent.Review(ctx, &fakeSurface{}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseVerdictIgnoresToolCalls(t *testing.T) {
	_, ok := parseVerdict("TOOL: search_text\nINPUT: {\"query\": \"eval\"}")
	assert.False(t, ok)
}

func TestParseVerdictBareJSON(t *testing.T) {
	v, ok := parseVerdict(`{"status": "ok", "suggestions": [], "overall_comment": "No issues found.", "approval_allowed": true}`)
	require.True(t, ok)
	assert.Equal(t, domain.StatusOK, v.Status)
	assert.True(t, v.ApprovalAllowed)
	assert.Equal(t, domain.NoIssuesSentinel, v.OverallComment)
}

func TestParseVerdictMissingStatusStaysEmpty(t *testing.T) {
	v, ok := parseVerdict(`{"suggestions": [], "overall_comment": "done", "approval_allowed": true}`)
	require.True(t, ok)
	assert.Empty(t, v.Status)
}

func TestSystemPromptDocumentsContract(t *testing.T) {
	p := SystemPrompt()
	for _, tool := range []string{"list_dir", "get_changed_files", "read_file", "search_text", "read_guidelines", "scan_security_sinks"} {
		assert.Contains(t, p, tool)
	}
	assert.Contains(t, p, domain.NoIssuesSentinel)
	assert.Contains(t, p, "Cmd Injection")
}

func TestReviewPromptListsChangedFiles(t *testing.T) {
	p := ReviewPrompt([]domain.ChangedFile{
		{Filename: "a.ts", Status: domain.FileStatusModified, Additions: 2, Deletions: 1},
		{Filename: "b.ts", Status: domain.FileStatusAdded, Additions: 10},
	})
	assert.Contains(t, p, "2 changed file(s)")
	assert.Contains(t, p, "a.ts (Modified, +2 -1)")
	assert.Contains(t, p, "b.ts (Added, +10 -0)")
}

func TestDispatchTruncatesLongOutput(t *testing.T) {
	long := strings.Repeat("x", maxToolOutputLength+100)
	out := truncateOutput(long)
	assert.Len(t, out, maxToolOutputLength+len("\n... [output truncated]"))
	assert.Contains(t, out, "[output truncated]")
}
