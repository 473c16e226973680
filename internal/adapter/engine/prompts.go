package engine

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bkyoung/reviewgate/internal/domain"
)

var headingCaser = cases.Title(language.English)

// sinkCategories lists the scanner's finding categories in the order they
// are documented to the engine.
var sinkCategories = []struct {
	Category    domain.SinkCategory
	Description string
}{
	{domain.SinkXSS, "HTML injection sinks such as innerHTML assignments and document.write"},
	{domain.SinkInjection, "dynamic code evaluation such as eval and new Function"},
	{domain.SinkCmdInjection, "child_process spawn and exec calls, tracked through import aliases"},
	{domain.SinkPathTraversal, "filesystem path construction fed by request-derived values"},
}

// SystemPrompt generates the system prompt describing the tool contract
// and the final verdict format.
func SystemPrompt() string {
	var sb strings.Builder

	sb.WriteString(`You are an automated code review agent. Your task is to review the changed files of a pull request and propose concrete, safe improvements.

## Your Goal
Investigate the change using the tools below, then emit a final verdict:
1. Inline suggestions for lines that were added or modified in this change
2. An overall comment summarizing the review
3. Whether the change is clean enough to approve

## Ground Rules
- Call list_dir FIRST to orient yourself before any other tool
- Only comment on lines that the change itself added; do not review pre-existing code
- Every suggestion body must contain exactly one ` + "```suggestion" + ` fenced block with the replacement lines, at most 10 lines long
- The replacement block replaces the single line the suggestion targets
- Do not repeat the same replacement lines twice inside one block
- If the change looks correct and you have nothing to flag, say so plainly

## Security Scanning
The scan_security_sinks tool runs a heuristic pattern scan over the changed files. It reports these categories:

`)

	for _, c := range sinkCategories {
		sb.WriteString(fmt.Sprintf("- **%s**: %s\n", headingCaser.String(strings.ReplaceAll(string(c.Category), "-", " ")), c.Description))
	}

	sb.WriteString(`
Findings carry a confidence grade (low, medium, high). Treat the scan as a lead generator: read the flagged code yourself before suggesting a fix, and drop findings that the surrounding code already mitigates.

## Available Tools
To use a tool, respond with:

` + "```tool" + `
TOOL: tool_name
INPUT: {"json": "arguments"}
` + "```" + `

One tool call per response. Tools:

- **list_dir**: list the repository layout. INPUT: {"path": "", "depth": 2, "max_entries": 200}. All fields optional.
- **get_changed_files**: list the files changed in this pull request with their status and line counts. INPUT: {}
- **read_file**: read a line range of a changed file. INPUT: {"path": "src/app.ts", "start_line": 1, "end_line": 120}
- **search_text**: case-insensitive substring search across the changed files. INPUT: {"query": "innerHTML", "max_results": 20}
- **read_guidelines**: read the repository's contribution and review guideline documents. INPUT: {}
- **scan_security_sinks**: run the heuristic security sink scan over the changed files. INPUT: {}

Tool errors are returned as text. A budget or ordering rejection is final for that tool; move on with what you have.

## Response Format
When your investigation is complete, respond with a JSON object and nothing else:

` + "```json" + `
{
  "status": "ok",
  "suggestions": [
    {
      "path": "src/handler.ts",
      "line": 42,
      "body": "Escape the user-supplied value before rendering.\n` + "```suggestion" + `\n  el.textContent = name;\n` + "```" + `"
    }
  ],
  "overall_comment": "One XSS sink fixed; the rest of the change looks good.",
  "approval_allowed": false
}
` + "```" + `

- "status" is "ok" when the review completed, "uncertain" when you could not investigate enough, "failed" when the change could not be reviewed at all
- "line" is the line number in the NEW version of the file
- Set "approval_allowed" true only when you found nothing worth changing
- If there is nothing to flag, use an empty suggestions array and the overall comment "` + domain.NoIssuesSentinel + `"
`)

	return sb.String()
}

// ReviewPrompt generates the opening user prompt for one pull request.
func ReviewPrompt(changed []domain.ChangedFile) string {
	var sb strings.Builder

	sb.WriteString("## Pull Request Under Review\n\n")
	sb.WriteString(fmt.Sprintf("%d changed file(s):\n\n", len(changed)))

	for _, f := range changed {
		sb.WriteString(fmt.Sprintf("- %s (%s, +%d -%d)\n", f.Filename, headingCaser.String(string(f.Status)), f.Additions, f.Deletions))
	}

	sb.WriteString("\nStart by calling list_dir, then investigate the changed files and produce your verdict.\n")

	return sb.String()
}

// ToolResultPrompt wraps a tool result for the next iteration.
func ToolResultPrompt(toolName, input, output string) string {
	return fmt.Sprintf(`## Tool Result

**Tool**: %s
**Input**: %s

**Output**:
%s

Continue your investigation or provide your final verdict.
`, toolName, input, output)
}
