package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// maxToolOutputLength caps tool output before it re-enters the prompt.
const maxToolOutputLength = 50000

// Tool argument wire shapes. Field names match the external tool-call
// contract exposed to the engine.
type listDirArgs struct {
	Path       string `json:"path"`
	Depth      int    `json:"depth"`
	MaxEntries int    `json:"max_entries"`
}

type readFileArgs struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

type searchTextArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// dispatch executes one tool call against the surface and renders the
// result (or the rejection) as text for the next prompt. Errors are
// feedback, not failures: the engine may retry with corrected arguments.
func (a *Agent) dispatch(surface ToolSurface, name, input string) string {
	out, err := a.call(surface, name, input)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return truncateOutput(out)
}

func (a *Agent) call(surface ToolSurface, name, input string) (string, error) {
	switch name {
	case "list_dir":
		var args listDirArgs
		if err := decodeArgs(input, &args); err != nil {
			return "", err
		}
		entries, err := surface.ListDir(args.Path, args.Depth, args.MaxEntries)
		if err != nil {
			return "", err
		}
		return strings.Join(entries, "\n"), nil

	case "get_changed_files":
		files, err := surface.ChangedFiles()
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, f := range files {
			fmt.Fprintf(&b, "%s (%s, +%d -%d)\n", f.Filename, f.Status, f.Additions, f.Deletions)
		}
		return b.String(), nil

	case "read_file":
		var args readFileArgs
		if err := decodeArgs(input, &args); err != nil {
			return "", err
		}
		return surface.ReadFile(args.Path, args.StartLine, args.EndLine)

	case "search_text":
		var args searchTextArgs
		if err := decodeArgs(input, &args); err != nil {
			return "", err
		}
		hits, err := surface.SearchText(args.Query, args.MaxResults)
		if err != nil {
			return "", err
		}
		if len(hits) == 0 {
			return "No matches found", nil
		}
		var b strings.Builder
		for _, h := range hits {
			fmt.Fprintf(&b, "%s:%d: %s\n", h.Path, h.Line, h.Excerpt)
		}
		return b.String(), nil

	case "read_guidelines":
		docs, err := surface.ReadGuidelines()
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, name := range guidelineOrder(docs) {
			fmt.Fprintf(&b, "=== %s ===\n%s\n", name, docs[name])
		}
		return b.String(), nil

	case "scan_security_sinks":
		findings, err := surface.ScanSecuritySinks()
		if err != nil {
			return "", err
		}
		if len(findings) == 0 {
			return "No security sinks detected", nil
		}
		var b strings.Builder
		for _, f := range findings {
			fmt.Fprintf(&b, "%s:%d [%s/%s] %s\n", f.Path, f.Line, f.Category, f.Confidence, f.Excerpt)
			if f.SourceHint != "" {
				fmt.Fprintf(&b, "  via %s\n", f.SourceHint)
			}
		}
		return b.String(), nil

	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

// decodeArgs parses a tool-call INPUT as JSON. An empty input means all
// defaults, which list_dir in particular allows.
func decodeArgs(input string, out interface{}) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(input), out); err != nil {
		return fmt.Errorf("invalid tool input %q: %w", input, err)
	}
	return nil
}

// guidelineOrder returns map keys sorted for stable output.
func guidelineOrder(docs map[string]string) []string {
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// truncateOutput truncates output that exceeds maxToolOutputLength.
func truncateOutput(s string) string {
	if len(s) <= maxToolOutputLength {
		return s
	}
	return s[:maxToolOutputLength] + "\n... [output truncated]"
}
