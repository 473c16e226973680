package sandbox

import (
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/bkyoung/reviewgate/internal/domain"
)

// scannableExtensions limits the sink scan to source files the pattern
// families were written for.
var scannableExtensions = map[string]bool{
	".js":  true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
	".mjs": true,
	".cjs": true,
	".vue": true,
}

// Sink pattern families. These are heuristic triage patterns, not static
// analysis; they classify single stripped lines.
var (
	xssPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\.innerHTML\s*[+]?=`),
		regexp.MustCompile(`\.outerHTML\s*[+]?=`),
		regexp.MustCompile(`dangerouslySetInnerHTML`),
		regexp.MustCompile(`\.insertAdjacentHTML\s*\(`),
		regexp.MustCompile(`document\.write(?:ln)?\s*\(`),
	}

	injectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\beval\s*\(`),
		regexp.MustCompile(`new\s+Function\s*\(`),
		regexp.MustCompile(`\bset(?:Timeout|Interval)\s*\(\s*['"]`),
	}

	pathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bpath\.(?:join|resolve|normalize)\s*\(`),
	}

	taintPattern = regexp.MustCompile(
		`\b(?:req|request|ctx)\.(?:body|query|params|headers|cookies|path)\b` +
			`|window\.location|document\.location|location\.(?:href|search|hash|pathname)` +
			`|\.searchParams\b|URLSearchParams`)

	sanitizerPattern = regexp.MustCompile(
		`DOMPurify|sanitizeHtml|\bsanitize\s*\(|escapeHtml|encodeURIComponent\s*\(`)
)

// ScanSecuritySinks runs the heuristic sink scan over the changed files
// with a scannable extension. Per-file I/O errors skip that file; the scan
// itself never fails once admitted by the budget.
func (s *Surface) ScanSecuritySinks() ([]domain.SecurityFinding, error) {
	if err := s.begin(kindScan); err != nil {
		return nil, err
	}
	if err := s.budget.consume(kindScan); err != nil {
		return nil, err
	}

	type findingKey struct {
		path     string
		line     int
		category domain.SinkCategory
	}
	seen := make(map[findingKey]bool)
	var findings []domain.SecurityFinding

	record := func(f domain.SecurityFinding) {
		key := findingKey{path: f.Path, line: f.Line, category: f.Category}
		if seen[key] {
			return
		}
		seen[key] = true
		findings = append(findings, f)
	}

	for _, cf := range s.changed {
		rel, err := normalizeRelPath(cf.Filename)
		if err != nil {
			continue
		}
		if !scannableExtensions[strings.ToLower(path.Ext(rel))] {
			continue
		}
		abs, err := resolveWithin(s.root, rel)
		if err != nil {
			continue
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			continue
		}

		stripped := stripComments(strings.Split(string(content), "\n"))
		aliases := collectProcessAliases(stripped)

		for i, line := range stripped {
			if strings.TrimSpace(line) == "" {
				continue
			}
			lineNo := i + 1
			tainted := taintPattern.MatchString(line)
			sanitized := sanitizerPattern.MatchString(line)

			if cat, ok := classifyLine(line); ok {
				// Sanitized-and-untainted XSS/injection lines are noise,
				// not findings.
				if sanitized && !tainted {
					continue
				}
				record(domain.SecurityFinding{
					Path:       rel,
					Line:       lineNo,
					Category:   cat,
					Confidence: grade(tainted, sanitized),
					Excerpt:    excerpt(line),
				})
			}

			for _, p := range pathPatterns {
				// Path-join calls are only findings when tainted input
				// reaches them on the same line.
				if p.MatchString(line) && tainted {
					record(domain.SecurityFinding{
						Path:       rel,
						Line:       lineNo,
						Category:   domain.SinkPathTraversal,
						Confidence: domain.ConfidenceHigh,
						Excerpt:    excerpt(line),
					})
					break
				}
			}

			if hint, ok := aliases.matchSpawnCall(line); ok {
				record(domain.SecurityFinding{
					Path:       rel,
					Line:       lineNo,
					Category:   domain.SinkCmdInjection,
					Confidence: grade(tainted, sanitized),
					Excerpt:    excerpt(line),
					SourceHint: hint,
				})
			}
		}
	}

	return findings, nil
}

// classifyLine matches the XSS and dynamic-code families.
func classifyLine(line string) (domain.SinkCategory, bool) {
	for _, p := range xssPatterns {
		if p.MatchString(line) {
			return domain.SinkXSS, true
		}
	}
	for _, p := range injectionPatterns {
		if p.MatchString(line) {
			return domain.SinkInjection, true
		}
	}
	return "", false
}

// grade derives confidence from co-occurring markers: tainted input on the
// same line is high, a sanitizer with no taint is low, anything else medium.
func grade(tainted, sanitized bool) domain.Confidence {
	switch {
	case tainted:
		return domain.ConfidenceHigh
	case sanitized:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceMedium
	}
}

// stripComments removes // line comments and /* */ block comments
// line-by-line, tracking block state across lines. String literals are not
// parsed, so a comment marker inside a string is over-stripped; acceptable
// for a triage heuristic.
func stripComments(lines []string) []string {
	out := make([]string, len(lines))
	inBlock := false

	for i, line := range lines {
		var b strings.Builder
		j := 0
		for j < len(line) {
			if inBlock {
				if end := strings.Index(line[j:], "*/"); end >= 0 {
					j += end + 2
					inBlock = false
					continue
				}
				j = len(line)
				break
			}
			if strings.HasPrefix(line[j:], "//") {
				break
			}
			if strings.HasPrefix(line[j:], "/*") {
				inBlock = true
				j += 2
				continue
			}
			b.WriteByte(line[j])
			j++
		}
		out[i] = b.String()
	}

	return out
}
