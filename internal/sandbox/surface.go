package sandbox

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bkyoung/reviewgate/internal/domain"
)

// Listing and search defaults, applied when the caller omits the argument.
const (
	defaultListDepth      = 2
	defaultListMaxEntries = 200
	defaultSearchResults  = 20
	maxSearchResults      = 50
	maxExcerptLength      = 160
)

// guidelineFiles is the fixed set of repository policy documents served by
// ReadGuidelines, all resolved at the confinement root.
var guidelineFiles = []string{
	"CONTRIBUTING.md",
	"SECURITY.md",
	"REVIEW_GUIDELINES.md",
	"STYLE_GUIDE.md",
}

// SearchHit is one match returned by SearchText.
type SearchHit struct {
	Path    string
	Line    int
	Excerpt string
}

// Surface is the per-session tool facade. It is not safe for concurrent
// use; the tool-call loop within one run is strictly sequential, which is
// what keeps the ordering invariant and budget accounting race-free.
type Surface struct {
	root       string
	changed    []domain.ChangedFile
	changedSet map[string]bool
	limits     Limits
	budget     *budget

	calls     int
	readLines int
}

// New binds a Surface to a confinement root and the run's changed-file set.
// The root must already exist; the surface never creates or deletes files
// under it. Limits are owned by this session only.
func New(root string, changed []domain.ChangedFile, limits Limits) (*Surface, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving confinement root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("confinement root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("confinement root %s is not a directory", abs)
	}

	set := make(map[string]bool, len(changed))
	for _, f := range changed {
		set[path.Clean(f.Filename)] = true
	}

	return &Surface{
		root:       filepath.Clean(abs),
		changed:    changed,
		changedSet: set,
		limits:     limits,
		budget:     newBudget(limits),
	}, nil
}

// begin enforces the session ordering invariant and counts the attempt.
// Every operation, successful or not, moves the session past its first call.
func (s *Surface) begin(kind callKind) error {
	first := s.calls == 0
	s.calls++
	if first && kind != kindList {
		return fmt.Errorf("%w: %s before initial list_dir", ErrOrderingViolation, kind)
	}
	return nil
}

// ListDir lists entries under dir breadth-first up to depth levels,
// capped at maxEntries total. Directories are suffixed with "/". Noise
// directories and secret-shaped files never appear. Must be the first call
// of the session.
func (s *Surface) ListDir(dir string, depth, maxEntries int) ([]string, error) {
	if err := s.begin(kindList); err != nil {
		return nil, err
	}
	if err := s.budget.consume(kindList); err != nil {
		return nil, err
	}

	if dir == "" {
		dir = "."
	}
	if depth <= 0 {
		depth = defaultListDepth
	}
	if maxEntries <= 0 {
		maxEntries = defaultListMaxEntries
	}

	rel, err := normalizeRelPath(dir)
	if err != nil {
		return nil, err
	}
	abs, err := resolveWithin(s.root, rel)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a listable directory", ErrMalformedRequest, dir)
	}

	type frame struct {
		rel   string
		depth int
	}

	var entries []string
	queue := []frame{{rel: rel, depth: 1}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		curAbs, err := resolveWithin(s.root, cur.rel)
		if err != nil {
			continue
		}
		dirEntries, err := os.ReadDir(curAbs)
		if err != nil {
			continue
		}
		sort.Slice(dirEntries, func(i, j int) bool { return dirEntries[i].Name() < dirEntries[j].Name() })

		for _, e := range dirEntries {
			name := e.Name()
			if e.IsDir() && noiseDirs[name] {
				continue
			}
			if !e.IsDir() && isSecretShaped(name) {
				continue
			}
			// Hard truncation: once the cap is hit, nothing else is
			// listed and no further directories are descended.
			if len(entries) >= maxEntries {
				return entries, nil
			}

			childRel := path.Join(cur.rel, name)
			if e.IsDir() {
				entries = append(entries, childRel+"/")
				if cur.depth < depth {
					queue = append(queue, frame{rel: childRel, depth: cur.depth + 1})
				}
			} else {
				entries = append(entries, childRel)
			}
		}
	}

	return entries, nil
}

// ChangedFiles returns the bound changed-file descriptors verbatim. It
// consumes no budget but still respects the session ordering invariant.
func (s *Surface) ChangedFiles() ([]domain.ChangedFile, error) {
	if err := s.begin(kindChanged); err != nil {
		return nil, err
	}
	return s.changed, nil
}

// ReadFile returns the requested line window of a file as numbered text
// ("N| content"), clipped to the actual file length. The path must be a
// changed file, or a fixed config basename when extra reads are enabled.
func (s *Surface) ReadFile(p string, startLine, endLine int) (string, error) {
	if err := s.begin(kindRead); err != nil {
		return "", err
	}
	if err := s.budget.consume(kindRead); err != nil {
		return "", err
	}

	if p == "" {
		return "", fmt.Errorf("%w: path is required", ErrMalformedRequest)
	}
	if startLine < 1 || endLine < startLine {
		return "", fmt.Errorf("%w: invalid line range %d-%d", ErrMalformedRequest, startLine, endLine)
	}

	span := endLine - startLine + 1
	if span > s.limits.MaxReadLinesPerCall {
		return "", fmt.Errorf("%w: span %d exceeds per-call cap %d", ErrBudgetExceeded, span, s.limits.MaxReadLinesPerCall)
	}
	if s.limits.MaxReadLinesTotal > 0 && s.readLines+span > s.limits.MaxReadLinesTotal {
		return "", fmt.Errorf("%w: cumulative read cap %d reached", ErrBudgetExceeded, s.limits.MaxReadLinesTotal)
	}

	rel, err := normalizeRelPath(p)
	if err != nil {
		return "", err
	}
	if !s.readAllowed(rel) {
		return "", fmt.Errorf("%w: %q is not a changed file", ErrPathViolation, p)
	}
	abs, err := resolveWithin(s.root, rel)
	if err != nil {
		return "", err
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", rel, err)
	}
	defer f.Close()

	var b strings.Builder
	read := 0
	lineNo := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		if lineNo < startLine {
			continue
		}
		if lineNo > endLine {
			break
		}
		fmt.Fprintf(&b, "%d| %s\n", lineNo, scanner.Text())
		read++
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}

	s.readLines += read
	return b.String(), nil
}

// readAllowed implements the ReadFile allowlist: changed files always,
// known config basenames only behind the extra-reads toggle.
func (s *Surface) readAllowed(rel string) bool {
	if s.changedSet[rel] {
		return true
	}
	return s.limits.AllowExtraReads && configBasenames[path.Base(rel)]
}

// SearchText performs a case-insensitive substring search over the changed
// files only, never the whole tree. Secret-shaped filenames and
// non-regular files are skipped.
func (s *Surface) SearchText(query string, maxResults int) ([]SearchHit, error) {
	if err := s.begin(kindSearch); err != nil {
		return nil, err
	}
	if err := s.budget.consume(kindSearch); err != nil {
		return nil, err
	}

	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrMalformedRequest)
	}
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}
	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}

	needle := strings.ToLower(query)
	var hits []SearchHit

	for _, cf := range s.changed {
		if len(hits) >= maxResults {
			break
		}
		rel, err := normalizeRelPath(cf.Filename)
		if err != nil {
			continue
		}
		if isSecretShaped(path.Base(rel)) {
			continue
		}
		abs, err := resolveWithin(s.root, rel)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		f, err := os.Open(abs)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if !strings.Contains(strings.ToLower(line), needle) {
				continue
			}
			hits = append(hits, SearchHit{Path: rel, Line: lineNo, Excerpt: excerpt(line)})
			if len(hits) >= maxResults {
				break
			}
		}
		f.Close()
	}

	return hits, nil
}

// ReadGuidelines reads the fixed set of repository policy documents at the
// confinement root. Best effort: an unreadable file maps to "" rather than
// failing the call.
func (s *Surface) ReadGuidelines() (map[string]string, error) {
	if err := s.begin(kindGuidelines); err != nil {
		return nil, err
	}
	if err := s.budget.consume(kindGuidelines); err != nil {
		return nil, err
	}

	docs := make(map[string]string, len(guidelineFiles))
	for _, name := range guidelineFiles {
		abs, err := resolveWithin(s.root, name)
		if err != nil {
			docs[name] = ""
			continue
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			docs[name] = ""
			continue
		}
		docs[name] = string(content)
	}
	return docs, nil
}

// excerpt trims and length-caps a matched line for search results.
func excerpt(line string) string {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) > maxExcerptLength {
		return trimmed[:maxExcerptLength]
	}
	return trimmed
}
