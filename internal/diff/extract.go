package diff

import "strings"

// fileBoundaryPrefix starts a new file section in a multi-file unified diff.
const fileBoundaryPrefix = "diff --git "

// ExtractPatchByFile splits a multi-file unified diff into per-file patch
// bodies keyed by filename. The filename is taken from the "b/" path of the
// "diff --git a/X b/Y" boundary line, so renames key on the new name.
//
// Each stored patch begins at the file's first hunk header; the preamble
// (index, ---, +++) is dropped. A file with no hunk header contributes no
// entry, which naturally excludes binary-only and mode-only sections. This
// is the recovery path for hosts that omit per-file patches from their
// structured file listing: fetch the full diff once and backfill from it.
func ExtractPatchByFile(fullDiff string) map[string]string {
	patches := make(map[string]string)

	var (
		current   string
		collected []string
		sawHunk   bool
	)

	flush := func() {
		if current != "" && sawHunk {
			patches[current] = strings.TrimRight(strings.Join(collected, "\n"), " \t\n")
		}
		collected = nil
		sawHunk = false
	}

	for _, line := range strings.Split(fullDiff, "\n") {
		if strings.HasPrefix(line, fileBoundaryPrefix) {
			flush()
			current = targetFilename(line)
			continue
		}
		if current == "" {
			continue
		}
		if !sawHunk {
			if !strings.HasPrefix(line, "@@") {
				continue
			}
			sawHunk = true
		}
		collected = append(collected, line)
	}
	flush()

	return patches
}

// targetFilename extracts the new-side path from a "diff --git a/X b/Y"
// boundary line. Returns "" when the line does not carry two paths.
func targetFilename(boundary string) string {
	fields := strings.Fields(boundary)
	if len(fields) < 4 {
		return ""
	}
	return strings.TrimPrefix(fields[len(fields)-1], "b/")
}
