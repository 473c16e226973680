package diff

import (
	"regexp"
	"strconv"
	"strings"
)

// hunkHeaderPattern matches "@@ -oldStart[,oldLen] +newStart[,newLen] @@".
// The counts are optional; git omits them for single-line ranges.
var hunkHeaderPattern = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// BuildAddedLineToPositionMap replays a single file's patch and returns a
// map from new-file line number to patch position for every added line.
//
// The position counter starts at the first hunk header and keeps counting
// across subsequent hunks, matching the host API's whole-patch position
// semantics. Removed lines advance only the position; context lines advance
// position and line number; no-newline markers advance nothing. Lines before
// the first hunk header are ignored.
//
// Malformed input never fails: unparseable headers are skipped, and a patch
// with no hunk header at all yields an empty map.
func BuildAddedLineToPositionMap(patch string) map[int]int {
	positions := make(map[int]int)

	position := 0
	newLine := 0
	inHunk := false

	for _, line := range strings.Split(patch, "\n") {
		if m := hunkHeaderPattern.FindStringSubmatch(line); m != nil {
			newLine, _ = strconv.Atoi(m[3])
			inHunk = true
			continue
		}
		if !inHunk || line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "\\"):
			// "\ No newline at end of file" is inert.
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			position++
			positions[newLine] = position
			newLine++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			position++
		default:
			position++
			newLine++
		}
	}

	return positions
}
