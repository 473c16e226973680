// Package diff maps unified-diff patches to the position space the host
// review API uses for inline comments.
//
// Position is 1-indexed from the first @@ hunk header of a file's patch and
// is cumulative across hunks within one file; later hunk headers and
// "\ No newline at end of file" markers do not count. Only added lines are
// addressable, so the mapping is from new-file line number to position.
//
// The package is deliberately forgiving: malformed hunk headers are skipped
// rather than reported, and "no position for line N" is an expected outcome
// for any line that is not an added line.
package diff
