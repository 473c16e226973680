package sandbox

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// noiseDirs are skipped by ListDir at every depth: version-control
// metadata plus dependency, build, and cache directories.
var noiseDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"bower_components": true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"target":       true,
	"coverage":     true,
	"__pycache__":  true,
	".cache":       true,
	".next":        true,
	".venv":        true,
}

// configBasenames is the fixed allowlist for ReadFile calls outside the
// changed-file set, gated by Limits.AllowExtraReads.
var configBasenames = map[string]bool{
	"package.json":  true,
	"tsconfig.json": true,
	"go.mod":        true,
	"go.sum":        true,
	"Makefile":      true,
	"Dockerfile":    true,
	"README.md":     true,
	".eslintrc.json": true,
	"pyproject.toml": true,
}

var driveLetterPattern = regexp.MustCompile(`^[A-Za-z]:`)

// isSecretShaped reports whether a basename looks like credential material.
// Such files are invisible to ListDir and SearchText.
func isSecretShaped(name string) bool {
	switch {
	case strings.HasPrefix(name, ".env"):
		return true
	case strings.HasSuffix(name, ".pem"):
		return true
	case strings.HasPrefix(name, "id_rsa"):
		return true
	case strings.HasPrefix(name, "credentials"):
		return true
	}
	return false
}

// normalizeRelPath canonicalizes a caller-supplied path: backslashes become
// forward slashes, "." segments collapse. Absolute paths, drive-letter
// paths, and anything that still escapes upward after cleaning are rejected.
func normalizeRelPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") || driveLetterPattern.MatchString(p) {
		return "", fmt.Errorf("%w: absolute path %q", ErrPathViolation, p)
	}
	cleaned := path.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: traversal in %q", ErrPathViolation, p)
	}
	return cleaned, nil
}

// resolveWithin joins a normalized relative path onto the confinement root
// and re-validates that the resolved absolute path stays inside it. The
// double check is deliberate: even a path that passed normalization is
// rejected if resolution lands outside the root.
func resolveWithin(root, rel string) (string, error) {
	abs := filepath.Clean(filepath.Join(root, filepath.FromSlash(rel)))
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q resolves outside confinement root", ErrPathViolation, rel)
	}
	return abs, nil
}
