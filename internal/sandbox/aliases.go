package sandbox

import (
	"regexp"
	"strings"
)

// spawnFunctions are the process-execution entry points of the
// child_process module that the scanner tracks through aliases.
var spawnFunctions = map[string]bool{
	"exec":         true,
	"execSync":     true,
	"execFile":     true,
	"execFileSync": true,
	"spawn":        true,
	"spawnSync":    true,
	"fork":         true,
}

// moduleAliases is the result of the first scanner pass: every name a file
// binds to the process-execution module. Object aliases are dereferenced at
// call sites (cp.exec), function aliases are called directly (run(...)).
type moduleAliases struct {
	objects   map[string]bool
	functions map[string]string // alias -> original function name
}

// Import-syntax matchers. This is a finite pattern list, not a parser: it
// covers the require/import variants seen in practice and nothing more.
var (
	importDefaultPattern   = regexp.MustCompile(`import\s+([A-Za-z_$][\w$]*)\s+from\s+['"](?:node:)?child_process['"]`)
	importNamespacePattern = regexp.MustCompile(`import\s*\*\s*as\s+([A-Za-z_$][\w$]*)\s+from\s+['"](?:node:)?child_process['"]`)
	importNamedPattern     = regexp.MustCompile(`import\s*\{([^}]*)\}\s*from\s+['"](?:node:)?child_process['"]`)
	requireObjectPattern   = regexp.MustCompile(`(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*require\(\s*['"](?:node:)?child_process['"]\s*\)`)
	requireNamedPattern    = regexp.MustCompile(`(?:const|let|var)\s*\{([^}]*)\}\s*=\s*require\(\s*['"](?:node:)?child_process['"]\s*\)`)
)

// collectProcessAliases builds the alias tables for one file.
func collectProcessAliases(lines []string) moduleAliases {
	a := moduleAliases{
		objects:   make(map[string]bool),
		functions: make(map[string]string),
	}

	for _, line := range lines {
		if m := importNamespacePattern.FindStringSubmatch(line); m != nil {
			a.objects[m[1]] = true
			continue
		}
		if m := importNamedPattern.FindStringSubmatch(line); m != nil {
			a.addNamedBindings(m[1], " as ")
			continue
		}
		if m := importDefaultPattern.FindStringSubmatch(line); m != nil {
			a.objects[m[1]] = true
			continue
		}
		if m := requireNamedPattern.FindStringSubmatch(line); m != nil {
			a.addNamedBindings(m[1], ":")
			continue
		}
		if m := requireObjectPattern.FindStringSubmatch(line); m != nil {
			a.objects[m[1]] = true
		}
	}

	return a
}

// addNamedBindings parses a destructuring/named-import body such as
// "exec as run, spawn" (separator " as ") or "exec: run, spawn"
// (separator ":"), keeping only process-execution names.
func (a *moduleAliases) addNamedBindings(body, separator string) {
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		original := part
		alias := part
		if idx := strings.Index(part, separator); idx >= 0 {
			original = strings.TrimSpace(part[:idx])
			alias = strings.TrimSpace(part[idx+len(separator):])
		}
		if spawnFunctions[original] && alias != "" {
			a.functions[alias] = original
		}
	}
}

// empty reports whether the file never binds the module at all, letting the
// call-site pass be skipped entirely.
func (a moduleAliases) empty() bool {
	return len(a.objects) == 0 && len(a.functions) == 0
}

var identifierCallPattern = regexp.MustCompile(`([A-Za-z_$][\w$]*)(?:\.([A-Za-z_$][\w$]*))?\s*\(`)

// matchSpawnCall is the second pass: it reports whether a stripped source
// line invokes a process-execution function through any tracked alias, and
// returns a hint naming the resolved function.
func (a moduleAliases) matchSpawnCall(line string) (string, bool) {
	if a.empty() {
		return "", false
	}
	for _, m := range identifierCallPattern.FindAllStringSubmatch(line, -1) {
		callee, member := m[1], m[2]
		if member != "" {
			if a.objects[callee] && spawnFunctions[member] {
				return "child_process." + member + " via " + callee, true
			}
			continue
		}
		if original, ok := a.functions[callee]; ok {
			return "child_process." + original + " via " + callee, true
		}
	}
	return "", false
}
