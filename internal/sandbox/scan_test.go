package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/reviewgate/internal/domain"
)

func scanFixture(t *testing.T, filename, content string) []domain.SecurityFinding {
	t.Helper()
	changed := []domain.ChangedFile{{Filename: filename}}
	s, root := newTestSurface(t, changed, ConservativeLimits())
	writeFile(t, root, filename, content)
	mustListFirst(t, s)

	findings, err := s.ScanSecuritySinks()
	require.NoError(t, err)
	return findings
}

func findByCategory(findings []domain.SecurityFinding, cat domain.SinkCategory) []domain.SecurityFinding {
	var out []domain.SecurityFinding
	for _, f := range findings {
		if f.Category == cat {
			out = append(out, f)
		}
	}
	return out
}

func TestScanXSSSinks(t *testing.T) {
	src := `el.innerHTML = req.body.html
el.innerHTML = DOMPurify.sanitize(value)
el.innerHTML = staticTemplate
document.write(location.href)
`
	findings := scanFixture(t, "view.ts", src)
	xss := findByCategory(findings, domain.SinkXSS)
	require.Len(t, xss, 3)

	assert.Equal(t, 1, xss[0].Line)
	assert.Equal(t, domain.ConfidenceHigh, xss[0].Confidence)

	// Line 2 is sanitized with no taint: dropped entirely.
	assert.Equal(t, 3, xss[1].Line)
	assert.Equal(t, domain.ConfidenceMedium, xss[1].Confidence)

	assert.Equal(t, 4, xss[2].Line)
	assert.Equal(t, domain.ConfidenceHigh, xss[2].Confidence)
}

func TestScanInjectionSinks(t *testing.T) {
	src := `eval(req.query.code)
setTimeout("doWork()", 100)
const f = new Function(body)
`
	findings := scanFixture(t, "run.js", src)
	inj := findByCategory(findings, domain.SinkInjection)
	require.Len(t, inj, 3)
	assert.Equal(t, domain.ConfidenceHigh, inj[0].Confidence)
	assert.Equal(t, domain.ConfidenceMedium, inj[1].Confidence)
}

func TestScanPathTraversalRequiresTaint(t *testing.T) {
	src := `const a = path.join(base, "static")
const b = path.join(base, req.params.name)
`
	findings := scanFixture(t, "files.ts", src)
	trav := findByCategory(findings, domain.SinkPathTraversal)
	require.Len(t, trav, 1)
	assert.Equal(t, 2, trav[0].Line)
	assert.Equal(t, domain.ConfidenceHigh, trav[0].Confidence)
}

func TestScanAliasedSpawnCalls(t *testing.T) {
	src := `import { exec as run, spawnSync } from 'child_process'
import * as cp from "node:child_process"
run(req.body.cmd)
spawnSync("ls")
cp.execFile(binary, args)
other(command)
`
	findings := scanFixture(t, "shell.ts", src)
	cmd := findByCategory(findings, domain.SinkCmdInjection)
	require.Len(t, cmd, 3)

	assert.Equal(t, 3, cmd[0].Line)
	assert.Equal(t, domain.ConfidenceHigh, cmd[0].Confidence)
	assert.Equal(t, "child_process.exec via run", cmd[0].SourceHint)

	assert.Equal(t, 4, cmd[1].Line)
	assert.Equal(t, domain.ConfidenceMedium, cmd[1].Confidence)

	assert.Equal(t, 5, cmd[2].Line)
	assert.Equal(t, "child_process.execFile via cp", cmd[2].SourceHint)
}

func TestScanRequireAliases(t *testing.T) {
	src := `const cp = require('child_process')
const { exec: doIt } = require("child_process")
cp.spawn(userInput)
doIt(request.query.cmd)
`
	findings := scanFixture(t, "legacy.js", src)
	cmd := findByCategory(findings, domain.SinkCmdInjection)
	require.Len(t, cmd, 2)
	assert.Equal(t, "child_process.spawn via cp", cmd[0].SourceHint)
	assert.Equal(t, domain.ConfidenceHigh, cmd[1].Confidence)
}

func TestScanIgnoresComments(t *testing.T) {
	src := `// el.innerHTML = req.body.html
/* eval(req.query.code) */
const ok = 1
`
	findings := scanFixture(t, "clean.ts", src)
	assert.Empty(t, findings)
}

func TestScanSkipsUnscannableExtensions(t *testing.T) {
	findings := scanFixture(t, "main.go", `eval(req.body.x)`)
	assert.Empty(t, findings)
}

func TestScanDeduplicatesByPathLineCategory(t *testing.T) {
	// Two XSS patterns on one line must produce a single finding.
	src := `el.innerHTML = document.write(x)` + "\n"
	findings := scanFixture(t, "dup.ts", src)
	assert.Len(t, findByCategory(findings, domain.SinkXSS), 1)
}

func TestScanMissingFileIsSkipped(t *testing.T) {
	changed := []domain.ChangedFile{
		{Filename: "gone.ts"},
		{Filename: "here.ts"},
	}
	s, root := newTestSurface(t, changed, ConservativeLimits())
	writeFile(t, root, "here.ts", "el.innerHTML = req.body.html\n")
	mustListFirst(t, s)

	findings, err := s.ScanSecuritySinks()
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "here.ts", findings[0].Path)
}
