package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treecheck/internal/core/fixture"
	"treecheck/internal/core/report"
	"treecheck/internal/engine/grammar"
	"treecheck/internal/engine/match"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestRunner(t *testing.T, opts Options) *Runner {
	t.Helper()
	grammars, err := grammar.NewLoader(nil)
	require.NoError(t, err)
	loader, err := fixture.NewLoader(grammars, nil, nil)
	require.NoError(t, err)
	return New(grammars, loader, opts)
}

func createFixtureTree(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()

	// Passes: shape assertion over a well-formed C file.
	writeFixture(t, tmp, "good.c", `
struct Point { int x; int y; };
int add(int a, int b) { return a + b; }
int main(void) { return add(1, 2); }
`)
	writeFixture(t, tmp, "good.c.expect.toml", `
[root]
kind = "translation_unit"
min_children = 3

[[root.children]]
kind = "function_definition"
anywhere = true
`)

	// Fails: expectation names the wrong kind.
	writeFixture(t, tmp, "wrong.c", `union Data { int i; float f; };`)
	writeFixture(t, tmp, "wrong.c.expect.toml", `
[root]
kind = "translation_unit"

[[root.children]]
kind = "struct_specifier"
`)

	// Fails: error-recovery tree without expect_error.
	writeFixture(t, tmp, "broken.c", `struct Point { int x;`)

	// Passes: the same damage, but the fixture tests error recovery.
	writeFixture(t, tmp, "recovers.c", `struct Point { int x;`)
	writeFixture(t, tmp, "recovers.c.expect.toml", `expect_error = true`)

	// Fails: malformed expectation sibling.
	writeFixture(t, tmp, "badpattern.c", `int x;`)
	writeFixture(t, tmp, "badpattern.c.expect.toml", `[root`)

	// Skipped with a warning.
	writeFixture(t, tmp, "notes.txt", `not source`)

	return tmp
}

func resultFor(t *testing.T, r *report.Report, base string) report.FixtureResult {
	t.Helper()
	for _, res := range r.Results {
		if filepath.Base(res.Path) == base {
			return res
		}
	}
	t.Fatalf("no result for %s", base)
	return report.FixtureResult{}
}

func TestRun_FullPipeline(t *testing.T) {
	tmp := createFixtureTree(t)
	r := newTestRunner(t, Options{Jobs: 4})

	rep, err := r.Run(context.Background(), []string{tmp})
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Total)
	assert.Equal(t, rep.Total, rep.Passed+rep.Failed, "every fixture maps to exactly one verdict")
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0].Path, "notes.txt")

	good := resultFor(t, rep, "good.c")
	assert.True(t, good.Passed, "mismatches: %v", good.Verdict.Mismatches)

	wrong := resultFor(t, rep, "wrong.c")
	require.False(t, wrong.Passed)
	assert.Equal(t, match.MismatchKindMismatch, wrong.Verdict.Mismatches[0].Kind)

	broken := resultFor(t, rep, "broken.c")
	require.False(t, broken.Passed)
	assert.Equal(t, match.MismatchParseError, broken.Verdict.Mismatches[0].Kind)

	recovers := resultFor(t, rep, "recovers.c")
	assert.True(t, recovers.Passed, "expect_error fixture must pass despite error nodes")

	bad := resultFor(t, rep, "badpattern.c")
	require.False(t, bad.Passed)
	assert.Equal(t, match.MismatchAdapterFailure, bad.Verdict.Mismatches[0].Kind)
}

func TestRun_OneBadFixtureDoesNotBlankTheReport(t *testing.T) {
	tmp := t.TempDir()
	writeFixture(t, tmp, "fine.c", `int x;`)
	writeFixture(t, tmp, "hopeless.c", `int y;`)
	writeFixture(t, tmp, "hopeless.c.expect.toml", `not even toml = [`)

	r := newTestRunner(t, Options{})
	rep, err := r.Run(context.Background(), []string{tmp})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Total)
	assert.True(t, resultFor(t, rep, "fine.c").Passed)
	assert.False(t, resultFor(t, rep, "hopeless.c").Passed)
}

func renderStable(t *testing.T, rep *report.Report) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, report.RenderText(&buf, rep))
	return buf.String()
}

func TestRun_DeterministicAcrossRunsAndJobCounts(t *testing.T) {
	tmp := createFixtureTree(t)

	sequential := newTestRunner(t, Options{Jobs: 1})
	parallel := newTestRunner(t, Options{Jobs: 8})

	rep1, err := sequential.Run(context.Background(), []string{tmp})
	require.NoError(t, err)
	rep2, err := sequential.Run(context.Background(), []string{tmp})
	require.NoError(t, err)
	rep3, err := parallel.Run(context.Background(), []string{tmp})
	require.NoError(t, err)

	first := renderStable(t, rep1)
	assert.Equal(t, first, renderStable(t, rep2), "repeat runs must render identically")
	assert.Equal(t, first, renderStable(t, rep3), "worker count must not affect the report")
}

func TestRun_ParseRateThrottle(t *testing.T) {
	tmp := t.TempDir()
	for _, name := range []string{"a.c", "b.c", "c.c"} {
		writeFixture(t, tmp, name, `int x;`)
	}

	r := newTestRunner(t, Options{Jobs: 3, MaxParseRate: 50, ParseBurst: 1})

	start := time.Now()
	rep, err := r.Run(context.Background(), []string{tmp})
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Passed)
	// Burst 1 at 50/s forces at least ~40ms of pacing for the trailing two.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRun_CancelledContext(t *testing.T) {
	tmp := t.TempDir()
	writeFixture(t, tmp, "a.c", `int x;`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(t, Options{})
	_, err := r.Run(ctx, []string{tmp})
	require.Error(t, err)
}

func TestRun_MissingRoot(t *testing.T) {
	r := newTestRunner(t, Options{})
	_, err := r.Run(context.Background(), []string{filepath.Join(t.TempDir(), "does-not-exist")})
	require.Error(t, err)
}
