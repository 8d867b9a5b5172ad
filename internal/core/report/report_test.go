package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treecheck/internal/core/errors"
	"treecheck/internal/core/fixture"
	"treecheck/internal/engine/match"
)

func sampleResults() []FixtureResult {
	return []FixtureResult{
		{
			Path:     "fixtures/zeta.cpp",
			Language: "cpp",
			Verdict:  match.Verdict{},
		},
		{
			Path:     "fixtures/alpha.c",
			Language: "c",
			Verdict: match.Verdict{Mismatches: []match.Mismatch{{
				Kind:     match.MismatchKindMismatch,
				Path:     []int{2, 0},
				Expected: "kind 'struct_specifier'",
				Actual:   "'union_specifier'",
			}}},
		},
	}
}

func TestFinalize_CountsAndOrdering(t *testing.T) {
	warnings := []fixture.Warning{{
		Path:    "fixtures/readme.txt",
		Code:    errors.CodeUnrecognizedExtension,
		Message: "no language mapped for extension \".txt\"",
	}}

	r := Finalize([]string{"fixtures"}, time.Now(), sampleResults(), warnings)

	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, 2, r.Total)
	assert.Equal(t, 1, r.Passed)
	assert.Equal(t, 1, r.Failed)
	assert.False(t, r.AllPass())

	// Results come back in path order regardless of completion order.
	require.Len(t, r.Results, 2)
	assert.Equal(t, "fixtures/alpha.c", r.Results[0].Path)
	assert.False(t, r.Results[0].Passed)
	assert.Equal(t, "fixtures/zeta.cpp", r.Results[1].Path)
	assert.True(t, r.Results[1].Passed)
}

func TestFinalize_EveryFixtureCountedOnce(t *testing.T) {
	r := Finalize(nil, time.Now(), sampleResults(), nil)
	assert.Equal(t, r.Total, r.Passed+r.Failed)
}

func TestRenderText(t *testing.T) {
	results := sampleResults()
	results[1].Verdict.Omitted = 3
	r := Finalize([]string{"fixtures"}, time.Now(), results, []fixture.Warning{{
		Path:    "fixtures/readme.txt",
		Message: "no language mapped for extension \".txt\"",
	}})

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "fixtures/zeta.cpp")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "root.children[2].children[0]: expected kind 'struct_specifier', got 'union_specifier'")
	assert.Contains(t, out, "3 more mismatches omitted")
	assert.Contains(t, out, "SKIP")
	assert.Contains(t, out, "2 fixtures: 1 passed, 1 failed (1 skipped)")
}

func TestRenderJSON_RoundTrip(t *testing.T) {
	r := Finalize([]string{"fixtures"}, time.Now(), sampleResults(), nil)

	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, r))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.RunID, decoded.RunID)
	assert.Equal(t, 2, decoded.Total)
	require.Len(t, decoded.Results, 2)
	assert.Equal(t, match.MismatchKindMismatch, decoded.Results[0].Verdict.Mismatches[0].Kind)
}

func TestGenerateSARIF(t *testing.T) {
	results := sampleResults()
	results = append(results, FixtureResult{
		Path:     "/abs/fixtures/broken.c",
		Language: "c",
		Verdict: match.Verdict{Mismatches: []match.Mismatch{
			{Kind: match.MismatchParseError, Expected: "well-formed syntax", Actual: "error node \"ERROR\" at [10,20)", Row: 2, Column: 4},
			{Kind: match.MismatchTimeout, Expected: "parse within 5s", Actual: "deadline exceeded"},
		}},
	})
	r := Finalize([]string{"fixtures"}, time.Now(), results, nil)

	data, err := GenerateSARIF("/abs", r)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "2.1.0", doc["version"])

	out := string(data)
	assert.Contains(t, out, "TC001")
	assert.Contains(t, out, "TC002")
	assert.Contains(t, out, "TC003")
	// Absolute paths are relativized against the project root.
	assert.NotContains(t, out, "/abs/fixtures/broken.c")
	assert.Contains(t, out, "fixtures/broken.c")
	// Rows are zero-based internally, one-based in SARIF regions.
	assert.Contains(t, out, "\"startLine\": 3")
	// Passing fixtures contribute no results.
	assert.False(t, strings.Contains(out, "zeta.cpp"))
}
