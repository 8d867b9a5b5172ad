package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"treecheck/internal/core/fixture"
	"treecheck/internal/engine/match"
	"treecheck/internal/shared/observability"
)

// FixtureResult pairs one fixture with its verdict. Exactly one result
// exists per discovered fixture in a finalized report.
type FixtureResult struct {
	Path     string        `json:"path"`
	Language string        `json:"language"`
	Passed   bool          `json:"passed"`
	Verdict  match.Verdict `json:"verdict"`
	Duration time.Duration `json:"duration_ns"`
}

// Report is the aggregated outcome of one conformance run. Built once by
// Finalize and read-only afterwards.
type Report struct {
	RunID     string            `json:"run_id"`
	Roots     []string          `json:"roots"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration_ns"`
	Total     int               `json:"total"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Results   []FixtureResult   `json:"results"`
	Warnings  []fixture.Warning `json:"warnings,omitempty"`
}

func (r *Report) AllPass() bool {
	return r.Failed == 0
}

// Finalize orders results by path, computes summary counts and stamps the
// run identity. It is the single point where verdicts are aggregated.
func Finalize(roots []string, startedAt time.Time, results []FixtureResult, warnings []fixture.Warning) *Report {
	sorted := append([]FixtureResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	r := &Report{
		RunID:     uuid.NewString(),
		Roots:     append([]string(nil), roots...),
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Total:     len(sorted),
		Results:   sorted,
		Warnings:  append([]fixture.Warning(nil), warnings...),
	}

	for i := range sorted {
		sorted[i].Passed = sorted[i].Verdict.Pass()
		if sorted[i].Passed {
			r.Passed++
			observability.FixturesProcessedTotal.WithLabelValues("pass").Inc()
		} else {
			r.Failed++
			observability.FixturesProcessedTotal.WithLabelValues("fail").Inc()
		}
		observability.MismatchesTotal.Add(float64(sorted[i].Verdict.MismatchCount()))
	}
	observability.RunsTotal.Inc()

	return r
}
