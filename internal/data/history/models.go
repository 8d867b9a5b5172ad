package history

import "time"

const SchemaVersion = 1

// RunRecord is one persisted conformance run summary. One row per run;
// identity is (project_key, run_id).
type RunRecord struct {
	ProjectKey    string
	RunID         string
	SchemaVersion int
	Timestamp     time.Time
	Roots         string
	Total         int
	Passed        int
	Failed        int
	SkippedFiles  int
	DurationMS    int64
}

// PassRate returns the fraction of passing fixtures, 0 for empty runs.
func (r RunRecord) PassRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total)
}
