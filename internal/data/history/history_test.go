package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecord(runID string, ts time.Time) RunRecord {
	return RunRecord{
		ProjectKey:   "fixtures",
		RunID:        runID,
		Timestamp:    ts,
		Roots:        "testdata/fixtures",
		Total:        12,
		Passed:       10,
		Failed:       2,
		SkippedFiles: 1,
		DurationMS:   340,
	}
}

func TestSaveAndLoadRuns(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.SaveRun(sampleRecord("run-1", now.Add(-time.Hour))))
	require.NoError(t, store.SaveRun(sampleRecord("run-2", now)))

	records, err := store.LoadRuns("fixtures", time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, "run-2", records[0].RunID)
	assert.Equal(t, "run-1", records[1].RunID)
	assert.Equal(t, 12, records[0].Total)
	assert.Equal(t, SchemaVersion, records[0].SchemaVersion)
	assert.WithinDuration(t, now, records[0].Timestamp, time.Second)
}

func TestLoadRuns_SinceFilter(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.SaveRun(sampleRecord("old", now.Add(-48*time.Hour))))
	require.NoError(t, store.SaveRun(sampleRecord("recent", now)))

	records, err := store.LoadRuns("fixtures", now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "recent", records[0].RunID)
}

func TestSaveRun_UpsertsSameRunID(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	first := sampleRecord("run-1", now)
	require.NoError(t, store.SaveRun(first))

	first.Passed = 12
	first.Failed = 0
	require.NoError(t, store.SaveRun(first))

	records, err := store.LoadRuns("fixtures", time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 12, records[0].Passed)
	assert.Equal(t, 0, records[0].Failed)
}

func TestSaveRun_RequiresRunID(t *testing.T) {
	store := openTestStore(t)
	err := store.SaveRun(RunRecord{ProjectKey: "fixtures"})
	require.Error(t, err)
}

func TestLatestRun(t *testing.T) {
	store := openTestStore(t)

	latest, err := store.LatestRun("fixtures")
	require.NoError(t, err)
	assert.Nil(t, latest)

	now := time.Now().UTC()
	require.NoError(t, store.SaveRun(sampleRecord("run-1", now.Add(-time.Minute))))
	require.NoError(t, store.SaveRun(sampleRecord("run-2", now)))

	latest, err = store.LatestRun("fixtures")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "run-2", latest.RunID)
}

func TestProjectIsolation(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	a := sampleRecord("run-1", now)
	b := sampleRecord("run-1", now)
	b.ProjectKey = "other"

	require.NoError(t, store.SaveRun(a))
	require.NoError(t, store.SaveRun(b))

	records, err := store.LoadRuns("fixtures", time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestPassRate(t *testing.T) {
	assert.Equal(t, 0.0, RunRecord{}.PassRate())
	assert.InDelta(t, 0.833, sampleRecord("r", time.Now()).PassRate(), 0.001)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRun(sampleRecord("run-1", time.Now().UTC())))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.LoadRuns("fixtures", time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
