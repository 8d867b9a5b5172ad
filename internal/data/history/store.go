package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists run summaries in a local sqlite database so successive
// runs can be compared. A single writer connection is enough; runs finish
// seconds apart, not concurrently.
type Store struct {
	db   *sql.DB
	path string
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("prepare history directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun records one run summary. Re-saving the same (project, run) pair
// overwrites the earlier row.
func (s *Store) SaveRun(rec RunRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("run record missing run id")
	}
	if rec.ProjectKey == "" {
		rec.ProjectKey = "default"
	}
	if rec.SchemaVersion == 0 {
		rec.SchemaVersion = SchemaVersion
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	return s.withRetry(func() error {
		_, err := s.db.Exec(`
INSERT INTO runs (project_key, run_id, schema_version, ts_utc, roots, total, passed, failed, skipped_files, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(project_key, run_id) DO UPDATE SET
  schema_version = excluded.schema_version,
  ts_utc = excluded.ts_utc,
  roots = excluded.roots,
  total = excluded.total,
  passed = excluded.passed,
  failed = excluded.failed,
  skipped_files = excluded.skipped_files,
  duration_ms = excluded.duration_ms
`,
			rec.ProjectKey, rec.RunID, rec.SchemaVersion,
			rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.Roots,
			rec.Total, rec.Passed, rec.Failed, rec.SkippedFiles, rec.DurationMS)
		return err
	})
}

// LoadRuns returns runs for the project at or after since, newest first.
func (s *Store) LoadRuns(projectKey string, since time.Time) ([]RunRecord, error) {
	if projectKey == "" {
		projectKey = "default"
	}

	rows, err := s.db.Query(`
SELECT project_key, run_id, schema_version, ts_utc, roots, total, passed, failed, skipped_files, duration_ms
FROM runs
WHERE project_key = ? AND ts_utc >= ?
ORDER BY ts_utc DESC
`, projectKey, since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var ts string
		if err := rows.Scan(&rec.ProjectKey, &rec.RunID, &rec.SchemaVersion, &ts, &rec.Roots,
			&rec.Total, &rec.Passed, &rec.Failed, &rec.SkippedFiles, &rec.DurationMS); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", ts, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestRun returns the most recent run for the project, or nil when the
// history is empty.
func (s *Store) LatestRun(projectKey string) (*RunRecord, error) {
	records, err := s.LoadRuns(projectKey, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

const (
	maxRetries = 3
	retryDelay = 100 * time.Millisecond
)

func (s *Store) withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !isLockError(err) {
			return err
		}
		time.Sleep(retryDelay * time.Duration(attempt+1))
	}
	return fmt.Errorf("database busy after %d attempts: %w", maxRetries, err)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
