package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dealwatch/models"
)

// SQLiteStore keeps the report-run audit trail. It records run outcomes
// and run-scoped log lines, never deal state.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS report_runs (
		id INTEGER PRIMARY KEY,
		uid TEXT,
		report_id TEXT,
		label TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		deals_scanned INTEGER DEFAULT 0,
		type_changes INTEGER DEFAULT 0,
		stage_changes INTEGER DEFAULT 0,
		close_changes INTEGER DEFAULT 0,
		emails_sent INTEGER DEFAULT 0,
		emails_failed INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS report_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		report_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_report ON report_runs(report_id, started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON report_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON report_logs(run_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.ReportRun) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO report_runs (uid, report_id, label, started_at, status)
		VALUES (?, ?, ?, ?, ?)`,
		run.UID, run.ReportID, run.Label, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ReportRun) error {
	_, err := s.db.Exec(`
		UPDATE report_runs
		SET finished_at = ?, status = ?, deals_scanned = ?,
			type_changes = ?, stage_changes = ?, close_changes = ?,
			emails_sent = ?, emails_failed = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.DealsScanned,
		run.TypeChanges, run.StageChanges, run.CloseChanges,
		run.EmailsSent, run.EmailsFailed, run.ErrorsCount,
		run.ID)
	return err
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, reportID string) error {
	_, err := s.db.Exec(`
		INSERT INTO report_logs (run_id, timestamp, level, message, report_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now().UTC(), level, message, reportID)
	return err
}

// RecentRuns returns the newest runs first, capped at limit.
func (s *SQLiteStore) RecentRuns(limit int) ([]models.ReportRun, error) {
	rows, err := s.db.Query(`
		SELECT id, uid, report_id, label, started_at, finished_at, status,
			deals_scanned, type_changes, stage_changes, close_changes,
			emails_sent, emails_failed, errors_count
		FROM report_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ReportRun
	for rows.Next() {
		var run models.ReportRun
		var finished sql.NullTime
		err := rows.Scan(&run.ID, &run.UID, &run.ReportID, &run.Label,
			&run.StartedAt, &finished, &run.Status,
			&run.DealsScanned, &run.TypeChanges, &run.StageChanges, &run.CloseChanges,
			&run.EmailsSent, &run.EmailsFailed, &run.ErrorsCount)
		if err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
