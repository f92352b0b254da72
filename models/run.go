package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ReportRun is the audit record for one report generation.
type ReportRun struct {
	ID           int64      `json:"id" db:"id"`
	UID          string     `json:"uid" db:"uid"`
	ReportID     string     `json:"report_id" db:"report_id"`
	Label        string     `json:"label" db:"label"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at" db:"finished_at"`
	Status       RunStatus  `json:"status" db:"status"`
	DealsScanned int        `json:"deals_scanned" db:"deals_scanned"`
	TypeChanges  int        `json:"type_changes" db:"type_changes"`
	StageChanges int        `json:"stage_changes" db:"stage_changes"`
	CloseChanges int        `json:"close_changes" db:"close_changes"`
	EmailsSent   int        `json:"emails_sent" db:"emails_sent"`
	EmailsFailed int        `json:"emails_failed" db:"emails_failed"`
	ErrorsCount  int        `json:"errors_count" db:"errors_count"`
}

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type RunLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     *int64    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	ReportID  string    `json:"report_id" db:"report_id"`
}
