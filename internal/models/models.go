package models

import "time"

// Phase is the lifecycle phase of a supervised project script.
type Phase string

const (
	PhaseStarting       Phase = "starting"
	PhaseRunning        Phase = "running"
	PhaseCrashed        Phase = "crashed"
	PhaseRetrying       Phase = "retrying"
	PhaseRetryExhausted Phase = "retry_exhausted"
	PhaseStopped        Phase = "stopped"
	PhaseRestarting     Phase = "restarting"
)

// StatusSnapshot is one project's observable state at a point in time.
type StatusSnapshot struct {
	Project   string
	Phase     Phase
	Detail    string
	UpdatedAt time.Time
}

// FailureRecord is one persisted failure report.
type FailureRecord struct {
	ID        string
	Project   string
	Title     string
	LogFile   string
	Stdout    string
	Stderr    string
	IssueURL  string
	CreatedAt time.Time
}
