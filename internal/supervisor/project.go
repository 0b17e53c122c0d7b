package supervisor

import (
	"fmt"
	"time"

	"github.com/arkiven4/autowatch/internal/config"
	"github.com/arkiven4/autowatch/internal/models"
	"github.com/arkiven4/autowatch/internal/notify"
	"github.com/arkiven4/autowatch/internal/proc"
)

// Supervisor owns one project's lifecycle state machine. All mutation
// happens inside Advance, Start, ForceRestart, and Stop, which the watch
// loop calls from a single goroutine.
type Supervisor struct {
	cfg      config.Project
	launcher proc.Launcher
	notifier notify.Notifier

	phase      models.Phase
	detail     string
	handle     proc.Handle
	startTime  time.Time
	retryCount int
	lastRetry  time.Time

	// reported guards against duplicate reports for one failure episode.
	// It is cleared whenever a new process is started.
	reported bool

	// captured output of the most recent failure, kept so an exhaustion
	// report fired on a later tick still carries the evidence.
	lastStdout string
	lastStderr string
}

// NewSupervisor creates a supervisor in the starting phase. No process is
// launched until Start is called.
func NewSupervisor(cfg config.Project, launcher proc.Launcher, notifier notify.Notifier) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		launcher: launcher,
		notifier: notifier,
		phase:    models.PhaseStarting,
		detail:   "not started",
	}
}

// Config returns the project's immutable configuration.
func (s *Supervisor) Config() config.Project {
	return s.cfg
}

// Start launches the project's script for the first time.
func (s *Supervisor) Start(now time.Time) {
	if s.startProcess(now) {
		s.phase = models.PhaseStarting
		s.detail = "starting up"
	}
}

// Advance evaluates the state machine once for the current time and returns
// the project's observable status.
func (s *Supervisor) Advance(now time.Time) models.StatusSnapshot {
	switch {
	case s.handle != nil:
		s.checkProcess(now)
	case s.phase == models.PhaseCrashed:
		s.maybeRetry(now)
	}
	return models.StatusSnapshot{
		Project:   s.cfg.Name,
		Phase:     s.phase,
		Detail:    s.detail,
		UpdatedAt: now,
	}
}

// ForceRestart terminates any running process (descendants first) and starts
// fresh, clearing retry history. The repo group calls this after a
// successful pull, whatever phase the project is in.
func (s *Supervisor) ForceRestart(now time.Time) {
	if s.handle != nil {
		s.handle.Terminate()
		s.handle = nil
	}
	s.retryCount = 0
	if s.startProcess(now) {
		s.phase = models.PhaseRestarting
		s.detail = "restarting after update"
	}
}

// Stop terminates the managed process, if any. Used at shutdown.
func (s *Supervisor) Stop() {
	if s.handle != nil {
		s.handle.Terminate()
		s.handle = nil
	}
	s.phase = models.PhaseStopped
	s.detail = "supervisor shut down"
}

// checkProcess handles the "handle present" half of the state machine:
// still-running processes graduate from starting to running once the grace
// period passes; terminated ones are classified as clean exit, startup
// failure, or runtime crash.
func (s *Supervisor) checkProcess(now time.Time) {
	exited, code := s.handle.Poll()
	if !exited {
		if now.Sub(s.startTime) >= s.cfg.StartupGrace {
			// A stable run clears retry history.
			s.phase = models.PhaseRunning
			s.detail = "running"
			s.retryCount = 0
		} else {
			s.phase = models.PhaseStarting
			s.detail = "starting up"
		}
		return
	}

	s.lastStdout, s.lastStderr = s.handle.Output()
	s.handle = nil

	// Clean shutdown is not a failure: no restart, no retry, no report.
	if code == 0 {
		s.phase = models.PhaseStopped
		s.detail = "exited cleanly"
		return
	}

	if s.retryCount >= s.cfg.MaxRetries {
		s.exhaust()
		return
	}

	if now.Sub(s.startTime) < s.cfg.StartupGrace {
		// Startup failure: reported at detection time, once per episode.
		// It still consumes a retry attempt like any other crash.
		if !s.reported {
			s.notifier.Report(s.cfg, "Startup failure", s.lastStdout, s.lastStderr)
			s.reported = true
		}
		s.phase = models.PhaseCrashed
		s.detail = fmt.Sprintf("startup failure (exit %d), waiting to retry", code)
		return
	}

	s.phase = models.PhaseCrashed
	s.detail = fmt.Sprintf("crashed (exit %d), waiting to retry", code)
}

// maybeRetry handles the "crashed, no process" half: schedule a restart
// once the retry delay has elapsed, or give up when attempts run out.
func (s *Supervisor) maybeRetry(now time.Time) {
	if s.retryCount >= s.cfg.MaxRetries {
		s.exhaust()
		return
	}
	if now.Sub(s.lastRetry) < s.cfg.RetryDelay {
		return
	}

	s.retryCount++
	attempt := s.retryCount
	if s.startProcess(now) {
		s.phase = models.PhaseRetrying
		s.detail = fmt.Sprintf("retrying (%d/%d)", attempt, s.cfg.MaxRetries)
	}
}

// exhaust reports the end of a retry episode once and parks the project
// until an external restart arrives.
func (s *Supervisor) exhaust() {
	if !s.reported {
		s.notifier.Report(s.cfg, "Max retries reached", s.lastStdout, s.lastStderr)
		s.reported = true
	}
	s.phase = models.PhaseRetryExhausted
	s.detail = fmt.Sprintf("max retries (%d) reached", s.cfg.MaxRetries)
}

// startProcess spawns the script and resets per-process bookkeeping. A
// spawn failure is treated as an immediate crash under the same retry
// policy as a runtime crash.
func (s *Supervisor) startProcess(now time.Time) bool {
	s.startTime = now
	s.lastRetry = now
	s.reported = false

	h, err := s.launcher.Start(s.cfg.Script, s.cfg.RepoPath)
	if err != nil {
		s.handle = nil
		s.lastStdout, s.lastStderr = "", err.Error()
		s.phase = models.PhaseCrashed
		s.detail = fmt.Sprintf("spawn failed: %v", err)
		return false
	}
	s.handle = h
	return true
}
