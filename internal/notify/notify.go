package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/arkiven4/autowatch/internal/config"
	"github.com/arkiven4/autowatch/internal/models"
	"github.com/arkiven4/autowatch/internal/output"
	"github.com/arkiven4/autowatch/internal/store"
)

// Notifier records a failure for a project. Implementations are best-effort
// and must never surface errors into the supervision loop.
type Notifier interface {
	Report(project config.Project, title, stdout, stderr string)
}

// IssueFiler files an issue against an external tracker.
type IssueFiler interface {
	CreateIssue(repo, title, body string) (url string, err error)
}

// Summarizer produces a short summary of captured failure output.
type Summarizer interface {
	SummarizeFailure(ctx context.Context, project, title, stdout, stderr string) (string, error)
}

// Reporter persists a timestamped log file and a store record for every
// failure, and best-effort files a GitHub issue. Missing tracker pieces
// (no gh, no configured repo) degrade to persist-only.
type Reporter struct {
	logDir     string
	store      store.Store
	issues     IssueFiler
	summarizer Summarizer
	ui         *output.UI

	now func() time.Time
}

// NewReporter creates a Reporter writing logs under logDir. issues and
// summarizer may be nil.
func NewReporter(logDir string, s store.Store, issues IssueFiler, summarizer Summarizer, ui *output.UI) *Reporter {
	return &Reporter{
		logDir:     logDir,
		store:      s,
		issues:     issues,
		summarizer: summarizer,
		ui:         ui,
		now:        time.Now,
	}
}

// Report records the failure. It never returns an error; anything that goes
// wrong is at most a warning on the UI.
func (r *Reporter) Report(project config.Project, title, stdout, stderr string) {
	ts := r.now().UTC()
	logFile := fmt.Sprintf("%s_%s.log", project.Name, ts.Format("20060102_150405"))

	if err := r.writeLog(logFile, stdout, stderr); err != nil {
		r.ui.Warning("write failure log for %s: %v", project.Name, err)
		logFile = ""
	}

	issueURL := r.fileIssue(project, title, logFile, stdout, stderr)

	rec := &models.FailureRecord{
		Project:   project.Name,
		Title:     title,
		LogFile:   logFile,
		Stdout:    stdout,
		Stderr:    stderr,
		IssueURL:  issueURL,
		CreatedAt: ts,
	}
	if err := r.store.CreateFailure(context.Background(), rec); err != nil {
		r.ui.Warning("record failure for %s: %v", project.Name, err)
	}
}

// writeLog writes the captured output atomically so a crash of autowatch
// itself never leaves a truncated log behind.
func (r *Reporter) writeLog(name, stdout, stderr string) error {
	if err := os.MkdirAll(r.logDir, 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	content := fmt.Sprintf("--- STDOUT ---\n%s\n--- STDERR ---\n%s\n", stdout, stderr)
	if err := renameio.WriteFile(filepath.Join(r.logDir, name), []byte(content), 0644); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// fileIssue creates a tracker issue and returns its URL, or "" when filing
// is not configured or fails.
func (r *Reporter) fileIssue(project config.Project, title, logFile, stdout, stderr string) string {
	if r.issues == nil || project.GitHubRepo == "" {
		return ""
	}

	body := r.issueBody(project, title, logFile, stdout, stderr)
	url, err := r.issues.CreateIssue(project.GitHubRepo, fmt.Sprintf("%s: %s", title, project.Name), body)
	if err != nil {
		r.ui.Warning("create issue for %s: %v", project.Name, err)
		return ""
	}
	r.ui.VerboseLog("filed issue for %s: %s", project.Name, url)
	return url
}

func (r *Reporter) issueBody(project config.Project, title, logFile, stdout, stderr string) string {
	var summary string
	if r.summarizer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s, err := r.summarizer.SummarizeFailure(ctx, project.Name, title, stdout, stderr)
		if err != nil {
			r.ui.VerboseLog("summarize failure for %s: %v", project.Name, err)
		} else {
			summary = s
		}
	}

	body := fmt.Sprintf("%s for `%s`.\n\n", title, project.Name)
	if summary != "" {
		body += summary + "\n\n"
	}
	if logFile != "" {
		body += fmt.Sprintf("Log file: `%s`\n\n", logFile)
	}
	body += fmt.Sprintf("--- STDOUT ---\n```\n%s\n```\n\n--- STDERR ---\n```\n%s\n```\n", stdout, stderr)
	return body
}
