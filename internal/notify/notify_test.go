package notify

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkiven4/autowatch/internal/config"
	"github.com/arkiven4/autowatch/internal/output"
	"github.com/arkiven4/autowatch/internal/store"
)

type fakeFiler struct {
	url    string
	err    error
	repos  []string
	titles []string
	bodies []string
}

func (f *fakeFiler) CreateIssue(repo, title, body string) (string, error) {
	f.repos = append(f.repos, repo)
	f.titles = append(f.titles, title)
	f.bodies = append(f.bodies, body)
	return f.url, f.err
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) SummarizeFailure(ctx context.Context, project, title, stdout, stderr string) (string, error) {
	return f.summary, f.err
}

func reportProject() config.Project {
	return config.Project{
		Name:       "detector",
		RepoPath:   "/srv/cbm_vale",
		Branch:     "main",
		Script:     "run.sh",
		GitHubRepo: "arkiven4/cbm_vale",
	}
}

func newTestReporter(t *testing.T, issues IssueFiler, summarizer Summarizer) (*Reporter, string, store.Store, *bytes.Buffer) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	errOut := &bytes.Buffer{}
	ui := &output.UI{Out: &bytes.Buffer{}, ErrOut: errOut}

	logDir := filepath.Join(t.TempDir(), "logs")
	r := NewReporter(logDir, st, issues, summarizer, ui)
	r.now = func() time.Time {
		return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	}
	return r, logDir, st, errOut
}

func TestReporter_WritesLogFileAndRecord(t *testing.T) {
	filer := &fakeFiler{url: "https://github.com/arkiven4/cbm_vale/issues/7"}
	r, logDir, st, _ := newTestReporter(t, filer, nil)

	r.Report(reportProject(), "Startup failure", "loading model...", "Traceback: boom")

	data, err := os.ReadFile(filepath.Join(logDir, "detector_20260801_120000.log"))
	require.NoError(t, err)
	assert.Equal(t, "--- STDOUT ---\nloading model...\n--- STDERR ---\nTraceback: boom\n", string(data))

	failures, err := st.ListFailures(context.Background(), "detector", 0)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	f := failures[0]
	assert.Equal(t, "Startup failure", f.Title)
	assert.Equal(t, "detector_20260801_120000.log", f.LogFile)
	assert.Equal(t, "Traceback: boom", f.Stderr)
	assert.Equal(t, filer.url, f.IssueURL)

	require.Len(t, filer.titles, 1)
	assert.Equal(t, "Startup failure: detector", filer.titles[0])
	assert.Equal(t, []string{"arkiven4/cbm_vale"}, filer.repos)
	assert.Contains(t, filer.bodies[0], "--- STDERR ---")
	assert.Contains(t, filer.bodies[0], "Traceback: boom")
}

func TestReporter_NoTrackerConfigured(t *testing.T) {
	filer := &fakeFiler{url: "https://example.invalid"}
	r, _, st, _ := newTestReporter(t, filer, nil)

	p := reportProject()
	p.GitHubRepo = ""
	r.Report(p, "Max retries reached", "", "oom")

	assert.Empty(t, filer.repos, "no github_repo, no issue")
	failures, err := st.ListFailures(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Empty(t, failures[0].IssueURL)
}

func TestReporter_IssueFailureDegradesToWarning(t *testing.T) {
	filer := &fakeFiler{err: errors.New("gh: not logged in")}
	r, _, st, errOut := newTestReporter(t, filer, nil)

	r.Report(reportProject(), "Startup failure", "", "boom")

	failures, err := st.ListFailures(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, failures, 1, "record is persisted even when filing fails")
	assert.Empty(t, failures[0].IssueURL)
	assert.Contains(t, errOut.String(), "create issue for detector")
}

func TestReporter_SummaryIncludedInIssueBody(t *testing.T) {
	filer := &fakeFiler{url: "https://github.com/arkiven4/cbm_vale/issues/8"}
	sum := &fakeSummarizer{summary: "The detector crashed because torch is not installed."}
	r, _, _, _ := newTestReporter(t, filer, sum)

	r.Report(reportProject(), "Startup failure", "", "ModuleNotFoundError: torch")

	require.Len(t, filer.bodies, 1)
	assert.Contains(t, filer.bodies[0], sum.summary)
}

func TestReporter_SummarizerErrorIgnored(t *testing.T) {
	filer := &fakeFiler{url: "https://github.com/arkiven4/cbm_vale/issues/9"}
	sum := &fakeSummarizer{err: errors.New("api key invalid")}
	r, _, st, _ := newTestReporter(t, filer, sum)

	r.Report(reportProject(), "Startup failure", "", "boom")

	require.Len(t, filer.bodies, 1, "issue is still filed without a summary")
	failures, err := st.ListFailures(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, filer.url, failures[0].IssueURL)
}
