package supervisor

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkiven4/autowatch/internal/config"
	"github.com/arkiven4/autowatch/internal/models"
	"github.com/arkiven4/autowatch/internal/output"
)

// fakeSync simulates the git layer.
type fakeSync struct {
	hasUpdate bool
	checkErr  error
	pullErr   error

	checks int
	pulls  int
}

func (f *fakeSync) HasRemoteUpdate(path, branch string) (bool, error) {
	f.checks++
	return f.hasUpdate, f.checkErr
}

func (f *fakeSync) Pull(path, branch string) error {
	f.pulls++
	return f.pullErr
}

func (f *fakeSync) CurrentBranch(path string) (string, error) { return "main", nil }
func (f *fakeSync) LastCommitHash(path string) (string, error) {
	return "abc1234", nil
}

func quietUI() *output.UI {
	return &output.UI{Out: &bytes.Buffer{}, ErrOut: &bytes.Buffer{}}
}

func memberProject(name string) config.Project {
	return config.Project{
		Name:         name,
		RepoPath:     "/srv/cbm_vale",
		Branch:       "main",
		Script:       "run_" + name + ".sh",
		MaxRetries:   2,
		RetryDelay:   10 * time.Second,
		StartupGrace: 60 * time.Second,
	}
}

func newTestGroup(t *testing.T, sync *fakeSync) (*RepoGroup, *fakeLauncher, *fakeNotifier) {
	t.Helper()
	launcher := &fakeLauncher{}
	notifier := &fakeNotifier{}
	grp := NewRepoGroup("/srv/cbm_vale", "main", time.Minute, sync, notifier, quietUI())
	grp.Add(NewSupervisor(memberProject("detector"), launcher, notifier))
	grp.Add(NewSupervisor(memberProject("dashboard"), launcher, notifier))
	return grp, launcher, notifier
}

func TestRepoGroup_ChecksAtMostOncePerInterval(t *testing.T) {
	sync := &fakeSync{}
	grp, _, _ := newTestGroup(t, sync)
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	grp.MaybeSync(t0)
	assert.Equal(t, 1, sync.checks)

	grp.MaybeSync(t0.Add(30 * time.Second))
	assert.Equal(t, 1, sync.checks, "within the interval, no second fetch")

	grp.MaybeSync(t0.Add(time.Minute))
	assert.Equal(t, 2, sync.checks)
}

func TestRepoGroup_NoUpdateNoPull(t *testing.T) {
	sync := &fakeSync{hasUpdate: false}
	grp, launcher, notifier := newTestGroup(t, sync)

	grp.MaybeSync(time.Now())
	assert.Equal(t, 0, sync.pulls)
	assert.Empty(t, launcher.spawned)
	assert.Empty(t, notifier.titles)
}

func TestRepoGroup_PullSuccessRestartsAllMembers(t *testing.T) {
	sync := &fakeSync{hasUpdate: true}
	grp, launcher, notifier := newTestGroup(t, sync)
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Put the members in very different phases first.
	detector, dashboard := grp.members[0], grp.members[1]
	detector.Start(t0)
	detector.Advance(t0.Add(90 * time.Second)) // running
	// dashboard is driven to retry_exhausted without ever starting cleanly.
	dashboard.phase = models.PhaseRetryExhausted
	dashboard.retryCount = dashboard.cfg.MaxRetries

	old := launcher.last()
	grp.MaybeSync(t0.Add(2 * time.Minute))

	require.Equal(t, 1, sync.pulls)
	assert.True(t, old.terminated, "running member's old process is terminated")
	// One prior spawn plus one restart per member.
	require.Len(t, launcher.spawned, 3)

	for _, m := range grp.members {
		assert.Equal(t, models.PhaseRestarting, m.phase)
		assert.Equal(t, 0, m.retryCount, "pull restart clears retry history")
	}
	assert.Empty(t, notifier.titles)
}

func TestRepoGroup_PullFailureReportsOnceAndLeavesMembersAlone(t *testing.T) {
	sync := &fakeSync{hasUpdate: true, pullErr: errors.New("merge conflict in run.sh")}
	grp, launcher, notifier := newTestGroup(t, sync)
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	detector := grp.members[0]
	detector.Start(t0)
	detector.Advance(t0.Add(90 * time.Second))
	spawnsBefore := len(launcher.spawned)

	grp.MaybeSync(t0.Add(2 * time.Minute))

	require.Equal(t, []string{"Failed to pull changes"}, notifier.titles)
	assert.Equal(t, []string{"detector"}, notifier.projects, "reported once, against the first member")
	assert.Len(t, launcher.spawned, spawnsBefore, "no member restarted")
	assert.Equal(t, models.PhaseRunning, detector.phase)
	assert.False(t, launcher.last().terminated)
}

func TestRepoGroup_CheckErrorSkipsCycle(t *testing.T) {
	sync := &fakeSync{checkErr: errors.New("could not resolve host github.com")}
	grp, launcher, notifier := newTestGroup(t, sync)

	grp.MaybeSync(time.Now())
	assert.Equal(t, 0, sync.pulls)
	assert.Empty(t, launcher.spawned)
	assert.Empty(t, notifier.titles, "transient fetch errors are not reported")
}

func TestRepoGroup_EmptyGroupNeverTouchesGit(t *testing.T) {
	sync := &fakeSync{hasUpdate: true}
	grp := NewRepoGroup("/srv/empty", "main", time.Minute, sync, &fakeNotifier{}, quietUI())

	grp.MaybeSync(time.Now())
	assert.Equal(t, 0, sync.checks)
}
