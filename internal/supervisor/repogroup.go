package supervisor

import (
	"time"

	"github.com/arkiven4/autowatch/internal/git"
	"github.com/arkiven4/autowatch/internal/notify"
	"github.com/arkiven4/autowatch/internal/output"
)

// RepoGroup is the set of supervised projects sharing one working copy.
// The group owns the fetch/pull cadence for the working copy and restarts
// every member together after a successful pull; scripts sharing a working
// copy may share code, so restarting a subset is never safe.
type RepoGroup struct {
	path     string
	branch   string
	interval time.Duration

	git      git.Sync
	notifier notify.Notifier
	ui       *output.UI

	members   []*Supervisor
	lastCheck time.Time
}

// NewRepoGroup creates a group for one working-copy path. The branch comes
// from the first project registered for the path.
func NewRepoGroup(path, branch string, interval time.Duration, g git.Sync, n notify.Notifier, ui *output.UI) *RepoGroup {
	return &RepoGroup{
		path:     path,
		branch:   branch,
		interval: interval,
		git:      g,
		notifier: n,
		ui:       ui,
	}
}

// Add registers a member project.
func (g *RepoGroup) Add(s *Supervisor) {
	g.members = append(g.members, s)
}

// Path returns the working-copy path the group watches.
func (g *RepoGroup) Path() string {
	return g.path
}

// MaybeSync checks the remote at most once per fetch interval. On new
// commits it pulls and restarts all members; a pull failure is reported
// once and leaves every member untouched, since the working copy may be
// inconsistent.
func (g *RepoGroup) MaybeSync(now time.Time) {
	if len(g.members) == 0 {
		return
	}
	if !g.lastCheck.IsZero() && now.Sub(g.lastCheck) < g.interval {
		return
	}
	g.lastCheck = now

	has, err := g.git.HasRemoteUpdate(g.path, g.branch)
	if err != nil {
		// Remote unreachable or branch missing: skip this cycle, running
		// processes are unaffected.
		g.ui.Warning("check remote for %s: %v", g.path, err)
		return
	}
	if !has {
		return
	}

	if err := g.git.Pull(g.path, g.branch); err != nil {
		g.notifier.Report(g.members[0].Config(), "Failed to pull changes", "", err.Error())
		return
	}

	g.ui.Info("pulled new commits on %s for %s, restarting %d project(s)", g.branch, g.path, len(g.members))
	for _, m := range g.members {
		m.ForceRestart(now)
	}
}
