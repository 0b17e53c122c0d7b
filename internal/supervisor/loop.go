package supervisor

import (
	"context"
	"time"

	"vawter.tech/stopper"

	"github.com/arkiven4/autowatch/internal/config"
	"github.com/arkiven4/autowatch/internal/git"
	"github.com/arkiven4/autowatch/internal/models"
	"github.com/arkiven4/autowatch/internal/notify"
	"github.com/arkiven4/autowatch/internal/output"
	"github.com/arkiven4/autowatch/internal/proc"
	"github.com/arkiven4/autowatch/internal/store"
)

// Loop drives all repo groups and project supervisors at a fixed cadence.
// A tick never blocks on observers: status batches go to the store and to
// a latest-value channel that drops stale batches instead of queueing.
type Loop struct {
	tick   time.Duration
	groups []*RepoGroup
	sups   []*Supervisor

	store store.Store
	ui    *output.UI

	statusCh chan []models.StatusSnapshot
	now      func() time.Time
}

// NewLoop builds supervisors for every configured project and groups them
// by working-copy path, preserving configuration order.
func NewLoop(cfg *config.Config, launcher proc.Launcher, g git.Sync, n notify.Notifier, st store.Store, ui *output.UI) *Loop {
	l := &Loop{
		tick:     cfg.TickInterval,
		store:    st,
		ui:       ui,
		statusCh: make(chan []models.StatusSnapshot, 1),
		now:      time.Now,
	}

	byPath := make(map[string]*RepoGroup)
	for _, p := range cfg.Projects {
		sup := NewSupervisor(p, launcher, n)
		l.sups = append(l.sups, sup)

		grp, ok := byPath[p.RepoPath]
		if !ok {
			grp = NewRepoGroup(p.RepoPath, p.Branch, cfg.FetchInterval, g, n, ui)
			byPath[p.RepoPath] = grp
			l.groups = append(l.groups, grp)
		}
		grp.Add(sup)
	}

	return l
}

// Tick runs one supervision pass: every group's sync check, then every
// supervisor's state machine. It returns the resulting status batch.
func (l *Loop) Tick(now time.Time) []models.StatusSnapshot {
	for _, g := range l.groups {
		g.MaybeSync(now)
	}
	batch := make([]models.StatusSnapshot, 0, len(l.sups))
	for _, s := range l.sups {
		batch = append(batch, s.Advance(now))
	}
	return batch
}

// Subscribe returns the status channel. Only the latest batch is retained;
// a slow reader sees coalesced updates, never a stalled supervisor.
func (l *Loop) Subscribe() <-chan []models.StatusSnapshot {
	return l.statusCh
}

// Run starts all projects and ticks until ctx is cancelled, then terminates
// every managed process tree.
func (l *Loop) Run(ctx context.Context) error {
	sctx := stopper.WithContext(ctx)

	start := l.now()
	for _, s := range l.sups {
		s.Start(start)
	}

	sctx.Go(func(sctx *stopper.Context) error {
		ticker := time.NewTicker(l.tick)
		defer ticker.Stop()

		sctx.Defer(func() {
			for _, s := range l.sups {
				s.Stop()
			}
		})

		for {
			select {
			case <-sctx.Stopping():
				return nil
			case t := <-ticker.C:
				l.publish(l.Tick(t))
			}
		}
	})

	return sctx.Wait()
}

// publish persists the batch and hands it to the subscriber without ever
// blocking the tick.
func (l *Loop) publish(batch []models.StatusSnapshot) {
	for i := range batch {
		snap := batch[i]
		if err := l.store.UpsertStatus(context.Background(), &snap); err != nil {
			l.ui.VerboseLog("persist status for %s: %v", snap.Project, err)
		}
	}

	select {
	case l.statusCh <- batch:
	default:
		// Drop the stale batch, then try once more. Another consumer may
		// have raced us; losing one batch is fine.
		select {
		case <-l.statusCh:
		default:
		}
		select {
		case l.statusCh <- batch:
		default:
		}
	}
}
