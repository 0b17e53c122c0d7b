package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arkiven4/autowatch/internal/config"
	"github.com/arkiven4/autowatch/internal/git"
	"github.com/arkiven4/autowatch/internal/llm"
	"github.com/arkiven4/autowatch/internal/models"
	"github.com/arkiven4/autowatch/internal/notify"
	"github.com/arkiven4/autowatch/internal/output"
	"github.com/arkiven4/autowatch/internal/proc"
	"github.com/arkiven4/autowatch/internal/supervisor"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the supervision loop",
	Long: `Start all configured project scripts and supervise them until
interrupted. Each tick checks process health; each fetch interval checks
the git remotes for new commits and restarts updated projects.

Stop with Ctrl-C; managed process trees are terminated on the way out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if len(cfg.Projects) == 0 {
			ui.Info("No projects configured. Add projects to the config file (see 'autowatch config init').")
			return nil
		}

		s, err := getStore()
		if err != nil {
			return err
		}

		var summarizer notify.Summarizer
		if cfg.Anthropic.APIKey != "" {
			summarizer = llm.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
		}
		reporter := notify.NewReporter(cfg.LogDir, s, notify.NewGHClient(), summarizer, ui)

		loop := supervisor.NewLoop(cfg, proc.NewLauncher(), git.NewClient(), reporter, s, ui)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go logPhaseChanges(loop.Subscribe())

		ui.Info("watching %d project(s), tick %s, fetch every %s", len(cfg.Projects), cfg.TickInterval, cfg.FetchInterval)
		return loop.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// logPhaseChanges prints a line whenever a project changes phase. Batches
// may be coalesced; only transitions are shown.
func logPhaseChanges(ch <-chan []models.StatusSnapshot) {
	last := make(map[string]models.Phase)
	for batch := range ch {
		for _, snap := range batch {
			if last[snap.Project] == snap.Phase {
				continue
			}
			last[snap.Project] = snap.Phase
			ui.Info("%s: %s (%s)", output.Cyan(snap.Project), output.PhaseColor(snap.Phase), snap.Detail)
		}
	}
}
