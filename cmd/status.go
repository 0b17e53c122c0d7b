package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arkiven4/autowatch/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest supervision status per project",
	Long: `Show the most recent status snapshot for every supervised project,
as published by a running 'autowatch watch' loop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	statuses, err := s.ListStatuses(context.Background())
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		ui.Info("No status recorded yet. Is 'autowatch watch' running?")
		return nil
	}

	table := ui.Table([]string{"Project", "Phase", "Detail", "Updated"})
	for _, snap := range statuses {
		table.Append([]string{
			output.Cyan(snap.Project),
			output.PhaseColor(snap.Phase),
			snap.Detail,
			timeAgo(snap.UpdatedAt),
		})
	}
	table.Render()
	return nil
}

// timeAgo formats a timestamp as a coarse human-readable age.
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
