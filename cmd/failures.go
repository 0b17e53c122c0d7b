package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arkiven4/autowatch/internal/output"
)

var failuresLimit int

var failuresCmd = &cobra.Command{
	Use:   "failures [project]",
	Short: "List recorded failures, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project := ""
		if len(args) == 1 {
			project = args[0]
		}
		return failuresListRun(project)
	},
}

var failuresShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one failure record with its captured output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return failuresShowRun(args[0])
	},
}

func init() {
	failuresCmd.Flags().IntVar(&failuresLimit, "limit", 20, "Maximum records to show")
	failuresCmd.AddCommand(failuresShowCmd)
	rootCmd.AddCommand(failuresCmd)
}

func failuresListRun(project string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	failures, err := s.ListFailures(context.Background(), project, failuresLimit)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		ui.Info("No failures recorded.")
		return nil
	}

	table := ui.Table([]string{"ID", "Project", "Failure", "Log", "Issue", "When"})
	for _, f := range failures {
		issue := "-"
		if f.IssueURL != "" {
			issue = f.IssueURL
		}
		table.Append([]string{
			f.ID,
			output.Cyan(f.Project),
			output.Red(f.Title),
			f.LogFile,
			issue,
			timeAgo(f.CreatedAt),
		})
	}
	table.Render()
	return nil
}

func failuresShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	f, err := s.GetFailure(context.Background(), id)
	if err != nil {
		return err
	}

	ui.Info("%s  %s  %s", output.Cyan(f.Project), output.Red(f.Title), f.CreatedAt.Format("2006-01-02 15:04:05"))
	if f.LogFile != "" {
		ui.Info("log file: %s", f.LogFile)
	}
	if f.IssueURL != "" {
		ui.Info("issue: %s", f.IssueURL)
	}
	fmt.Fprintf(ui.Out, "\n--- STDOUT ---\n%s\n--- STDERR ---\n%s\n", f.Stdout, f.Stderr)
	return nil
}
