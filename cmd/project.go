package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arkiven4/autowatch/internal/config"
	"github.com/arkiven4/autowatch/internal/git"
	"github.com/arkiven4/autowatch/internal/output"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect configured projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun()
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured projects with their working-copy state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun()
	},
}

func init() {
	projectCmd.AddCommand(projectListCmd)
	rootCmd.AddCommand(projectCmd)
}

func projectListRun() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(cfg.Projects) == 0 {
		ui.Info("No projects configured. See 'autowatch config init'.")
		return nil
	}

	gc := git.NewClient()
	table := ui.Table([]string{"Project", "Path", "Watched", "Checked Out", "HEAD", "Script", "Retries"})

	for _, p := range cfg.Projects {
		branch, err := gc.CurrentBranch(p.RepoPath)
		if err != nil {
			branch = "?"
		}
		head, err := gc.LastCommitHash(p.RepoPath)
		if err != nil {
			head = "?"
		}

		checkedOut := branch
		if branch != p.Branch {
			checkedOut = output.Yellow(branch)
		}

		table.Append([]string{
			output.Cyan(p.Name),
			p.RepoPath,
			p.Branch,
			checkedOut,
			head,
			p.Script,
			fmt.Sprintf("%d @ %s", p.MaxRetries, p.RetryDelay),
		})
	}

	table.Render()
	return nil
}
