package notify

import (
	"fmt"
	"os/exec"
	"strings"
)

// GHClient files issues using the gh CLI, which carries its own auth.
type GHClient struct{}

// NewGHClient returns a new GHClient.
func NewGHClient() *GHClient {
	return &GHClient{}
}

func ghCmd(args ...string) (string, error) {
	out, err := exec.Command("gh", args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("gh %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("gh %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CreateIssue opens a labeled issue on the given owner/repo and returns the
// issue URL gh prints on success.
func (c *GHClient) CreateIssue(repo, title, body string) (string, error) {
	return ghCmd("issue", "create",
		"--repo", repo,
		"--title", title,
		"--body", body,
		"--label", "bug",
	)
}
