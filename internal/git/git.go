package git

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Sync defines the git operations the supervisor needs on a working copy.
// All methods take a path parameter since autowatch watches multiple repos.
type Sync interface {
	// HasRemoteUpdate fetches the remote and reports whether origin/<branch>
	// has commits the local HEAD lacks.
	HasRemoteUpdate(path, branch string) (bool, error)
	// Pull merges origin/<branch> into the working copy, preferring the
	// remote side on conflicts.
	Pull(path, branch string) error
	// CurrentBranch returns the checked-out branch name.
	CurrentBranch(path string) (string, error)
	// LastCommitHash returns the abbreviated HEAD commit hash.
	LastCommitHash(path string) (string, error)
}

// RealClient implements Sync using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) HasRemoteUpdate(path, branch string) (bool, error) {
	if _, err := gitCmd(path, "fetch", "origin", branch); err != nil {
		return false, fmt.Errorf("fetch: %w", err)
	}
	out, err := gitCmd(path, "rev-list", "--count", "HEAD..origin/"+branch)
	if err != nil {
		return false, fmt.Errorf("rev-list: %w", err)
	}
	count, err := strconv.Atoi(out)
	if err != nil {
		return false, fmt.Errorf("parse rev-list count %q: %w", out, err)
	}
	return count > 0, nil
}

// Pull uses -X theirs so a conflicting local change never blocks an update;
// the remote is the source of truth for a watched working copy.
func (c *RealClient) Pull(path, branch string) error {
	if _, err := gitCmd(path, "pull", "--no-rebase", "-X", "theirs", "origin", branch); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

func (c *RealClient) CurrentBranch(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--abbrev-ref", "HEAD")
}

func (c *RealClient) LastCommitHash(path string) (string, error) {
	return gitCmd(path, "log", "-1", "--format=%h")
}
