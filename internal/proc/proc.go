package proc

import (
	"bytes"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// Handle is a running (or finished) script process.
type Handle interface {
	// Poll reports whether the process has exited and, if so, its exit code.
	// It never blocks.
	Poll() (exited bool, code int)
	// Terminate stops the process and all its descendants. It sends a
	// graceful signal first and escalates to a forced kill if the tree
	// does not exit within the stop timeout.
	Terminate()
	// Output returns the captured stdout and stderr. Empty until exit.
	Output() (stdout, stderr string)
}

// Launcher starts script processes.
type Launcher interface {
	Start(script, dir string) (Handle, error)
}

// OSLauncher runs scripts as real OS processes, capturing their output.
type OSLauncher struct {
	// StopTimeout is how long Terminate waits after the graceful signal
	// before escalating to a forced kill.
	StopTimeout time.Duration
}

// NewLauncher returns an OSLauncher with the default stop timeout.
func NewLauncher() *OSLauncher {
	return &OSLauncher{StopTimeout: 10 * time.Second}
}

// Start launches the script in dir and begins collecting its output.
func (l *OSLauncher) Start(script, dir string) (Handle, error) {
	cmd := scriptCommand(script)
	cmd.Dir = dir

	h := &osHandle{
		cmd:         cmd,
		stopTimeout: l.StopTimeout,
		done:        make(chan struct{}),
	}
	cmd.Stdout = &h.stdout
	cmd.Stderr = &h.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", script, err)
	}

	go func() {
		err := cmd.Wait()
		h.mu.Lock()
		h.code = exitCode(cmd, err)
		h.mu.Unlock()
		close(h.done)
	}()

	return h, nil
}

type osHandle struct {
	cmd         *exec.Cmd
	stdout      bytes.Buffer
	stderr      bytes.Buffer
	stopTimeout time.Duration

	mu   sync.Mutex
	code int
	done chan struct{}
}

func (h *osHandle) Poll() (bool, int) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return true, h.code
	default:
		return false, 0
	}
}

func (h *osHandle) Output() (string, string) {
	select {
	case <-h.done:
		return h.stdout.String(), h.stderr.String()
	default:
		return "", ""
	}
}

// Terminate signals the whole process group and waits for exit, escalating
// to a forced kill rather than hanging if the tree refuses to die.
func (h *osHandle) Terminate() {
	select {
	case <-h.done:
		return
	default:
	}

	h.signalTree()
	select {
	case <-h.done:
		return
	case <-time.After(h.stopTimeout):
	}

	h.killTree()
	select {
	case <-h.done:
	case <-time.After(h.stopTimeout):
	}
}

func exitCode(cmd *exec.Cmd, err error) int {
	if err == nil {
		return 0
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}
