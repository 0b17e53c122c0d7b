//go:build !windows

package proc

import (
	"os/exec"
	"syscall"
)

// scriptCommand builds the command for running a shell script. The process
// gets its own group so Terminate can signal descendants too.
func scriptCommand(script string) *exec.Cmd {
	cmd := exec.Command("bash", script)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// signalTree sends SIGTERM to the process group (negative PID).
func (h *osHandle) signalTree() {
	if h.cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-h.cmd.Process.Pid, syscall.SIGTERM)
}

// killTree sends SIGKILL to the process group.
func (h *osHandle) killTree() {
	if h.cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-h.cmd.Process.Pid, syscall.SIGKILL)
}
