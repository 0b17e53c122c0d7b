//go:build windows

package proc

import (
	"os/exec"
	"strconv"
)

// scriptCommand builds the command for running a batch script.
func scriptCommand(script string) *exec.Cmd {
	return exec.Command("cmd", "/C", script)
}

// signalTree asks taskkill to end the process tree.
func (h *osHandle) signalTree() {
	if h.cmd.Process == nil {
		return
	}
	_ = exec.Command("taskkill", "/T", "/PID", strconv.Itoa(h.cmd.Process.Pid)).Run()
}

// killTree forcefully ends the process tree.
func (h *osHandle) killTree() {
	if h.cmd.Process == nil {
		return
	}
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(h.cmd.Process.Pid)).Run()
}
