//go:build windows

package daemon

import (
	"os"
	"os/exec"
)

// The child stays in the parent's console; there is no session to detach from.
func setDaemonSysProcAttr(*exec.Cmd) {}

// processExists trusts the pid file; a stale one surfaces as a refused connection.
func processExists(pid int) bool {
	return pid > 0
}

func signalTerm(proc *os.Process) error {
	return proc.Kill()
}
