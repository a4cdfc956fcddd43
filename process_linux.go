package warden

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr makes the kernel deliver SIGKILL to the worker if the
// supervisor's thread dies, so workers never outlive a crashed parent.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGKILL}
}
