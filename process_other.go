//go:build !linux

package warden

import "os/exec"

// setSysProcAttr is a no-op where parent-death signals are unavailable; the
// explicit grace-then-kill paths in Close and Cancel still apply.
func setSysProcAttr(cmd *exec.Cmd) {}
