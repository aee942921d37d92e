//go:build !windows

package bootstrap

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own session so it survives the hook
// process exiting.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
