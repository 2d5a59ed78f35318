//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// isolate puts the tool in its own process group so cancellation reaches
// any children it spawns.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
