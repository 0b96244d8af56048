//go:build unix

package transform

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// isolateProcessGroup starts cmd in its own process group and makes context
// cancellation kill the whole group, so helpers ffmpeg spawns die with it.
func isolateProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}
