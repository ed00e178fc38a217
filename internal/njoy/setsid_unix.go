//go:build !windows

package njoy

import (
	"os"
	"syscall"
)

// sessionAttr returns SysProcAttr that places NJOY in its own session, so
// a cancelled batch cannot leave it attached to the driver's terminal.
func sessionAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// killGroup terminates the whole process group so cancellation cannot
// orphan children NJOY may have spawned.
func killGroup(p *os.Process) error {
	return syscall.Kill(-p.Pid, syscall.SIGKILL)
}
