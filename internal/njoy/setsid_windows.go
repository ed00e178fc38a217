//go:build windows

package njoy

import (
	"os"
	"syscall"
)

// sessionAttr returns an empty SysProcAttr on Windows where Setsid is not
// available.
func sessionAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}

// killGroup falls back to killing the direct process on Windows.
func killGroup(p *os.Process) error {
	return p.Kill()
}
