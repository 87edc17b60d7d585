//go:build unix

// ABOUTME: Subprocess attributes for ffmpeg children
// ABOUTME: Puts children in their own process group so terminal signals reach only the player
package proc

import (
	"os/exec"
	"syscall"
)

// Detach starts cmd in a new process group. A Ctrl+C at the terminal then
// reaches the player alone, which stops its children through their contexts.
func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
