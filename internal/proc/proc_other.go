//go:build !unix

// ABOUTME: Subprocess attributes for ffmpeg children
// ABOUTME: No process groups outside Unix, so children are left as started
package proc

import "os/exec"

// Detach is a no-op where Unix process groups do not exist
func Detach(cmd *exec.Cmd) {}
