//go:build unix

// ABOUTME: Tests for subprocess attributes
// ABOUTME: Verifies detached children lead their own process group
package proc

import (
	"os/exec"
	"syscall"
	"testing"
)

func TestDetachStartsNewProcessGroup(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	Detach(cmd)

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start command: %v", err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		t.Fatalf("failed to read process group: %v", err)
	}
	if pgid != cmd.Process.Pid {
		t.Errorf("expected pgid %d to equal pid %d", pgid, cmd.Process.Pid)
	}
	if pgid == syscall.Getpgrp() {
		t.Error("child must not share the test's process group")
	}
}
