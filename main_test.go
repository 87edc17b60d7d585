// ABOUTME: Tests for the command-line entry point
// ABOUTME: Drives run() with argument lists and checks exit codes and the log file
package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runWith calls run with args as the command line
func runWith(t *testing.T, args ...string) int {
	t.Helper()

	saved := os.Args
	t.Cleanup(func() { os.Args = saved })
	os.Args = append([]string{"termvid"}, args...)
	flag.CommandLine.SetOutput(io.Discard)

	return run()
}

func TestRunUsageError(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "termvid.log")

	tests := []struct {
		name string
		args []string
	}{
		{"no video", []string{"-log-file", logFile}},
		{"two videos", []string{"-log-file", logFile, "a.mp4", "b.mp4"}},
	}

	for _, tt := range tests {
		if code := runWith(t, tt.args...); code != 2 {
			t.Errorf("%s: expected exit code 2, got %d", tt.name, code)
		}
	}
}

func TestRunVersion(t *testing.T) {
	if code := runWith(t, "-version"); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	*showVersion = false
}

func TestRunOpenFailureFlushesLog(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "termvid.log")
	sessions := filepath.Join(dir, "sessions")

	code := runWith(t,
		"-log-file", logFile,
		"-workdir", sessions,
		"-no-tui",
		"-no-audio",
		filepath.Join(dir, "missing.mp4"),
	)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "could not open video file") {
		t.Errorf("expected the open failure in the log, got:\n%s", data)
	}

	entries, err := os.ReadDir(sessions)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected the session directory removed, found %d entries", len(entries))
	}
}
