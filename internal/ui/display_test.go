// ABOUTME: Tests for the ANSI frame display
// ABOUTME: Verifies cursor control sequences around written frames
package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestANSIDisplayClearsOnce(t *testing.T) {
	var out bytes.Buffer
	d := NewANSIDisplay(&out)

	if err := d.Show("first\n"); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	first := out.String()

	if !strings.Contains(first, "\x1b[2J") {
		t.Errorf("expected screen clear before first frame, got %q", first)
	}
	if !strings.Contains(first, "\x1b[1;1Hfirst\n") {
		t.Errorf("expected cursor home before frame, got %q", first)
	}

	out.Reset()
	if err := d.Show("second\n"); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	second := out.String()

	if strings.Contains(second, "\x1b[2J") {
		t.Errorf("expected no clear on later frames, got %q", second)
	}
	if second != "\x1b[1;1Hsecond\n" {
		t.Errorf("unexpected output %q", second)
	}
}

func TestANSIDisplayCloseRestoresCursor(t *testing.T) {
	var out bytes.Buffer
	d := NewANSIDisplay(&out)

	if err := d.Show("frame\n"); err != nil {
		t.Fatal(err)
	}
	out.Reset()

	if err := d.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !strings.Contains(out.String(), "\x1b[?25h") {
		t.Errorf("expected show-cursor sequence, got %q", out.String())
	}

	out.Reset()
	d.Close()
	if out.Len() != 0 {
		t.Errorf("expected second close to write nothing, got %q", out.String())
	}
}

func TestANSIDisplayCloseWithoutFrames(t *testing.T) {
	var out bytes.Buffer
	d := NewANSIDisplay(&out)

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("expected nothing written, got %q", out.String())
	}
}
