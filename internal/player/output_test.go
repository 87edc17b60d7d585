// ABOUTME: Tests for audio output
// ABOUTME: Tests volume control without opening an audio device
package player

import (
	"testing"
)

func TestVolumeMultiplier(t *testing.T) {
	tests := []struct {
		volume   int
		muted    bool
		expected float64
	}{
		{100, false, 1.0},
		{50, false, 0.5},
		{0, false, 0.0},
		{80, true, 0.0}, // Muted overrides volume
	}

	for _, tt := range tests {
		result := getVolumeMultiplier(tt.volume, tt.muted)
		if result != tt.expected {
			t.Errorf("volume=%d, muted=%v: expected %f, got %f",
				tt.volume, tt.muted, tt.expected, result)
		}
	}
}

func TestSetVolumeClamps(t *testing.T) {
	out := NewOutput()

	out.SetVolume(150)
	if out.GetVolume() != 100 {
		t.Errorf("expected 100, got %d", out.GetVolume())
	}

	out.SetVolume(-5)
	if out.GetVolume() != 0 {
		t.Errorf("expected 0, got %d", out.GetVolume())
	}
}

func TestPlayAsyncRejectsUnsupportedArtifact(t *testing.T) {
	out := NewOutput()

	if _, err := out.PlayAsync("clip_audio.ogg"); err == nil {
		t.Error("expected error for unsupported artifact")
	}

	// No device was opened, so closing is a no-op
	if err := out.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestMuteIsTracked(t *testing.T) {
	out := NewOutput()
	out.SetVolume(40)

	out.SetMuted(true)
	if !out.muted {
		t.Error("expected muted")
	}
	if out.GetVolume() != 40 {
		t.Errorf("mute must keep the volume, got %d", out.GetVolume())
	}

	out.SetMuted(false)
	if out.muted {
		t.Error("expected unmuted")
	}
}
