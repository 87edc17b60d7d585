// ABOUTME: Tests for audio extraction strategies
// ABOUTME: Uses a fake command runner to exercise fallback ordering and artifact checks
package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/termvid/internal/session"
)

func newTestWorkdir(t *testing.T) *session.Workdir {
	t.Helper()
	w, err := session.NewWorkdir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func alwaysAudio(ctx context.Context, path string) (bool, error) { return true, nil }

// fakeRunner writes content to the output path (last arg) for strategies
// named in produce, and fails the rest
type fakeRunner struct {
	produce map[string][]byte // by extension
	calls   []string
}

func (r *fakeRunner) run(ctx context.Context, name string, args ...string) error {
	out := args[len(args)-1]
	ext := filepath.Ext(out)
	r.calls = append(r.calls, ext)

	if _, err := os.Stat(out); err == nil {
		return errors.New("stale artifact was not removed")
	}

	content, ok := r.produce[ext]
	if !ok {
		return errors.New("encoder not available")
	}
	return os.WriteFile(out, content, 0o644)
}

func TestPrepareUsesFirstStrategy(t *testing.T) {
	w := newTestWorkdir(t)
	dir := w.Path()
	runner := &fakeRunner{produce: map[string][]byte{".mp3": []byte("ID3")}}

	ex := NewExtractor(ExtractorConfig{Workdir: w, Runner: runner.run, HasAudio: alwaysAudio})

	artifact, err := ex.Prepare(context.Background(), "/videos/peak.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := filepath.Join(dir, "peak_audio.mp3")
	if artifact != expected {
		t.Errorf("expected %s, got %s", expected, artifact)
	}
	if len(runner.calls) != 1 {
		t.Errorf("expected 1 extraction attempt, got %d", len(runner.calls))
	}
}

func TestPrepareFallsBackInOrder(t *testing.T) {
	w := newTestWorkdir(t)
	dir := w.Path()
	runner := &fakeRunner{produce: map[string][]byte{".wav": []byte("RIFF")}}

	ex := NewExtractor(ExtractorConfig{Workdir: w, Runner: runner.run, HasAudio: alwaysAudio})

	artifact, err := ex.Prepare(context.Background(), "clip.mkv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if artifact != filepath.Join(dir, "clip_audio.wav") {
		t.Errorf("expected wav artifact in the session directory, got %s", artifact)
	}

	expectedCalls := []string{".mp3", ".flac", ".wav"}
	if strings.Join(runner.calls, ",") != strings.Join(expectedCalls, ",") {
		t.Errorf("expected attempts %v, got %v", expectedCalls, runner.calls)
	}
}

func TestPrepareRejectsEmptyArtifact(t *testing.T) {
	w := newTestWorkdir(t)
	dir := w.Path()
	runner := &fakeRunner{produce: map[string][]byte{
		".mp3":  {},
		".flac": []byte("fLaC"),
	}}

	ex := NewExtractor(ExtractorConfig{Workdir: w, Runner: runner.run, HasAudio: alwaysAudio})

	artifact, err := ex.Prepare(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Ext(artifact) != ".flac" {
		t.Errorf("expected flac fallback after empty mp3, got %s", artifact)
	}
	if _, err := os.Stat(filepath.Join(dir, "clip_audio.mp3")); !os.IsNotExist(err) {
		t.Error("expected the empty mp3 artifact to be removed")
	}
}

func TestPrepareAllStrategiesFail(t *testing.T) {
	runner := &fakeRunner{}
	ex := NewExtractor(ExtractorConfig{Workdir: newTestWorkdir(t), Runner: runner.run, HasAudio: alwaysAudio})

	artifact, err := ex.Prepare(context.Background(), "clip.mp4")
	if !errors.Is(err, ErrAllStrategiesFailed) {
		t.Fatalf("expected ErrAllStrategiesFailed, got %v", err)
	}
	if artifact != "" {
		t.Errorf("expected no artifact, got %s", artifact)
	}
	if len(runner.calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(runner.calls))
	}
}

func TestPrepareNoAudioTrack(t *testing.T) {
	runner := &fakeRunner{}
	ex := NewExtractor(ExtractorConfig{
		Workdir: newTestWorkdir(t),
		Runner:  runner.run,
		HasAudio: func(ctx context.Context, path string) (bool, error) {
			return false, nil
		},
	})

	_, err := ex.Prepare(context.Background(), "silent.mp4")
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("expected no extraction attempts, got %d", len(runner.calls))
	}
}

func TestPrepareProbeFailureStillExtracts(t *testing.T) {
	runner := &fakeRunner{produce: map[string][]byte{".mp3": []byte("ID3")}}
	ex := NewExtractor(ExtractorConfig{
		Workdir: newTestWorkdir(t),
		Runner:  runner.run,
		HasAudio: func(ctx context.Context, path string) (bool, error) {
			return false, errors.New("ffprobe missing")
		},
	})

	if _, err := ex.Prepare(context.Background(), "clip.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPrepareRemovesStaleArtifact(t *testing.T) {
	w := newTestWorkdir(t)
	dir := w.Path()
	stale := filepath.Join(dir, "clip_audio.mp3")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{produce: map[string][]byte{".mp3": []byte("new")}}
	ex := NewExtractor(ExtractorConfig{Workdir: w, Runner: runner.run, HasAudio: alwaysAudio})

	if _, err := ex.Prepare(context.Background(), "clip.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(stale)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("expected fresh artifact, got %q", data)
	}
}

func TestPrepareCancelled(t *testing.T) {
	runner := &fakeRunner{}
	ex := NewExtractor(ExtractorConfig{Workdir: newTestWorkdir(t), Runner: runner.run, HasAudio: alwaysAudio})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ex.Prepare(ctx, "clip.mp4"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDefaultStrategiesOrder(t *testing.T) {
	strategies := DefaultStrategies()
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Name
	}

	if strings.Join(names, ",") != "mp3,flac,wav" {
		t.Errorf("unexpected strategy order %v", names)
	}
}
