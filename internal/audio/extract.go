// ABOUTME: Audio track extraction via ffmpeg
// ABOUTME: Tries an ordered list of output formats and verifies the produced artifact
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/termvid/internal/proc"
)

var (
	// ErrNoAudio means the video has no audio track
	ErrNoAudio = errors.New("no audio track found")

	// ErrAllStrategiesFailed means every extraction format was tried and failed
	ErrAllStrategiesFailed = errors.New("all audio extraction strategies failed")
)

// Strategy is one way of extracting the audio track
type Strategy struct {
	Name string
	Ext  string
	Args []string // ffmpeg output options placed between input and output path
}

// DefaultStrategies lists extraction formats in order of preference
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "mp3", Ext: ".mp3", Args: []string{"-vn", "-acodec", "libmp3lame", "-b:a", "128k"}},
		{Name: "flac", Ext: ".flac", Args: []string{"-vn", "-acodec", "flac"}},
		{Name: "wav", Ext: ".wav", Args: []string{"-vn", "-acodec", "pcm_s16le"}},
	}
}

// CommandRunner runs an external command to completion
type CommandRunner func(ctx context.Context, name string, args ...string) error

// ArtifactDir names files inside the session's working directory
type ArtifactDir interface {
	Artifact(name string) string
}

// ExtractorConfig holds extraction settings
type ExtractorConfig struct {
	// Workdir receives the extracted artifact
	Workdir ArtifactDir

	// Strategies defaults to DefaultStrategies
	Strategies []Strategy

	// Runner defaults to running the command with os/exec
	Runner CommandRunner

	// HasAudio reports whether the video carries an audio track.
	// Defaults to an ffprobe query.
	HasAudio func(ctx context.Context, videoPath string) (bool, error)
}

// Extractor pulls a video's audio track into a playable artifact
type Extractor struct {
	config ExtractorConfig
}

// NewExtractor creates an extractor, filling unset config with defaults
func NewExtractor(config ExtractorConfig) *Extractor {
	if len(config.Strategies) == 0 {
		config.Strategies = DefaultStrategies()
	}
	if config.Runner == nil {
		config.Runner = runCommand
	}
	if config.HasAudio == nil {
		config.HasAudio = probeAudio
	}
	return &Extractor{config: config}
}

// Prepare extracts the audio track of videoPath and returns the artifact
// path. It returns ErrNoAudio when the video is silent and
// ErrAllStrategiesFailed when nothing usable could be produced.
func (e *Extractor) Prepare(ctx context.Context, videoPath string) (string, error) {
	hasAudio, err := e.config.HasAudio(ctx, videoPath)
	if err != nil {
		// Let the strategies find out for themselves
		log.Printf("Could not probe for audio track, attempting extraction anyway: %v", err)
	} else if !hasAudio {
		return "", ErrNoAudio
	}

	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))

	var errs []error
	for _, strategy := range e.config.Strategies {
		artifact := e.config.Workdir.Artifact(base + "_audio" + strategy.Ext)

		if err := ctx.Err(); err != nil {
			return "", err
		}

		log.Printf("Extracting audio (%s) to: %s", strategy.Name, artifact)
		if err := e.extract(ctx, videoPath, artifact, strategy); err != nil {
			log.Printf("%s extraction failed: %v", strategy.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", strategy.Name, err))
			os.Remove(artifact)
			continue
		}

		log.Printf("Audio extracted successfully: %s", artifact)
		return artifact, nil
	}

	return "", fmt.Errorf("%w: %w", ErrAllStrategiesFailed, errors.Join(errs...))
}

func (e *Extractor) extract(ctx context.Context, videoPath, artifact string, strategy Strategy) error {
	// ffmpeg refuses to overwrite without -y and stale output would hide failures
	if err := os.Remove(artifact); err == nil {
		log.Printf("Removed existing audio file: %s", artifact)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale artifact: %w", err)
	}

	args := []string{"-loglevel", "error", "-nostdin", "-i", videoPath}
	args = append(args, strategy.Args...)
	args = append(args, artifact)

	if err := e.config.Runner(ctx, "ffmpeg", args...); err != nil {
		return err
	}

	return verifyArtifact(artifact)
}

// verifyArtifact checks the file exists, is non-empty and can be read
func verifyArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("audio file was not created: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("audio file is empty (0 bytes)")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("audio file not accessible: %w", err)
	}
	defer f.Close()

	var b [1]byte
	if _, err := io.ReadFull(f, b[:]); err != nil {
		return fmt.Errorf("audio file not readable: %w", err)
	}

	log.Printf("Audio file verified: %s (%d bytes)", path, info.Size())
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", name, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	proc.Detach(cmd)

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// probeAudio asks ffprobe for the first audio stream of the file
func probeAudio(ctx context.Context, videoPath string) (bool, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return false, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		videoPath)
	proc.Detach(cmd)

	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("ffprobe failed: %w", err)
	}

	return strings.Contains(string(out), "audio"), nil
}
