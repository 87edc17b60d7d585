// ABOUTME: Video frame source backed by an ffmpeg rawvideo pipe
// ABOUTME: Probes stream metadata with Vidio and reads RGBA frames in presentation order
package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"

	vidio "github.com/AlexEidt/Vidio"
	"github.com/Resonate-Protocol/termvid/internal/proc"
)

var (
	// ErrOpen wraps every failure to open a video for reading
	ErrOpen = errors.New("could not open video file")

	// ErrClosed is returned when reading from a closed source
	ErrClosed = errors.New("video source closed")
)

// Info is the stream metadata known before decoding starts
type Info struct {
	Width    int
	Height   int
	FPS      float64
	Frames   int
	Duration float64 // seconds
	Codec    string
}

// Config holds decoder settings
type Config struct {
	// FFmpeg is the decoder binary. Defaults to ffmpeg from PATH.
	FFmpeg string

	// Probe reads stream metadata. Defaults to Vidio's ffprobe query.
	Probe func(path string) (Info, error)
}

// Source decodes a video file frame by frame
type Source struct {
	path  string
	info  Info
	frame *image.RGBA

	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	stderr bytes.Buffer
	cancel context.CancelFunc

	waitOnce  sync.Once
	waitErr   error
	closeOnce sync.Once
	closed    bool
}

// Open starts decoding the video at path with the default config
func Open(path string) (*Source, error) {
	return OpenWith(path, Config{})
}

// OpenWith starts decoding the video at path. The decoder runs in its own
// process group and stops only when the source is closed.
func OpenWith(path string, config Config) (*Source, error) {
	if config.Probe == nil {
		config.Probe = probe
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}

	info, err := config.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("%w %s: no video stream", ErrOpen, path)
	}

	ffmpeg := config.FFmpeg
	if ffmpeg == "" {
		if ffmpeg, err = exec.LookPath("ffmpeg"); err != nil {
			return nil, fmt.Errorf("%w %s: ffmpeg not found in PATH: %w", ErrOpen, path, err)
		}
	}

	s := &Source{
		path:  path,
		info:  info,
		frame: image.NewRGBA(image.Rect(0, 0, info.Width, info.Height)),
	}
	if err := s.startDecode(ffmpeg); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}

	log.Printf("Loaded video: %s (%dx%d, codec %s, %.3f fps, %d frames, %.1fs)",
		path, info.Width, info.Height, info.Codec, info.FPS, info.Frames, info.Duration)

	return s, nil
}

// startDecode launches ffmpeg writing packed RGBA frames to stdout
func (s *Source) startDecode(ffmpeg string) error {
	ctx, cancel := context.WithCancel(context.Background())

	cmd := exec.CommandContext(ctx, ffmpeg,
		"-loglevel", "error",
		"-nostdin",
		"-i", s.path,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)
	cmd.Stderr = &s.stderr
	proc.Detach(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("starting ffmpeg video decode: %w", err)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.reader = bufio.NewReaderSize(stdout, len(s.frame.Pix))
	s.cancel = cancel
	return nil
}

// NominalFrameRate returns the container's reported frame rate, which may be zero
func (s *Source) NominalFrameRate() float64 {
	return s.info.FPS
}

// TotalFrames returns the reported frame count, which may be zero when unknown
func (s *Source) TotalFrames() int {
	return s.info.Frames
}

// NextFrame decodes the next frame. The returned image is reused by the
// following call. It returns io.EOF at end of stream.
func (s *Source) NextFrame() (image.Image, error) {
	if s.closed {
		return nil, ErrClosed
	}

	if _, err := io.ReadFull(s.reader, s.frame.Pix); err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}
		if werr := s.wait(); werr != nil {
			return nil, fmt.Errorf("decoder failed: %w", werr)
		}
		return nil, io.EOF
	}
	return s.frame, nil
}

// wait reaps the decoder once and reports a failed exit with its stderr
func (s *Source) wait() error {
	s.waitOnce.Do(func() {
		if err := s.cmd.Wait(); err != nil {
			if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
				s.waitErr = fmt.Errorf("ffmpeg: %w: %s", err, msg)
			} else {
				s.waitErr = fmt.Errorf("ffmpeg: %w", err)
			}
		}
	})
	return s.waitErr
}

// Close stops the decoder. Safe to call more than once.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true
		s.cancel()
		s.stdout.Close()
		// The kill shows up as a wait error; it is expected here
		_ = s.wait()
		log.Printf("Video closed: %s", s.path)
	})
	return nil
}

// probe reads metadata through Vidio. Only ffprobe runs here; Vidio's own
// decoder is never started.
func probe(path string) (Info, error) {
	v, err := vidio.NewVideo(path)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Width:    v.Width(),
		Height:   v.Height(),
		FPS:      v.FPS(),
		Frames:   v.Frames(),
		Duration: v.Duration(),
		Codec:    v.Codec(),
	}, nil
}
