// ABOUTME: Main player application orchestration
// ABOUTME: Sequences audio extraction, video open, pacing loop and teardown for one session
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Resonate-Protocol/termvid/internal/audio"
	"github.com/Resonate-Protocol/termvid/internal/glyph"
	"github.com/Resonate-Protocol/termvid/internal/player"
	"github.com/Resonate-Protocol/termvid/internal/session"
	"github.com/Resonate-Protocol/termvid/internal/ui"
	"github.com/Resonate-Protocol/termvid/internal/video"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
)

const (
	// DefaultColumns is the render width when none is requested
	DefaultColumns = 80

	// MaxColumns caps the render width
	MaxColumns = 100

	tuiShutdownTimeout = 2 * time.Second
)

// Config holds player configuration
type Config struct {
	VideoPath   string
	Columns     int
	UseTUI      bool
	Audio       bool
	Volume      int
	Monochrome  bool
	WorkdirBase string
}

// frameSource is a player.FrameSource the session owns
type frameSource interface {
	player.FrameSource
	TotalFrames() int
	Close() error
}

// audioHandle is a playing audio track
type audioHandle interface {
	Stop() error
}

// volumeControl adjusts the audio output from the TUI
type volumeControl interface {
	SetVolume(volume int)
	SetMuted(muted bool)
}

// Player runs a single playback session
type Player struct {
	config Config

	openSource   func(path string) (frameSource, error)
	prepareAudio func(ctx context.Context, workdir *session.Workdir, videoPath string) (string, error)
	playAudio    func(artifact string) (audioHandle, error)
	newRenderer  func() player.Renderer
	stdout       io.Writer

	output   *player.Output
	workdir  *session.Workdir
	source   frameSource
	audio    audioHandle
	ansi     *ui.ANSIDisplay
	tuiProg  *tea.Program
	tuiDone  chan struct{}
	controls *ui.Controls

	stats player.Stats

	closeOnce sync.Once
	closeErr  error
}

// New creates a new player
func New(config Config) *Player {
	config.Columns = EffectiveColumns(config.Columns, 0)

	p := &Player{
		config: config,
		output: player.NewOutput(),
		stdout: os.Stdout,
	}
	p.output.SetVolume(config.Volume)

	p.openSource = func(path string) (frameSource, error) {
		return video.Open(path)
	}
	p.prepareAudio = func(ctx context.Context, workdir *session.Workdir, videoPath string) (string, error) {
		return audio.NewExtractor(audio.ExtractorConfig{Workdir: workdir}).Prepare(ctx, videoPath)
	}
	p.playAudio = func(artifact string) (audioHandle, error) {
		return p.output.PlayAsync(artifact)
	}
	p.newRenderer = func() player.Renderer {
		profile := termenv.EnvColorProfile()
		if p.config.Monochrome {
			profile = termenv.Ascii
		}
		return glyph.NewRenderer(profile)
	}

	return p
}

// EffectiveColumns resolves the render width from the requested width and
// the terminal width (0 when unknown)
func EffectiveColumns(requested, terminalWidth int) int {
	cols := requested
	if cols <= 0 {
		cols = DefaultColumns
	}
	if cols > MaxColumns {
		cols = MaxColumns
	}
	if terminalWidth > 0 && terminalWidth < cols {
		cols = terminalWidth
	}
	return cols
}

// Stats returns the pacing statistics of the finished session
func (p *Player) Stats() player.Stats {
	return p.stats
}

// Run plays the video until it ends, ctx is cancelled or playback fails.
// Resources are released before Run returns, on every path.
func (p *Player) Run(ctx context.Context) error {
	defer p.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workdir, err := session.NewWorkdir(p.config.WorkdirBase)
	if err != nil {
		return err
	}
	p.workdir = workdir
	log.Printf("Session %s: %s", workdir.ID(), p.config.VideoPath)

	artifact := p.extractAudio(ctx)
	if ctx.Err() != nil {
		log.Printf("Interrupted before playback started")
		return nil
	}

	log.Printf("Loading video file: %s", p.config.VideoPath)
	source, err := p.openSource(p.config.VideoPath)
	if err != nil {
		return err
	}
	p.source = source

	fps := source.NominalFrameRate()
	log.Printf("Video FPS: %.3f, Target frame delay: %v", fps, player.TargetFrameDelay(fps))

	display, status := p.startDisplay(ctx, cancel, artifact != "")
	p.startAudio(ctx, artifact)

	var sched *player.Scheduler
	sched = player.NewScheduler(player.SchedulerConfig{
		Source:   source,
		Renderer: p.newRenderer(),
		Display:  display,
		Columns:  p.config.Columns,
		OnFrame: func(fs player.FrameStatus) {
			if status != nil {
				status(fs, sched.Stats())
			}
		},
	})

	stats, err := sched.Run(ctx)
	p.stats = stats
	if err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}

	if stats.Exit == player.StateInterrupted {
		log.Printf("Video playback interrupted by user.")
	}
	return nil
}

// extractAudio prepares the audio artifact. Failures only cost the audio.
func (p *Player) extractAudio(ctx context.Context) string {
	if !p.config.Audio {
		return ""
	}

	artifact, err := p.prepareAudio(ctx, p.workdir, p.config.VideoPath)
	switch {
	case errors.Is(err, audio.ErrNoAudio):
		log.Printf("No audio track found in the video file.")
		return ""
	case err != nil:
		log.Printf("Audio extraction failed, continuing without audio: %v", err)
		return ""
	}
	return artifact
}

// startAudio begins background playback. Failures only cost the audio.
func (p *Player) startAudio(ctx context.Context, artifact string) {
	if artifact == "" {
		return
	}

	handle, err := p.playAudio(artifact)
	if err != nil {
		log.Printf("Audio playback error: %v", err)
		return
	}
	p.audio = handle

	if p.controls != nil {
		go handleVolumeControl(ctx, p.output, p.controls)
	}
}

// startDisplay picks the TUI or a plain ANSI display. The returned status
// callback is nil when there is nowhere to show status.
func (p *Player) startDisplay(ctx context.Context, cancel context.CancelFunc, hasAudio bool) (player.Display, func(player.FrameStatus, player.Stats)) {
	if !p.config.UseTUI {
		p.ansi = ui.NewANSIDisplay(p.stdout)
		return p.ansi, nil
	}

	title := filepath.Base(p.config.VideoPath)
	p.controls = ui.NewControls()
	p.tuiProg = ui.Run(p.controls, title, p.output.GetVolume())
	p.tuiDone = make(chan struct{})

	go func() {
		defer close(p.tuiDone)
		if _, err := p.tuiProg.Run(); err != nil {
			log.Printf("TUI error: %v", err)
		}
	}()

	go func() {
		select {
		case <-p.controls.Quit:
			log.Printf("Received quit signal from TUI")
			cancel()
		case <-ctx.Done():
		}
	}()

	display := ui.NewProgramDisplay(p.tuiProg)
	display.Status(ui.StatusMsg{
		Title:       title,
		FPS:         p.source.NominalFrameRate(),
		TotalFrames: p.source.TotalFrames(),
		HasAudio:    &hasAudio,
	})

	status := func(fs player.FrameStatus, stats player.Stats) {
		display.Status(ui.StatusMsg{
			Index:     fs.Index,
			FrameTime: fs.FrameTime,
			Slack:     fs.Slack,
			Quality:   fs.Quality,
			Displayed: stats.Displayed,
			Skipped:   stats.CatchUpSkipped,
			Failures:  stats.RenderFailures,
		})
	}

	return display, status
}

// handleVolumeControl applies volume changes from the TUI
func handleVolumeControl(ctx context.Context, out volumeControl, controls *ui.Controls) {
	for {
		select {
		case vol := <-controls.Changes:
			log.Printf("Volume change: %d%%, muted=%v", vol.Volume, vol.Muted)
			out.SetVolume(vol.Volume)
			out.SetMuted(vol.Muted)
		case <-controls.Quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close releases every session resource exactly once
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		var errs []error

		if p.audio != nil {
			errs = append(errs, p.audio.Stop())
		}
		if p.source != nil {
			errs = append(errs, p.source.Close())
		}
		if p.ansi != nil {
			errs = append(errs, p.ansi.Close())
		}
		if p.tuiProg != nil {
			p.tuiProg.Quit()
			select {
			case <-p.tuiDone:
			case <-time.After(tuiShutdownTimeout):
				log.Printf("TUI did not stop within %v", tuiShutdownTimeout)
			}
		}
		if p.output != nil {
			errs = append(errs, p.output.Close())
		}
		if p.workdir != nil {
			errs = append(errs, p.workdir.Close())
		}

		p.closeErr = errors.Join(errs...)
		if p.closeErr != nil {
			log.Printf("Error during teardown: %v", p.closeErr)
		}
	})
	return p.closeErr
}
