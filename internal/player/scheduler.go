// ABOUTME: Real-time frame pacing scheduler
// ABOUTME: Displays frames on a wall-clock schedule and skips frames to recover from lag
package player

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math"
	"time"

	internalsync "github.com/Resonate-Protocol/termvid/internal/sync"
)

const (
	// DefaultFrameRate is used when the source cannot report a usable rate
	DefaultFrameRate = 30.0

	// MaxCatchUpSkips bounds the frames discarded per catch-up event
	MaxCatchUpSkips = 3
)

// FrameSource supplies decoded frames in presentation order.
// NextFrame returns io.EOF at end of stream.
type FrameSource interface {
	NominalFrameRate() float64
	NextFrame() (image.Image, error)
}

// Renderer converts a frame into terminal text at a bounded column width
type Renderer interface {
	Render(frame image.Image, maxColumns int) (string, error)
}

// Display puts rendered text on screen
type Display interface {
	Show(text string) error
}

// State is the scheduler lifecycle state
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateInterrupted
	StateFaulted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateInterrupted:
		return "interrupted"
	case StateFaulted:
		return "faulted"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Outcome is the result of presenting one frame
type Outcome int

const (
	OutcomeDisplayed Outcome = iota
	OutcomeSkipped
)

func (o Outcome) String() string {
	if o == OutcomeDisplayed {
		return "displayed"
	}
	return "skipped"
}

// FrameStatus describes one loop iteration
type FrameStatus struct {
	Index     int64         // frames consumed including this one
	Outcome   Outcome       // whether the frame reached the screen
	Reason    error         // why the frame was skipped, if it was
	FrameTime time.Duration // read + render + display cost
	Slack     time.Duration // time until the next frame is due, negative when behind
	Quality   internalsync.Quality
	Skipped   int // frames discarded by the catch-up that followed
}

// Stats summarises a run
type Stats struct {
	Consumed       int64 // frames read from the source, shown or not
	Displayed      int64
	RenderFailures int64
	CatchUpSkipped int64
	CatchUpEvents  int64
	MaxLag         time.Duration
	Elapsed        time.Duration
	Exit           State // terminal state reached before stopping
}

// SchedulerConfig holds the collaborators for one playback session
type SchedulerConfig struct {
	Source   FrameSource
	Renderer Renderer
	Display  Display
	Columns  int

	// Clock defaults to the system clock
	Clock internalsync.Clock

	// OnFrame, if set, is called after every iteration. It has no
	// influence on timing.
	OnFrame func(FrameStatus)
}

// Scheduler paces frames against a wall-clock anchor
type Scheduler struct {
	config   SchedulerConfig
	clock    internalsync.Clock
	playback *internalsync.PlaybackClock
	state    State

	stats Stats
}

// NewScheduler creates a frame pacing scheduler
func NewScheduler(config SchedulerConfig) *Scheduler {
	clock := config.Clock
	if clock == nil {
		clock = internalsync.SystemClock()
	}

	return &Scheduler{
		config: config,
		clock:  clock,
		state:  StateIdle,
	}
}

// TargetFrameDelay returns the nominal delay between frames for fps,
// falling back to DefaultFrameRate when fps is not a positive finite number.
func TargetFrameDelay(fps float64) time.Duration {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = DefaultFrameRate
	}
	return time.Duration(float64(time.Second) / fps)
}

// State returns the current lifecycle state
func (s *Scheduler) State() State {
	return s.state
}

// Stats returns the counters accumulated so far
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// Run drives the playback loop until the source is exhausted, ctx is
// cancelled or an unrecoverable error occurs. End of stream and
// cancellation return a nil error.
func (s *Scheduler) Run(ctx context.Context) (Stats, error) {
	if s.state != StateIdle {
		return s.stats, fmt.Errorf("scheduler already used (state %s)", s.state)
	}

	fps := s.config.Source.NominalFrameRate()
	delay := TargetFrameDelay(fps)
	s.playback = internalsync.NewPlaybackClock(s.clock.Now(), delay)
	s.state = StateRunning

	log.Printf("Pacing started: source fps=%.3f, target frame delay=%v, columns=%d",
		fps, delay, s.config.Columns)

	err := s.loop(ctx)

	s.stats.Exit = s.state
	s.stats.Elapsed = s.playback.Elapsed(s.clock.Now())
	s.state = StateStopped

	log.Printf("Pacing stopped (%s): consumed=%d displayed=%d failed=%d skipped=%d in %d catch-ups, max lag %v, elapsed %v",
		s.stats.Exit, s.stats.Consumed, s.stats.Displayed, s.stats.RenderFailures,
		s.stats.CatchUpSkipped, s.stats.CatchUpEvents, s.stats.MaxLag, s.stats.Elapsed)

	return s.stats, err
}

func (s *Scheduler) loop(ctx context.Context) error {
	delay := s.playback.FrameDelay()

	for {
		if ctx.Err() != nil {
			s.state = StateInterrupted
			return nil
		}

		frameStart := s.clock.Now()

		frame, err := s.config.Source.NextFrame()
		if errors.Is(err, io.EOF) {
			s.state = StateDraining
			return nil
		}
		if err != nil {
			s.state = StateFaulted
			return fmt.Errorf("failed to read frame %d: %w", s.stats.Consumed+1, err)
		}

		status, err := s.present(frame)
		if err != nil {
			s.state = StateFaulted
			return err
		}

		s.stats.Consumed++
		status.Index = s.stats.Consumed

		now := s.clock.Now()
		slack := s.playback.Slack(s.stats.Consumed, now)
		status.FrameTime = now.Sub(frameStart)
		status.Slack = slack
		status.Quality = s.playback.QualityFor(slack)
		if -slack > s.stats.MaxLag {
			s.stats.MaxLag = -slack
		}

		if s.stats.Consumed <= 3 {
			log.Printf("Frame #%d %s: frame time=%v, slack=%v",
				status.Index, status.Outcome, status.FrameTime, slack)
		}

		if ctx.Err() != nil {
			s.report(status)
			s.state = StateInterrupted
			return nil
		}

		switch {
		case slack > 0:
			s.report(status)
			if err := s.clock.Sleep(ctx, slack); err != nil {
				if ctx.Err() != nil {
					s.state = StateInterrupted
					return nil
				}
				s.state = StateFaulted
				return fmt.Errorf("pacing sleep failed: %w", err)
			}
		case slack < -delay:
			skipped, err := s.catchUp(slack, delay)
			status.Skipped = skipped
			s.report(status)
			if err != nil {
				s.state = StateFaulted
				return err
			}
		default:
			s.report(status)
		}
	}
}

// present renders and displays one frame. Render failures are absorbed
// and reported through the returned status; display failures are fatal.
func (s *Scheduler) present(frame image.Image) (FrameStatus, error) {
	text, err := s.config.Renderer.Render(frame, s.config.Columns)
	if err != nil {
		s.stats.RenderFailures++
		log.Printf("Failed to render frame %d: %v. Skipping frame.", s.stats.Consumed+1, err)
		return FrameStatus{Outcome: OutcomeSkipped, Reason: err}, nil
	}

	if err := s.config.Display.Show(text); err != nil {
		return FrameStatus{}, fmt.Errorf("failed to display frame %d: %w", s.stats.Consumed+1, err)
	}

	s.stats.Displayed++
	return FrameStatus{Outcome: OutcomeDisplayed}, nil
}

// catchUp discards up to MaxCatchUpSkips frames without rendering them.
// It stops early at end of stream and leaves detection of EOF to the next
// loop iteration.
func (s *Scheduler) catchUp(slack, delay time.Duration) (int, error) {
	behind := int(-slack / delay)
	if behind > MaxCatchUpSkips {
		behind = MaxCatchUpSkips
	}

	s.stats.CatchUpEvents++

	skipped := 0
	for i := 0; i < behind; i++ {
		_, err := s.config.Source.NextFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return skipped, fmt.Errorf("failed to skip frame %d: %w", s.stats.Consumed+1, err)
		}
		s.stats.Consumed++
		s.stats.CatchUpSkipped++
		skipped++
	}

	log.Printf("Behind schedule by %v at frame %d: skipped %d frame(s)",
		-slack, s.stats.Consumed-int64(skipped), skipped)

	return skipped, nil
}

func (s *Scheduler) report(status FrameStatus) {
	if s.config.OnFrame != nil {
		s.config.OnFrame(status)
	}
}
