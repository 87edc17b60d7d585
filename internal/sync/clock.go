// ABOUTME: Wall-clock anchor for real-time frame pacing
// ABOUTME: Derives per-frame target instants and schedule quality from a fixed frame delay
package sync

import (
	"context"
	"time"
)

// Clock abstracts time for the pacing loop
type Clock interface {
	// Now returns the current monotonic time
	Now() time.Time
	// Sleep suspends for d, returning early with ctx.Err() if ctx is cancelled
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock returns a Clock backed by the time package
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Quality classifies how far playback is from its schedule
type Quality int

const (
	QualityGood     Quality = iota // on or ahead of schedule
	QualityDegraded                // behind, but within one frame
	QualityLost                    // more than one frame behind
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "on time"
	case QualityDegraded:
		return "late"
	case QualityLost:
		return "behind"
	default:
		return "unknown"
	}
}

// PlaybackClock anchors a session's frame schedule.
// The anchor is captured once and never reset.
type PlaybackClock struct {
	start time.Time
	delay time.Duration
}

// NewPlaybackClock creates a clock anchored at start with a fixed frame delay
func NewPlaybackClock(start time.Time, delay time.Duration) *PlaybackClock {
	return &PlaybackClock{
		start: start,
		delay: delay,
	}
}

// Start returns the anchor instant
func (c *PlaybackClock) Start() time.Time {
	return c.start
}

// FrameDelay returns the nominal time between frames
func (c *PlaybackClock) FrameDelay() time.Duration {
	return c.delay
}

// TargetInstant returns when frame index n should be on screen
func (c *PlaybackClock) TargetInstant(n int64) time.Time {
	return c.start.Add(time.Duration(n) * c.delay)
}

// Slack returns the time remaining until frame n is due.
// Negative slack means playback is behind schedule.
func (c *PlaybackClock) Slack(n int64, now time.Time) time.Duration {
	return c.TargetInstant(n).Sub(now)
}

// Elapsed returns the wall time since the anchor
func (c *PlaybackClock) Elapsed(now time.Time) time.Duration {
	return now.Sub(c.start)
}

// QualityFor classifies slack against the one-frame drift budget
func (c *PlaybackClock) QualityFor(slack time.Duration) Quality {
	switch {
	case slack >= 0:
		return QualityGood
	case slack >= -c.delay:
		return QualityDegraded
	default:
		return QualityLost
	}
}
