// ABOUTME: Fire-and-forget audio playback using oto
// ABOUTME: Plays a decoded artifact in the background with software volume
package player

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/termvid/internal/audio"
	"github.com/ebitengine/oto/v3"
)

// Output owns the process audio device.
// oto allows a single context per process, so one Output serves the session.
type Output struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	sampleRate int
	channels   int
	volume     int
	muted      bool
	active     *oto.Player
}

// NewOutput creates an audio output at full volume
func NewOutput() *Output {
	return &Output{
		volume: 100,
	}
}

// AudioHandle is a token for a playing track. It exposes no position or
// progress: video pacing never consults it.
type AudioHandle struct {
	output *Output
	player *oto.Player
	stream *audio.Stream
	once   sync.Once
	err    error
}

// PlayAsync decodes the artifact and starts playback without blocking
func (o *Output) PlayAsync(artifact string) (*AudioHandle, error) {
	stream, err := audio.OpenStream(artifact)
	if err != nil {
		return nil, err
	}

	if err := o.open(stream.Format); err != nil {
		stream.Close()
		return nil, err
	}

	o.mu.Lock()
	player := o.otoCtx.NewPlayer(stream)
	player.SetVolume(getVolumeMultiplier(o.volume, o.muted))
	o.active = player
	o.mu.Unlock()

	player.Play()
	log.Printf("Audio playback started: %s (%s)", artifact, stream.Format)

	return &AudioHandle{output: o, player: player, stream: stream}, nil
}

// open initializes oto for the stream's format
func (o *Output) open(format audio.Format) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if o.sampleRate == format.SampleRate && o.channels == format.Channels {
			return nil
		}
		// oto cannot be reinitialized within a process
		return fmt.Errorf("audio output already open at %dHz %dch, cannot switch to %dHz %dch",
			o.sampleRate, o.channels, format.SampleRate, format.Channels)
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = format.SampleRate
	o.channels = format.Channels

	log.Printf("Audio output initialized: %dHz, %d channels", format.SampleRate, format.Channels)
	return nil
}

// SetVolume sets the volume (0-100) of the playing track and of later ones
func (o *Output) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	o.mu.Lock()
	o.volume = volume
	o.applyLocked()
	o.mu.Unlock()
	log.Printf("Volume set to %d", volume)
}

// SetMuted sets mute state
func (o *Output) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.applyLocked()
	o.mu.Unlock()
	log.Printf("Muted: %v", muted)
}

func (o *Output) applyLocked() {
	if o.active != nil {
		o.active.SetVolume(getVolumeMultiplier(o.volume, o.muted))
	}
}

// release forgets p if it is the active track
func (o *Output) release(p *oto.Player) {
	o.mu.Lock()
	if o.active == p {
		o.active = nil
	}
	o.mu.Unlock()
}

// GetVolume returns current volume
func (o *Output) GetVolume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// Close suspends the audio device
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx == nil {
		return nil
	}
	return o.otoCtx.Suspend()
}

// Stop halts playback and releases the artifact. Safe to call more than once.
func (h *AudioHandle) Stop() error {
	h.once.Do(func() {
		h.output.release(h.player)
		h.player.Pause()
		if err := h.player.Close(); err != nil {
			h.err = fmt.Errorf("failed to close audio player: %w", err)
		}
		if err := h.stream.Close(); err != nil && h.err == nil {
			h.err = fmt.Errorf("failed to close audio stream: %w", err)
		}
	})
	return h.err
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
