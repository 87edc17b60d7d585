// ABOUTME: Audio type definitions
// ABOUTME: Defines the PCM format handed to the playback device
package audio

import (
	"fmt"
	"io"
)

// Format describes a decoded PCM stream
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dHz %dch %d-bit", f.Codec, f.SampleRate, f.Channels, f.BitDepth)
}

// Stream is decoded audio as interleaved signed 16-bit little-endian PCM
type Stream struct {
	io.Reader
	Format Format

	closer io.Closer
}

// Close releases the underlying artifact handle
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// SampleToInt16 narrows a sample of the given bit depth to 16 bits
func SampleToInt16(sample int32, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		return int16(sample >> (bitDepth - 16))
	case bitDepth < 16:
		return int16(sample << (16 - bitDepth))
	default:
		return int16(sample)
	}
}
