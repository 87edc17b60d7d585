// ABOUTME: Decoders for extracted audio artifacts
// ABOUTME: Turns MP3, FLAC and WAV files into 16-bit PCM streams for playback
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// OpenStream decodes the artifact at path, choosing a decoder by extension
func OpenStream(path string) (*Stream, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".mp3":
		return openMP3(path)
	case ".flac":
		return openFLAC(path)
	case ".wav":
		return openWAV(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac, .wav)", ext)
	}
}

func openMP3(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	// go-mp3 always produces 16-bit stereo
	return &Stream{
		Reader: decoder,
		Format: Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   2,
			BitDepth:   16,
		},
		closer: f,
	}, nil
}

func openFLAC(path string) (*Stream, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &Stream{
		Reader: &flacReader{stream: stream, bitDepth: int(info.BitsPerSample), channels: int(info.NChannels)},
		Format: Format{
			Codec:      "flac",
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
			BitDepth:   16,
		},
		closer: stream,
	}, nil
}

// flacReader re-encodes FLAC frames as interleaved 16-bit PCM
type flacReader struct {
	stream   *flac.Stream
	bitDepth int
	channels int
	pending  []byte
}

func (r *flacReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		frame, err := r.stream.ParseNext()
		if err != nil {
			return 0, err
		}

		block := int(frame.BlockSize)
		buf := make([]byte, 0, block*r.channels*2)
		for i := 0; i < block; i++ {
			for ch := 0; ch < r.channels; ch++ {
				s := SampleToInt16(frame.Subframes[ch].Samples[i], r.bitDepth)
				buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
			}
		}
		r.pending = buf
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func openWAV(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	// beep yields stereo frames regardless of the file's channel count
	out := beep.Format{SampleRate: format.SampleRate, NumChannels: 2, Precision: 2}
	return &Stream{
		Reader: &beepReader{streamer: streamer, format: out},
		Format: Format{
			Codec:      "wav",
			SampleRate: int(format.SampleRate),
			Channels:   2,
			BitDepth:   16,
		},
		closer: streamer,
	}, nil
}

// beepReader adapts a beep.Streamer to 16-bit PCM bytes
type beepReader struct {
	streamer beep.Streamer
	format   beep.Format
	samples  [][2]float64
}

func (r *beepReader) Read(p []byte) (int, error) {
	frameSize := r.format.Width()
	frames := len(p) / frameSize
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}
	if cap(r.samples) < frames {
		r.samples = make([][2]float64, frames)
	}
	samples := r.samples[:frames]

	n, ok := r.streamer.Stream(samples)
	if !ok {
		if err := r.streamer.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	written := 0
	for _, sample := range samples[:n] {
		written += r.format.EncodeSigned(p[written:], sample)
	}
	return written, nil
}
