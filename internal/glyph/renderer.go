// ABOUTME: Converts raster frames into colored terminal text
// ABOUTME: Downscales with nfnt/resize and maps luminance to glyphs, color via termenv
package glyph

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
	"github.com/nfnt/resize"
)

const (
	// MaxSourceWidth caps frame width before glyph conversion
	MaxSourceWidth = 640

	// DefaultRamp runs from darkest to brightest
	DefaultRamp = " .:-=+*#%@"

	// cellAspect is the height/width ratio of a terminal cell
	cellAspect = 2.0
)

// ErrEmptyFrame is returned for frames with no pixels
var ErrEmptyFrame = errors.New("empty frame")

// Renderer turns frames into glyph text
type Renderer struct {
	profile termenv.Profile
	ramp    []rune
}

// NewRenderer creates a renderer emitting colors for the given profile.
// termenv.Ascii produces plain glyphs.
func NewRenderer(profile termenv.Profile) *Renderer {
	return &Renderer{
		profile: profile,
		ramp:    []rune(DefaultRamp),
	}
}

// Render converts frame to at most maxColumns columns of text, one line per row
func (r *Renderer) Render(frame image.Image, maxColumns int) (string, error) {
	if frame == nil {
		return "", ErrEmptyFrame
	}
	bounds := frame.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return "", ErrEmptyFrame
	}
	if maxColumns <= 0 {
		return "", fmt.Errorf("invalid column count %d", maxColumns)
	}

	img := frame
	if bounds.Dx() > MaxSourceWidth {
		img = resize.Resize(MaxSourceWidth, 0, img, resize.Bilinear)
		bounds = img.Bounds()
	}

	columns := maxColumns
	if bounds.Dx() < columns {
		columns = bounds.Dx()
	}
	rows := Rows(bounds.Dx(), bounds.Dy(), columns)

	small := resize.Resize(uint(columns), uint(rows), img, resize.Bilinear)
	sb := small.Bounds()

	var b strings.Builder
	b.Grow(rows * (columns*20 + 8))

	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		last := ""
		for x := sb.Min.X; x < sb.Max.X; x++ {
			c := small.At(x, y)

			col, ok := colorful.MakeColor(c)
			if !ok {
				b.WriteRune(r.ramp[0])
				continue
			}

			if seq := r.profile.FromColor(c).Sequence(false); seq != "" && seq != last {
				b.WriteString(termenv.CSI)
				b.WriteString(seq)
				b.WriteString("m")
				last = seq
			}

			l, _, _ := col.Lab()
			b.WriteRune(r.glyphFor(l))
		}
		if last != "" {
			b.WriteString(termenv.CSI + termenv.ResetSeq + "m")
		}
		b.WriteByte('\n')
	}

	return b.String(), nil
}

// glyphFor maps a Lab lightness in [0,1] onto the ramp
func (r *Renderer) glyphFor(lightness float64) rune {
	if lightness < 0 {
		lightness = 0
	}
	if lightness > 1 {
		lightness = 1
	}
	idx := int(lightness*float64(len(r.ramp)-1) + 0.5)
	return r.ramp[idx]
}

// Rows returns the text rows for a width x height frame drawn in columns
// cells, correcting for tall terminal cells
func Rows(width, height, columns int) int {
	rows := int(float64(columns)*float64(height)/float64(width)/cellAspect + 0.5)
	if rows < 1 {
		rows = 1
	}
	return rows
}
