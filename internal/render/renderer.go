// Package render implements the deterministic frame renderer. A frame is a
// pure function of a render segment and a progress value in [0, 1]; calling
// the renderer twice with identical inputs produces identical pixels, which
// is what keeps live preview and file export bit-for-bit in agreement.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/framecast/framecast-agent/internal/plan"
)

const (
	// driftScale is the fraction of each canvas dimension the gradient
	// anchor drifts by over a segment.
	driftScale = 0.02

	textMargin = 16
)

// backgroundColor is the fill used for blank frames and as the base under
// the caption bar overlay.
var backgroundColor = color.RGBA{R: 16, G: 16, B: 24, A: 255}

// Renderer renders fixed-dimension frames for render segments.
type Renderer struct {
	width  int
	height int
	face   font.Face
}

// New creates a renderer for the given canvas dimensions.
func New(width, height int) *Renderer {
	return &Renderer{
		width:  width,
		height: height,
		face:   basicfont.Face7x13,
	}
}

// Width returns the canvas width in pixels.
func (r *Renderer) Width() int { return r.width }

// Height returns the canvas height in pixels.
func (r *Renderer) Height() int { return r.height }

// FrameAt renders the frame for the plan segment at the given index. An
// out-of-range index yields a background-only frame with no overlay; the
// plan invariants make that a defensive path only.
func (r *Renderer) FrameAt(p *plan.RenderPlan, index int, progress float64) *image.RGBA {
	if p == nil {
		return r.Blank()
	}
	seg, ok := p.Segment(index)
	if !ok {
		return r.Blank()
	}
	return r.Frame(seg, progress)
}

// Frame renders one frame for a segment at the given progress in [0, 1].
func (r *Renderer) Frame(seg plan.RenderSegment, progress float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	r.fillGradient(img, seg.Palette, progress)
	r.drawCaptionBar(img, seg)
	return img
}

// Blank renders a background-only frame.
func (r *Renderer) Blank() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = backgroundColor.R
		img.Pix[i+1] = backgroundColor.G
		img.Pix[i+2] = backgroundColor.B
		img.Pix[i+3] = backgroundColor.A
	}
	return img
}

// fillGradient fills the canvas with a linear gradient between the two
// palette stops. The gradient anchor is translated by a sinusoidal drift
// term before the fill, so the gradient appears to slide across the
// segment while the overlay stays anchored at the origin.
func (r *Renderer) fillGradient(img *image.RGBA, pal plan.Palette, progress float64) {
	start := [3]float64{float64(pal.Red), float64(pal.Green), float64(pal.Blue)}
	end := [3]float64{float64(pal.Accent), float64(pal.Blue), float64(pal.Red)}

	drift := math.Sin(progress * math.Pi)
	dx := drift * driftScale * float64(r.width)
	dy := drift * driftScale * float64(r.height)
	span := float64(r.width + r.height)

	for y := 0; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			t := ((float64(x) - dx) + (float64(y) - dy)) / span
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			off := img.PixOffset(x, y)
			img.Pix[off] = lerp(start[0], end[0], t)
			img.Pix[off+1] = lerp(start[1], end[1], t)
			img.Pix[off+2] = lerp(start[2], end[2], t)
			img.Pix[off+3] = 255
		}
	}
}

// drawCaptionBar overlays the fixed-height bar, the segment counter, and
// the word-wrapped caption at the bottom of the frame.
func (r *Renderer) drawCaptionBar(img *image.RGBA, seg plan.RenderSegment) {
	barHeight := r.height / 5
	barTop := r.height - barHeight

	// Semi-transparent darkening of the bar region.
	const barAlpha = 160
	for y := barTop; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			off := img.PixOffset(x, y)
			img.Pix[off] = shade(img.Pix[off], barAlpha)
			img.Pix[off+1] = shade(img.Pix[off+1], barAlpha)
			img.Pix[off+2] = shade(img.Pix[off+2], barAlpha)
		}
	}

	lineHeight := r.face.Metrics().Height.Ceil() + 2
	y := barTop + lineHeight

	counter := fmt.Sprintf("Segment %d / %d", seg.Index+1, plan.SegmentsPerVideo)
	r.drawLine(img, counter, textMargin, y)
	y += lineHeight

	maxWidth := r.width - 2*textMargin
	for _, line := range wrapWords(r.face, seg.Caption, maxWidth) {
		if y >= r.height {
			break
		}
		r.drawLine(img, line, textMargin, y)
		y += lineHeight
	}
}

func (r *Renderer) drawLine(img *image.RGBA, text string, x, y int) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: r.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// wrapWords greedily wraps text into lines no wider than maxWidth. Words
// are accumulated separated by a single space; a word that would overflow
// the current line starts the next one. Words are never broken mid-word,
// so a single word wider than maxWidth still occupies its own line.
func wrapWords(face font.Face, text string, maxWidth int) []string {
	var lines []string
	current := ""
	for _, word := range splitSpace(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if current != "" && font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func splitSpace(text string) []string {
	var words []string
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' {
			if start >= 0 {
				words = append(words, text[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, text[start:])
	}
	return words
}

func lerp(a, b, t float64) uint8 {
	return uint8(a + (b-a)*t + 0.5)
}

func shade(c uint8, alpha uint8) uint8 {
	// Source-over blend of black at the given alpha.
	return uint8(uint16(c) * uint16(255-alpha) / 255)
}
