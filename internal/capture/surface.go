// Package capture models the shared render surface, capture streams over
// it, and the two frame delivery strategies an export can use. The
// capability detector decides once per session whether frames can be
// pushed manually or must be sampled at a fixed rate.
package capture

import (
	"image"
	"sync"
	"time"
)

// Surface is the shared framebuffer both the live preview loop and the
// export loop draw into. Exactly one of them writes at a time; the
// exporter's session guard enforces that.
type Surface struct {
	width  int
	height int

	mu    sync.Mutex
	frame *image.RGBA
}

// NewSurface creates a surface of the given dimensions.
func NewSurface(width, height int) *Surface {
	return &Surface{width: width, height: height}
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.width }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.height }

// SetFrame makes img the current surface content. The surface keeps the
// reference; callers must not mutate the image afterwards.
func (s *Surface) SetFrame(img *image.RGBA) {
	s.mu.Lock()
	s.frame = img
	s.mu.Unlock()
}

// Snapshot returns a copy of the current surface content. Before any
// frame has been set it returns an all-zero image of the surface
// dimensions.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	}
	dup := image.NewRGBA(s.frame.Rect)
	copy(dup.Pix, s.frame.Pix)
	return dup
}

// Clock bundles the time sources pacing code depends on, so tests can
// substitute instant ones.
type Clock struct {
	Now   func() time.Time
	Sleep func(d time.Duration)
}

// RealClock returns a clock backed by the runtime.
func RealClock() *Clock {
	return &Clock{Now: time.Now, Sleep: time.Sleep}
}
