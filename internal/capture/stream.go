package capture

import (
	"fmt"
	"sync/atomic"
)

// Track is the acquired capture handle for one session. It must be
// stopped on every session exit path; the exporter's cleanup guarantees
// that.
type Track struct {
	rate     int
	released atomic.Bool
}

// Rate returns the track's capture rate in frames per second. Zero means
// the track is under manual frame control.
func (t *Track) Rate() int { return t.rate }

// Live reports whether the track is still acquired.
func (t *Track) Live() bool { return !t.released.Load() }

// Stop releases the track. Stopping twice is harmless.
func (t *Track) Stop() { t.released.Store(true) }

// Stream is a capture source over a surface. A rate of zero requests
// manual frame control; a positive rate requests fixed-rate sampling.
type Stream struct {
	surface *Surface
	track   *Track
}

// OpenStream acquires a capture stream over the surface at the given
// rate. A nil surface means no usable video source exists.
func OpenStream(surface *Surface, rate int) (*Stream, error) {
	if surface == nil {
		return nil, fmt.Errorf("no capture surface available")
	}
	if rate < 0 {
		return nil, fmt.Errorf("invalid capture rate %d", rate)
	}
	return &Stream{surface: surface, track: &Track{rate: rate}}, nil
}

// Surface returns the surface this stream captures.
func (s *Stream) Surface() *Surface { return s.surface }

// Track returns the stream's capture track.
func (s *Stream) Track() *Track { return s.track }

// SupportsManualPush reports whether the stream allows the producer to
// signal frames explicitly. Only zero-rate streams do.
func (s *Stream) SupportsManualPush() bool {
	return s.track.rate == 0
}
