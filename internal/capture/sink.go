package capture

import (
	"fmt"
	"image"
	"time"
)

// FrameWriter is the slice of an encoding session the sinks need.
type FrameWriter interface {
	WriteFrame(img image.Image) error
}

// FrameSink delivers rendered frames to an encoding session. The two
// implementations differ only in pacing: manual push has none, timed
// capture holds each frame on-surface for one frame interval. Both
// sample the surface, so their output is frame-for-frame identical.
type FrameSink interface {
	Name() string
	Deliver(frame *image.RGBA) error
	Close() error
}

// ManualPushSink signals "the current surface content is the next output
// frame" with no implicit pacing; the caller may push frames as fast as
// it can compute them.
type ManualPushSink struct {
	surface *Surface
	writer  FrameWriter
}

// NewManualPushSink creates a manual-push sink over the stream's surface.
func NewManualPushSink(stream *Stream, writer FrameWriter) *ManualPushSink {
	return &ManualPushSink{surface: stream.Surface(), writer: writer}
}

func (s *ManualPushSink) Name() string { return "manual-push" }

// Deliver places the frame on the surface and pushes the surface content
// to the encoder immediately.
func (s *ManualPushSink) Deliver(frame *image.RGBA) error {
	s.surface.SetFrame(frame)
	if err := s.writer.WriteFrame(s.surface.Snapshot()); err != nil {
		return fmt.Errorf("push frame: %w", err)
	}
	return nil
}

func (s *ManualPushSink) Close() error { return nil }

// TimedCaptureSink samples the surface at a fixed rate. Deliver keeps the
// frame on-surface for one frame interval before the sample is taken, so
// the sampled output matches the manual-push output frame-for-frame.
type TimedCaptureSink struct {
	surface  *Surface
	writer   FrameWriter
	interval time.Duration
	clock    *Clock
	next     time.Time
}

// NewTimedCaptureSink creates a timed-capture sink over the stream's
// surface at the stream rate. A nil clock means the runtime clock.
func NewTimedCaptureSink(stream *Stream, writer FrameWriter, clock *Clock) (*TimedCaptureSink, error) {
	rate := stream.Track().Rate()
	if rate < 1 {
		return nil, fmt.Errorf("timed capture requires a fixed-rate stream, got rate %d", rate)
	}
	if clock == nil {
		clock = RealClock()
	}
	return &TimedCaptureSink{
		surface:  stream.Surface(),
		writer:   writer,
		interval: time.Second / time.Duration(rate),
		clock:    clock,
	}, nil
}

func (s *TimedCaptureSink) Name() string { return "timed-capture" }

// Deliver places the frame on the surface, waits one frame interval, and
// samples the surface into the encoder. The wait anchors to the previous
// sample time so drift does not accumulate across a long export.
func (s *TimedCaptureSink) Deliver(frame *image.RGBA) error {
	s.surface.SetFrame(frame)

	now := s.clock.Now()
	if s.next.IsZero() {
		s.next = now
	}
	s.next = s.next.Add(s.interval)
	if wait := s.next.Sub(now); wait > 0 {
		s.clock.Sleep(wait)
	}

	if err := s.writer.WriteFrame(s.surface.Snapshot()); err != nil {
		return fmt.Errorf("sample frame: %w", err)
	}
	return nil
}

func (s *TimedCaptureSink) Close() error { return nil }
