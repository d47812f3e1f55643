package capture

import (
	"fmt"
	"log/slog"
	"time"
)

// Capture modes a Detector can be configured with. Auto probes the host;
// the other two force one strategy, which is mostly useful for testing
// and for hosts whose manual delivery path misbehaves.
const (
	ModeAuto   = "auto"
	ModeManual = "manual"
	ModeTimed  = "timed"
)

// Capabilities is the detector's report for one probe.
type Capabilities struct {
	ManualPush bool
	Rate       int
	ProbedAt   time.Time
}

// Detector probes a capture source and reports which frame delivery
// strategy is available. The result feeds a single two-way branch in the
// export controller; there is no hybrid mode.
type Detector struct {
	mode   string
	logger *slog.Logger
}

// NewDetector creates a detector. mode is one of ModeAuto, ModeManual,
// ModeTimed; anything else is treated as ModeAuto.
func NewDetector(mode string, logger *slog.Logger) *Detector {
	switch mode {
	case ModeAuto, ModeManual, ModeTimed:
	default:
		mode = ModeAuto
	}
	return &Detector{mode: mode, logger: logger}
}

// Detect acquires a capture stream over the surface and reports its
// capabilities. Detection probes manual-push support on a zero-rate
// stream; if absent, that stream is released and a fixed-rate fallback
// at the given fps is acquired instead.
func (d *Detector) Detect(surface *Surface, fps int) (*Stream, *Capabilities, error) {
	if fps < 1 {
		return nil, nil, fmt.Errorf("invalid capture fps %d", fps)
	}

	if d.mode == ModeTimed {
		return d.openTimed(surface, fps)
	}

	stream, err := OpenStream(surface, 0)
	if err != nil {
		return nil, nil, err
	}

	if stream.SupportsManualPush() || d.mode == ModeManual {
		if d.logger != nil {
			d.logger.Info("capture capability detected", "strategy", "manual-push")
		}
		return stream, &Capabilities{ManualPush: true, ProbedAt: time.Now()}, nil
	}

	// Manual control unavailable: discard the zero-rate stream and fall
	// back to fixed-rate sampling. In-process surface streams always
	// support manual push, so ModeAuto never lands here; ModeTimed is
	// how fixed-rate sampling is forced.
	stream.Track().Stop()
	return d.openTimed(surface, fps)
}

func (d *Detector) openTimed(surface *Surface, fps int) (*Stream, *Capabilities, error) {
	stream, err := OpenStream(surface, fps)
	if err != nil {
		return nil, nil, err
	}
	if d.logger != nil {
		d.logger.Info("capture capability detected", "strategy", "timed-capture", "rate", fps)
	}
	return stream, &Capabilities{ManualPush: false, Rate: fps, ProbedAt: time.Now()}, nil
}
