package exporter

import (
	"math"
	"time"

	"github.com/framecast/framecast-agent/internal/capture"
	"github.com/framecast/framecast-agent/internal/encode"
	"github.com/framecast/framecast-agent/internal/plan"
)

// Status is the export session state. Transitions are strictly
// Idle → Capturing → Finalizing → {Complete | Failed}; the last two are
// terminal.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusCapturing  Status = "capturing"
	StatusFinalizing Status = "finalizing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Session is the transient record of one export run. It is owned by the
// controller for the lifetime of the export; callers only ever see
// copies.
type Session struct {
	ID             string
	PlanID         string
	Status         Status
	Strategy       string
	Format         encode.Format
	FramesRendered int
	TotalFrames    int
	ArtifactPath   string
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time

	// track is the capture handle acquired for this run. The
	// controller's exit cleanup stops it on every path.
	track *capture.Track
}

// Track returns the capture track this session acquired, or nil if the
// session failed before detection.
func (s Session) Track() *capture.Track { return s.track }

// Progress returns the percentage of frames rendered, 0-100.
func (s Session) Progress() int {
	if s.TotalFrames == 0 {
		return 0
	}
	return s.FramesRendered * 100 / s.TotalFrames
}

// FramesPerSegment returns the number of exported frames per plan
// segment at the given frame rate: round(segmentMs / (1000/fps)).
// At 30 fps this is 180.
func FramesPerSegment(fps int) int {
	segmentMs := float64(plan.SegmentDurationSeconds * 1000)
	return int(math.Round(segmentMs / (1000.0 / float64(fps))))
}
