// Package preview runs the live preview loop: a continuous scheduler
// that maps wall-clock time to a (segment, progress) position and keeps
// the shared surface rendered. It never stops while the agent runs; it
// only skips drawing while an export holds the surface.
package preview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/framecast/framecast-agent/internal/capture"
	"github.com/framecast/framecast-agent/internal/plan"
	"github.com/framecast/framecast-agent/internal/render"
)

// DefaultRefreshInterval approximates a 60 Hz display refresh.
const DefaultRefreshInterval = time.Second / 60

// ExportGuard reports whether an export session currently owns the
// surface.
type ExportGuard interface {
	Active() bool
}

// Scheduler drives continuous preview playback of the loaded plan.
type Scheduler struct {
	renderer *render.Renderer
	surface  *capture.Surface
	guard    ExportGuard
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	plan  *plan.RenderPlan
	epoch time.Time
}

// NewScheduler creates a preview scheduler. guard may be nil when no
// exporter exists (tests).
func NewScheduler(renderer *render.Renderer, surface *capture.Surface, guard ExportGuard, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		renderer: renderer,
		surface:  surface,
		guard:    guard,
		interval: DefaultRefreshInterval,
		logger:   logger,
		epoch:    time.Now(),
	}
}

// SetPlan loads a plan and resets the playback epoch so preview restarts
// from segment zero.
func (s *Scheduler) SetPlan(p *plan.RenderPlan) {
	s.mu.Lock()
	s.plan = p
	s.epoch = time.Now()
	s.mu.Unlock()
	if s.logger != nil && p != nil {
		s.logger.Info("preview plan loaded", "segments", p.SegmentCount())
	}
}

// Plan returns the currently loaded plan, or nil.
func (s *Scheduler) Plan() *plan.RenderPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// ResetEpoch restarts preview playback from segment zero. The exporter
// calls this on every session exit.
func (s *Scheduler) ResetEpoch() {
	s.mu.Lock()
	s.epoch = time.Now()
	s.mu.Unlock()
}

// Start runs the preview loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if s.logger != nil {
		s.logger.Info("preview scheduler started", "interval", s.interval)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.Info("preview scheduler stopping")
			}
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Tick renders the frame for the given instant. While an export is in
// progress the surface belongs to the export loop, so the tick only
// re-schedules; with no plan loaded it renders a blank background frame.
func (s *Scheduler) Tick(now time.Time) {
	// During an export the session owns the surface: drawing anything
	// here, even a blank frame, would race the export's writes and leak
	// into a timed-capture sample. Skip the tick entirely.
	if s.guard != nil && s.guard.Active() {
		return
	}

	s.mu.Lock()
	p := s.plan
	epoch := s.epoch
	s.mu.Unlock()

	if p == nil {
		s.surface.SetFrame(s.renderer.Blank())
		return
	}

	index, progress := PositionAt(now.Sub(epoch))
	s.surface.SetFrame(s.renderer.FrameAt(p, index, progress))
}

// PositionAt maps an elapsed duration since the epoch to a segment index
// and intra-segment progress, wrapping at the plan's total duration so
// playback loops indefinitely.
func PositionAt(elapsed time.Duration) (int, float64) {
	if elapsed < 0 {
		elapsed = 0
	}
	elapsed = elapsed % plan.TotalDuration
	index := int(elapsed / plan.SegmentDuration)
	within := elapsed - time.Duration(index)*plan.SegmentDuration
	return index, float64(within) / float64(plan.SegmentDuration)
}
