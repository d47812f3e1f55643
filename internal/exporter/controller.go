// Package exporter orchestrates a full-plan export: it selects a frame
// delivery strategy via the capability detector, drives the render loop
// across every segment/frame pair, manages the encoding session
// lifecycle, and materializes the downloadable artifact.
package exporter

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/framecast/framecast-agent/internal/capture"
	"github.com/framecast/framecast-agent/internal/encode"
	"github.com/framecast/framecast-agent/internal/plan"
	"github.com/framecast/framecast-agent/internal/render"
)

// ArtifactBasename is the fixed artifact filename; the extension comes
// from the selected format.
const ArtifactBasename = "deterministic-video"

// EncodingSession is the slice of encode.Recorder the controller drives.
// Kept as an interface so tests can substitute faulty or empty sessions.
type EncodingSession interface {
	Start() error
	WriteFrame(img image.Image) error
	Stop() error
	Done() <-chan encode.Result
}

// RecorderFactory builds the encoding session for one export.
type RecorderFactory func(f encode.Format, width, height, fps int) (EncodingSession, error)

// PreviewResetter is notified when an export session ends so live
// playback resumes from segment zero.
type PreviewResetter interface {
	ResetEpoch()
}

// Config wires a Controller.
type Config struct {
	Renderer *render.Renderer
	Surface  *capture.Surface
	Detector *capture.Detector

	// ExportsDir is the base directory artifacts are written under.
	ExportsDir string

	// FPS is the export frame rate. YieldEvery is the number of frames
	// between progress updates and scheduler yields; zero means FPS.
	FPS        int
	YieldEvery int

	// Recorders overrides the encoding session factory. Nil means real
	// pure-Go recorders.
	Recorders RecorderFactory

	// Clock paces the timed-capture strategy. Nil means the runtime
	// clock.
	Clock *capture.Clock

	Preview  PreviewResetter
	OnUpdate func(Session)
	Logger   *slog.Logger
}

// Controller runs at most one export session at a time. A second export
// requested while one is active is rejected, not queued.
type Controller struct {
	renderer   *render.Renderer
	surface    *capture.Surface
	detector   *capture.Detector
	exportsDir string
	fps        int
	yieldEvery int
	recorders  RecorderFactory
	clock      *capture.Clock
	preview    PreviewResetter
	onUpdate   func(Session)
	logger     *slog.Logger

	mu         sync.Mutex
	active     bool
	current    Session
	currentSet bool
}

// NewController creates an export controller.
func NewController(cfg Config) *Controller {
	yieldEvery := cfg.YieldEvery
	if yieldEvery <= 0 {
		yieldEvery = cfg.FPS
	}
	recorders := cfg.Recorders
	if recorders == nil {
		recorders = func(f encode.Format, width, height, fps int) (EncodingSession, error) {
			return encode.NewRecorder(f, width, height, fps, cfg.Logger)
		}
	}
	return &Controller{
		renderer:   cfg.Renderer,
		surface:    cfg.Surface,
		detector:   cfg.Detector,
		exportsDir: cfg.ExportsDir,
		fps:        cfg.FPS,
		yieldEvery: yieldEvery,
		recorders:  recorders,
		clock:      cfg.Clock,
		preview:    cfg.Preview,
		onUpdate:   cfg.OnUpdate,
		logger:     cfg.Logger,
	}
}

// Active reports whether an export session currently holds the surface.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Current returns a copy of the most recently published session state,
// if any session has run.
func (c *Controller) Current() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.currentSet
}

// Export runs one complete export of the plan and blocks until the
// session reaches a terminal state. The returned session is a copy of
// the terminal state; the error mirrors session failure causes so
// callers can branch on the taxonomy. There is no mid-export
// cancellation.
func (c *Controller) Export(p *plan.RenderPlan, planID string) (Session, error) {
	session, err := c.begin(p, planID)
	if err != nil {
		return session, err
	}
	return c.run(p, session)
}

// Start begins an export and returns the capturing session immediately;
// the render loop and finalization run on their own goroutine. Progress
// and the terminal state flow through Current and the OnUpdate hook.
func (c *Controller) Start(p *plan.RenderPlan, planID string) (Session, error) {
	session, err := c.begin(p, planID)
	if err != nil {
		return session, err
	}
	go c.run(p, session)
	return session, nil
}

// begin acquires the single-export guard and creates the session record.
// On error the guard is left free and no session is published.
func (c *Controller) begin(p *plan.RenderPlan, planID string) (Session, error) {
	if p == nil {
		// No session is created and the guard stays free.
		return Session{Status: StatusFailed, Error: ErrNoPlan.Error()}, ErrNoPlan
	}

	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return Session{}, ErrConcurrentExport
	}
	c.active = true
	c.mu.Unlock()

	session := Session{
		ID:          uuid.NewString(),
		PlanID:      planID,
		Status:      StatusCapturing,
		TotalFrames: p.SegmentCount() * FramesPerSegment(c.fps),
		StartedAt:   c.now(),
	}
	c.publish(&session)
	return session, nil
}

// run drives the session to a terminal state. The working session copy
// is owned by this goroutine; everything other goroutines see is a
// published snapshot.
func (c *Controller) run(p *plan.RenderPlan, s Session) (Session, error) {
	session := &s

	logger := c.logger
	if logger != nil {
		logger = logger.With("session_id", session.ID)
	}

	// Cleanup runs on every exit path: release the track, clear the
	// guard, and reset the preview epoch so live playback resumes from
	// segment zero.
	defer func() {
		if session.track != nil {
			session.track.Stop()
		}
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()
		if c.preview != nil {
			c.preview.ResetEpoch()
		}
	}()

	format, err := encode.SelectFormat()
	if err != nil {
		return c.fail(session, logger, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err))
	}
	session.Format = format

	rec, err := c.recorders(format, c.renderer.Width(), c.renderer.Height(), c.fps)
	if err != nil {
		return c.fail(session, logger, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err))
	}

	stream, caps, err := c.detector.Detect(c.surface, c.fps)
	if err != nil {
		return c.fail(session, logger, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err))
	}
	session.track = stream.Track()

	var sink capture.FrameSink
	if caps.ManualPush {
		sink = capture.NewManualPushSink(stream, rec)
	} else {
		timed, err := capture.NewTimedCaptureSink(stream, rec, c.clock)
		if err != nil {
			return c.fail(session, logger, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err))
		}
		sink = timed
	}
	session.Strategy = sink.Name()
	defer sink.Close()

	if err := rec.Start(); err != nil {
		return c.fail(session, logger, &RecorderFaultError{Err: err})
	}

	if logger != nil {
		logger.Info("export capturing",
			"strategy", sink.Name(), "format", format.Name,
			"total_frames", session.TotalFrames)
	}
	c.publish(session)

	if err := c.renderLoop(p, sink, session); err != nil {
		rec.Stop()
		<-rec.Done()
		return c.fail(session, logger, err)
	}

	// Terminal frame at progress 1 for the last segment, so the surface
	// ends on the fully-advanced frame.
	c.surface.SetFrame(c.renderer.FrameAt(p, p.SegmentCount()-1, 1))

	session.Status = StatusFinalizing
	c.publish(session)
	if err := rec.Stop(); err != nil {
		return c.fail(session, logger, &RecorderFaultError{Err: err})
	}

	result := <-rec.Done()
	if result.Err != nil {
		return c.fail(session, logger, &RecorderFaultError{Err: result.Err})
	}
	if len(result.Data) == 0 {
		return c.fail(session, logger, ErrEmptyCapture)
	}

	artifactPath, err := c.writeArtifact(session, result.Data)
	if err != nil {
		return c.fail(session, logger, err)
	}

	session.ArtifactPath = artifactPath
	session.Status = StatusComplete
	session.FinishedAt = c.now()
	c.publish(session)

	if logger != nil {
		logger.Info("export complete",
			"frames", session.FramesRendered, "bytes", len(result.Data),
			"artifact", artifactPath)
	}
	return *session, nil
}

// renderLoop delivers every (segment, frame) pair in strictly increasing
// order. After every yieldEvery-th frame it publishes progress and
// yields to the scheduler so the rest of the agent stays responsive.
func (c *Controller) renderLoop(p *plan.RenderPlan, sink capture.FrameSink, session *Session) error {
	framesPerSegment := FramesPerSegment(c.fps)
	for _, seg := range p.RenderSegments {
		for f := 0; f < framesPerSegment; f++ {
			progress := float64(f) / float64(framesPerSegment)
			frame := c.renderer.Frame(seg, progress)
			if err := sink.Deliver(frame); err != nil {
				return &RecorderFaultError{Err: err}
			}
			session.FramesRendered++
			if session.FramesRendered%c.yieldEvery == 0 {
				c.publish(session)
				runtime.Gosched()
			}
		}
	}
	return nil
}

func (c *Controller) writeArtifact(session *Session, data []byte) (string, error) {
	dir := filepath.Join(c.exportsDir, session.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	path := filepath.Join(dir, ArtifactBasename+"."+session.Format.Ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

func (c *Controller) fail(session *Session, logger *slog.Logger, err error) (Session, error) {
	session.Status = StatusFailed
	session.Error = err.Error()
	session.FinishedAt = c.now()
	c.publish(session)
	if logger != nil {
		logger.Error("export failed", "error", err)
	}
	return *session, err
}

func (c *Controller) publish(session *Session) {
	c.mu.Lock()
	c.current = *session
	c.currentSet = true
	c.mu.Unlock()
	if c.onUpdate != nil {
		c.onUpdate(*session)
	}
}

func (c *Controller) now() time.Time {
	if c.clock != nil && c.clock.Now != nil {
		return c.clock.Now()
	}
	return time.Now()
}
