package exporter

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/framecast/framecast-agent/internal/capture"
	"github.com/framecast/framecast-agent/internal/encode"
	"github.com/framecast/framecast-agent/internal/plan"
	"github.com/framecast/framecast-agent/internal/render"
)

// stubSession is an in-memory encoding session for controller tests.
type stubSession struct {
	mu     sync.Mutex
	frames int

	writeErr error
	stopErr  error
	empty    bool

	// block, when non-nil, is closed to release a WriteFrame that is
	// holding the export open.
	block   chan struct{}
	started chan struct{}

	done     chan encode.Result
	stopOnce sync.Once
}

func newStubSession() *stubSession {
	return &stubSession{done: make(chan encode.Result, 1)}
}

func (s *stubSession) Start() error { return nil }

func (s *stubSession) WriteFrame(img image.Image) error {
	s.mu.Lock()
	first := s.frames == 0
	s.frames++
	s.mu.Unlock()

	if first && s.started != nil {
		close(s.started)
	}
	if s.block != nil {
		<-s.block
	}
	return s.writeErr
}

func (s *stubSession) Stop() error {
	s.stopOnce.Do(func() {
		var res encode.Result
		switch {
		case s.writeErr != nil:
			res = encode.Result{Err: s.writeErr}
		case s.empty:
			res = encode.Result{}
		default:
			res = encode.Result{Data: []byte("stub-artifact"), Frames: s.frameCount()}
		}
		s.done <- res
	})
	return s.stopErr
}

func (s *stubSession) Done() <-chan encode.Result { return s.done }

func (s *stubSession) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func testPlan(t *testing.T) *plan.RenderPlan {
	t.Helper()
	p, err := plan.NewGenerator().Generate("exporter fixture prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return p
}

// instantClock never sleeps, so timed-capture pacing is free in tests.
func instantClock() *capture.Clock {
	now := time.Unix(5000, 0)
	return &capture.Clock{
		Now:   func() time.Time { return now },
		Sleep: func(d time.Duration) { now = now.Add(d) },
	}
}

func newTestController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	if cfg.Renderer == nil {
		cfg.Renderer = render.New(64, 36)
	}
	if cfg.Surface == nil {
		cfg.Surface = capture.NewSurface(64, 36)
	}
	if cfg.Detector == nil {
		cfg.Detector = capture.NewDetector(capture.ModeAuto, nil)
	}
	if cfg.ExportsDir == "" {
		cfg.ExportsDir = t.TempDir()
	}
	if cfg.FPS == 0 {
		cfg.FPS = 30
	}
	if cfg.Clock == nil {
		cfg.Clock = instantClock()
	}
	return NewController(cfg)
}

func TestExportFrameCountLaw(t *testing.T) {
	stub := newStubSession()
	c := newTestController(t, Config{
		FPS: 30,
		Recorders: func(f encode.Format, w, h, fps int) (EncodingSession, error) {
			return stub, nil
		},
	})

	session, err := c.Export(testPlan(t), "plan-1")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	const want = plan.SegmentsPerVideo * 180
	if session.TotalFrames != want {
		t.Errorf("TotalFrames = %d, want %d", session.TotalFrames, want)
	}
	if session.FramesRendered != want {
		t.Errorf("FramesRendered = %d, want %d", session.FramesRendered, want)
	}
	if got := stub.frameCount(); got != want {
		t.Errorf("encoding session received %d frames, want %d", got, want)
	}
	if session.Status != StatusComplete {
		t.Errorf("Status = %q, want %q", session.Status, StatusComplete)
	}
	if c.Active() {
		t.Error("controller still active after export finished")
	}
}

func TestExportNilPlan(t *testing.T) {
	c := newTestController(t, Config{})

	session, err := c.Export(nil, "")
	if !errors.Is(err, ErrNoPlan) {
		t.Fatalf("Export(nil) error = %v, want ErrNoPlan", err)
	}
	if session.ID != "" {
		t.Error("nil plan created a session")
	}
	if c.Active() {
		t.Error("guard held after rejected export")
	}
	if _, ok := c.Current(); ok {
		t.Error("rejected export published session state")
	}
}

func TestExportConcurrentRejected(t *testing.T) {
	stub := newStubSession()
	stub.block = make(chan struct{})
	stub.started = make(chan struct{})

	c := newTestController(t, Config{
		Recorders: func(f encode.Format, w, h, fps int) (EncodingSession, error) {
			return stub, nil
		},
	})

	p := testPlan(t)
	first, err := c.Start(p, "plan-first")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-stub.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first export never reached the encoding session")
	}

	if _, err := c.Export(p, "plan-second"); !errors.Is(err, ErrConcurrentExport) {
		t.Errorf("second export error = %v, want ErrConcurrentExport", err)
	}

	// The rejected request must not have disturbed the running session.
	current, ok := c.Current()
	if !ok || current.ID != first.ID {
		t.Errorf("current session = %+v, want running session %s", current, first.ID)
	}

	close(stub.block)
	waitInactive(t, c)
}

func TestExportEmptyCapture(t *testing.T) {
	stub := newStubSession()
	stub.empty = true

	c := newTestController(t, Config{
		Recorders: func(f encode.Format, w, h, fps int) (EncodingSession, error) {
			return stub, nil
		},
	})

	session, err := c.Export(testPlan(t), "plan-empty")
	if !errors.Is(err, ErrEmptyCapture) {
		t.Fatalf("Export() error = %v, want ErrEmptyCapture", err)
	}
	if session.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", session.Status, StatusFailed)
	}
	if session.ArtifactPath != "" {
		t.Error("empty capture produced an artifact path")
	}
	if c.Active() {
		t.Error("guard held after failed export")
	}
}

func TestExportRecorderFault(t *testing.T) {
	stub := newStubSession()
	stub.writeErr = fmt.Errorf("disk full")

	c := newTestController(t, Config{
		Recorders: func(f encode.Format, w, h, fps int) (EncodingSession, error) {
			return stub, nil
		},
	})

	session, err := c.Export(testPlan(t), "plan-fault")
	var fault *RecorderFaultError
	if !errors.As(err, &fault) {
		t.Fatalf("Export() error = %v, want RecorderFaultError", err)
	}
	if session.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", session.Status, StatusFailed)
	}
	if session.Error == "" {
		t.Error("failed session has empty error message")
	}
}

func TestExportRecorderFactoryFailure(t *testing.T) {
	c := newTestController(t, Config{
		Recorders: func(f encode.Format, w, h, fps int) (EncodingSession, error) {
			return nil, fmt.Errorf("no encoder")
		},
	})

	_, err := c.Export(testPlan(t), "plan-x")
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("Export() error = %v, want ErrCaptureUnavailable", err)
	}
	if c.Active() {
		t.Error("guard held after setup failure")
	}
}

func TestExportGuardReleasedAfterFailure(t *testing.T) {
	failing := newStubSession()
	failing.writeErr = fmt.Errorf("transient fault")
	sessions := []*stubSession{failing, newStubSession()}
	i := 0

	c := newTestController(t, Config{
		Recorders: func(f encode.Format, w, h, fps int) (EncodingSession, error) {
			s := sessions[i]
			i++
			return s, nil
		},
	})

	p := testPlan(t)
	if _, err := c.Export(p, "plan-a"); err == nil {
		t.Fatal("first export expected to fail")
	}

	session, err := c.Export(p, "plan-b")
	if err != nil {
		t.Fatalf("export after failure error = %v", err)
	}
	if session.Status != StatusComplete {
		t.Errorf("Status = %q, want %q", session.Status, StatusComplete)
	}
}

func TestExportReleasesTrack(t *testing.T) {
	tests := []struct {
		name     string
		writeErr error
	}{
		{name: "complete"},
		{name: "failed", writeErr: fmt.Errorf("disk full")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubSession()
			stub.writeErr = tt.writeErr

			c := newTestController(t, Config{
				Recorders: func(f encode.Format, w, h, fps int) (EncodingSession, error) {
					return stub, nil
				},
			})

			session, err := c.Export(testPlan(t), "plan-track")
			if (err != nil) != (tt.writeErr != nil) {
				t.Fatalf("Export() error = %v", err)
			}

			track := session.Track()
			if track == nil {
				t.Fatal("session acquired no capture track")
			}
			if track.Live() {
				t.Error("capture track still live after export exit")
			}
		})
	}
}

func TestExportTimedStrategy(t *testing.T) {
	stub := newStubSession()
	c := newTestController(t, Config{
		Detector: capture.NewDetector(capture.ModeTimed, nil),
		FPS:      30,
		Recorders: func(f encode.Format, w, h, fps int) (EncodingSession, error) {
			return stub, nil
		},
	})

	session, err := c.Export(testPlan(t), "plan-timed")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if session.Strategy != "timed-capture" {
		t.Errorf("Strategy = %q, want timed-capture", session.Strategy)
	}
	// Timed sampling still yields the exact frame count.
	if got, want := stub.frameCount(), plan.SegmentsPerVideo*180; got != want {
		t.Errorf("sampled %d frames, want %d", got, want)
	}
}

func TestExportManualStrategy(t *testing.T) {
	stub := newStubSession()
	c := newTestController(t, Config{
		Recorders: func(f encode.Format, w, h, fps int) (EncodingSession, error) {
			return stub, nil
		},
	})

	session, err := c.Export(testPlan(t), "plan-manual")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if session.Strategy != "manual-push" {
		t.Errorf("Strategy = %q, want manual-push", session.Strategy)
	}
}

func TestExportWritesRealArtifact(t *testing.T) {
	if testing.Short() {
		t.Skip("full encoding export")
	}

	dir := t.TempDir()
	c := newTestController(t, Config{
		ExportsDir: dir,
		FPS:        1, // six frames per segment keeps real JPEG encoding fast
	})

	session, err := c.Export(testPlan(t), "plan-real")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	wantFrames := plan.SegmentsPerVideo * FramesPerSegment(1)
	if session.FramesRendered != wantFrames {
		t.Errorf("FramesRendered = %d, want %d", session.FramesRendered, wantFrames)
	}

	wantPath := filepath.Join(dir, session.ID, ArtifactBasename+".avi")
	if session.ArtifactPath != wantPath {
		t.Errorf("ArtifactPath = %q, want %q", session.ArtifactPath, wantPath)
	}
	data, err := os.ReadFile(session.ArtifactPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		t.Error("artifact is not a RIFF file")
	}
}

func TestExportPublishesProgress(t *testing.T) {
	var mu sync.Mutex
	var statuses []Status

	stub := newStubSession()
	c := newTestController(t, Config{
		Recorders: func(f encode.Format, w, h, fps int) (EncodingSession, error) {
			return stub, nil
		},
		OnUpdate: func(s Session) {
			mu.Lock()
			statuses = append(statuses, s.Status)
			mu.Unlock()
		},
	})

	if _, err := c.Export(testPlan(t), "plan-progress"); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) == 0 {
		t.Fatal("no progress updates published")
	}
	if statuses[0] != StatusCapturing {
		t.Errorf("first update status = %q, want %q", statuses[0], StatusCapturing)
	}
	if statuses[len(statuses)-1] != StatusComplete {
		t.Errorf("last update status = %q, want %q", statuses[len(statuses)-1], StatusComplete)
	}
	sawFinalizing := false
	for _, s := range statuses {
		if s == StatusFinalizing {
			sawFinalizing = true
		}
	}
	if !sawFinalizing {
		t.Error("finalizing state never published")
	}
}

type resetRecorder struct {
	mu    sync.Mutex
	count int
}

func (r *resetRecorder) ResetEpoch() {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func (r *resetRecorder) resets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func TestExportResetsPreviewOnEveryExit(t *testing.T) {
	preview := &resetRecorder{}
	failing := newStubSession()
	failing.writeErr = fmt.Errorf("fault")
	sessions := []*stubSession{newStubSession(), failing}
	i := 0

	c := newTestController(t, Config{
		Preview: preview,
		Recorders: func(f encode.Format, w, h, fps int) (EncodingSession, error) {
			s := sessions[i]
			i++
			return s, nil
		},
	})

	p := testPlan(t)
	if _, err := c.Export(p, "plan-ok"); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	c.Export(p, "plan-bad")

	if got := preview.resets(); got != 2 {
		t.Errorf("preview reset %d times, want 2 (success and failure paths)", got)
	}
}

func waitInactive(t *testing.T, c *Controller) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if !c.Active() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("controller never became inactive")
}
