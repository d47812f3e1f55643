package capture

import "testing"

func TestDetectAutoPrefersManualPush(t *testing.T) {
	d := NewDetector(ModeAuto, nil)
	surface := NewSurface(32, 24)

	stream, caps, err := d.Detect(surface, 30)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if !caps.ManualPush {
		t.Error("auto mode ManualPush = false, want true")
	}
	if !stream.SupportsManualPush() {
		t.Error("auto mode stream does not support manual push")
	}
	if !stream.Track().Live() {
		t.Error("detected stream track is not live")
	}
	if caps.ProbedAt.IsZero() {
		t.Error("ProbedAt not recorded")
	}
}

func TestDetectTimedMode(t *testing.T) {
	d := NewDetector(ModeTimed, nil)
	surface := NewSurface(32, 24)

	stream, caps, err := d.Detect(surface, 30)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if caps.ManualPush {
		t.Error("timed mode ManualPush = true, want false")
	}
	if caps.Rate != 30 {
		t.Errorf("timed mode Rate = %d, want 30", caps.Rate)
	}
	if got := stream.Track().Rate(); got != 30 {
		t.Errorf("stream track rate = %d, want 30", got)
	}
}

func TestDetectUnknownModeFallsBackToAuto(t *testing.T) {
	d := NewDetector("bogus", nil)
	surface := NewSurface(32, 24)

	_, caps, err := d.Detect(surface, 30)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if !caps.ManualPush {
		t.Error("unknown mode did not fall back to auto detection")
	}
}

func TestDetectErrors(t *testing.T) {
	d := NewDetector(ModeAuto, nil)

	if _, _, err := d.Detect(nil, 30); err == nil {
		t.Error("nil surface expected error")
	}
	if _, _, err := d.Detect(NewSurface(32, 24), 0); err == nil {
		t.Error("zero fps expected error")
	}
}

func TestTrackStopIsIdempotent(t *testing.T) {
	stream, err := OpenStream(NewSurface(16, 16), 0)
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	track := stream.Track()

	track.Stop()
	track.Stop()
	if track.Live() {
		t.Error("stopped track still reports live")
	}
}
