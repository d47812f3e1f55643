package render

import (
	"bytes"
	"testing"

	"golang.org/x/image/font/basicfont"

	"github.com/framecast/framecast-agent/internal/plan"
)

func testSegment() plan.RenderSegment {
	return plan.RenderSegment{
		Index:           4,
		DurationSeconds: plan.SegmentDurationSeconds,
		Palette:         plan.Palette{Red: 200, Green: 40, Blue: 90, Accent: 15},
		Caption:         "Skyline focus: Scene 5: Emphasise skyline with elements neon, city, skyline, at.",
	}
}

func testPlan(t *testing.T) *plan.RenderPlan {
	t.Helper()
	p, err := plan.NewGenerator().Generate("render fixture prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return p
}

func TestFrameDeterministic(t *testing.T) {
	r := New(160, 90)
	seg := testSegment()

	for _, progress := range []float64{0, 0.25, 0.5, 1} {
		a := r.Frame(seg, progress)
		b := r.Frame(seg, progress)
		if !bytes.Equal(a.Pix, b.Pix) {
			t.Errorf("progress %v: identical inputs produced different pixels", progress)
		}
	}
}

func TestFrameVariesWithProgress(t *testing.T) {
	r := New(160, 90)
	seg := testSegment()

	a := r.Frame(seg, 0)
	b := r.Frame(seg, 0.5)
	if bytes.Equal(a.Pix, b.Pix) {
		t.Error("progress 0 and 0.5 produced identical frames, want gradient drift")
	}
}

func TestFrameVariesWithPalette(t *testing.T) {
	r := New(160, 90)
	seg := testSegment()
	other := seg
	other.Palette = plan.Palette{Red: 10, Green: 220, Blue: 10, Accent: 250}

	a := r.Frame(seg, 0.5)
	b := r.Frame(other, 0.5)
	if bytes.Equal(a.Pix, b.Pix) {
		t.Error("distinct palettes produced identical frames")
	}
}

func TestFrameBounds(t *testing.T) {
	r := New(320, 180)
	frame := r.Frame(testSegment(), 0.5)

	if got := frame.Bounds().Dx(); got != 320 {
		t.Errorf("frame width = %d, want 320", got)
	}
	if got := frame.Bounds().Dy(); got != 180 {
		t.Errorf("frame height = %d, want 180", got)
	}
	// Fully opaque everywhere.
	for i := 3; i < len(frame.Pix); i += 4 {
		if frame.Pix[i] != 255 {
			t.Fatalf("pixel %d has alpha %d, want 255", i/4, frame.Pix[i])
		}
	}
}

func TestFrameAtOutOfRange(t *testing.T) {
	r := New(160, 90)
	p := testPlan(t)
	blank := r.Blank()

	for _, index := range []int{-1, p.SegmentCount(), p.SegmentCount() + 7} {
		frame := r.FrameAt(p, index, 0.5)
		if !bytes.Equal(frame.Pix, blank.Pix) {
			t.Errorf("FrameAt(index=%d) is not the blank frame", index)
		}
	}
}

func TestFrameAtNilPlan(t *testing.T) {
	r := New(160, 90)
	if !bytes.Equal(r.FrameAt(nil, 0, 0).Pix, r.Blank().Pix) {
		t.Error("FrameAt(nil plan) is not the blank frame")
	}
}

func TestBlankBackground(t *testing.T) {
	r := New(64, 36)
	blank := r.Blank()

	off := blank.PixOffset(10, 10)
	got := [4]uint8{blank.Pix[off], blank.Pix[off+1], blank.Pix[off+2], blank.Pix[off+3]}
	want := [4]uint8{backgroundColor.R, backgroundColor.G, backgroundColor.B, backgroundColor.A}
	if got != want {
		t.Errorf("blank pixel = %v, want %v", got, want)
	}
}

func TestWrapWords(t *testing.T) {
	face := basicfont.Face7x13

	tests := []struct {
		name      string
		text      string
		maxWidth  int
		wantLines int
	}{
		{"short text single line", "hello", 400, 1},
		{"wraps at width", "one two three four five six seven eight", 100, 3},
		{"single long word kept whole", "unbreakableword", 20, 1},
		{"empty text", "", 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := wrapWords(face, tt.text, tt.maxWidth)
			if len(lines) != tt.wantLines {
				t.Errorf("wrapWords(%q, %d) = %d lines %v, want %d",
					tt.text, tt.maxWidth, len(lines), lines, tt.wantLines)
			}
		})
	}
}

func TestWrapWordsPreservesContent(t *testing.T) {
	face := basicfont.Face7x13
	text := "alpha beta gamma delta"

	lines := wrapWords(face, text, 60)
	var joined []byte
	for i, line := range lines {
		if i > 0 {
			joined = append(joined, ' ')
		}
		joined = append(joined, line...)
	}
	if string(joined) != text {
		t.Errorf("wrapped lines reassemble to %q, want %q", joined, text)
	}
}
