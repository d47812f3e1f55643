package plan

import (
	"encoding/json"
	"fmt"
	"io"
)

// Validate checks the plan invariants: exactly SegmentsPerVideo render
// segments with contiguous zero-based indices, fixed segment durations,
// and palette components within [0, 255].
func Validate(p *RenderPlan) error {
	if p == nil {
		return fmt.Errorf("plan is nil")
	}
	if got := len(p.RenderSegments); got != SegmentsPerVideo {
		return fmt.Errorf("plan has %d render segments, want %d", got, SegmentsPerVideo)
	}

	for i, seg := range p.RenderSegments {
		if seg.Index != i {
			return fmt.Errorf("render segment at position %d has index %d", i, seg.Index)
		}
		if seg.DurationSeconds != SegmentDurationSeconds {
			return fmt.Errorf("render segment %d has duration %ds, want %ds",
				i, seg.DurationSeconds, SegmentDurationSeconds)
		}
		if err := validatePalette(seg.Palette); err != nil {
			return fmt.Errorf("render segment %d: %w", i, err)
		}
	}

	for i, seg := range p.Storyboard {
		if seg.Index != i {
			return fmt.Errorf("storyboard segment at position %d has index %d", i, seg.Index)
		}
	}

	return nil
}

func validatePalette(pal Palette) error {
	for _, c := range []struct {
		name  string
		value int
	}{
		{"red", pal.Red},
		{"green", pal.Green},
		{"blue", pal.Blue},
		{"accent", pal.Accent},
	} {
		if c.value < 0 || c.value > 255 {
			return fmt.Errorf("palette component %s = %d out of range [0, 255]", c.name, c.value)
		}
	}
	return nil
}

// Decode parses a plan from its JSON wire form and validates it.
func Decode(r io.Reader) (*RenderPlan, error) {
	var p RenderPlan
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if err := Validate(&p); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return &p, nil
}
