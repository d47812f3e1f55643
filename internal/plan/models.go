// Package plan defines the render plan data model and the deterministic
// plan generator. A plan is an ordered set of twenty six-second segments,
// each carrying a colour palette and a caption, covering a nominal two
// minute timeline. Plans are immutable once constructed.
package plan

import "time"

const (
	// SegmentDurationSeconds is the fixed duration of every segment.
	SegmentDurationSeconds = 6

	// TotalVideoSeconds is the nominal duration of a full plan.
	TotalVideoSeconds = 120

	// SegmentsPerVideo is the fixed segment count of a valid plan.
	SegmentsPerVideo = TotalVideoSeconds / SegmentDurationSeconds
)

// SegmentDuration is SegmentDurationSeconds as a time.Duration.
const SegmentDuration = SegmentDurationSeconds * time.Second

// TotalDuration is TotalVideoSeconds as a time.Duration.
const TotalDuration = TotalVideoSeconds * time.Second

// Palette holds the four colour components a segment is rendered from.
// Components are in [0, 255].
type Palette struct {
	Red    int `json:"red"`
	Green  int `json:"green"`
	Blue   int `json:"blue"`
	Accent int `json:"accent"`
}

// StorySegment is one storyboard entry describing a segment in prose.
type StorySegment struct {
	Index           int    `json:"index"`
	DurationSeconds int    `json:"duration_seconds"`
	Title           string `json:"title"`
	Description     string `json:"description"`
}

// RenderSegment carries the rendering instructions for one segment.
type RenderSegment struct {
	Index           int     `json:"index"`
	DurationSeconds int     `json:"duration_seconds"`
	Palette         Palette `json:"palette"`
	Caption         string  `json:"caption"`
}

// RenderPlan is the complete plan for one video: the human-readable
// storyboard and the machine-consumed render segments, index-aligned.
type RenderPlan struct {
	Storyboard     []StorySegment  `json:"storyboard"`
	RenderSegments []RenderSegment `json:"render_segments"`
}

// Segment returns the render segment at index i and whether it exists.
func (p *RenderPlan) Segment(i int) (RenderSegment, bool) {
	if i < 0 || i >= len(p.RenderSegments) {
		return RenderSegment{}, false
	}
	return p.RenderSegments[i], true
}

// SegmentCount returns the number of render segments in the plan.
func (p *RenderPlan) SegmentCount() int {
	return len(p.RenderSegments)
}
