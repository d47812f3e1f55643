package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// Generator produces deterministic render plans from a text prompt. It
// stands in for the remote planning service when no planner URL is
// configured: the storyboard is derived from prompt tokens and palettes
// from prompt hashes, so the same prompt always yields the same plan.
type Generator struct{}

// NewGenerator creates a plan generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds a complete plan for the prompt. The prompt must contain
// non-whitespace characters.
func (g *Generator) Generate(prompt string) (*RenderPlan, error) {
	sanitized := strings.Join(strings.Fields(prompt), " ")
	if sanitized == "" {
		return nil, fmt.Errorf("prompt must contain non-whitespace characters")
	}

	words := strings.Split(sanitized, " ")
	themes := deriveThemes(words)

	storyboard := make([]StorySegment, 0, SegmentsPerVideo)
	for i := 0; i < SegmentsPerVideo; i++ {
		theme := themes[i%len(themes)]
		window := rollingWindow(words, i)
		storyboard = append(storyboard, StorySegment{
			Index:           i,
			DurationSeconds: SegmentDurationSeconds,
			Title:           titleWord(theme) + " focus",
			Description: fmt.Sprintf("Scene %d: Emphasise %s with elements %s.",
				i+1, theme, strings.Join(window, ", ")),
		})
	}

	// Palettes hash the prompt exactly as given, so whitespace variants
	// of a prompt keep their own colour identity even though the
	// storyboard text collapses them.
	seed := sha256.Sum256([]byte(prompt))
	seedHex := hex.EncodeToString(seed[:])

	renderSegments := make([]RenderSegment, 0, SegmentsPerVideo)
	for _, seg := range storyboard {
		renderSegments = append(renderSegments, RenderSegment{
			Index:           seg.Index,
			DurationSeconds: SegmentDurationSeconds,
			Palette:         segmentPalette(seedHex, seg.Index),
			Caption:         seg.Title + ": " + seg.Description,
		})
	}

	p := &RenderPlan{Storyboard: storyboard, RenderSegments: renderSegments}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// deriveThemes keeps the first occurrence of each purely alphabetic word,
// lower-cased and in prompt order.
func deriveThemes(words []string) []string {
	var themes []string
	seen := make(map[string]bool)
	for _, word := range words {
		normalized := strings.ToLower(word)
		if seen[normalized] || !isAlpha(normalized) {
			continue
		}
		seen[normalized] = true
		themes = append(themes, normalized)
	}
	if len(themes) == 0 {
		themes = []string{"concept"}
	}
	return themes
}

func rollingWindow(words []string, offset int) []string {
	const windowSize = 4
	window := make([]string, 0, windowSize)
	for i := 0; i < windowSize; i++ {
		window = append(window, words[(offset+i)%len(words)])
	}
	return window
}

func segmentPalette(seedHex string, index int) Palette {
	digest := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", seedHex, index)))
	return Palette{
		Red:    int(digest[0]),
		Green:  int(digest[1]),
		Blue:   int(digest[2]),
		Accent: int(digest[3]),
	}
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
