package playback

import (
	"errors"
	"testing"
)

func TestParseRange(t *testing.T) {
	const size = 1000

	tests := []struct {
		name      string
		header    string
		wantStart int64
		wantEnd   int64
		wantErr   error
		wantNil   bool
	}{
		{"no header", "", 0, 0, nil, true},
		{"full range", "bytes=0-999", 0, 999, nil, false},
		{"open ended", "bytes=500-", 500, 999, nil, false},
		{"suffix", "bytes=-200", 800, 999, nil, false},
		{"suffix larger than file", "bytes=-5000", 0, 999, nil, false},
		{"end clamped to size", "bytes=900-5000", 900, 999, nil, false},
		{"multi range uses first", "bytes=0-99,200-299", 0, 99, nil, false},
		{"missing prefix", "0-99", 0, 0, ErrInvalidRange, false},
		{"garbage", "bytes=abc-def", 0, 0, ErrInvalidRange, false},
		{"negative start", "bytes=--5", 0, 0, ErrInvalidRange, false},
		{"zero suffix", "bytes=-0", 0, 0, ErrInvalidRange, false},
		{"start past end", "bytes=500-100", 0, 0, ErrUnsatisfiable, false},
		{"start past size", "bytes=1000-", 0, 0, ErrUnsatisfiable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header, size)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseRange(%q) error = %v, want %v", tt.header, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRange(%q) error = %v", tt.header, err)
			}
			if tt.wantNil {
				if got != nil {
					t.Fatalf("ParseRange(%q) = %+v, want nil", tt.header, got)
				}
				return
			}
			if got.Start != tt.wantStart || got.End != tt.wantEnd {
				t.Errorf("ParseRange(%q) = [%d, %d], want [%d, %d]",
					tt.header, got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestRangeContentHeaders(t *testing.T) {
	r := Range{Start: 100, End: 199}
	if got := r.ContentLength(); got != 100 {
		t.Errorf("ContentLength() = %d, want 100", got)
	}
	if got := r.ContentRange(1000); got != "bytes 100-199/1000" {
		t.Errorf("ContentRange() = %q", got)
	}
}
