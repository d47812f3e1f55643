package playback

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func artifactFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deterministic-video.avi")
	if err := os.WriteFile(path, []byte("0123456789abcdef"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func serve(t *testing.T, path, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	s := NewServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/artifact", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	if err := s.ServeArtifact(rec, req, path); err != nil {
		t.Fatalf("ServeArtifact() error = %v", err)
	}
	return rec
}

func TestServeArtifactFull(t *testing.T) {
	rec := serve(t, artifactFixture(t), "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "0123456789abcdef" {
		t.Errorf("body = %q", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "deterministic-video.avi") {
		t.Errorf("Content-Disposition = %q", got)
	}
}

func TestServeArtifactPartial(t *testing.T) {
	rec := serve(t, artifactFixture(t), "bytes=4-7")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Body.String(); got != "4567" {
		t.Errorf("body = %q, want 4567", got)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 4-7/16" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestServeArtifactInvalidRangeDegradesToFull(t *testing.T) {
	rec := serve(t, artifactFixture(t), "elephants=4-7")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.Len(); got != 16 {
		t.Errorf("body length = %d, want 16", got)
	}
}

func TestServeArtifactUnsatisfiableRange(t *testing.T) {
	rec := serve(t, artifactFixture(t), "bytes=100-")

	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */16" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestServeArtifactMissingFile(t *testing.T) {
	rec := serve(t, filepath.Join(t.TempDir(), "missing.avi"), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
