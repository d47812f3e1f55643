package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/framecast/framecast-agent/internal/db"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewRepository(database.Conn())
}

func TestPlanCRUD(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	record := &PlanRecord{
		ID:        NewID(),
		Prompt:    "a calm ocean",
		Source:    PlanSourceLocal,
		Payload:   `{"storyboard":[],"render_segments":[]}`,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.CreatePlan(ctx, record); err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}

	got, err := repo.GetPlan(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetPlan() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetPlan() returned nil for stored plan")
	}
	if got.Prompt != record.Prompt || got.Source != record.Source || got.Payload != record.Payload {
		t.Errorf("GetPlan() = %+v, want %+v", got, record)
	}
	if !got.CreatedAt.Equal(record.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, record.CreatedAt)
	}

	count, err := repo.CountPlans(ctx)
	if err != nil {
		t.Fatalf("CountPlans() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountPlans() = %d, want 1", count)
	}
}

func TestGetPlanMissing(t *testing.T) {
	repo := testRepo(t)

	got, err := repo.GetPlan(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetPlan() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetPlan(missing) = %+v, want nil", got)
	}
}

func TestGetLatestPlan(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if got, err := repo.GetLatestPlan(ctx); err != nil || got != nil {
		t.Fatalf("GetLatestPlan() on empty table = (%+v, %v), want (nil, nil)", got, err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		record := &PlanRecord{
			ID:        NewID(),
			Prompt:    "plan",
			Source:    PlanSourceLocal,
			Payload:   "{}",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreatePlan(ctx, record); err != nil {
			t.Fatalf("CreatePlan(%d) error = %v", i, err)
		}
	}

	latest, err := repo.GetLatestPlan(ctx)
	if err != nil {
		t.Fatalf("GetLatestPlan() error = %v", err)
	}
	if latest == nil || !latest.CreatedAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("GetLatestPlan() = %+v, want the newest record", latest)
	}

	plans, err := repo.ListPlans(ctx, 10)
	if err != nil {
		t.Fatalf("ListPlans() error = %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("ListPlans() returned %d plans, want 3", len(plans))
	}
	if !plans[0].CreatedAt.After(plans[2].CreatedAt) {
		t.Error("ListPlans() not ordered newest first")
	}
}

func TestSaveExportUpsert(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	export := &Export{
		ID:             NewID(),
		PlanID:         "plan-1",
		Status:         "capturing",
		Strategy:       "manual-push",
		Format:         "mjpeg-avi",
		FramesRendered: 30,
		TotalFrames:    3600,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
		UpdatedAt:      time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.SaveExport(ctx, export); err != nil {
		t.Fatalf("SaveExport() insert error = %v", err)
	}

	export.Status = "complete"
	export.FramesRendered = 3600
	export.ArtifactPath = "/tmp/a.avi"
	if err := repo.SaveExport(ctx, export); err != nil {
		t.Fatalf("SaveExport() update error = %v", err)
	}

	got, err := repo.GetExport(ctx, export.ID)
	if err != nil {
		t.Fatalf("GetExport() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetExport() returned nil")
	}
	if got.Status != "complete" || got.FramesRendered != 3600 || got.ArtifactPath != "/tmp/a.avi" {
		t.Errorf("GetExport() = %+v, want updated row", got)
	}

	exports, err := repo.ListExports(ctx, 10)
	if err != nil {
		t.Fatalf("ListExports() error = %v", err)
	}
	if len(exports) != 1 {
		t.Errorf("ListExports() returned %d rows, want 1 (upsert, not insert)", len(exports))
	}
}

func TestGetExportMissing(t *testing.T) {
	repo := testRepo(t)

	got, err := repo.GetExport(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetExport() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetExport(missing) = %+v, want nil", got)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if v, err := repo.GetConfig(ctx, "device_id"); err != nil || v != "" {
		t.Fatalf("GetConfig(missing) = (%q, %v), want empty", v, err)
	}

	if err := repo.SetConfig(ctx, "device_id", "abc"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "device_id", "def"); err != nil {
		t.Fatalf("SetConfig() overwrite error = %v", err)
	}

	v, err := repo.GetConfig(ctx, "device_id")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if v != "def" {
		t.Errorf("GetConfig() = %q, want def", v)
	}
}

func TestInterruptedExportsFailOnReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	database, err := db.New(path, nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	repo := NewRepository(database.Conn())
	ctx := context.Background()

	export := &Export{
		ID:          NewID(),
		PlanID:      "plan-1",
		Status:      "capturing",
		TotalFrames: 3600,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := repo.SaveExport(ctx, export); err != nil {
		t.Fatalf("SaveExport() error = %v", err)
	}
	database.Close()

	reopened, err := db.New(path, nil)
	if err != nil {
		t.Fatalf("db.New() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := NewRepository(reopened.Conn()).GetExport(ctx, export.ID)
	if err != nil {
		t.Fatalf("GetExport() error = %v", err)
	}
	if got.Status != "failed" {
		t.Errorf("interrupted export status = %q, want failed", got.Status)
	}
	if got.Error == "" {
		t.Error("interrupted export has no error message")
	}
}
