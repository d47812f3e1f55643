package api

import (
	"time"

	"github.com/framecast/framecast-agent/internal/exporter"
	"github.com/framecast/framecast-agent/internal/library"
	"github.com/framecast/framecast-agent/internal/plan"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State         string          `json:"state"`
	LastError     string          `json:"last_error,omitempty"`
	PlansCount    int             `json:"plans_count"`
	PlanLoaded    bool            `json:"plan_loaded"`
	ActiveExport  *ExportResponse `json:"active_export,omitempty"`
	CaptureMode   string          `json:"capture_mode,omitempty"`
	CanvasWidth   int             `json:"canvas_width"`
	CanvasHeight  int             `json:"canvas_height"`
	FrameRate     int             `json:"frame_rate"`
	TotalFrames   int             `json:"total_frames_per_export"`
}

type GeneratePlanRequest struct {
	Prompt string `json:"prompt"`
}

type PlanResponse struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt,omitempty"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`

	Plan *plan.RenderPlan `json:"plan,omitempty"`
}

type PlansResponse struct {
	Plans []PlanResponse `json:"plans"`
}

type StartExportRequest struct {
	PlanID string `json:"plan_id,omitempty"`
}

type StartExportResponse struct {
	ExportID string `json:"export_id"`
}

type ExportResponse struct {
	ID             string `json:"id"`
	PlanID         string `json:"plan_id,omitempty"`
	Status         string `json:"status"`
	Strategy       string `json:"strategy,omitempty"`
	Format         string `json:"format,omitempty"`
	FramesRendered int    `json:"frames_rendered"`
	TotalFrames    int    `json:"total_frames"`
	ProgressPct    int    `json:"progress_pct"`
	Error          string `json:"error,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

type ExportsResponse struct {
	Exports []ExportResponse `json:"exports"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func PlanToResponse(r *library.PlanRecord, p *plan.RenderPlan) PlanResponse {
	resp := PlanResponse{
		ID:        r.ID,
		Prompt:    r.Prompt,
		Source:    r.Source,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		Plan:      p,
	}
	return resp
}

func ExportToResponse(e *library.Export) ExportResponse {
	pct := 0
	if e.TotalFrames > 0 {
		pct = e.FramesRendered * 100 / e.TotalFrames
	}
	return ExportResponse{
		ID:             e.ID,
		PlanID:         e.PlanID,
		Status:         e.Status,
		Strategy:       e.Strategy,
		Format:         e.Format,
		FramesRendered: e.FramesRendered,
		TotalFrames:    e.TotalFrames,
		ProgressPct:    pct,
		Error:          e.Error,
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func SessionToResponse(s exporter.Session) ExportResponse {
	return ExportResponse{
		ID:             s.ID,
		PlanID:         s.PlanID,
		Status:         string(s.Status),
		Strategy:       s.Strategy,
		Format:         s.Format.Name,
		FramesRendered: s.FramesRendered,
		TotalFrames:    s.TotalFrames,
		ProgressPct:    s.Progress(),
		Error:          s.Error,
	}
}
