package api

import (
	"encoding/json"
	"errors"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/framecast/framecast-agent/internal/config"
	"github.com/framecast/framecast-agent/internal/exporter"
	"github.com/framecast/framecast-agent/internal/library"
	"github.com/framecast/framecast-agent/internal/plan"
)

const maxImportBytes = 4 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  config.Version,
		UptimeS:  int64(time.Since(s.startTime).Seconds()),
		DeviceID: s.cfg.DeviceID,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.cfg.Repository.CountPlans(r.Context())
	if err != nil {
		s.logger.Error("failed to count plans", "error", err)
		WriteError(w, http.StatusInternalServerError, "database error", "INTERNAL_ERROR")
		return
	}

	resp := StatusResponse{
		State:        "idle",
		PlansCount:   count,
		PlanLoaded:   s.cfg.Preview.Plan() != nil,
		CaptureMode:  s.cfg.CaptureMode,
		CanvasWidth:  s.cfg.CanvasWidth,
		CanvasHeight: s.cfg.CanvasHeight,
		FrameRate:    s.cfg.FrameRate,
		TotalFrames:  s.cfg.TotalFrames,
	}

	if session, ok := s.cfg.Controller.Current(); ok {
		if !session.Status.Terminal() {
			resp.State = string(session.Status)
			er := SessionToResponse(session)
			resp.ActiveExport = &er
		} else if session.Status == exporter.StatusFailed {
			resp.LastError = session.Error
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req GeneratePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		WriteError(w, http.StatusBadRequest, "prompt is required", "BAD_REQUEST")
		return
	}

	record, p, err := s.cfg.Library.GeneratePlan(r.Context(), req.Prompt)
	if err != nil {
		s.logger.Error("plan generation failed", "error", err)
		WriteError(w, http.StatusBadGateway, "plan generation failed", "PLAN_FAILED")
		return
	}

	s.cfg.Preview.SetPlan(p)
	WriteJSON(w, http.StatusCreated, PlanToResponse(record, p))
}

func (s *Server) handleImportPlan(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read body", "BAD_REQUEST")
		return
	}

	record, p, err := s.cfg.Library.ImportPlan(r.Context(), payload, library.PlanSourceImport)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "INVALID_PLAN")
		return
	}

	s.cfg.Preview.SetPlan(p)
	WriteJSON(w, http.StatusCreated, PlanToResponse(record, p))
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	records, err := s.cfg.Library.ListPlans(r.Context(), 50)
	if err != nil {
		s.logger.Error("failed to list plans", "error", err)
		WriteError(w, http.StatusInternalServerError, "database error", "INTERNAL_ERROR")
		return
	}

	resp := PlansResponse{Plans: make([]PlanResponse, 0, len(records))}
	for _, record := range records {
		resp.Plans = append(resp.Plans, PlanToResponse(record, nil))
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, p, err := s.cfg.Library.GetPlan(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get plan", "plan_id", id, "error", err)
		if errors.Is(err, library.ErrCorruptPlan) {
			WriteError(w, http.StatusInternalServerError, "stored plan payload corrupt", "CORRUPT_PLAN")
			return
		}
		WriteError(w, http.StatusInternalServerError, "database error", "INTERNAL_ERROR")
		return
	}
	if record == nil {
		WriteError(w, http.StatusNotFound, "plan not found", "NOT_FOUND")
		return
	}

	WriteJSON(w, http.StatusOK, PlanToResponse(record, p))
}

func (s *Server) handleStartExport(w http.ResponseWriter, r *http.Request) {
	var req StartExportRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
	}

	var (
		record *library.PlanRecord
		p      *plan.RenderPlan
		err    error
	)
	if req.PlanID != "" {
		record, p, err = s.cfg.Library.GetPlan(r.Context(), req.PlanID)
	} else {
		record, p, err = s.cfg.Library.LatestPlan(r.Context())
	}
	if err != nil {
		s.logger.Error("failed to load plan for export", "error", err)
		WriteError(w, http.StatusInternalServerError, "database error", "INTERNAL_ERROR")
		return
	}
	if record == nil {
		WriteError(w, http.StatusBadRequest, "no plan available to export", "NO_PLAN")
		return
	}

	session, err := s.cfg.Controller.Start(p, record.ID)
	if err != nil {
		switch {
		case errors.Is(err, exporter.ErrConcurrentExport):
			WriteError(w, http.StatusConflict, "an export is already running", "EXPORT_BUSY")
		case errors.Is(err, exporter.ErrNoPlan):
			WriteError(w, http.StatusBadRequest, "no plan available to export", "NO_PLAN")
		default:
			s.logger.Error("failed to start export", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to start export", "INTERNAL_ERROR")
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, StartExportResponse{ExportID: session.ID})
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	exports, err := s.cfg.Repository.ListExports(r.Context(), 50)
	if err != nil {
		s.logger.Error("failed to list exports", "error", err)
		WriteError(w, http.StatusInternalServerError, "database error", "INTERNAL_ERROR")
		return
	}

	resp := ExportsResponse{Exports: make([]ExportResponse, 0, len(exports))}
	for _, e := range exports {
		resp.Exports = append(resp.Exports, ExportToResponse(e))
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// The live session is fresher than its persisted row.
	if session, ok := s.cfg.Controller.Current(); ok && session.ID == id {
		WriteJSON(w, http.StatusOK, SessionToResponse(session))
		return
	}

	export, err := s.cfg.Repository.GetExport(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get export", "export_id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "database error", "INTERNAL_ERROR")
		return
	}
	if export == nil {
		WriteError(w, http.StatusNotFound, "export not found", "NOT_FOUND")
		return
	}

	WriteJSON(w, http.StatusOK, ExportToResponse(export))
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	export, err := s.cfg.Repository.GetExport(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get export", "export_id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "database error", "INTERNAL_ERROR")
		return
	}
	if export == nil {
		WriteError(w, http.StatusNotFound, "export not found", "NOT_FOUND")
		return
	}
	if export.Status != string(exporter.StatusComplete) || export.ArtifactPath == "" {
		WriteError(w, http.StatusConflict, "export has no artifact", "NO_ARTIFACT")
		return
	}

	if err := s.playback.ServeArtifact(w, r, export.ArtifactPath); err != nil {
		s.logger.Error("failed to serve artifact", "export_id", id, "error", err)
	}
}

func (s *Server) handlePreviewFrame(w http.ResponseWriter, r *http.Request) {
	frame := s.cfg.Surface.Snapshot()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	if err := jpeg.Encode(w, frame, &jpeg.Options{Quality: 85}); err != nil {
		s.logger.Error("failed to encode preview frame", "error", err)
	}
}
