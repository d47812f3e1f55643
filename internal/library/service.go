package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/framecast/framecast-agent/internal/plan"
	"github.com/framecast/framecast-agent/internal/planner"
)

// LibraryService manages stored plans and their decoded form.
type LibraryService interface {
	GeneratePlan(ctx context.Context, prompt string) (*PlanRecord, *plan.RenderPlan, error)
	ImportPlan(ctx context.Context, payload []byte, source string) (*PlanRecord, *plan.RenderPlan, error)
	GetPlan(ctx context.Context, id string) (*PlanRecord, *plan.RenderPlan, error)
	LatestPlan(ctx context.Context) (*PlanRecord, *plan.RenderPlan, error)
	ListPlans(ctx context.Context, limit int) ([]*PlanRecord, error)
}

type Service struct {
	repo    Repository
	planner planner.Client
	source  string
	logger  *slog.Logger
}

// NewService creates a library service backed by the given planner. The
// source label records where generated plans came from (local or
// remote).
func NewService(repo Repository, client planner.Client, source string, logger *slog.Logger) *Service {
	return &Service{repo: repo, planner: client, source: source, logger: logger}
}

// GeneratePlan asks the planner for a plan and stores it.
func (s *Service) GeneratePlan(ctx context.Context, prompt string) (*PlanRecord, *plan.RenderPlan, error) {
	p, err := s.planner.CreatePlan(ctx, prompt)
	if err != nil {
		return nil, nil, err
	}
	if err := plan.Validate(p); err != nil {
		return nil, nil, fmt.Errorf("planner returned invalid plan: %w", err)
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal plan: %w", err)
	}

	record := &PlanRecord{
		ID:        NewID(),
		Prompt:    prompt,
		Source:    s.source,
		Payload:   string(payload),
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreatePlan(ctx, record); err != nil {
		return nil, nil, err
	}

	if s.logger != nil {
		s.logger.Info("plan stored", "plan_id", record.ID, "source", record.Source)
	}
	return record, p, nil
}

// ImportPlan validates and stores an externally produced plan payload.
func (s *Service) ImportPlan(ctx context.Context, payload []byte, source string) (*PlanRecord, *plan.RenderPlan, error) {
	var p plan.RenderPlan
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, nil, fmt.Errorf("decode plan: %w", err)
	}
	if err := plan.Validate(&p); err != nil {
		return nil, nil, fmt.Errorf("invalid plan: %w", err)
	}
	if source == "" {
		source = PlanSourceImport
	}

	record := &PlanRecord{
		ID:        NewID(),
		Source:    source,
		Payload:   string(payload),
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreatePlan(ctx, record); err != nil {
		return nil, nil, err
	}

	if s.logger != nil {
		s.logger.Info("plan imported", "plan_id", record.ID)
	}
	return record, &p, nil
}

// GetPlan loads a stored plan and decodes its payload.
func (s *Service) GetPlan(ctx context.Context, id string) (*PlanRecord, *plan.RenderPlan, error) {
	record, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, nil
	}
	p, err := decodeRecord(record)
	if err != nil {
		return nil, nil, err
	}
	return record, p, nil
}

// LatestPlan loads the most recently stored plan, if any.
func (s *Service) LatestPlan(ctx context.Context) (*PlanRecord, *plan.RenderPlan, error) {
	record, err := s.repo.GetLatestPlan(ctx)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, nil
	}
	p, err := decodeRecord(record)
	if err != nil {
		return nil, nil, err
	}
	return record, p, nil
}

// ListPlans returns stored plan records, newest first.
func (s *Service) ListPlans(ctx context.Context, limit int) ([]*PlanRecord, error) {
	return s.repo.ListPlans(ctx, limit)
}

// ErrCorruptPlan reports a stored payload that no longer decodes. It is
// distinct from repository failures so callers can tell a bad row from a
// bad database.
var ErrCorruptPlan = errors.New("stored plan payload corrupt")

func decodeRecord(record *PlanRecord) (*plan.RenderPlan, error) {
	var p plan.RenderPlan
	if err := json.Unmarshal([]byte(record.Payload), &p); err != nil {
		return nil, fmt.Errorf("%w: plan %s: %v", ErrCorruptPlan, record.ID, err)
	}
	return &p, nil
}
