// Package planner provides clients for the plan generation collaborator.
// The agent never re-derives plan content; it asks a planner for a
// complete RenderPlan and validates it on arrival. A local deterministic
// planner is used unless a remote planning service is configured.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/framecast/framecast-agent/internal/plan"
)

// Client produces render plans from prompts.
type Client interface {
	CreatePlan(ctx context.Context, prompt string) (*plan.RenderPlan, error)
}

// LocalClient generates plans in-process with the deterministic
// generator.
type LocalClient struct {
	gen    *plan.Generator
	logger *slog.Logger
}

// NewLocalClient creates an in-process planner.
func NewLocalClient(logger *slog.Logger) *LocalClient {
	return &LocalClient{gen: plan.NewGenerator(), logger: logger}
}

func (c *LocalClient) CreatePlan(ctx context.Context, prompt string) (*plan.RenderPlan, error) {
	p, err := c.gen.Generate(prompt)
	if err != nil {
		return nil, err
	}
	if c.logger != nil {
		c.logger.Info("plan generated locally", "segments", p.SegmentCount())
	}
	return p, nil
}

// PlanServiceError represents an error response from the remote planning
// service.
type PlanServiceError struct {
	StatusCode int
	Body       string
}

func (e *PlanServiceError) Error() string {
	return fmt.Sprintf("plan service failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors (4xx)
// are considered permanent.
func (e *PlanServiceError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPClient talks to a remote planning service that implements the
// POST /api/generate contract.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a remote planner client.
func NewHTTPClient(baseURL, token string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

func (c *HTTPClient) CreatePlan(ctx context.Context, prompt string) (*plan.RenderPlan, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("marshal plan request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build plan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plan service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &PlanServiceError{StatusCode: resp.StatusCode, Body: string(tail)}
	}

	p, err := plan.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("plan service response: %w", err)
	}

	if c.logger != nil {
		c.logger.Info("plan received from planning service", "segments", p.SegmentCount())
	}
	return p, nil
}
