// Package library persists render plans and export session history in
// the agent's SQLite database.
package library

import (
	"time"

	"github.com/google/uuid"
)

// Plan origins.
const (
	PlanSourceLocal  = "local"
	PlanSourceRemote = "remote"
	PlanSourceImport = "import"
)

// PlanRecord is a stored render plan. Payload holds the plan's JSON wire
// form exactly as validated.
type PlanRecord struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Source    string    `json:"source"`
	Payload   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Export is the persisted history row for one export session.
type Export struct {
	ID             string    `json:"id"`
	PlanID         string    `json:"plan_id"`
	Status         string    `json:"status"`
	Strategy       string    `json:"strategy,omitempty"`
	Format         string    `json:"format,omitempty"`
	FramesRendered int       `json:"frames_rendered"`
	TotalFrames    int       `json:"total_frames"`
	ArtifactPath   string    `json:"artifact_path,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ConfigEntry is a key/value row in the config table.
type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewID returns a fresh identifier for plans and exports.
func NewID() string {
	return uuid.NewString()
}
