package library

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreatePlan(ctx context.Context, p *PlanRecord) error
	GetPlan(ctx context.Context, id string) (*PlanRecord, error)
	GetLatestPlan(ctx context.Context) (*PlanRecord, error)
	ListPlans(ctx context.Context, limit int) ([]*PlanRecord, error)
	CountPlans(ctx context.Context) (int, error)

	SaveExport(ctx context.Context, e *Export) error
	GetExport(ctx context.Context, id string) (*Export, error)
	ListExports(ctx context.Context, limit int) ([]*Export, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreatePlan(ctx context.Context, p *PlanRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO plans (id, prompt, source, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Prompt, p.Source, p.Payload, p.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetPlan(ctx context.Context, id string) (*PlanRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, prompt, source, payload, created_at
		FROM plans WHERE id = ?
	`, id)
	return scanPlan(row)
}

func (r *SQLiteRepository) GetLatestPlan(ctx context.Context) (*PlanRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, prompt, source, payload, created_at
		FROM plans ORDER BY created_at DESC, id DESC LIMIT 1
	`)
	return scanPlan(row)
}

func scanPlan(row *sql.Row) (*PlanRecord, error) {
	var p PlanRecord
	var createdAt string

	err := row.Scan(&p.ID, &p.Prompt, &p.Source, &p.Payload, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (r *SQLiteRepository) ListPlans(ctx context.Context, limit int) ([]*PlanRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, prompt, source, payload, created_at
		FROM plans ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*PlanRecord
	for rows.Next() {
		var p PlanRecord
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Prompt, &p.Source, &p.Payload, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		plans = append(plans, &p)
	}
	return plans, rows.Err()
}

func (r *SQLiteRepository) CountPlans(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plans").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) SaveExport(ctx context.Context, e *Export) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (id, plan_id, status, strategy, format, frames_rendered,
			total_frames, artifact_path, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			strategy = excluded.strategy,
			format = excluded.format,
			frames_rendered = excluded.frames_rendered,
			total_frames = excluded.total_frames,
			artifact_path = excluded.artifact_path,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, e.ID, e.PlanID, e.Status, e.Strategy, e.Format, e.FramesRendered,
		e.TotalFrames, e.ArtifactPath, e.Error,
		e.CreatedAt.Format(time.RFC3339), e.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetExport(ctx context.Context, id string) (*Export, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, plan_id, status, strategy, format, frames_rendered,
			total_frames, artifact_path, error, created_at, updated_at
		FROM exports WHERE id = ?
	`, id)

	var e Export
	var createdAt, updatedAt string
	err := row.Scan(&e.ID, &e.PlanID, &e.Status, &e.Strategy, &e.Format,
		&e.FramesRendered, &e.TotalFrames, &e.ArtifactPath, &e.Error,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &e, nil
}

func (r *SQLiteRepository) ListExports(ctx context.Context, limit int) ([]*Export, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, plan_id, status, strategy, format, frames_rendered,
			total_frames, artifact_path, error, created_at, updated_at
		FROM exports ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []*Export
	for rows.Next() {
		var e Export
		var createdAt, updatedAt string
		if err := rows.Scan(&e.ID, &e.PlanID, &e.Status, &e.Strategy, &e.Format,
			&e.FramesRendered, &e.TotalFrames, &e.ArtifactPath, &e.Error,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		exports = append(exports, &e)
	}
	return exports, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
