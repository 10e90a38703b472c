// Package store persists a local record of every created automation plus an
// audit trail per workflow step. The record backs idempotent replay for
// duplicate submissions and out-of-band reconciliation of linkage failures.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dca-automation/internal/models"
)

// Store wraps pgxpool for Postgres persistence.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pooled connection to Postgres.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CreateAutomationParams collects inputs for inserting a record.
type CreateAutomationParams struct {
	PlanID       string
	JobID        string
	Mode         models.ExecutionMode
	OwnerAddress string
	ScriptRef    models.ContentRef
	MetadataRef  models.ContentRef
	Executions   int
}

// CreateAutomation inserts a record for the plan. plan_id is unique: losing a
// race simply returns the row the winner inserted.
func (s *Store) CreateAutomation(ctx context.Context, p CreateAutomationParams) (models.Automation, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO automations (id, plan_id, job_id, mode, owner_address, script_cid, script_url, metadata_cid, metadata_url, executions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (plan_id) DO NOTHING
	`, id, p.PlanID, p.JobID, string(p.Mode), p.OwnerAddress, p.ScriptRef.CID, p.ScriptRef.URL, p.MetadataRef.CID, p.MetadataRef.URL, p.Executions, now)
	if err != nil {
		return models.Automation{}, fmt.Errorf("insert automation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, found, err := s.FindByPlanID(ctx, p.PlanID)
		if err != nil {
			return models.Automation{}, err
		}
		if !found {
			return models.Automation{}, errors.New("plan conflict but no existing automation found")
		}
		return existing, nil
	}

	return models.Automation{
		ID:           id,
		PlanID:       p.PlanID,
		JobID:        p.JobID,
		Mode:         p.Mode,
		OwnerAddress: p.OwnerAddress,
		ScriptCID:    p.ScriptRef.CID,
		ScriptURL:    p.ScriptRef.URL,
		MetadataCID:  p.MetadataRef.CID,
		MetadataURL:  p.MetadataRef.URL,
		Executions:   p.Executions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// FindByPlanID returns the automation recorded for the plan, if any.
func (s *Store) FindByPlanID(ctx context.Context, planID string) (models.Automation, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, plan_id, job_id, mode, owner_address, script_cid, script_url, metadata_cid, metadata_url, executions, created_at, updated_at
		FROM automations WHERE plan_id = $1
	`, planID)

	var a models.Automation
	var mode string
	err := row.Scan(&a.ID, &a.PlanID, &a.JobID, &mode, &a.OwnerAddress, &a.ScriptCID, &a.ScriptURL, &a.MetadataCID, &a.MetadataURL, &a.Executions, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Automation{}, false, nil
	}
	if err != nil {
		return models.Automation{}, false, fmt.Errorf("scan automation: %w", err)
	}
	a.Mode = models.ExecutionMode(mode)
	return a, true, nil
}

// AppendAudit adds an audit row for a workflow step.
func (s *Store) AppendAudit(ctx context.Context, planID, event, detail string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO automation_audit (plan_id, event, detail, ts)
		VALUES ($1, $2, $3, NOW())
	`, planID, event, detail)
	return err
}

// ListAudit returns the audit trail for a plan, oldest first.
func (s *Store) ListAudit(ctx context.Context, planID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT plan_id, event, detail, ts
		FROM automation_audit WHERE plan_id = $1 ORDER BY id ASC LIMIT $2
	`, planID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var out []models.AuditLog
	for rows.Next() {
		var entry models.AuditLog
		if err := rows.Scan(&entry.PlanID, &entry.Event, &entry.Detail, &entry.Recorded); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
