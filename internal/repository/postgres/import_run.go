// Package postgres implements the sync service's store interfaces against
// PostgreSQL. The audit record and consent ledger have no interesting query
// logic; each repository is a thin database/sql wrapper.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rtlmb/member-sync/internal/domain"
	syncsvc "github.com/rtlmb/member-sync/internal/service/sync"
)

// ImportRunRepo implements sync.RunStore against PostgreSQL.
type ImportRunRepo struct{ db *sql.DB }

// NewImportRunRepo creates a Postgres-backed import run repository.
func NewImportRunRepo(db *sql.DB) *ImportRunRepo { return &ImportRunRepo{db: db} }

func (r *ImportRunRepo) Create(ctx context.Context, run *domain.ImportRun) (string, error) {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO import_runs (id, file_name, total_rows, created_rows, updated_rows, error_rows, errors, status, started_at)
		VALUES ($1, $2, $3, 0, 0, 0, '[]', $4, $5)
	`, id, run.FileName, run.TotalRows, domain.RunRunning, run.StartedAt)
	if err != nil {
		return "", fmt.Errorf("create import run: %w", err)
	}
	return id, nil
}

func (r *ImportRunRepo) Finalize(ctx context.Context, run *domain.ImportRun) error {
	errsJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("marshal row errors: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE import_runs
		SET created_rows = $2, updated_rows = $3, error_rows = $4,
		    errors = $5, status = $6, completed_at = $7
		WHERE id = $1
	`, run.ID, run.CreatedRows, run.UpdatedRows, run.ErrorRows,
		errsJSON, run.Status, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("finalize import run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return syncsvc.ErrRunNotFound
	}
	return nil
}

func (r *ImportRunRepo) Get(ctx context.Context, id string) (*domain.ImportRun, error) {
	run := &domain.ImportRun{}
	var errsJSON []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, file_name, total_rows, created_rows, updated_rows, error_rows,
		       errors, status, started_at, completed_at
		FROM import_runs
		WHERE id = $1
	`, id).Scan(
		&run.ID, &run.FileName, &run.TotalRows, &run.CreatedRows, &run.UpdatedRows,
		&run.ErrorRows, &errsJSON, &run.Status, &run.StartedAt, &run.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, syncsvc.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import run: %w", err)
	}
	if len(errsJSON) > 0 {
		if err := json.Unmarshal(errsJSON, &run.Errors); err != nil {
			return nil, fmt.Errorf("parse row errors: %w", err)
		}
	}
	return run, nil
}
