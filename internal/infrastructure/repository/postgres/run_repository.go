package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

const maxListRuns = 100

// RunRepository stores one summary row per pipeline run.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api replicas.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS plant_article_runs (
	id TEXT PRIMARY KEY,
	request_id TEXT,
	species TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	fallback_reason TEXT NOT NULL DEFAULT '',
	article_chars INTEGER NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plant_article_runs_created_at ON plant_article_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_plant_article_runs_species ON plant_article_runs(species);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) Create(ctx context.Context, run domain.PipelineRun) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO plant_article_runs (
	id, request_id, species, confidence, fallback_reason, article_chars, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		run.ID, run.RequestID, run.Species, run.Confidence, string(run.FallbackReason),
		run.ArticleChars, run.DurationMS, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.PipelineRun, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, request_id, species, confidence, fallback_reason, article_chars, duration_ms, created_at
FROM plant_article_runs
WHERE id = $1
`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get run", fmt.Errorf("run %s", id))
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

// ListRecent returns the newest runs first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	if limit <= 0 || limit > maxListRuns {
		limit = maxListRuns
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, request_id, species, confidence, fallback_reason, article_chars, duration_ms, created_at
FROM plant_article_runs
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PipelineRun, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	var requestID sql.NullString
	var reason string
	if err := row.Scan(
		&run.ID, &requestID, &run.Species, &run.Confidence, &reason,
		&run.ArticleChars, &run.DurationMS, &run.CreatedAt,
	); err != nil {
		return nil, err
	}
	run.RequestID = requestID.String
	run.FallbackReason = domain.FallbackReason(reason)
	return &run, nil
}
