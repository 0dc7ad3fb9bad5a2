package repos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

// RunRepository implements contracts.RunRepository
// ⭐ SSOT: 실행 시도 감사 기록은 여기서만
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Start inserts the audit row at claim time, before any stage executes
func (r *RunRepository) Start(ctx context.Context, run *contracts.PipelineRun) error {
	query := `
		INSERT INTO jobs.runs (run_id, job_id, started_at, status, stages)
		VALUES ($1, $2, $3, 'running', '[]'::jsonb)
	`

	_, err := r.pool.Exec(ctx, query, run.RunID, run.JobID, run.StartedAt)
	if err != nil {
		return contracts.Transient("runs.start", err)
	}

	return nil
}

// Finish finalizes the row with the per-stage breakdown.
// Called on success AND failure - a run with no finish row means a crash.
func (r *RunRepository) Finish(ctx context.Context, run *contracts.PipelineRun) error {
	stages, err := json.Marshal(run.Stages)
	if err != nil {
		return fmt.Errorf("marshal stage results for run %s: %w", run.RunID, err)
	}

	query := `
		UPDATE jobs.runs
		SET ended_at = $2, status = $3, stages = $4, error_text = $5
		WHERE run_id = $1
	`

	_, err = r.pool.Exec(ctx, query,
		run.RunID, run.EndedAt, string(run.Status), stages, run.ErrorText,
	)
	if err != nil {
		return contracts.Transient("runs.finish", err)
	}

	return nil
}

// ListByJob returns all attempts for a job, oldest first
func (r *RunRepository) ListByJob(ctx context.Context, jobID string) ([]*contracts.PipelineRun, error) {
	query := `
		SELECT run_id, job_id, started_at, ended_at, status, stages, error_text
		FROM jobs.runs
		WHERE job_id = $1
		ORDER BY started_at
	`

	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, contracts.Transient("runs.list_by_job", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows pgx.Rows) ([]*contracts.PipelineRun, error) {
	var runs []*contracts.PipelineRun

	for rows.Next() {
		var run contracts.PipelineRun
		var status string
		var stages []byte
		var errorText *string

		err := rows.Scan(
			&run.RunID, &run.JobID, &run.StartedAt, &run.EndedAt,
			&status, &stages, &errorText,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}

		run.Status = contracts.RunStatus(status)
		if len(stages) > 0 {
			if err := json.Unmarshal(stages, &run.Stages); err != nil {
				return nil, fmt.Errorf("unmarshal stage results: %w", err)
			}
		}
		if errorText != nil {
			run.ErrorText = *errorText
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, contracts.Transient("runs.scan", err)
	}

	return runs, nil
}
