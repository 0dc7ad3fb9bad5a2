package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

// JobRepository implements contracts.JobRepository
// ⭐ SSOT: Job 레코드와 리스는 여기서만 다룸
//
// 상호 배제는 단일 조건부 UPDATE로만 보장한다 - 프로세스 내 락 없음.
type JobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository
func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

const jobColumns = `
	job_id, job_type, as_of_date, universe_id, config_id, status,
	attempt_count, lease_expires_at, last_heartbeat_at, created_at, updated_at
`

// Create inserts a queued job record
func (r *JobRepository) Create(ctx context.Context, job *contracts.Job) error {
	query := `
		INSERT INTO jobs.jobs (
			job_id, job_type, as_of_date, universe_id, config_id,
			status, attempt_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, 'queued', 0, NOW(), NOW())
	`

	_, err := r.pool.Exec(ctx, query,
		job.JobID, string(job.JobType), job.AsOfDate, job.UniverseID, job.ConfigID,
	)
	if err != nil {
		return contracts.Transient("jobs.create", err)
	}

	return nil
}

// Get returns one job by id
func (r *JobRepository) Get(ctx context.Context, jobID string) (*contracts.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs.jobs WHERE job_id = $1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job %s not found", jobID)
		}
		return nil, contracts.Transient("jobs.get", err)
	}

	return job, nil
}

// Claim atomically takes ownership of a job.
// Succeeds iff status='queued' OR the previous lease has expired. Exactly one
// of two concurrent claims can win: both race through the same conditional
// UPDATE and the loser matches zero rows.
func (r *JobRepository) Claim(ctx context.Context, jobID string, lease time.Duration) (*contracts.Job, error) {
	query := `
		UPDATE jobs.jobs
		SET status = 'running',
			attempt_count = attempt_count + 1,
			lease_expires_at = NOW() + $2,
			last_heartbeat_at = NOW(),
			updated_at = NOW()
		WHERE job_id = $1
			AND (status = 'queued' OR (status = 'running' AND lease_expires_at < NOW()))
		RETURNING ` + jobColumns

	job, err := scanJob(r.pool.QueryRow(ctx, query, jobID, lease))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone else holds a live lease, or the job is already done
			return nil, contracts.ErrClaimLost
		}
		return nil, contracts.Transient("jobs.claim", err)
	}

	return job, nil
}

// Heartbeat refreshes last_heartbeat_at and extends the lease.
// Touches only lease columns, so it never conflicts with stage writes.
func (r *JobRepository) Heartbeat(ctx context.Context, jobID string, lease time.Duration) error {
	query := `
		UPDATE jobs.jobs
		SET last_heartbeat_at = NOW(),
			lease_expires_at = NOW() + $2
		WHERE job_id = $1 AND status = 'running'
	`

	tag, err := r.pool.Exec(ctx, query, jobID, lease)
	if err != nil {
		return contracts.Transient("jobs.heartbeat", err)
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrClaimLost
	}

	return nil
}

// Finish marks the job terminal and clears the lease
func (r *JobRepository) Finish(ctx context.Context, jobID string, status contracts.JobStatus) error {
	query := `
		UPDATE jobs.jobs
		SET status = $2, lease_expires_at = NULL, updated_at = NOW()
		WHERE job_id = $1
	`

	_, err := r.pool.Exec(ctx, query, jobID, string(status))
	if err != nil {
		return contracts.Transient("jobs.finish", err)
	}

	return nil
}

// Requeue resets a retryable failure back to 'queued'; the un-archived queue
// message redelivers it after the visibility window.
func (r *JobRepository) Requeue(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs.jobs
		SET status = 'queued', lease_expires_at = NULL, updated_at = NOW()
		WHERE job_id = $1
	`

	_, err := r.pool.Exec(ctx, query, jobID)
	if err != nil {
		return contracts.Transient("jobs.requeue", err)
	}

	return nil
}

func scanJob(row pgx.Row) (*contracts.Job, error) {
	var job contracts.Job
	var jobType, status string

	err := row.Scan(
		&job.JobID, &jobType, &job.AsOfDate, &job.UniverseID, &job.ConfigID, &status,
		&job.AttemptCount, &job.LeaseExpiresAt, &job.LastHeartbeatAt,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.JobType = contracts.JobType(jobType)
	job.Status = contracts.JobStatus(status)

	return &job, nil
}
