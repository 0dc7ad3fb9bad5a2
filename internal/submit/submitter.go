package submit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/internal/queue"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// Submitter creates a job record and enqueues its message - the one
// implementation of the external job-submission interface.
// ⭐ SSOT: 잡 제출 경로는 여기 하나 (API, 스케줄러, CLI 공용)
type Submitter struct {
	jobs  contracts.JobRepository
	queue *queue.Queue
	log   *logger.Logger
}

// NewSubmitter creates a job submitter
func NewSubmitter(jobs contracts.JobRepository, q *queue.Queue, log *logger.Logger) *Submitter {
	return &Submitter{
		jobs:  jobs,
		queue: q,
		log:   log.WithField("component", "submit"),
	}
}

// Submit inserts a queued Job row, then enqueues the message workers poll
// for. The row exists before the message so a claim can never miss it.
func (s *Submitter) Submit(ctx context.Context, jobType contracts.JobType, asOf time.Time, universeID, configID string) (*contracts.Job, error) {
	job := &contracts.Job{
		JobID:      uuid.NewString(),
		JobType:    jobType,
		AsOfDate:   asOf,
		UniverseID: universeID,
		ConfigID:   configID,
		Status:     contracts.JobQueued,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	msg := &contracts.JobMessage{
		JobID:      job.JobID,
		JobType:    jobType,
		AsOfDate:   asOf.Format("2006-01-02"),
		UniverseID: universeID,
		ConfigID:   configID,
	}
	if err := s.queue.Enqueue(ctx, msg); err != nil {
		return nil, err
	}

	s.log.Infof("submitted %s job %s for %s/%s on %s",
		jobType, job.JobID, universeID, configID, msg.AsOfDate)

	return job, nil
}
