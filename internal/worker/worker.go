package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/internal/queue"
	"github.com/dkwon/vigil/backend/internal/s0_features"
	"github.com/dkwon/vigil/backend/pkg/config"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// Worker polls the durable queue, claims jobs under a renewable lease, and
// drives the stage pipeline.
// ⭐ SSOT: 잡 실행 오케스트레이션은 여기서만
//
// One worker executes one job at a time; the only auxiliary goroutine is
// the per-job heartbeat.
type Worker struct {
	queue     *queue.Queue
	jobs      contracts.JobRepository
	runs      contracts.RunRepository
	universes contracts.UniverseSelector
	gate      *s0_features.CoverageGate
	runners   map[contracts.Stage]contracts.StageRunner
	cfg       config.WorkerConfig
	retry     RetryPolicy
	log       *logger.Logger
}

// New creates a worker over the given stage runners
func New(
	q *queue.Queue,
	jobs contracts.JobRepository,
	runs contracts.RunRepository,
	universes contracts.UniverseSelector,
	gate *s0_features.CoverageGate,
	runners []contracts.StageRunner,
	cfg config.WorkerConfig,
	log *logger.Logger,
) *Worker {
	byStage := make(map[contracts.Stage]contracts.StageRunner, len(runners))
	for _, r := range runners {
		byStage[r.Stage()] = r
	}

	return &Worker{
		queue:     q,
		jobs:      jobs,
		runs:      runs,
		universes: universes,
		gate:      gate,
		runners:   byStage,
		cfg:       cfg,
		retry:     DefaultRetryPolicy,
		log:       log.WithField("component", "worker"),
	}
}

// Run polls until the context is cancelled. Shutdown is cooperative: an
// in-flight job finishes its current stage sequence before the loop exits.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Infof("worker started (poll=%s lease=%s heartbeat=%s)",
		w.cfg.PollInterval, w.cfg.LeaseDuration, w.cfg.HeartbeatInterval)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping")
			return nil
		default:
		}

		msg, err := w.queue.Receive(ctx)
		if err != nil {
			w.log.WithError(err).Error("queue receive failed")
			w.idle(ctx)
			continue
		}
		if msg == nil {
			w.idle(ctx)
			continue
		}

		w.process(ctx, msg)
	}
}

// idle sleeps the poll interval, interruptible by shutdown
func (w *Worker) idle(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.PollInterval):
	}
}

// process handles one delivery: claim, execute, classify, finalize
func (w *Worker) process(ctx context.Context, msg *queue.Message) {
	log := w.log.WithField("job_id", msg.Payload.JobID)

	var job *contracts.Job
	err := w.retry.Do(ctx, log, "claim", func() error {
		var cerr error
		job, cerr = w.jobs.Claim(ctx, msg.Payload.JobID, w.cfg.LeaseDuration)
		return cerr
	})
	if err != nil {
		if errors.Is(err, contracts.ErrClaimLost) {
			// Another worker owns the lease - not a failure, just move on.
			// The message stays hidden until its visibility window passes.
			log.Debug("claim lost, skipping")
			return
		}
		log.WithError(err).Error("claim failed")
		return
	}

	log.Infof("claimed job type=%s date=%s attempt=%d",
		job.JobType, job.AsOfDate.Format("2006-01-02"), job.AttemptCount)

	run := &contracts.PipelineRun{
		RunID:     uuid.NewString(),
		JobID:     job.JobID,
		StartedAt: time.Now(),
		Status:    contracts.RunRunning,
	}
	if err := w.runs.Start(ctx, run); err != nil {
		log.WithError(err).Error("audit run insert failed")
		// Without the audit row a crash here is invisible - requeue and retry
		w.finalize(ctx, job, msg, run, err)
		return
	}

	hb := newHeartbeat(w.jobs, w.cfg.LeaseDuration, w.cfg.HeartbeatInterval, log)
	hb.Start(ctx, job.JobID)

	execErr := w.execute(ctx, job, run)

	hb.Stop()
	w.finalize(ctx, job, msg, run, execErr)
}

// execute runs the coverage gate then the job type's stage subset, in
// order, recording every stage result on the run
func (w *Worker) execute(ctx context.Context, job *contracts.Job, run *contracts.PipelineRun) error {
	spec, err := w.universes.Resolve(ctx, job.UniverseID)
	if err != nil {
		return err
	}

	gateResult, err := w.gate.Check(ctx, job.AsOfDate, spec)
	if gateResult != nil {
		run.Stages = append(run.Stages, *gateResult)
	}
	if err != nil {
		return err
	}

	for _, stage := range job.JobType.Stages() {
		runner, ok := w.runners[stage]
		if !ok {
			return &contracts.ConfigError{Detail: "no runner registered for stage " + stage.String()}
		}

		result, err := runner.Run(ctx, job)
		if result != nil {
			run.Stages = append(run.Stages, *result)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// finalize writes the audit row and applies the retry/terminal policy:
//
//	success           → archive message, job 'success'
//	terminal failure  → archive message, job 'failed' (no redelivery)
//	transient failure → requeue job, leave message for redelivery,
//	                    until MaxRetries attempts are spent
func (w *Worker) finalize(ctx context.Context, job *contracts.Job, msg *queue.Message, run *contracts.PipelineRun, execErr error) {
	log := w.log.WithField("job_id", job.JobID)

	now := time.Now()
	run.EndedAt = &now
	if execErr != nil {
		run.Status = contracts.RunFailed
		run.ErrorText = execErr.Error()
	} else {
		run.Status = contracts.RunSuccess
	}
	if err := w.runs.Finish(ctx, run); err != nil {
		log.WithError(err).Error("audit run finalize failed")
	}

	if execErr == nil {
		w.conclude(ctx, job.JobID, msg.MsgID, contracts.JobSuccess)
		log.Infof("job succeeded (%d stages)", len(run.Stages))
		return
	}

	if contracts.IsRetryable(execErr) && job.AttemptCount < w.cfg.MaxRetries {
		// Backoff is the queue's visibility window - no in-process sleep
		err := w.retry.Do(ctx, log, "requeue", func() error {
			return w.jobs.Requeue(ctx, job.JobID)
		})
		if err != nil {
			log.WithError(err).Error("requeue failed")
		}
		log.WithError(execErr).Warnf("transient failure, attempt %d/%d, will redeliver",
			job.AttemptCount, w.cfg.MaxRetries)
		return
	}

	if contracts.IsRetryable(execErr) {
		log.WithError(execErr).Errorf("retries exhausted after %d attempts", job.AttemptCount)
	} else {
		log.WithError(execErr).Error("terminal failure, not retrying")
	}
	w.conclude(ctx, job.JobID, msg.MsgID, contracts.JobFailed)
}

// conclude marks the job terminal and archives its message
func (w *Worker) conclude(ctx context.Context, jobID string, msgID int64, status contracts.JobStatus) {
	log := w.log.WithField("job_id", jobID)

	err := w.retry.Do(ctx, log, "finish", func() error {
		return w.jobs.Finish(ctx, jobID, status)
	})
	if err != nil {
		log.WithError(err).Error("job finish failed")
	}

	err = w.retry.Do(ctx, log, "archive", func() error {
		return w.queue.Archive(ctx, msgID)
	})
	if err != nil {
		log.WithError(err).Error("message archive failed")
	}
}
