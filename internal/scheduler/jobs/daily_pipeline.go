package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/internal/submit"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// DailyPipelineJob submits the full evaluation run for each configured
// universe after the feature pipeline lands.
// ⭐ SSOT: 일일 파이프라인 잡 제출은 여기서만
type DailyPipelineJob struct {
	submitter *submit.Submitter
	universes []string
	configID  string
	schedule  string
	log       *logger.Logger
}

// NewDailyPipelineJob creates the daily submission job.
// Default schedule: weekdays 18:10 KST, after feature computation settles.
func NewDailyPipelineJob(submitter *submit.Submitter, universes []string, configID string, log *logger.Logger) *DailyPipelineJob {
	return &DailyPipelineJob{
		submitter: submitter,
		universes: universes,
		configID:  configID,
		schedule:  "0 10 18 * * 1-5",
		log:       log.WithField("job", "daily_pipeline"),
	}
}

// Name returns the job name
func (j *DailyPipelineJob) Name() string {
	return "daily_pipeline"
}

// Schedule returns the cron expression (with seconds)
func (j *DailyPipelineJob) Schedule() string {
	return j.schedule
}

// Run submits one full-run job per universe for today. A universe that
// fails to submit doesn't block the others; the first error is reported.
func (j *DailyPipelineJob) Run(ctx context.Context) error {
	asOf := time.Now()

	var firstErr error
	for _, universeID := range j.universes {
		job, err := j.submitter.Submit(ctx, contracts.JobTypeFull, asOf, universeID, j.configID)
		if err != nil {
			j.log.WithError(err).Errorf("submit failed for universe %s", universeID)
			if firstErr == nil {
				firstErr = fmt.Errorf("submit %s: %w", universeID, err)
			}
			continue
		}
		j.log.Infof("submitted full run %s for %s", job.JobID, universeID)
	}

	return firstErr
}
