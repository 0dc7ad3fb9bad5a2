package s4_review

import (
	"context"
	"time"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// Runner executes the S4 review stage: it persists the day's top candidates
// for the external narrative reviewer. Candidate generation stops here -
// the review content itself is produced downstream.
// ⭐ SSOT: 리뷰 후보 선정은 여기서만
type Runner struct {
	scores     contracts.ScoreRepository
	review     contracts.ReviewRepository
	candidates int
	log        *logger.Logger
}

// NewRunner creates the review stage runner. candidates is the per-direction
// top-N size.
func NewRunner(scores contracts.ScoreRepository, review contracts.ReviewRepository, candidates int, log *logger.Logger) *Runner {
	return &Runner{
		scores:     scores,
		review:     review,
		candidates: candidates,
		log:        log.WithField("stage", contracts.StageReview.ShortName()),
	}
}

// Stage returns the stage this runner executes
func (r *Runner) Stage() contracts.Stage {
	return contracts.StageReview
}

// Run selects the top-N bullish and top-N bearish assets by inflection score
// and replaces the day's candidate set
func (r *Runner) Run(ctx context.Context, job *contracts.Job) (*contracts.StageResult, error) {
	start := time.Now()
	result := &contracts.StageResult{Stage: contracts.StageReview}

	bullish, err := r.scores.TopN(ctx, job.AsOfDate, job.UniverseID, job.ConfigID, contracts.DirectionBullish, r.candidates)
	if err != nil {
		return result, err
	}

	bearish, err := r.scores.TopN(ctx, job.AsOfDate, job.UniverseID, job.ConfigID, contracts.DirectionBearish, r.candidates)
	if err != nil {
		return result, err
	}

	combined := make([]*contracts.AssetScore, 0, len(bullish)+len(bearish))
	combined = append(combined, bullish...)
	combined = append(combined, bearish...)
	result.InputCount = len(combined)

	if len(combined) == 0 {
		result.Success = true
		result.Status = "no_data"
		result.DurationMS = time.Since(start).Milliseconds()
		r.log.Warnf("no review candidates for %s", job.AsOfDate.Format("2006-01-02"))
		return result, nil
	}

	written, err := r.review.UpsertCandidates(ctx, job.AsOfDate, job.UniverseID, job.ConfigID, combined)
	if err != nil {
		result.Error = err.Error()
		result.DurationMS = time.Since(start).Milliseconds()
		return result, err
	}

	result.OutputCount = written
	result.Success = true
	result.DurationMS = time.Since(start).Milliseconds()
	r.log.Infof("review candidates: %d bullish, %d bearish", len(bullish), len(bearish))

	return result, nil
}
