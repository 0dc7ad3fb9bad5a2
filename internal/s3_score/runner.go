package s3_score

import (
	"context"
	"time"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// Runner executes the S3 scoring stage: aggregate today's facts, instance
// novelty, and the prior score row into ranked AssetScores.
// ⭐ SSOT: 점수 집계/랭킹은 여기서만
type Runner struct {
	facts     contracts.FactRepository
	instances contracts.InstanceRepository
	scores    contracts.ScoreRepository
	log       *logger.Logger
}

// NewRunner creates the scoring stage runner
func NewRunner(
	facts contracts.FactRepository,
	instances contracts.InstanceRepository,
	scores contracts.ScoreRepository,
	log *logger.Logger,
) *Runner {
	return &Runner{
		facts:     facts,
		instances: instances,
		scores:    scores,
		log:       log.WithField("stage", contracts.StageScore.ShortName()),
	}
}

// Stage returns the stage this runner executes
func (r *Runner) Stage() contracts.Stage {
	return contracts.StageScore
}

// Run fully recomputes the day's scores. A crashed previous attempt may
// have left partial rows - the full overwrite makes the retry converge on
// the same result.
func (r *Runner) Run(ctx context.Context, job *contracts.Job) (*contracts.StageResult, error) {
	start := time.Now()
	result := &contracts.StageResult{Stage: contracts.StageScore}

	todayFacts, err := r.facts.GetByDate(ctx, job.AsOfDate, job.ConfigID)
	if err != nil {
		return result, err
	}
	result.InputCount = len(todayFacts)

	if len(todayFacts) == 0 {
		result.Success = true
		result.Status = "no_data"
		result.DurationMS = time.Since(start).Milliseconds()
		r.log.Warnf("no facts to score for %s", job.AsOfDate.Format("2006-01-02"))
		return result, nil
	}

	newToday, err := r.newTodayLookup(ctx, job)
	if err != nil {
		return result, err
	}

	prior, err := r.scores.GetPrior(ctx, job.AsOfDate, job.UniverseID, job.ConfigID)
	if err != nil {
		return result, err
	}

	factsByAsset := make(map[string][]*contracts.SignalFact)
	for _, f := range todayFacts {
		factsByAsset[f.AssetID] = append(factsByAsset[f.AssetID], f)
	}

	scores := make([]*contracts.AssetScore, 0, len(factsByAsset))
	for assetID, facts := range factsByAsset {
		scores = append(scores, computeScore(
			job.AsOfDate, assetID, job.UniverseID, job.ConfigID,
			facts, newToday, prior[assetID],
		))
	}

	rankScores(scores)

	if err := r.scores.UpsertScores(ctx, scores); err != nil {
		result.Error = err.Error()
		result.DurationMS = time.Since(start).Milliseconds()
		return result, err
	}

	result.OutputCount = len(scores)
	result.Success = true
	result.DurationMS = time.Since(start).Milliseconds()
	r.log.Infof("scored %d assets from %d facts", len(scores), len(todayFacts))

	return result, nil
}

// newTodayLookup builds the novelty predicate: a key is "new today" iff its
// live instance is NEW and first triggered exactly on as_of_date
func (r *Runner) newTodayLookup(ctx context.Context, job *contracts.Job) (func(contracts.FactKey) bool, error) {
	live, err := r.instances.GetLive(ctx, job.ConfigID)
	if err != nil {
		return nil, err
	}

	fresh := make(map[contracts.FactKey]struct{})
	for _, inst := range live {
		if inst.State == contracts.InstanceNew && sameDay(inst.FirstDate, job.AsOfDate) {
			fresh[inst.Key()] = struct{}{}
		}
	}

	return func(key contracts.FactKey) bool {
		_, ok := fresh[key]
		return ok
	}, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
