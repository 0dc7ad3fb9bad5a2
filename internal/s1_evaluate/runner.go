package s1_evaluate

import (
	"context"
	"fmt"
	"time"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/internal/engine"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// Runner executes the S1 evaluation stage.
// ⭐ SSOT: S1 템플릿 평가 - 엔진 실행과 SignalFact 저장은 여기서만
type Runner struct {
	universes contracts.UniverseSelector
	features  contracts.FeatureProvider
	engine    *engine.Engine
	facts     contracts.FactRepository
	log       *logger.Logger
}

// NewRunner creates the evaluation stage runner
func NewRunner(
	universes contracts.UniverseSelector,
	features contracts.FeatureProvider,
	eng *engine.Engine,
	facts contracts.FactRepository,
	log *logger.Logger,
) *Runner {
	return &Runner{
		universes: universes,
		features:  features,
		engine:    eng,
		facts:     facts,
		log:       log.WithField("stage", contracts.StageEvaluate.ShortName()),
	}
}

// Stage returns the stage this runner executes
func (r *Runner) Stage() contracts.Stage {
	return contracts.StageEvaluate
}

// Run evaluates every feature row for the job's universe and upserts the
// day's facts. Zero rows is "no_data", not an error. A row that fails to
// evaluate is counted and skipped - one bad payload never aborts the batch.
func (r *Runner) Run(ctx context.Context, job *contracts.Job) (*contracts.StageResult, error) {
	start := time.Now()
	result := &contracts.StageResult{Stage: contracts.StageEvaluate}

	spec, err := r.universes.Resolve(ctx, job.UniverseID)
	if err != nil {
		return result, err
	}

	rows, err := r.features.LoadFeatures(ctx, job.AsOfDate, spec)
	if err != nil {
		return result, err
	}
	result.InputCount = len(rows)

	if len(rows) == 0 {
		result.Success = true
		result.Status = "no_data"
		result.DurationMS = time.Since(start).Milliseconds()
		r.log.Warnf("no feature rows for %s on %s", job.UniverseID, job.AsOfDate.Format("2006-01-02"))
		return result, nil
	}

	facts, attention, errCount := r.evaluateAll(rows, job.AsOfDate)
	result.ErrorCount = errCount
	result.OutputCount = len(facts)

	if err := r.facts.UpsertFacts(ctx, facts); err != nil {
		result.Error = err.Error()
		result.DurationMS = time.Since(start).Milliseconds()
		return result, err
	}

	// Best-effort mirror back to the feature store; never fails the stage
	if err := r.features.UpdateAttentionScores(ctx, job.AsOfDate, attention); err != nil {
		r.log.WithError(err).Warn("attention write-back aborted")
	}

	result.Success = true
	result.DurationMS = time.Since(start).Milliseconds()
	r.log.Infof("evaluated %d rows -> %d facts (%d errors)",
		len(rows), len(facts), errCount)

	return result, nil
}

// evaluateAll runs the engine over every row, building facts and the
// per-asset attention map
func (r *Runner) evaluateAll(rows []*contracts.FeatureRow, date time.Time) ([]*contracts.SignalFact, map[string]float64, int) {
	var facts []*contracts.SignalFact
	attention := make(map[string]float64, len(rows))
	errCount := 0

	for _, row := range rows {
		detections, err := r.evaluateRow(row)
		if err != nil {
			errCount++
			r.log.WithError(err).Warnf("evaluation failed for %s", row.AssetID)
			continue
		}
		if len(detections) == 0 {
			continue
		}

		score := engine.AttentionScore(detections)
		attention[row.AssetID] = score

		for i := range detections {
			d := &detections[i]
			facts = append(facts, &contracts.SignalFact{
				AssetID:        row.AssetID,
				Date:           date,
				TemplateName:   d.TemplateName,
				ConfigID:       r.engine.ConfigID(),
				Direction:      d.Direction,
				Strength:       d.Strength,
				BaseWeight:     d.BaseWeight,
				Components:     d.Components,
				Evidence:       d.Evidence,
				AttentionScore: score,
			})
		}
	}

	return facts, attention, errCount
}

// evaluateRow isolates one row's evaluation so a panicking payload is
// contained to that row
func (r *Runner) evaluateRow(row *contracts.FeatureRow) (detections []contracts.SignalDetection, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic evaluating %s: %v", row.AssetID, rec)
		}
	}()

	return r.engine.Evaluate(row), nil
}
