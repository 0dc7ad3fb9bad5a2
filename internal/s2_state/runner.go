package s2_state

import (
	"context"
	"fmt"
	"time"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// Runner executes the S2 state machine stage: it reconciles today's facts
// against every live instance.
// ⭐ SSOT: 인스턴스 상태 전이는 여기서만 수행
type Runner struct {
	facts     contracts.FactRepository
	instances contracts.InstanceRepository
	log       *logger.Logger
}

// NewRunner creates the state machine stage runner
func NewRunner(facts contracts.FactRepository, instances contracts.InstanceRepository, log *logger.Logger) *Runner {
	return &Runner{
		facts:     facts,
		instances: instances,
		log:       log.WithField("stage", contracts.StageState.ShortName()),
	}
}

// Stage returns the stage this runner executes
func (r *Runner) Stage() contracts.Stage {
	return contracts.StageState
}

// Run applies one reconciliation pass for (as_of_date, config):
//
//  1. live instances present in today's facts are touched (promotion when
//     MinActiveDays elapsed), absent ones age toward ENDED
//  2. ENDED instances from a previous day sweep into COOLDOWN
//  3. fact keys with no live instance open a NEW instance, unless the key
//     cooled down within CooldownDays
//
// The sweep runs before any instance opens: a key that ENDED on an earlier
// day must enter COOLDOWN first, so the cooldown check sees it and the key
// cannot re-fire with zero gap after ending.
//
// Per-instance failures are counted and skipped so one bad row never
// wedges the whole reconciliation.
func (r *Runner) Run(ctx context.Context, job *contracts.Job) (*contracts.StageResult, error) {
	start := time.Now()
	result := &contracts.StageResult{Stage: contracts.StageState}

	todayFacts, err := r.facts.GetByDate(ctx, job.AsOfDate, job.ConfigID)
	if err != nil {
		return result, err
	}

	factsByKey := make(map[contracts.FactKey]*contracts.SignalFact, len(todayFacts))
	for _, f := range todayFacts {
		factsByKey[f.Key()] = f
	}

	live, err := r.instances.GetLive(ctx, job.ConfigID)
	if err != nil {
		return result, err
	}
	result.InputCount = len(live)

	transitions := 0
	for _, inst := range live {
		changed, err := r.reconcile(ctx, inst, factsByKey, job.AsOfDate)
		if err != nil {
			result.ErrorCount++
			r.log.WithError(err).Warnf("reconcile failed for %s/%s", inst.AssetID, inst.TemplateName)
			continue
		}
		if changed {
			transitions++
		}
	}

	swept, errCount := r.sweepEnded(ctx, job)
	result.ErrorCount += errCount

	created, errCount := r.openNewInstances(ctx, factsByKey, live, job)
	result.ErrorCount += errCount

	result.OutputCount = transitions + created + swept
	result.Success = true
	result.DurationMS = time.Since(start).Milliseconds()
	r.log.Infof("reconciled %d live: %d transitions, %d created, %d cooled (%d errors)",
		len(live), transitions, created, swept, result.ErrorCount)

	return result, nil
}

// reconcile applies the presence/absence verdict for one live instance.
// Returns true when a state transition happened.
func (r *Runner) reconcile(ctx context.Context, inst *contracts.SignalInstance, facts map[contracts.FactKey]*contracts.SignalFact, asOf time.Time) (bool, error) {
	if _, present := facts[inst.Key()]; present {
		if err := r.instances.Touch(ctx, inst.InstanceID, asOf, 0); err != nil {
			return false, err
		}

		if reconcilePresent(inst, asOf) == decidePromote {
			err := r.instances.Transition(ctx, inst.InstanceID, contracts.InstanceNew, contracts.InstanceActive, "", -1, asOf)
			if err != nil {
				return false, err
			}
			return true, nil
		}
		return false, nil
	}

	verdict, absent := reconcileAbsent(inst)
	if verdict == decideEnd {
		// 최종 days_absent는 컬럼에도 남긴다 (reason 문자열만으로는 조회 불가)
		reason := fmt.Sprintf("absent %d days as of %s", absent, asOf.Format("2006-01-02"))
		err := r.instances.Transition(ctx, inst.InstanceID, inst.State, contracts.InstanceEnded, reason, absent, asOf)
		if err != nil {
			return false, err
		}
		return true, nil
	}

	// Still inside the grace window - age only
	if err := r.instances.Touch(ctx, inst.InstanceID, inst.LastSeenDate, absent); err != nil {
		return false, err
	}
	return false, nil
}

// openNewInstances creates a NEW instance for every fact key with no live
// instance, skipping keys still in cooldown. The conditional upsert inside
// CreateIfAbsent makes a rerun of the same date a no-op.
func (r *Runner) openNewInstances(ctx context.Context, facts map[contracts.FactKey]*contracts.SignalFact, live []*contracts.SignalInstance, job *contracts.Job) (int, int) {
	liveKeys := make(map[contracts.FactKey]struct{}, len(live))
	for _, inst := range live {
		liveKeys[inst.Key()] = struct{}{}
	}

	created, errCount := 0, 0
	for key, fact := range facts {
		if _, ok := liveKeys[key]; ok {
			continue
		}

		cooling, err := r.instances.RecentCooldown(ctx, key, job.ConfigID, job.AsOfDate, CooldownDays)
		if err != nil {
			errCount++
			r.log.WithError(err).Warnf("cooldown lookup failed for %s/%s", key.AssetID, key.TemplateName)
			continue
		}
		if cooling {
			r.log.Debugf("skip %s/%s: in cooldown", key.AssetID, key.TemplateName)
			continue
		}

		ok, err := r.instances.CreateIfAbsent(ctx, &contracts.SignalInstance{
			AssetID:        key.AssetID,
			TemplateName:   key.TemplateName,
			ConfigID:       job.ConfigID,
			State:          contracts.InstanceNew,
			FirstDate:      job.AsOfDate,
			LastSeenDate:   job.AsOfDate,
			DaysAbsent:     0,
			StrengthAtOpen: fact.Strength,
		})
		if err != nil {
			errCount++
			r.log.WithError(err).Warnf("instance create failed for %s/%s", key.AssetID, key.TemplateName)
			continue
		}
		if ok {
			created++
		}
	}

	return created, errCount
}

// sweepEnded moves ENDED instances last updated before as_of_date into
// COOLDOWN, stamping cooldown_entered_at
func (r *Runner) sweepEnded(ctx context.Context, job *contracts.Job) (int, int) {
	stale, err := r.instances.StaleEnded(ctx, job.ConfigID, job.AsOfDate)
	if err != nil {
		r.log.WithError(err).Warn("stale ENDED lookup failed")
		return 0, 1
	}

	swept, errCount := 0, 0
	for _, inst := range stale {
		err := r.instances.Transition(ctx, inst.InstanceID, contracts.InstanceEnded, contracts.InstanceCooldown, "", -1, job.AsOfDate)
		if err != nil {
			errCount++
			r.log.WithError(err).Warnf("cooldown sweep failed for instance %d", inst.InstanceID)
			continue
		}
		swept++
	}

	return swept, errCount
}
