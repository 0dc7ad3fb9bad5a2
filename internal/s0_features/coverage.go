package s0_features

import (
	"context"
	"time"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// CoverageGate verifies feature coverage before any stage runs.
// ⭐ SSOT: S0 커버리지 게이트 - 미달이면 터미널 실패, 재시도 없음
type CoverageGate struct {
	provider contracts.FeatureProvider
	log      *logger.Logger
	minRatio float64
}

// NewCoverageGate creates the gate with a minimum coverage ratio in [0,1]
func NewCoverageGate(provider contracts.FeatureProvider, log *logger.Logger, minRatio float64) *CoverageGate {
	return &CoverageGate{
		provider: provider,
		log:      log.WithField("stage", contracts.StageCoverage.ShortName()),
		minRatio: minRatio,
	}
}

// Check compares actual feature rows against the expected universe size.
// Returns DataUnavailableError when actual/expected < minRatio - terminal,
// since retrying won't make the upstream data appear.
func (g *CoverageGate) Check(ctx context.Context, date time.Time, spec *contracts.UniverseSpec) (*contracts.StageResult, error) {
	start := time.Now()

	expected, err := g.provider.ExpectedAssetCount(ctx, date, spec)
	if err != nil {
		return nil, err
	}

	actual, err := g.provider.ActualAssetCount(ctx, date, spec)
	if err != nil {
		return nil, err
	}

	result := &contracts.StageResult{
		Stage:       contracts.StageCoverage,
		InputCount:  expected,
		OutputCount: actual,
		DurationMS:  time.Since(start).Milliseconds(),
	}

	// An empty universe is a data problem, not a division edge case
	if expected == 0 || float64(actual)/float64(expected) < g.minRatio {
		err := &contracts.DataUnavailableError{
			UniverseID: spec.UniverseID,
			Expected:   expected,
			Actual:     actual,
			Threshold:  g.minRatio,
		}
		result.Error = err.Error()
		return result, err
	}

	result.Success = true
	g.log.Infof("coverage ok: %d/%d rows for %s on %s",
		actual, expected, spec.UniverseID, date.Format("2006-01-02"))

	return result, nil
}
