package contracts

import (
	"context"
	"time"
)

// UniverseSelector resolves a universe identifier into selection criteria (external collaborator)
// ⭐ SSOT: 유니버스 해석 인터페이스
type UniverseSelector interface {
	Resolve(ctx context.Context, universeID string) (*UniverseSpec, error)
}

// FeatureProvider loads feature rows for a date and universe (external, read-only)
// ⭐ SSOT: 피처 조회 인터페이스
type FeatureProvider interface {
	LoadFeatures(ctx context.Context, date time.Time, spec *UniverseSpec) ([]*FeatureRow, error)

	// ExpectedAssetCount returns how many assets the universe should cover
	// on the date; the coverage gate compares against actual rows.
	ExpectedAssetCount(ctx context.Context, date time.Time, spec *UniverseSpec) (int, error)

	// ActualAssetCount counts feature rows present for the date without
	// loading payloads - the coverage gate's cheap side of the comparison.
	ActualAssetCount(ctx context.Context, date time.Time, spec *UniverseSpec) (int, error)

	// UpdateAttentionScores mirrors per-asset attention back onto the
	// feature store. Best-effort: failures are logged, never fatal.
	UpdateAttentionScores(ctx context.Context, date time.Time, scores map[string]float64) error
}

// StageRunner executes one pipeline stage for a job
// ⭐ SSOT: 스테이지 실행 인터페이스 - worker가 job_type별 서브셋을 순서대로 실행
type StageRunner interface {
	Stage() Stage
	Run(ctx context.Context, job *Job) (*StageResult, error)
}
