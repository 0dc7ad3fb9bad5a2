package contracts

import (
	"context"
	"time"
)

// Repository interfaces
// ⭐ SSOT: 스테이지는 이 인터페이스로만 저장소에 접근 (구현: internal/data/repos)

// FactRepository stores daily evaluation results
type FactRepository interface {
	// UpsertFacts writes facts keyed (asset_id, date, template_name, config_id)
	UpsertFacts(ctx context.Context, facts []*SignalFact) error

	// GetByDate returns all facts for (date, config)
	GetByDate(ctx context.Context, date time.Time, configID string) ([]*SignalFact, error)

	// GetByAsset returns recent facts for one asset, newest first
	GetByAsset(ctx context.Context, assetID string, configID string, limit int) ([]*SignalFact, error)
}

// InstanceRepository stores recurring signal instances
type InstanceRepository interface {
	// GetLive returns all NEW/ACTIVE instances for a config
	GetLive(ctx context.Context, configID string) ([]*SignalInstance, error)

	// CreateIfAbsent inserts a NEW instance unless a live one exists for the
	// key. Returns false when the conditional upsert was a no-op - the
	// idempotence guard against double execution.
	CreateIfAbsent(ctx context.Context, inst *SignalInstance) (bool, error)

	// Transition applies a state change with its bookkeeping fields.
	// daysAbsent < 0 leaves the days_absent column unchanged.
	Transition(ctx context.Context, instanceID int64, from, to InstanceState, reason string, daysAbsent int, asOf time.Time) error

	// Touch updates last_seen_date/days_absent without a state change
	Touch(ctx context.Context, instanceID int64, lastSeen time.Time, daysAbsent int) error

	// RecentCooldown reports whether the key entered COOLDOWN within the
	// window ending at asOf. Anchored to cooldown_entered_at.
	RecentCooldown(ctx context.Context, key FactKey, configID string, asOf time.Time, window int) (bool, error)

	// StaleEnded returns ENDED instances last updated strictly before asOf
	StaleEnded(ctx context.Context, configID string, asOf time.Time) ([]*SignalInstance, error)
}

// ScoreRepository stores per-asset daily aggregates
type ScoreRepository interface {
	// UpsertScores writes scores keyed (date, asset_id, universe_id, config_id)
	UpsertScores(ctx context.Context, scores []*AssetScore) error

	// GetPrior returns the latest scores strictly before date for
	// (universe, config) - handles weekends/gaps, not simply D-1.
	GetPrior(ctx context.Context, date time.Time, universeID, configID string) (map[string]*AssetScore, error)

	// TopN returns the strongest assets by signed inflection score for a
	// direction (bullish = positive, bearish = negative).
	TopN(ctx context.Context, date time.Time, universeID, configID string, direction Direction, limit int) ([]*AssetScore, error)
}

// JobRepository stores jobs and their leases
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, jobID string) (*Job, error)

	// Claim atomically takes ownership: succeeds iff status='queued' OR
	// (status='running' AND lease expired). Increments attempt_count and
	// sets the lease. Returns ErrClaimLost when another worker holds it.
	Claim(ctx context.Context, jobID string, lease time.Duration) (*Job, error)

	// Heartbeat refreshes last_heartbeat_at and extends the lease
	Heartbeat(ctx context.Context, jobID string, lease time.Duration) error

	// Finish marks the job success/failed and clears the lease
	Finish(ctx context.Context, jobID string, status JobStatus) error

	// Requeue resets a retryable failure back to 'queued'
	Requeue(ctx context.Context, jobID string) error
}

// RunRepository stores per-attempt audit rows
type RunRepository interface {
	Start(ctx context.Context, run *PipelineRun) error
	Finish(ctx context.Context, run *PipelineRun) error
	ListByJob(ctx context.Context, jobID string) ([]*PipelineRun, error)
}

// ReviewRepository stores review candidates for the external reviewer
type ReviewRepository interface {
	UpsertCandidates(ctx context.Context, date time.Time, universeID, configID string, scores []*AssetScore) (int, error)
}
