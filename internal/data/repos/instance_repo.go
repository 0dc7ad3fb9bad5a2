package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

// InstanceRepository implements contracts.InstanceRepository
// ⭐ SSOT: SignalInstance 저장/전이는 여기서만
//
// 행은 절대 삭제되지 않는다 - state 컬럼이 아카이브 마커.
type InstanceRepository struct {
	pool *pgxpool.Pool
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(pool *pgxpool.Pool) *InstanceRepository {
	return &InstanceRepository{pool: pool}
}

const instanceColumns = `
	instance_id, asset_id, template_name, config_id, state,
	first_date, last_seen_date, days_absent, strength_at_open,
	ended_reason, cooldown_entered_at, updated_at
`

// GetLive returns all NEW/ACTIVE instances for a config
func (r *InstanceRepository) GetLive(ctx context.Context, configID string) ([]*contracts.SignalInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM signals.instances
		WHERE config_id = $1 AND state IN ('NEW', 'ACTIVE')
		ORDER BY asset_id, template_name
	`

	rows, err := r.pool.Query(ctx, query, configID)
	if err != nil {
		return nil, contracts.Transient("instances.get_live", err)
	}
	defer rows.Close()

	return scanInstances(rows)
}

// CreateIfAbsent inserts a NEW instance unless a live one already exists for
// the key. The conflict target is the partial unique index over live states,
// so re-running a date is a no-op instead of a duplicate - this guard holds
// even if two workers race past the job lease.
func (r *InstanceRepository) CreateIfAbsent(ctx context.Context, inst *contracts.SignalInstance) (bool, error) {
	query := `
		INSERT INTO signals.instances (
			asset_id, template_name, config_id, state,
			first_date, last_seen_date, days_absent, strength_at_open, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (asset_id, template_name, config_id)
			WHERE state IN ('NEW', 'ACTIVE')
		DO NOTHING
		RETURNING instance_id
	`

	err := r.pool.QueryRow(ctx, query,
		inst.AssetID, inst.TemplateName, inst.ConfigID, string(inst.State),
		inst.FirstDate, inst.LastSeenDate, inst.DaysAbsent, inst.StrengthAtOpen,
	).Scan(&inst.InstanceID)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict with an existing live instance - idempotent no-op
			return false, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, &contracts.ConstraintError{Table: "signals.instances", Err: err}
		}
		return false, contracts.Transient("instances.create", err)
	}

	return true, nil
}

// Transition applies a state change, guarded by the expected current state.
// ENDED→COOLDOWN stamps cooldown_entered_at - the cooldown window anchors to
// this transition, never to a later unrelated touch. A non-negative
// daysAbsent persists the final absence count alongside the state change.
func (r *InstanceRepository) Transition(ctx context.Context, instanceID int64, from, to contracts.InstanceState, reason string, daysAbsent int, asOf time.Time) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("illegal instance transition %s -> %s", from, to)
	}

	query := `
		UPDATE signals.instances
		SET state = $3,
			ended_reason = CASE WHEN $4 <> '' THEN $4 ELSE ended_reason END,
			cooldown_entered_at = CASE WHEN $3 = 'COOLDOWN' THEN $5 ELSE cooldown_entered_at END,
			days_absent = CASE WHEN $6 >= 0 THEN $6 ELSE days_absent END,
			updated_at = NOW()
		WHERE instance_id = $1 AND state = $2
	`

	tag, err := r.pool.Exec(ctx, query, instanceID, string(from), string(to), reason, asOf, daysAbsent)
	if err != nil {
		return contracts.Transient("instances.transition", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("instance %d not in expected state %s", instanceID, from)
	}

	return nil
}

// Touch updates presence bookkeeping without a state change
func (r *InstanceRepository) Touch(ctx context.Context, instanceID int64, lastSeen time.Time, daysAbsent int) error {
	query := `
		UPDATE signals.instances
		SET last_seen_date = $2, days_absent = $3, updated_at = NOW()
		WHERE instance_id = $1
	`

	_, err := r.pool.Exec(ctx, query, instanceID, lastSeen, daysAbsent)
	if err != nil {
		return contracts.Transient("instances.touch", err)
	}

	return nil
}

// RecentCooldown reports whether the key entered COOLDOWN within the last
// `window` calendar days before asOf. Reads cooldown_entered_at only.
func (r *InstanceRepository) RecentCooldown(ctx context.Context, key contracts.FactKey, configID string, asOf time.Time, window int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM signals.instances
			WHERE asset_id = $1 AND template_name = $2 AND config_id = $3
				AND state = 'COOLDOWN'
				AND cooldown_entered_at > $4::timestamptz - make_interval(days => $5)
				AND cooldown_entered_at <= $4
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, key.AssetID, key.TemplateName, configID, asOf, window).Scan(&exists)
	if err != nil {
		return false, contracts.Transient("instances.recent_cooldown", err)
	}

	return exists, nil
}

// StaleEnded returns ENDED instances last updated strictly before asOf -
// candidates for the ENDED→COOLDOWN sweep.
func (r *InstanceRepository) StaleEnded(ctx context.Context, configID string, asOf time.Time) ([]*contracts.SignalInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM signals.instances
		WHERE config_id = $1 AND state = 'ENDED'
			AND updated_at::date < $2::date
	`

	rows, err := r.pool.Query(ctx, query, configID, asOf)
	if err != nil {
		return nil, contracts.Transient("instances.stale_ended", err)
	}
	defer rows.Close()

	return scanInstances(rows)
}

func scanInstances(rows pgx.Rows) ([]*contracts.SignalInstance, error) {
	var instances []*contracts.SignalInstance

	for rows.Next() {
		var inst contracts.SignalInstance
		var state string
		var endedReason *string

		err := rows.Scan(
			&inst.InstanceID, &inst.AssetID, &inst.TemplateName, &inst.ConfigID, &state,
			&inst.FirstDate, &inst.LastSeenDate, &inst.DaysAbsent, &inst.StrengthAtOpen,
			&endedReason, &inst.CooldownEnteredAt, &inst.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance row: %w", err)
		}

		inst.State = contracts.InstanceState(state)
		if endedReason != nil {
			inst.EndedReason = *endedReason
		}

		instances = append(instances, &inst)
	}

	if err := rows.Err(); err != nil {
		return nil, contracts.Transient("instances.scan", err)
	}

	return instances, nil
}
