package s0_features

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// Provider loads precomputed feature rows from the features schema.
// ⭐ SSOT: S0 피처 조회 - 엔진은 이 읽기 전용 뷰만 소비한다.
//
// 피처 계산 파이프라인은 별도 시스템 - 여기서 파생값을 만들지 않는다.
type Provider struct {
	pool    *pgxpool.Pool
	log     *logger.Logger
	limiter *rate.Limiter // attention write-back pacing
}

// NewProvider creates a feature provider.
// writebackRate caps attention score updates per second against the shared
// feature store.
func NewProvider(pool *pgxpool.Pool, log *logger.Logger, writebackRate float64) *Provider {
	return &Provider{
		pool:    pool,
		log:     log.WithField("component", "s0_features"),
		limiter: rate.NewLimiter(rate.Limit(writebackRate), 1),
	}
}

// LoadFeatures returns one row per asset for the date, filtered to the
// universe's criteria. Assets missing a feature payload are skipped, not
// errored - the coverage gate decides whether the gap is acceptable.
func (p *Provider) LoadFeatures(ctx context.Context, date time.Time, spec *contracts.UniverseSpec) ([]*contracts.FeatureRow, error) {
	query := `
		SELECT f.asset_id, f.feature_date, f.features
		FROM features.daily_features f
		JOIN data.assets a ON a.asset_id = f.asset_id
		WHERE f.feature_date = $1
			AND a.asset_type = $2
			AND a.status = 'active'
			AND a.avg_traded_value >= $3
		ORDER BY a.liquidity_rank
		LIMIT $4
	`

	rows, err := p.pool.Query(ctx, query, date, spec.AssetType, spec.MinLiquidity, spec.RankLimit)
	if err != nil {
		return nil, contracts.Transient("features.load", err)
	}
	defer rows.Close()

	var features []*contracts.FeatureRow
	for rows.Next() {
		var row contracts.FeatureRow
		var payload []byte

		if err := rows.Scan(&row.AssetID, &row.Date, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan feature row: %w", err)
		}

		if len(payload) == 0 {
			p.log.Debugf("empty feature payload for %s, skipping", row.AssetID)
			continue
		}
		if err := json.Unmarshal(payload, &row.Features); err != nil {
			p.log.WithError(err).Warnf("malformed feature payload for %s, skipping", row.AssetID)
			continue
		}

		features = append(features, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, contracts.Transient("features.scan", err)
	}

	return features, nil
}

// ExpectedAssetCount returns how many active universe members should have a
// feature row on the date
func (p *Provider) ExpectedAssetCount(ctx context.Context, date time.Time, spec *contracts.UniverseSpec) (int, error) {
	query := `
		SELECT LEAST(COUNT(*), $3::bigint)
		FROM data.assets
		WHERE asset_type = $1
			AND status = 'active'
			AND avg_traded_value >= $2
	`

	var count int
	err := p.pool.QueryRow(ctx, query, spec.AssetType, spec.MinLiquidity, spec.RankLimit).Scan(&count)
	if err != nil {
		return 0, contracts.Transient("features.expected_count", err)
	}

	return count, nil
}

// ActualAssetCount counts feature rows present for the date, without
// deserializing payloads
func (p *Provider) ActualAssetCount(ctx context.Context, date time.Time, spec *contracts.UniverseSpec) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM features.daily_features f
		JOIN data.assets a ON a.asset_id = f.asset_id
		WHERE f.feature_date = $1
			AND a.asset_type = $2
			AND a.status = 'active'
			AND a.avg_traded_value >= $3
	`

	var count int
	err := p.pool.QueryRow(ctx, query, date, spec.AssetType, spec.MinLiquidity).Scan(&count)
	if err != nil {
		return 0, contracts.Transient("features.actual_count", err)
	}

	if count > spec.RankLimit {
		count = spec.RankLimit
	}
	return count, nil
}

// UpdateAttentionScores mirrors per-asset attention back onto the feature
// store, rate limited to protect the shared table. Best-effort: a failed row
// is logged and the rest proceed.
func (p *Provider) UpdateAttentionScores(ctx context.Context, date time.Time, scores map[string]float64) error {
	query := `
		UPDATE features.daily_features
		SET features = jsonb_set(features, '{attention_score}', to_jsonb($3::float8))
		WHERE asset_id = $1 AND feature_date = $2
	`

	var failed int
	for assetID, score := range scores {
		if err := p.limiter.Wait(ctx); err != nil {
			return err // context cancelled
		}

		if _, err := p.pool.Exec(ctx, query, assetID, date, score); err != nil {
			failed++
			p.log.WithError(err).Warnf("attention write-back failed for %s", assetID)
		}
	}

	if failed > 0 {
		p.log.Warnf("attention write-back: %d/%d rows failed", failed, len(scores))
	}

	return nil
}
