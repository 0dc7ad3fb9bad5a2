package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

// FactRepository implements contracts.FactRepository
// ⭐ SSOT: SignalFact 저장/조회는 여기서만
type FactRepository struct {
	pool *pgxpool.Pool
}

// NewFactRepository creates a new fact repository
func NewFactRepository(pool *pgxpool.Pool) *FactRepository {
	return &FactRepository{pool: pool}
}

// UpsertFacts writes the day's facts in one transaction.
// Key (asset_id, fact_date, template_name, config_id) - re-running a date
// overwrites, never duplicates.
func (r *FactRepository) UpsertFacts(ctx context.Context, facts []*contracts.SignalFact) error {
	if len(facts) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return contracts.Transient("facts.begin", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO signals.facts (
			asset_id, fact_date, template_name, config_id,
			direction, strength, base_weight,
			components, evidence, attention_score, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (asset_id, fact_date, template_name, config_id)
		DO UPDATE SET
			direction = EXCLUDED.direction,
			strength = EXCLUDED.strength,
			base_weight = EXCLUDED.base_weight,
			components = EXCLUDED.components,
			evidence = EXCLUDED.evidence,
			attention_score = EXCLUDED.attention_score,
			updated_at = NOW()
	`

	for _, f := range facts {
		components, err := json.Marshal(f.Components)
		if err != nil {
			return fmt.Errorf("marshal components for %s/%s: %w", f.AssetID, f.TemplateName, err)
		}
		evidence, err := json.Marshal(f.Evidence)
		if err != nil {
			return fmt.Errorf("marshal evidence for %s/%s: %w", f.AssetID, f.TemplateName, err)
		}

		_, err = tx.Exec(ctx, query,
			f.AssetID, f.Date, f.TemplateName, f.ConfigID,
			string(f.Direction), f.Strength, f.BaseWeight,
			components, evidence, f.AttentionScore,
		)
		if err != nil {
			return contracts.Transient("facts.upsert", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return contracts.Transient("facts.commit", err)
	}

	return nil
}

// GetByDate returns all facts for (date, config)
func (r *FactRepository) GetByDate(ctx context.Context, date time.Time, configID string) ([]*contracts.SignalFact, error) {
	query := `
		SELECT
			asset_id, fact_date, template_name, config_id,
			direction, strength, base_weight,
			components, evidence, attention_score
		FROM signals.facts
		WHERE fact_date = $1 AND config_id = $2
		ORDER BY asset_id, template_name
	`

	rows, err := r.pool.Query(ctx, query, date, configID)
	if err != nil {
		return nil, contracts.Transient("facts.get_by_date", err)
	}
	defer rows.Close()

	return scanFacts(rows)
}

// GetByAsset returns recent facts for one asset, newest first
func (r *FactRepository) GetByAsset(ctx context.Context, assetID string, configID string, limit int) ([]*contracts.SignalFact, error) {
	query := `
		SELECT
			asset_id, fact_date, template_name, config_id,
			direction, strength, base_weight,
			components, evidence, attention_score
		FROM signals.facts
		WHERE asset_id = $1 AND config_id = $2
		ORDER BY fact_date DESC, template_name
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, assetID, configID, limit)
	if err != nil {
		return nil, contracts.Transient("facts.get_by_asset", err)
	}
	defer rows.Close()

	return scanFacts(rows)
}

func scanFacts(rows pgx.Rows) ([]*contracts.SignalFact, error) {
	var facts []*contracts.SignalFact

	for rows.Next() {
		var f contracts.SignalFact
		var direction string
		var components, evidence []byte

		err := rows.Scan(
			&f.AssetID, &f.Date, &f.TemplateName, &f.ConfigID,
			&direction, &f.Strength, &f.BaseWeight,
			&components, &evidence, &f.AttentionScore,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fact row: %w", err)
		}

		f.Direction = contracts.Direction(direction)
		if len(components) > 0 {
			if err := json.Unmarshal(components, &f.Components); err != nil {
				return nil, fmt.Errorf("unmarshal components: %w", err)
			}
		}
		if len(evidence) > 0 {
			if err := json.Unmarshal(evidence, &f.Evidence); err != nil {
				return nil, fmt.Errorf("unmarshal evidence: %w", err)
			}
		}

		facts = append(facts, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, contracts.Transient("facts.scan", err)
	}

	return facts, nil
}
