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

// ScoreRepository implements contracts.ScoreRepository
// ⭐ SSOT: AssetScore 저장/조회는 여기서만
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// UpsertScores writes the day's aggregates in one transaction.
// Full overwrite per key - a crashed run's partial rows are simply
// recomputed on retry.
func (r *ScoreRepository) UpsertScores(ctx context.Context, scores []*contracts.AssetScore) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return contracts.Transient("scores.begin", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO signals.scores (
			score_date, asset_id, universe_id, config_id,
			score_bullish, score_bearish, score_total, weighted_score,
			score_delta, new_signal_count, inflection_score, rank_in_universe,
			components, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (score_date, asset_id, universe_id, config_id)
		DO UPDATE SET
			score_bullish = EXCLUDED.score_bullish,
			score_bearish = EXCLUDED.score_bearish,
			score_total = EXCLUDED.score_total,
			weighted_score = EXCLUDED.weighted_score,
			score_delta = EXCLUDED.score_delta,
			new_signal_count = EXCLUDED.new_signal_count,
			inflection_score = EXCLUDED.inflection_score,
			rank_in_universe = EXCLUDED.rank_in_universe,
			components = EXCLUDED.components,
			updated_at = NOW()
	`

	for _, s := range scores {
		components, err := json.Marshal(s.Components)
		if err != nil {
			return fmt.Errorf("marshal components for %s: %w", s.AssetID, err)
		}

		_, err = tx.Exec(ctx, query,
			s.Date, s.AssetID, s.UniverseID, s.ConfigID,
			s.ScoreBullish, s.ScoreBearish, s.ScoreTotal, s.WeightedScore,
			s.ScoreDelta, s.NewSignalCount, s.InflectionScore, s.RankInUniverse,
			components,
		)
		if err != nil {
			return contracts.Transient("scores.upsert", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return contracts.Transient("scores.commit", err)
	}

	return nil
}

// GetPrior returns the latest score rows strictly before date for
// (universe, config) - the most recent prior trading day, whatever the
// calendar gap.
func (r *ScoreRepository) GetPrior(ctx context.Context, date time.Time, universeID, configID string) (map[string]*contracts.AssetScore, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM signals.scores
		WHERE universe_id = $2 AND config_id = $3
			AND score_date = (
				SELECT MAX(score_date)
				FROM signals.scores
				WHERE universe_id = $2 AND config_id = $3 AND score_date < $1
			)
	`

	rows, err := r.pool.Query(ctx, query, date, universeID, configID)
	if err != nil {
		return nil, contracts.Transient("scores.get_prior", err)
	}
	defer rows.Close()

	scores, err := scanScores(rows)
	if err != nil {
		return nil, err
	}

	prior := make(map[string]*contracts.AssetScore, len(scores))
	for _, s := range scores {
		prior[s.AssetID] = s
	}

	return prior, nil
}

// TopN returns the strongest assets by signed inflection score.
// Bullish requests positive scores descending; bearish negative ascending.
func (r *ScoreRepository) TopN(ctx context.Context, date time.Time, universeID, configID string, direction contracts.Direction, limit int) ([]*contracts.AssetScore, error) {
	var filter, order string
	switch direction {
	case contracts.DirectionBearish:
		filter = "AND inflection_score < 0"
		order = "inflection_score ASC"
	default:
		filter = "AND inflection_score > 0"
		order = "inflection_score DESC"
	}

	query := `
		SELECT ` + scoreColumns + `
		FROM signals.scores
		WHERE score_date = $1 AND universe_id = $2 AND config_id = $3 ` + filter + `
		ORDER BY ` + order + `
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, date, universeID, configID, limit)
	if err != nil {
		return nil, contracts.Transient("scores.top_n", err)
	}
	defer rows.Close()

	return scanScores(rows)
}

const scoreColumns = `
	score_date, asset_id, universe_id, config_id,
	score_bullish, score_bearish, score_total, weighted_score,
	score_delta, new_signal_count, inflection_score, rank_in_universe,
	components
`

func scanScores(rows pgx.Rows) ([]*contracts.AssetScore, error) {
	var scores []*contracts.AssetScore

	for rows.Next() {
		var s contracts.AssetScore
		var components []byte

		err := rows.Scan(
			&s.Date, &s.AssetID, &s.UniverseID, &s.ConfigID,
			&s.ScoreBullish, &s.ScoreBearish, &s.ScoreTotal, &s.WeightedScore,
			&s.ScoreDelta, &s.NewSignalCount, &s.InflectionScore, &s.RankInUniverse,
			&components,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}

		if len(components) > 0 {
			if err := json.Unmarshal(components, &s.Components); err != nil {
				return nil, fmt.Errorf("unmarshal score components: %w", err)
			}
		}

		scores = append(scores, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, contracts.Transient("scores.scan", err)
	}

	return scores, nil
}
