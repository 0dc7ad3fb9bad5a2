package repos

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

// ReviewRepository implements contracts.ReviewRepository
// ⭐ SSOT: 리뷰 후보 저장은 여기서만
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// UpsertCandidates replaces the day's candidate set for (universe, config)
// and writes the new ranking in one transaction. Returns the count written.
func (r *ReviewRepository) UpsertCandidates(ctx context.Context, date time.Time, universeID, configID string, scores []*contracts.AssetScore) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, contracts.Transient("review.begin", err)
	}
	defer tx.Rollback(ctx)

	// Full replace - a rerun must not leave yesterday's leftovers behind
	_, err = tx.Exec(ctx, `
		DELETE FROM review.candidates
		WHERE candidate_date = $1 AND universe_id = $2 AND config_id = $3
	`, date, universeID, configID)
	if err != nil {
		return 0, contracts.Transient("review.clear", err)
	}

	query := `
		INSERT INTO review.candidates (
			candidate_date, universe_id, config_id, asset_id,
			rank_in_universe, inflection_score, score_delta, new_signal_count,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	for _, s := range scores {
		_, err = tx.Exec(ctx, query,
			date, universeID, configID, s.AssetID,
			s.RankInUniverse, s.InflectionScore, s.ScoreDelta, s.NewSignalCount,
		)
		if err != nil {
			return 0, contracts.Transient("review.insert", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, contracts.Transient("review.commit", err)
	}

	return len(scores), nil
}
