package universe

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

// Selector resolves universe identifiers from the data schema.
// ⭐ SSOT: 유니버스 식별자 → 선정 기준 해석은 여기서만
//
// 선정 정책(유동성 산식, 랭킹 규칙)은 업스트림 파이프라인 소관 - 여기서는
// 저장된 기준을 읽기만 한다.
type Selector struct {
	pool *pgxpool.Pool
}

// NewSelector creates a new universe selector
func NewSelector(pool *pgxpool.Pool) *Selector {
	return &Selector{pool: pool}
}

// Resolve returns the selection criteria stored for a universe identifier
func (s *Selector) Resolve(ctx context.Context, universeID string) (*contracts.UniverseSpec, error) {
	query := `
		SELECT universe_id, asset_type, min_liquidity, rank_limit
		FROM data.universes
		WHERE universe_id = $1
	`

	var spec contracts.UniverseSpec
	err := s.pool.QueryRow(ctx, query, universeID).Scan(
		&spec.UniverseID, &spec.AssetType, &spec.MinLiquidity, &spec.RankLimit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("unknown universe: %s", universeID)
		}
		return nil, contracts.Transient("universe.resolve", err)
	}

	return &spec, nil
}
