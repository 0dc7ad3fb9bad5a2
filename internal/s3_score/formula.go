package s3_score

import (
	"sort"
	"time"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

// computeScore folds one asset's daily facts into an AssetScore.
// 순수 함수 - 랭크(rank_in_universe)는 유니버스 전체가 모인 뒤 rankScores에서 채운다.
//
// newToday reports whether a fact's instance is NEW and first triggered on
// the scoring date; those facts carry the novelty multiplier.
func computeScore(
	date time.Time,
	assetID, universeID, configID string,
	facts []*contracts.SignalFact,
	newToday func(contracts.FactKey) bool,
	prior *contracts.AssetScore,
) *contracts.AssetScore {
	var c contracts.ScoreComponents
	newCount := 0

	for _, f := range facts {
		multiplier := 1.0
		if newToday(f.Key()) {
			multiplier = contracts.NewInstanceMultiplier
			newCount++
		}

		switch f.Direction {
		case contracts.DirectionBullish:
			c.RawBullish += f.Strength
			c.WeightedBullish += f.Strength * f.BaseWeight * multiplier
		case contracts.DirectionBearish:
			c.RawBearish += f.Strength
			c.WeightedBearish += f.Strength * f.BaseWeight * multiplier
		}
		c.FactCount++
	}

	score := &contracts.AssetScore{
		Date:           date,
		AssetID:        assetID,
		UniverseID:     universeID,
		ConfigID:       configID,
		ScoreBullish:   cap300(c.RawBullish),
		ScoreBearish:   cap300(c.RawBearish),
		NewSignalCount: newCount,
		Components:     c,
	}

	score.ScoreTotal = score.ScoreBullish - score.ScoreBearish
	score.WeightedScore = cap300(c.WeightedBullish) - cap300(c.WeightedBearish)

	if prior != nil {
		score.ScoreDelta = score.ScoreTotal - prior.ScoreTotal
	}

	score.InflectionScore = score.WeightedScore +
		contracts.DeltaWeight*score.ScoreDelta +
		contracts.NoveltyWeight*float64(newCount)*contracts.NoveltyPoints

	return score
}

// rankScores assigns rank_in_universe as the dense rank of inflection_score,
// descending. Equal scores share a rank and the next distinct score takes
// rank+1, with no gaps.
func rankScores(scores []*contracts.AssetScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].InflectionScore > scores[j].InflectionScore
	})

	rank := 0
	var prev float64
	for i, s := range scores {
		if i == 0 || s.InflectionScore != prev {
			rank++
			prev = s.InflectionScore
		}
		s.RankInUniverse = rank
	}
}

func cap300(v float64) float64 {
	if v > contracts.DirectionalCap {
		return contracts.DirectionalCap
	}
	return v
}
