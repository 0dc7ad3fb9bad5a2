package contracts

import "time"

// Score formula constants
// ⭐ SSOT: 점수 공식 상수는 여기서만 정의
const (
	// DirectionalCap caps raw bullish/bearish sums against signal spam
	DirectionalCap = 300.0

	// NewInstanceMultiplier boosts facts whose instance first triggered today
	NewInstanceMultiplier = 1.5

	// DeltaWeight blends day-over-day change into the inflection score
	DeltaWeight = 0.3

	// NoveltyWeight blends new-signal count into the inflection score
	NoveltyWeight = 0.2

	// NoveltyPoints is the per-new-signal contribution before weighting
	NoveltyPoints = 50.0
)

// AssetScore is the per-asset daily aggregate, fully recomputed each run.
// Key: (date, asset_id, universe_id, config_id).
type AssetScore struct {
	Date       time.Time `json:"date"`
	AssetID    string    `json:"asset_id"`
	UniverseID string    `json:"universe_id"`
	ConfigID   string    `json:"config_id"`

	ScoreBullish    float64 `json:"score_bullish"`    // min(raw bullish, 300)
	ScoreBearish    float64 `json:"score_bearish"`    // min(raw bearish, 300)
	ScoreTotal      float64 `json:"score_total"`      // bullish - bearish
	WeightedScore   float64 `json:"weighted_score"`   // 1.5x multiplier on NEW-today facts
	ScoreDelta      float64 `json:"score_delta"`      // vs most recent prior row, 0 if none
	NewSignalCount  int     `json:"new_signal_count"`
	InflectionScore float64 `json:"inflection_score"`
	RankInUniverse  int     `json:"rank_in_universe"` // dense rank, descending

	Components ScoreComponents `json:"components"`
}

// ScoreComponents keeps the uncapped sums for auditability
type ScoreComponents struct {
	RawBullish      float64 `json:"raw_bullish"`
	RawBearish      float64 `json:"raw_bearish"`
	WeightedBullish float64 `json:"weighted_bullish"`
	WeightedBearish float64 `json:"weighted_bearish"`
	FactCount       int     `json:"fact_count"`
}
