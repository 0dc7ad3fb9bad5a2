package s3_score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

var scoreDate = time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

func fact(template string, dir contracts.Direction, strength, weight float64) *contracts.SignalFact {
	return &contracts.SignalFact{
		AssetID:      "005930",
		Date:         scoreDate,
		TemplateName: template,
		ConfigID:     "test_v1",
		Direction:    dir,
		Strength:     strength,
		BaseWeight:   weight,
	}
}

func newSet(templates ...string) func(contracts.FactKey) bool {
	set := make(map[string]bool, len(templates))
	for _, n := range templates {
		set[n] = true
	}
	return func(k contracts.FactKey) bool { return set[k.TemplateName] }
}

func TestComputeScore_NoveltyMultiplier(t *testing.T) {
	// ACTIVE 인스턴스의 strength 80 + 당일 첫 발화 NEW의 strength 50.
	// weighted = 80×1×1.0 + 50×1×1.5 = 155
	facts := []*contracts.SignalFact{
		fact("momentum_continuation", contracts.DirectionBullish, 80, 1.0),
		fact("range_break_252", contracts.DirectionBullish, 50, 1.0),
	}
	prior := &contracts.AssetScore{ScoreTotal: 75}

	s := computeScore(scoreDate, "005930", "kr_equity_main", "test_v1",
		facts, newSet("range_break_252"), prior)

	assert.InDelta(t, 130.0, s.Components.RawBullish, 1e-9)
	assert.InDelta(t, 155.0, s.Components.WeightedBullish, 1e-9)
	assert.InDelta(t, 130.0, s.ScoreBullish, 1e-9)
	assert.InDelta(t, 0.0, s.ScoreBearish, 1e-9)
	assert.InDelta(t, 130.0, s.ScoreTotal, 1e-9)
	assert.InDelta(t, 155.0, s.WeightedScore, 1e-9)
	assert.InDelta(t, 55.0, s.ScoreDelta, 1e-9)
	assert.Equal(t, 1, s.NewSignalCount)

	// inflection = 155 + 0.3×55 + 0.2×1×50 = 181.5
	assert.InDelta(t, 181.5, s.InflectionScore, 1e-9)
	assert.Equal(t, 2, s.Components.FactCount)
}

func TestComputeScore_NoPrior(t *testing.T) {
	facts := []*contracts.SignalFact{
		fact("momentum_continuation", contracts.DirectionBullish, 60, 1.0),
	}

	s := computeScore(scoreDate, "005930", "kr_equity_main", "test_v1",
		facts, newSet(), nil)

	assert.InDelta(t, 0.0, s.ScoreDelta, 1e-9)
	assert.InDelta(t, 60.0, s.InflectionScore, 1e-9)
}

func TestComputeScore_DirectionalCap(t *testing.T) {
	// 강세 5건 × 80 = 400 - 방향별 캡 300에서 잘린다
	var facts []*contracts.SignalFact
	for _, name := range []string{"t1", "t2", "t3", "t4", "t5"} {
		facts = append(facts, fact(name, contracts.DirectionBullish, 80, 1.0))
	}
	facts = append(facts, fact("b1", contracts.DirectionBearish, 70, 1.0))

	s := computeScore(scoreDate, "005930", "kr_equity_main", "test_v1",
		facts, newSet(), nil)

	assert.InDelta(t, 400.0, s.Components.RawBullish, 1e-9)
	assert.InDelta(t, 300.0, s.ScoreBullish, 1e-9)
	assert.InDelta(t, 70.0, s.ScoreBearish, 1e-9)
	assert.InDelta(t, 230.0, s.ScoreTotal, 1e-9)
	assert.InDelta(t, 230.0, s.WeightedScore, 1e-9)
}

func TestComputeScore_NeutralExcluded(t *testing.T) {
	facts := []*contracts.SignalFact{
		fact("t1", contracts.DirectionBullish, 50, 1.0),
		fact("t2", contracts.DirectionNeutral, 90, 2.0),
	}

	s := computeScore(scoreDate, "005930", "kr_equity_main", "test_v1",
		facts, newSet(), nil)

	assert.InDelta(t, 50.0, s.ScoreTotal, 1e-9)
	assert.Equal(t, 2, s.Components.FactCount)
}

func TestRankScores_DenseRank(t *testing.T) {
	mk := func(asset string, inflection float64) *contracts.AssetScore {
		return &contracts.AssetScore{AssetID: asset, InflectionScore: inflection}
	}
	scores := []*contracts.AssetScore{
		mk("A", 120), mk("B", 180), mk("C", 120), mk("D", 90),
	}

	rankScores(scores)

	got := make(map[string]int, len(scores))
	for _, s := range scores {
		got[s.AssetID] = s.RankInUniverse
	}

	// 동점은 같은 랭크, 다음 점수는 +1 (갭 없음)
	assert.Equal(t, 1, got["B"])
	assert.Equal(t, 2, got["A"])
	assert.Equal(t, 2, got["C"])
	assert.Equal(t, 3, got["D"])

	// 내림차순 정렬도 보장
	assert.Equal(t, "B", scores[0].AssetID)
}
