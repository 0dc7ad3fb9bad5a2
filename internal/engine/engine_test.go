package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/internal/ruleconfig"
)

func testDocument() *ruleconfig.Document {
	return &ruleconfig.Document{
		Meta: ruleconfig.Meta{ConfigID: "test_v1", Version: "1.0.0"},
		GlobalAdjustments: []ruleconfig.Adjustment{
			{
				Label:  "volume_confirmation",
				When:   ruleconfig.GateNode{Feature: "volume_ratio_20", Op: ">", Value: 2.0},
				Points: 10,
			},
		},
		Templates: []ruleconfig.Template{
			{
				Name:         "momentum_continuation",
				Kind:         "momentum_sign",
				BaseWeight:   1.0,
				BaseStrength: 50,
				Gate:         ruleconfig.GateNode{Feature: "roc_20", Op: ">", Value: 0.05, Abs: true},
				Adjustments: []ruleconfig.Adjustment{
					{
						Label:  "strong_momentum",
						When:   ruleconfig.GateNode{Feature: "roc_20", Op: ">", Value: 0.12, Abs: true},
						Points: 20,
					},
				},
				Evidence: []string{"roc_20", "rsi_14"},
			},
			{
				Name:         "rsi_extreme",
				Kind:         "mean_reversion",
				BaseWeight:   0.8,
				BaseStrength: 45,
				Gate: ruleconfig.GateNode{Any: []ruleconfig.GateNode{
					{Feature: "rsi_14", Op: "<=", Value: 30},
					{Feature: "rsi_14", Op: ">=", Value: 70},
				}},
			},
		},
	}
}

func TestNew_UnknownKindFailsAtCompile(t *testing.T) {
	doc := testDocument()
	doc.Templates[0].Kind = "astrology"

	_, err := New(doc)

	var ce *contracts.ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestEngine_Evaluate_GateControlsMembership(t *testing.T) {
	eng, err := New(testDocument())
	require.NoError(t, err)

	// 게이트 통과한 템플릿만 결과에 포함
	dets := eng.Evaluate(row(map[string]interface{}{
		"roc_20": 0.08, "rsi_14": 55.0,
	}))
	require.Len(t, dets, 1)
	assert.Equal(t, "momentum_continuation", dets[0].TemplateName)
	assert.Equal(t, contracts.DirectionBullish, dets[0].Direction)

	// 게이트 미통과면 빈 결과
	dets = eng.Evaluate(row(map[string]interface{}{
		"roc_20": 0.01, "rsi_14": 55.0,
	}))
	assert.Empty(t, dets)
}

func TestEngine_Strength_Breakdown(t *testing.T) {
	eng, err := New(testDocument())
	require.NoError(t, err)

	// base 50 + strong_momentum 20 + volume_confirmation 10 = 80
	dets := eng.Evaluate(row(map[string]interface{}{
		"roc_20": 0.15, "rsi_14": 55.0, "volume_ratio_20": 3.0,
	}))
	require.Len(t, dets, 1)

	d := dets[0]
	assert.InDelta(t, 80.0, d.Strength, 1e-9)
	assert.InDelta(t, 50.0, d.Components["base"], 1e-9)
	assert.InDelta(t, 20.0, d.Components["strong_momentum"], 1e-9)
	assert.InDelta(t, 10.0, d.Components["volume_confirmation"], 1e-9)

	// 발동 안 한 보정은 breakdown에 없음
	dets = eng.Evaluate(row(map[string]interface{}{
		"roc_20": 0.08, "rsi_14": 55.0,
	}))
	require.Len(t, dets, 1)
	assert.NotContains(t, dets[0].Components, "strong_momentum")
}

func TestEngine_Strength_Clamped(t *testing.T) {
	doc := testDocument()
	doc.Templates[0].BaseStrength = 95
	doc.Templates[0].Adjustments[0].Points = 40

	eng, err := New(doc)
	require.NoError(t, err)

	dets := eng.Evaluate(row(map[string]interface{}{
		"roc_20": 0.15, "rsi_14": 55.0, "volume_ratio_20": 3.0,
	}))
	require.Len(t, dets, 1)
	assert.Equal(t, 100.0, dets[0].Strength)

	// 음수 방향으로도 클램프
	doc.Templates[0].BaseStrength = 5
	doc.Templates[0].Adjustments[0].Points = -40
	eng, err = New(doc)
	require.NoError(t, err)

	dets = eng.Evaluate(row(map[string]interface{}{
		"roc_20": 0.15, "rsi_14": 55.0,
	}))
	require.Len(t, dets, 1)
	assert.Equal(t, 0.0, dets[0].Strength)
}

func TestEngine_EvidenceSnapshot(t *testing.T) {
	eng, err := New(testDocument())
	require.NoError(t, err)

	dets := eng.Evaluate(row(map[string]interface{}{
		"roc_20": 0.08,
	}))
	require.Len(t, dets, 1)

	// 허용 목록 피처만, 없는 피처는 nil로 기록
	ev := dets[0].Evidence
	assert.Equal(t, 0.08, ev["roc_20"])
	assert.Contains(t, ev, "rsi_14")
	assert.Nil(t, ev["rsi_14"])
}

func TestAttentionScore(t *testing.T) {
	dets := []contracts.SignalDetection{
		{Direction: contracts.DirectionBullish, Strength: 60, BaseWeight: 1.0},
		{Direction: contracts.DirectionBearish, Strength: 30, BaseWeight: 0.5},
		{Direction: contracts.DirectionNeutral, Strength: 90, BaseWeight: 2.0}, // 기여 없음
	}

	// 60*1 - 30*0.5 = 45
	assert.InDelta(t, 45.0, AttentionScore(dets), 1e-9)

	// 클램프: [-100, 100]
	big := []contracts.SignalDetection{
		{Direction: contracts.DirectionBullish, Strength: 100, BaseWeight: 5.0},
	}
	assert.Equal(t, 100.0, AttentionScore(big))

	big[0].Direction = contracts.DirectionBearish
	assert.Equal(t, -100.0, AttentionScore(big))

	assert.Equal(t, 0.0, AttentionScore(nil))
}
