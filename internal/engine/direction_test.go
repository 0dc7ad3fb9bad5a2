package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

func TestParseKind(t *testing.T) {
	for name := range kindNames {
		k, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, k.String())
	}

	_, err := ParseKind("unknown_kind")
	var ce *contracts.ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestKind_Direction(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		feat map[string]interface{}
		want contracts.Direction
	}{
		{"momentum positive", KindMomentumSign, map[string]interface{}{"roc_20": 0.08}, contracts.DirectionBullish},
		{"momentum negative", KindMomentumSign, map[string]interface{}{"roc_20": -0.08}, contracts.DirectionBearish},
		{"momentum zero", KindMomentumSign, map[string]interface{}{"roc_20": 0.0}, contracts.DirectionNeutral},
		{"momentum missing", KindMomentumSign, map[string]interface{}{}, contracts.DirectionNeutral},

		// 가속 전환: 동일 게이트가 레짐에 따라 방향이 갈리는 케이스.
		// 원시 ROC 부호와 무관하게 가속도 제로크로싱만 본다.
		{"accel neg to pos", KindAccelTurn, map[string]interface{}{"roc_accel_prev": -0.02, "roc_accel": 0.01, "roc_20": -0.10}, contracts.DirectionBullish},
		{"accel pos to neg", KindAccelTurn, map[string]interface{}{"roc_accel_prev": 0.02, "roc_accel": -0.01, "roc_20": 0.10}, contracts.DirectionBearish},
		{"accel no crossing", KindAccelTurn, map[string]interface{}{"roc_accel_prev": 0.02, "roc_accel": 0.03}, contracts.DirectionNeutral},

		{"golden cross", KindTrendCross, map[string]interface{}{"ma_50": 71000.0, "ma_200": 68000.0}, contracts.DirectionBullish},
		{"dead cross", KindTrendCross, map[string]interface{}{"ma_50": 65000.0, "ma_200": 68000.0}, contracts.DirectionBearish},

		{"oversold", KindMeanReversion, map[string]interface{}{"rsi_14": 25.0}, contracts.DirectionBullish},
		{"overbought", KindMeanReversion, map[string]interface{}{"rsi_14": 75.0}, contracts.DirectionBearish},
		{"rsi mid", KindMeanReversion, map[string]interface{}{"rsi_14": 50.0}, contracts.DirectionNeutral},

		{"new high", KindRangeBreak, map[string]interface{}{"close": 90000.0, "high_252": 89000.0, "low_252": 50000.0}, contracts.DirectionBullish},
		{"new low", KindRangeBreak, map[string]interface{}{"close": 48000.0, "high_252": 89000.0, "low_252": 50000.0}, contracts.DirectionBearish},
		{"in range", KindRangeBreak, map[string]interface{}{"close": 70000.0, "high_252": 89000.0, "low_252": 50000.0}, contracts.DirectionNeutral},

		{"volume shock up", KindVolumeShock, map[string]interface{}{"return_1d": 0.05}, contracts.DirectionBullish},
		{"volume shock down", KindVolumeShock, map[string]interface{}{"return_1d": -0.05}, contracts.DirectionBearish},

		{"always bullish", KindAlwaysBullish, map[string]interface{}{}, contracts.DirectionBullish},
		{"always bearish", KindAlwaysBearish, map[string]interface{}{}, contracts.DirectionBearish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Direction(row(tt.feat)))
		})
	}
}
