package engine

import (
	"fmt"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

// Kind is the closed set of direction rules a template may reference.
// 동일한 게이트가 레짐에 따라 bullish/bearish로 갈리는 지점 - 방향은
// 템플릿에 저장되지 않고 행에서 매번 계산된다.
type Kind int

const (
	// KindMomentumSign follows the sign of the 20-day rate of change
	KindMomentumSign Kind = iota

	// KindAccelTurn fires on a zero-crossing of momentum acceleration:
	// bullish on negative→positive, bearish on the mirror case,
	// independent of the raw rate-of-change sign.
	KindAccelTurn

	// KindTrendCross reads the 50-day vs 200-day moving average relation
	KindTrendCross

	// KindMeanReversion leans against RSI extremes
	KindMeanReversion

	// KindRangeBreak reads closes against the 52-week range
	KindRangeBreak

	// KindVolumeShock follows the day's return when volume spikes
	KindVolumeShock

	// KindAlwaysBullish / KindAlwaysBearish for one-sided templates
	KindAlwaysBullish
	KindAlwaysBearish
)

// kindNames is the config-facing vocabulary
var kindNames = map[string]Kind{
	"momentum_sign":  KindMomentumSign,
	"accel_turn":     KindAccelTurn,
	"trend_cross":    KindTrendCross,
	"mean_reversion": KindMeanReversion,
	"range_break":    KindRangeBreak,
	"volume_shock":   KindVolumeShock,
	"always_bullish": KindAlwaysBullish,
	"always_bearish": KindAlwaysBearish,
}

// ParseKind resolves a config kind name. Unknown names are a load-time
// ConfigError, not a silent neutral at evaluation time.
func ParseKind(name string) (Kind, error) {
	k, ok := kindNames[name]
	if !ok {
		return 0, &contracts.ConfigError{Detail: fmt.Sprintf("unknown direction kind %q", name)}
	}
	return k, nil
}

// String returns the config name of the kind
func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Direction computes the regime-dependent direction for a row.
// The switch is exhaustive over the closed set; the final return is an
// unreachable safety net that keeps evaluation from ever failing.
func (k Kind) Direction(row *contracts.FeatureRow) contracts.Direction {
	switch k {
	case KindMomentumSign:
		roc, ok := row.Numeric("roc_20")
		if !ok {
			return contracts.DirectionNeutral
		}
		return signDirection(roc)

	case KindAccelTurn:
		cur, okCur := row.Numeric("roc_accel")
		prev, okPrev := row.Numeric("roc_accel_prev")
		if !okCur || !okPrev {
			return contracts.DirectionNeutral
		}
		if prev < 0 && cur >= 0 {
			return contracts.DirectionBullish
		}
		if prev > 0 && cur <= 0 {
			return contracts.DirectionBearish
		}
		return contracts.DirectionNeutral

	case KindTrendCross:
		short, okS := row.Numeric("ma_50")
		long, okL := row.Numeric("ma_200")
		if !okS || !okL {
			return contracts.DirectionNeutral
		}
		return signDirection(short - long)

	case KindMeanReversion:
		rsi, ok := row.Numeric("rsi_14")
		if !ok {
			return contracts.DirectionNeutral
		}
		if rsi <= 30 {
			return contracts.DirectionBullish
		}
		if rsi >= 70 {
			return contracts.DirectionBearish
		}
		return contracts.DirectionNeutral

	case KindRangeBreak:
		close, okC := row.Numeric("close")
		high, okH := row.Numeric("high_252")
		low, okL := row.Numeric("low_252")
		if !okC {
			return contracts.DirectionNeutral
		}
		if okH && close >= high {
			return contracts.DirectionBullish
		}
		if okL && close <= low {
			return contracts.DirectionBearish
		}
		return contracts.DirectionNeutral

	case KindVolumeShock:
		ret, ok := row.Numeric("return_1d")
		if !ok {
			return contracts.DirectionNeutral
		}
		return signDirection(ret)

	case KindAlwaysBullish:
		return contracts.DirectionBullish

	case KindAlwaysBearish:
		return contracts.DirectionBearish
	}

	return contracts.DirectionNeutral
}

func signDirection(v float64) contracts.Direction {
	if v > 0 {
		return contracts.DirectionBullish
	}
	if v < 0 {
		return contracts.DirectionBearish
	}
	return contracts.DirectionNeutral
}
