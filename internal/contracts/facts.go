package contracts

import "time"

// Direction classifies which side a signal leans
type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
	DirectionNeutral Direction = "neutral"
)

// Sign returns +1 for bullish, -1 for bearish, 0 for neutral
func (d Direction) Sign() float64 {
	switch d {
	case DirectionBullish:
		return 1
	case DirectionBearish:
		return -1
	default:
		return 0
	}
}

// SignalDetection is one template firing against one feature row.
// Pure engine output - no identity beyond the template name.
type SignalDetection struct {
	TemplateName string                 `json:"template_name"`
	Direction    Direction              `json:"direction"`
	Strength     float64                `json:"strength"` // 0-100
	BaseWeight   float64                `json:"base_weight"`
	Components   map[string]float64     `json:"components"` // adjustment label → points
	Evidence     map[string]interface{} `json:"evidence"`   // snapshot of allow-listed features
}

// SignalFact is one day's durable evaluation result for one (asset, template).
// ⭐ SSOT: 평가 결과 저장 단위 - key (asset_id, date, template_name, config_id)
// Recreated by upsert every evaluation day; history retained for deltas.
type SignalFact struct {
	AssetID        string                 `json:"asset_id"`
	Date           time.Time              `json:"date"`
	TemplateName   string                 `json:"template_name"`
	ConfigID       string                 `json:"config_id"`
	Direction      Direction              `json:"direction"`
	Strength       float64                `json:"strength"` // 0-100
	BaseWeight     float64                `json:"base_weight"`
	Components     map[string]float64     `json:"strength_components"`
	Evidence       map[string]interface{} `json:"evidence"`
	AttentionScore float64                `json:"attention_score"` // per-asset, duplicated on each fact row
}

// FactKey identifies a recurring signal within one config
type FactKey struct {
	AssetID      string
	TemplateName string
}

// Key returns the fact's recurring-signal key
func (f *SignalFact) Key() FactKey {
	return FactKey{AssetID: f.AssetID, TemplateName: f.TemplateName}
}
