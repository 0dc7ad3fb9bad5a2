package contracts

import "time"

// FeatureRow is one asset's technical feature vector for one date.
// 외부 피처 파이프라인이 생산하는 읽기 전용 데이터 - 생성 후 불변.
// Values are nullable: a key may be absent, nil, or carry a non-numeric
// payload; consumers must treat all three the same way.
type FeatureRow struct {
	AssetID  string                 `json:"asset_id"`
	Date     time.Time              `json:"date"`
	Features map[string]interface{} `json:"features"`
}

// Numeric returns the named feature as float64.
// Missing, nil, or non-numeric values return ok=false - never panic.
func (r *FeatureRow) Numeric(name string) (float64, bool) {
	v, exists := r.Features[name]
	if !exists || v == nil {
		return 0, false
	}

	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		// Boolean features compare as 1/0
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Value returns the raw feature value (may be nil).
func (r *FeatureRow) Value(name string) (interface{}, bool) {
	v, exists := r.Features[name]
	if !exists || v == nil {
		return nil, false
	}
	return v, true
}
