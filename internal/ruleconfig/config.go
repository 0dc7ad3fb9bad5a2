package ruleconfig

import "time"

// Document는 버전 관리되는 템플릿 설정 문서 전체
// 엔진 인스턴스 생성 시 1회 로드되며 런타임에는 불변.
type Document struct {
	Meta              Meta         `yaml:"meta" json:"meta"`
	GlobalAdjustments []Adjustment `yaml:"global_adjustments" json:"global_adjustments"`
	Templates         []Template   `yaml:"templates" json:"templates"`
}

// Meta 메타 정보
type Meta struct {
	ConfigID    string `yaml:"config_id" json:"config_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// Template is one named rule: gate + strength formula + direction kind
type Template struct {
	Name         string       `yaml:"name" json:"name"`
	Kind         string       `yaml:"kind" json:"kind"` // direction rule (closed set, internal/engine)
	BaseWeight   float64      `yaml:"base_weight" json:"base_weight"`
	BaseStrength float64      `yaml:"base_strength" json:"base_strength"`
	Gate         GateNode     `yaml:"gate" json:"gate"`
	Adjustments  []Adjustment `yaml:"adjustments" json:"adjustments"`
	Evidence     []string     `yaml:"evidence" json:"evidence"` // 증거 스냅샷 허용 피처 목록
}

// Adjustment is a conditional strength booster/penalty
type Adjustment struct {
	Label  string   `yaml:"label" json:"label"`
	When   GateNode `yaml:"when" json:"when"`
	Points float64  `yaml:"points" json:"points"`
}

// GateNode is the YAML surface of the gate tree. Exactly one of the four
// shapes may be set: all, any, not, or a leaf condition (feature+op).
// Malformed nodes are rejected at load time, not at evaluation time.
type GateNode struct {
	All []GateNode `yaml:"all,omitempty" json:"all,omitempty"`
	Any []GateNode `yaml:"any,omitempty" json:"any,omitempty"`
	Not *GateNode  `yaml:"not,omitempty" json:"not,omitempty"`

	// Leaf condition
	Feature      string        `yaml:"feature,omitempty" json:"feature,omitempty"`
	Op           string        `yaml:"op,omitempty" json:"op,omitempty"`
	Value        interface{}   `yaml:"value,omitempty" json:"value,omitempty"`
	Values       []interface{} `yaml:"values,omitempty" json:"values,omitempty"` // in / not_in
	ValueFeature string        `yaml:"value_feature,omitempty" json:"value_feature,omitempty"`
	Abs          bool          `yaml:"abs,omitempty" json:"abs,omitempty"`
}

// IsLeaf reports whether the node is a condition rather than a combinator
func (n *GateNode) IsLeaf() bool {
	return len(n.All) == 0 && len(n.Any) == 0 && n.Not == nil
}

// DecisionSnapshot pins the exact document a run used, for audit
type DecisionSnapshot struct {
	ConfigID   string    `json:"config_id"`
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	CreatedAt  time.Time `json:"created_at"`
}
