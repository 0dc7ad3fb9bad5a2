package engine

import (
	"fmt"
	"math"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/internal/ruleconfig"
)

// Gate is the closed boolean tree evaluated against one feature row.
// 구현체는 이 패키지의 컴파일러만 생성 - 설정 오류는 로드 시점에 잡힌다.
type Gate interface {
	Eval(row *contracts.FeatureRow) bool
}

// AllGate matches when every child matches
type AllGate struct {
	Children []Gate
}

func (g *AllGate) Eval(row *contracts.FeatureRow) bool {
	for _, c := range g.Children {
		if !c.Eval(row) {
			return false
		}
	}
	return true
}

// AnyGate matches when at least one child matches
type AnyGate struct {
	Children []Gate
}

func (g *AnyGate) Eval(row *contracts.FeatureRow) bool {
	for _, c := range g.Children {
		if c.Eval(row) {
			return true
		}
	}
	return false
}

// NotGate inverts its child
type NotGate struct {
	Child Gate
}

func (g *NotGate) Eval(row *contracts.FeatureRow) bool {
	return !g.Child.Eval(row)
}

// Op is a comparison operator
type Op string

const (
	OpEq    Op = "=="
	OpNe    Op = "!="
	OpGt    Op = ">"
	OpGe    Op = ">="
	OpLt    Op = "<"
	OpLe    Op = "<="
	OpIn    Op = "in"
	OpNotIn Op = "not_in"
)

// Condition is a gate leaf comparing one feature against a literal, a value
// set, or a second feature from the same row (value_feature).
// Missing, null, or non-numeric-where-numeric-expected values make the
// condition false - a condition never raises.
type Condition struct {
	Feature      string
	Op           Op
	Value        float64       // scalar comparisons
	Values       []interface{} // in / not_in
	ValueFeature string        // cross-feature comparison
	Abs          bool
}

func (c *Condition) Eval(row *contracts.FeatureRow) bool {
	switch c.Op {
	case OpIn, OpNotIn:
		return c.evalSet(row)
	default:
		return c.evalScalar(row)
	}
}

func (c *Condition) evalScalar(row *contracts.FeatureRow) bool {
	left, ok := row.Numeric(c.Feature)
	if !ok {
		return false
	}
	if c.Abs {
		left = math.Abs(left)
	}

	right := c.Value
	if c.ValueFeature != "" {
		r, ok := row.Numeric(c.ValueFeature)
		if !ok {
			return false
		}
		right = r
	}

	switch c.Op {
	case OpEq:
		return left == right
	case OpNe:
		return left != right
	case OpGt:
		return left > right
	case OpGe:
		return left >= right
	case OpLt:
		return left < right
	case OpLe:
		return left <= right
	default:
		return false
	}
}

func (c *Condition) evalSet(row *contracts.FeatureRow) bool {
	raw, ok := row.Value(c.Feature)
	if !ok {
		return false
	}

	member := false
	for _, v := range c.Values {
		if setEqual(raw, v) {
			member = true
			break
		}
	}

	if c.Op == OpNotIn {
		return !member
	}
	return member
}

// setEqual compares a row value to a set element, allowing numeric
// widening so that YAML ints match float features.
func setEqual(rowVal, setVal interface{}) bool {
	if a, ok := toFloat(rowVal); ok {
		if b, ok := toFloat(setVal); ok {
			return a == b
		}
		return false
	}
	if a, ok := rowVal.(string); ok {
		if b, ok := setVal.(string); ok {
			return a == b
		}
	}
	if a, ok := rowVal.(bool); ok {
		if b, ok := setVal.(bool); ok {
			return a == b
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
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
	default:
		return 0, false
	}
}

// compileGate turns a validated config node into the closed gate tree
func compileGate(n *ruleconfig.GateNode) (Gate, error) {
	switch {
	case len(n.All) > 0:
		children, err := compileChildren(n.All)
		if err != nil {
			return nil, err
		}
		return &AllGate{Children: children}, nil

	case len(n.Any) > 0:
		children, err := compileChildren(n.Any)
		if err != nil {
			return nil, err
		}
		return &AnyGate{Children: children}, nil

	case n.Not != nil:
		child, err := compileGate(n.Not)
		if err != nil {
			return nil, err
		}
		return &NotGate{Child: child}, nil

	default:
		return compileLeaf(n)
	}
}

func compileChildren(nodes []ruleconfig.GateNode) ([]Gate, error) {
	children := make([]Gate, 0, len(nodes))
	for i := range nodes {
		g, err := compileGate(&nodes[i])
		if err != nil {
			return nil, err
		}
		children = append(children, g)
	}
	return children, nil
}

func compileLeaf(n *ruleconfig.GateNode) (Gate, error) {
	cond := &Condition{
		Feature:      n.Feature,
		Op:           Op(n.Op),
		Values:       n.Values,
		ValueFeature: n.ValueFeature,
		Abs:          n.Abs,
	}

	if n.Value != nil {
		v, ok := toFloat(n.Value)
		if !ok {
			return nil, &contracts.ConfigError{
				Detail: fmt.Sprintf("condition on %q: non-numeric value %v", n.Feature, n.Value),
			}
		}
		cond.Value = v
	}

	return cond, nil
}
