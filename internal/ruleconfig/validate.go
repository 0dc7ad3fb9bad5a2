package ruleconfig

import (
	"fmt"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

// validOps is the closed comparison operator set
var validOps = map[string]bool{
	"==": true, "!=": true,
	">": true, ">=": true,
	"<": true, "<=": true,
	"in": true, "not_in": true,
}

// Validate checks structural integrity of a template document.
// Direction kinds are validated separately by the engine (closed enum there).
func Validate(doc *Document) error {
	if doc.Meta.ConfigID == "" {
		return invalid("meta.config_id is required")
	}
	if doc.Meta.Version == "" {
		return invalid("meta.version is required")
	}
	if len(doc.Templates) == 0 {
		return invalid("at least one template is required")
	}

	seen := make(map[string]bool, len(doc.Templates))
	for i := range doc.Templates {
		t := &doc.Templates[i]
		where := fmt.Sprintf("templates[%d] (%s)", i, t.Name)

		if t.Name == "" {
			return invalid(fmt.Sprintf("templates[%d]: name is required", i))
		}
		if seen[t.Name] {
			return invalid(fmt.Sprintf("%s: duplicate template name", where))
		}
		seen[t.Name] = true

		if t.Kind == "" {
			return invalid(fmt.Sprintf("%s: kind is required", where))
		}
		if t.BaseWeight <= 0 {
			return invalid(fmt.Sprintf("%s: base_weight must be positive", where))
		}
		if t.BaseStrength < 0 || t.BaseStrength > 100 {
			return invalid(fmt.Sprintf("%s: base_strength must be in [0,100]", where))
		}

		if err := validateGate(&t.Gate, where+".gate"); err != nil {
			return err
		}
		for j := range t.Adjustments {
			if err := validateAdjustment(&t.Adjustments[j], fmt.Sprintf("%s.adjustments[%d]", where, j)); err != nil {
				return err
			}
		}
		for j, f := range t.Evidence {
			if f == "" {
				return invalid(fmt.Sprintf("%s.evidence[%d]: empty feature name", where, j))
			}
		}
	}

	for j := range doc.GlobalAdjustments {
		if err := validateAdjustment(&doc.GlobalAdjustments[j], fmt.Sprintf("global_adjustments[%d]", j)); err != nil {
			return err
		}
	}

	return nil
}

func validateAdjustment(a *Adjustment, where string) error {
	if a.Label == "" {
		return invalid(where + ": label is required")
	}
	if a.Points == 0 {
		return invalid(where + ": points must be non-zero")
	}
	return validateGate(&a.When, where+".when")
}

// validateGate enforces the closed tagged-union shape: exactly one of
// all / any / not / leaf condition per node.
func validateGate(n *GateNode, where string) error {
	shapes := 0
	if len(n.All) > 0 {
		shapes++
	}
	if len(n.Any) > 0 {
		shapes++
	}
	if n.Not != nil {
		shapes++
	}
	leaf := n.Feature != "" || n.Op != ""
	if leaf {
		shapes++
	}

	if shapes == 0 {
		return invalid(where + ": empty gate node")
	}
	if shapes > 1 {
		return invalid(where + ": gate node must be exactly one of all/any/not/condition")
	}

	switch {
	case len(n.All) > 0:
		for i := range n.All {
			if err := validateGate(&n.All[i], fmt.Sprintf("%s.all[%d]", where, i)); err != nil {
				return err
			}
		}
	case len(n.Any) > 0:
		for i := range n.Any {
			if err := validateGate(&n.Any[i], fmt.Sprintf("%s.any[%d]", where, i)); err != nil {
				return err
			}
		}
	case n.Not != nil:
		return validateGate(n.Not, where+".not")
	default:
		return validateLeaf(n, where)
	}

	return nil
}

func validateLeaf(n *GateNode, where string) error {
	if n.Feature == "" {
		return invalid(where + ": condition requires feature")
	}
	if !validOps[n.Op] {
		return invalid(fmt.Sprintf("%s: unknown op %q", where, n.Op))
	}

	isSetOp := n.Op == "in" || n.Op == "not_in"
	if isSetOp {
		if len(n.Values) == 0 {
			return invalid(where + ": in/not_in requires values")
		}
		if n.Value != nil || n.ValueFeature != "" {
			return invalid(where + ": in/not_in takes values only")
		}
		return nil
	}

	// Scalar comparison: exactly one operand source
	hasValue := n.Value != nil
	hasFeature := n.ValueFeature != ""
	if hasValue == hasFeature {
		return invalid(where + ": condition requires exactly one of value/value_feature")
	}
	if len(n.Values) > 0 {
		return invalid(where + ": values is only valid for in/not_in")
	}

	return nil
}

func invalid(detail string) error {
	return &contracts.ConfigError{Detail: detail}
}
