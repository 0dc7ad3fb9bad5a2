package engine

import (
	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/internal/ruleconfig"
)

// Engine evaluates one feature row against a versioned template set.
// 순수 함수 - I/O 없음, 상태 없음. 설정 문서로부터 1회 컴파일되어 불변.
type Engine struct {
	configID  string
	global    []adjustment
	templates []template
}

type template struct {
	name         string
	kind         Kind
	baseWeight   float64
	baseStrength float64
	gate         Gate
	adjustments  []adjustment
	evidence     []string
}

type adjustment struct {
	label  string
	when   Gate
	points float64
}

// New compiles a validated template document into an engine.
// Unknown direction kinds and malformed gates fail here, at startup.
func New(doc *ruleconfig.Document) (*Engine, error) {
	global, err := compileAdjustments(doc.GlobalAdjustments)
	if err != nil {
		return nil, err
	}

	templates := make([]template, 0, len(doc.Templates))
	for i := range doc.Templates {
		t := &doc.Templates[i]

		kind, err := ParseKind(t.Kind)
		if err != nil {
			return nil, err
		}

		gate, err := compileGate(&t.Gate)
		if err != nil {
			return nil, err
		}

		local, err := compileAdjustments(t.Adjustments)
		if err != nil {
			return nil, err
		}

		templates = append(templates, template{
			name:         t.Name,
			kind:         kind,
			baseWeight:   t.BaseWeight,
			baseStrength: t.BaseStrength,
			gate:         gate,
			adjustments:  local,
			evidence:     t.Evidence,
		})
	}

	return &Engine{
		configID:  doc.Meta.ConfigID,
		global:    global,
		templates: templates,
	}, nil
}

func compileAdjustments(src []ruleconfig.Adjustment) ([]adjustment, error) {
	out := make([]adjustment, 0, len(src))
	for i := range src {
		gate, err := compileGate(&src[i].When)
		if err != nil {
			return nil, err
		}
		out = append(out, adjustment{
			label:  src[i].Label,
			when:   gate,
			points: src[i].Points,
		})
	}
	return out, nil
}

// ConfigID returns the identity of the compiled document
func (e *Engine) ConfigID() string {
	return e.configID
}

// TemplateCount returns the number of compiled templates
func (e *Engine) TemplateCount() int {
	return len(e.templates)
}

// Evaluate runs every template against one row.
// A template appears in the result iff its gate matches the row.
func (e *Engine) Evaluate(row *contracts.FeatureRow) []contracts.SignalDetection {
	var detections []contracts.SignalDetection

	for i := range e.templates {
		t := &e.templates[i]
		if !t.gate.Eval(row) {
			continue
		}

		strength, components := e.strength(t, row)

		detections = append(detections, contracts.SignalDetection{
			TemplateName: t.name,
			Direction:    t.kind.Direction(row),
			Strength:     strength,
			BaseWeight:   t.baseWeight,
			Components:   components,
			Evidence:     snapshotEvidence(t.evidence, row),
		})
	}

	return detections
}

// strength applies base + local boosters/penalties (in document order),
// then the shared global adjustments, and clamps to [0,100].
// The breakdown of fired adjustments is retained for auditability.
func (e *Engine) strength(t *template, row *contracts.FeatureRow) (float64, map[string]float64) {
	components := map[string]float64{"base": t.baseStrength}
	score := t.baseStrength

	for _, adj := range t.adjustments {
		if adj.when.Eval(row) {
			score += adj.points
			components[adj.label] = adj.points
		}
	}

	for _, adj := range e.global {
		if adj.when.Eval(row) {
			score += adj.points
			components[adj.label] = adj.points
		}
	}

	return clamp(score, 0, 100), components
}

// snapshotEvidence copies the allow-listed feature values off the row.
// Features absent from the row are recorded as nil so the snapshot shows
// what was missing at decision time.
func snapshotEvidence(fields []string, row *contracts.FeatureRow) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}

	evidence := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, ok := row.Value(f); ok {
			evidence[f] = v
		} else {
			evidence[f] = nil
		}
	}
	return evidence
}

// AttentionScore folds a row's detections into one signed per-asset score
// in [-100,100]: Σ direction·strength·base_weight, clamped. Neutral
// detections contribute nothing.
func AttentionScore(detections []contracts.SignalDetection) float64 {
	var sum float64
	for i := range detections {
		d := &detections[i]
		sum += d.Direction.Sign() * d.Strength * d.BaseWeight
	}
	return clamp(sum, -100, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
