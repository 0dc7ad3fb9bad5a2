package ruleconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

const validYAML = `
meta:
  config_id: test_v1
  version: "1.0.0"
  description: test document

global_adjustments:
  - label: volume_confirmation
    when:
      feature: volume_ratio_20
      op: ">"
      value: 2.0
    points: 10

templates:
  - name: momentum_continuation
    kind: momentum_sign
    base_weight: 1.0
    base_strength: 50
    gate:
      all:
        - feature: roc_20
          op: ">"
          value: 0.05
          abs: true
        - feature: market
          op: in
          values: [KOSPI, KOSDAQ]
    adjustments:
      - label: strong_momentum
        when:
          feature: roc_20
          op: ">"
          value: 0.12
        points: 20
    evidence: [roc_20, rsi_14]
`

func TestParse_Valid(t *testing.T) {
	doc, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "test_v1", doc.Meta.ConfigID)
	require.Len(t, doc.Templates, 1)
	assert.Equal(t, "momentum_continuation", doc.Templates[0].Name)
	assert.Len(t, doc.Templates[0].Gate.All, 2)
	assert.Len(t, doc.GlobalAdjustments, 1)
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	// KnownFields(true): 오타 필드는 로드 시점에 실패해야 함
	bad := `
meta:
  config_id: test_v1
  version: "1.0.0"
templates:
  - name: t1
    kind: momentum_sign
    base_weight: 1.0
    base_strenght: 50
    gate:
      feature: roc_20
      op: ">"
      value: 0
`
	_, err := Parse([]byte(bad))

	var ce *contracts.ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestValidate_Errors(t *testing.T) {
	base := func() *Document {
		doc, err := Parse([]byte(validYAML))
		require.NoError(t, err)
		return doc
	}

	tests := []struct {
		name   string
		mutate func(*Document)
	}{
		{"missing config_id", func(d *Document) { d.Meta.ConfigID = "" }},
		{"missing version", func(d *Document) { d.Meta.Version = "" }},
		{"no templates", func(d *Document) { d.Templates = nil }},
		{"duplicate names", func(d *Document) { d.Templates = append(d.Templates, d.Templates[0]) }},
		{"zero base_weight", func(d *Document) { d.Templates[0].BaseWeight = 0 }},
		{"strength over 100", func(d *Document) { d.Templates[0].BaseStrength = 120 }},
		{"unknown op", func(d *Document) { d.Templates[0].Gate.All[0].Op = "~=" }},
		{"empty gate node", func(d *Document) { d.Templates[0].Gate = GateNode{} }},
		{"value and value_feature", func(d *Document) { d.Templates[0].Gate.All[0].ValueFeature = "roc_60" }},
		{"in without values", func(d *Document) { d.Templates[0].Gate.All[1].Values = nil }},
		{"zero-point adjustment", func(d *Document) { d.Templates[0].Adjustments[0].Points = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := base()
			tt.mutate(doc)

			err := Validate(doc)
			var ce *contracts.ConfigError
			require.ErrorAs(t, err, &ce)
		})
	}
}

func TestHash_Deterministic(t *testing.T) {
	doc1, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	doc2, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	h1, err := Hash(doc1)
	require.NoError(t, err)
	h2, err := Hash(doc2)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// 내용 변경은 해시 변경
	doc2.Templates[0].BaseStrength = 60
	h3, err := Hash(doc2)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestNewDecisionSnapshot(t *testing.T) {
	doc, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	snap, err := NewDecisionSnapshot(doc, []byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "test_v1", snap.ConfigID)
	assert.NotEmpty(t, snap.ConfigHash)
	assert.Equal(t, validYAML, snap.ConfigYAML)
}
