package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/internal/ruleconfig"
)

func row(features map[string]interface{}) *contracts.FeatureRow {
	return &contracts.FeatureRow{AssetID: "005930", Features: features}
}

func TestCondition_Scalar(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		feat map[string]interface{}
		want bool
	}{
		{"gt true", Condition{Feature: "roc_20", Op: OpGt, Value: 0.05}, map[string]interface{}{"roc_20": 0.08}, true},
		{"gt false", Condition{Feature: "roc_20", Op: OpGt, Value: 0.05}, map[string]interface{}{"roc_20": 0.02}, false},
		{"ge boundary", Condition{Feature: "rsi_14", Op: OpGe, Value: 70.0}, map[string]interface{}{"rsi_14": 70.0}, true},
		{"lt", Condition{Feature: "rsi_14", Op: OpLt, Value: 30.0}, map[string]interface{}{"rsi_14": 25.0}, true},
		{"le boundary", Condition{Feature: "rsi_14", Op: OpLe, Value: 30.0}, map[string]interface{}{"rsi_14": 30.0}, true},
		{"eq", Condition{Feature: "flag", Op: OpEq, Value: 1}, map[string]interface{}{"flag": 1.0}, true},
		{"ne", Condition{Feature: "flag", Op: OpNe, Value: 1}, map[string]interface{}{"flag": 0.0}, true},
		{"abs negative", Condition{Feature: "roc_20", Op: OpGt, Value: 0.05, Abs: true}, map[string]interface{}{"roc_20": -0.08}, true},
		{"int widening", Condition{Feature: "count", Op: OpGt, Value: 2}, map[string]interface{}{"count": 3}, true},
		{"bool as numeric", Condition{Feature: "is_new_high", Op: OpEq, Value: 1}, map[string]interface{}{"is_new_high": true}, true},

		// 누락/널/비수치 값은 false - 절대 에러 아님
		{"missing feature", Condition{Feature: "roc_20", Op: OpGt, Value: 0}, map[string]interface{}{}, false},
		{"null feature", Condition{Feature: "roc_20", Op: OpGt, Value: -1}, map[string]interface{}{"roc_20": nil}, false},
		{"non-numeric", Condition{Feature: "market", Op: OpGt, Value: 0}, map[string]interface{}{"market": "KOSPI"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Eval(row(tt.feat)))
		})
	}
}

func TestCondition_ValueFeature(t *testing.T) {
	// 50일 이평 > 200일 이평 - cross-feature 비교
	cond := Condition{Feature: "ma_50", Op: OpGt, ValueFeature: "ma_200"}

	assert.True(t, cond.Eval(row(map[string]interface{}{"ma_50": 71000.0, "ma_200": 68000.0})))
	assert.False(t, cond.Eval(row(map[string]interface{}{"ma_50": 65000.0, "ma_200": 68000.0})))

	// 비교 대상 피처가 없으면 false
	assert.False(t, cond.Eval(row(map[string]interface{}{"ma_50": 71000.0})))
}

func TestCondition_Set(t *testing.T) {
	in := Condition{Feature: "market", Op: OpIn, Values: []interface{}{"KOSPI", "KOSDAQ"}}
	notIn := Condition{Feature: "market", Op: OpNotIn, Values: []interface{}{"KONEX"}}

	assert.True(t, in.Eval(row(map[string]interface{}{"market": "KOSPI"})))
	assert.False(t, in.Eval(row(map[string]interface{}{"market": "KONEX"})))
	assert.True(t, notIn.Eval(row(map[string]interface{}{"market": "KOSPI"})))
	assert.False(t, notIn.Eval(row(map[string]interface{}{"market": "KONEX"})))

	// YAML 정수 리터럴과 float 피처의 수치 확장 매칭
	nums := Condition{Feature: "sector_code", Op: OpIn, Values: []interface{}{10, 20}}
	assert.True(t, nums.Eval(row(map[string]interface{}{"sector_code": 20.0})))

	// 누락 피처는 not_in에서도 false (멤버십 판단 불가)
	assert.False(t, notIn.Eval(row(map[string]interface{}{})))
}

func TestCompileGate_Tree(t *testing.T) {
	node := &ruleconfig.GateNode{
		All: []ruleconfig.GateNode{
			{Feature: "roc_20", Op: ">", Value: 0.05},
			{Any: []ruleconfig.GateNode{
				{Feature: "rsi_14", Op: "<", Value: 80},
				{Feature: "volume_ratio_20", Op: ">", Value: 3.0},
			}},
			{Not: &ruleconfig.GateNode{Feature: "is_halted", Op: "==", Value: 1}},
		},
	}

	gate, err := compileGate(node)
	require.NoError(t, err)

	assert.True(t, gate.Eval(row(map[string]interface{}{
		"roc_20": 0.08, "rsi_14": 55.0, "is_halted": 0.0,
	})))

	// any 분기: rsi 초과여도 거래량이 받쳐주면 통과
	assert.True(t, gate.Eval(row(map[string]interface{}{
		"roc_20": 0.08, "rsi_14": 85.0, "volume_ratio_20": 5.0, "is_halted": 0.0,
	})))

	// not 분기
	assert.False(t, gate.Eval(row(map[string]interface{}{
		"roc_20": 0.08, "rsi_14": 55.0, "is_halted": 1.0,
	})))
}

func TestCompileLeaf_NonNumericValue(t *testing.T) {
	_, err := compileGate(&ruleconfig.GateNode{Feature: "market", Op: ">", Value: "KOSPI"})

	var ce *contracts.ConfigError
	require.ErrorAs(t, err, &ce)
}
