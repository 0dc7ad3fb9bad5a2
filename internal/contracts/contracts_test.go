package contracts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobType(t *testing.T) {
	tests := []struct {
		in   string
		want JobType
	}{
		{"full", JobTypeFull},
		{"all", JobTypeFull},
		{"evaluate", JobTypeEvaluate},
		{"s1", JobTypeEvaluate},
		{"state", JobTypeState},
		{"s2", JobTypeState},
		{"score", JobTypeScore},
		{"scoring", JobTypeScore},
		{"s3", JobTypeScore},
		{"review", JobTypeReview},
		{"s4", JobTypeReview},
	}
	for _, tt := range tests {
		got, err := ParseJobType(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseJobType("rebalance")
	assert.Error(t, err)
}

func TestJobType_Stages(t *testing.T) {
	assert.Equal(t, []Stage{StageEvaluate, StageState, StageScore}, JobTypeFull.Stages())
	assert.Equal(t, []Stage{StageReview}, JobTypeReview.Stages())
	assert.Nil(t, JobType("bogus").Stages())
}

func TestInstanceState_Lifecycle(t *testing.T) {
	assert.True(t, InstanceNew.IsLive())
	assert.True(t, InstanceActive.IsLive())
	assert.False(t, InstanceEnded.IsLive())
	assert.False(t, InstanceCooldown.IsLive())

	// 닫힌 전이 그래프 - 허용된 간선만 통과
	allowed := []struct{ from, to InstanceState }{
		{InstanceNew, InstanceActive},
		{InstanceNew, InstanceEnded},
		{InstanceNew, InstanceInvalidated},
		{InstanceActive, InstanceEnded},
		{InstanceActive, InstanceInvalidated},
		{InstanceEnded, InstanceCooldown},
	}
	for _, e := range allowed {
		assert.True(t, e.from.CanTransitionTo(e.to), "%s -> %s", e.from, e.to)
	}

	denied := []struct{ from, to InstanceState }{
		{InstanceNew, InstanceCooldown},
		{InstanceActive, InstanceNew},
		{InstanceEnded, InstanceActive},
		{InstanceCooldown, InstanceNew},
		{InstanceInvalidated, InstanceEnded},
	}
	for _, e := range denied {
		assert.False(t, e.from.CanTransitionTo(e.to), "%s -> %s", e.from, e.to)
	}
}

func TestDirection_Sign(t *testing.T) {
	assert.Equal(t, 1.0, DirectionBullish.Sign())
	assert.Equal(t, -1.0, DirectionBearish.Sign())
	assert.Equal(t, 0.0, DirectionNeutral.Sign())
	assert.Equal(t, 0.0, Direction("").Sign())
}

func TestErrorClassification(t *testing.T) {
	transient := Transient("facts.upsert", errors.New("connection reset"))
	assert.True(t, IsRetryable(transient))
	assert.False(t, IsTerminal(transient))

	// 래핑돼도 분류 유지
	wrapped := errors.Join(errors.New("stage evaluate"), transient)
	assert.True(t, IsRetryable(wrapped))

	coverage := &DataUnavailableError{UniverseID: "kr_equity_main", Expected: 500, Actual: 300, Threshold: 0.8}
	assert.True(t, IsTerminal(coverage))
	assert.False(t, IsRetryable(coverage))

	config := &ConfigError{Path: "templates[0].gate", Detail: "empty gate node"}
	assert.True(t, IsTerminal(config))

	constraint := &ConstraintError{Table: "signals.instances", Err: errors.New("duplicate key")}
	assert.True(t, IsTerminal(constraint))

	// claim 상실은 재시도도 터미널도 아닌 skip
	assert.False(t, IsRetryable(ErrClaimLost))
	assert.False(t, IsTerminal(ErrClaimLost))

	assert.Nil(t, Transient("noop", nil))
}
