package s2_state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCalendarDays(t *testing.T) {
	assert.Equal(t, 0, calendarDays(day("2025-03-10"), day("2025-03-10")))
	assert.Equal(t, 1, calendarDays(day("2025-03-10"), day("2025-03-11")))
	assert.Equal(t, 3, calendarDays(day("2025-03-07"), day("2025-03-10"))) // 금→월

	// 시각은 무시하고 달력 날짜만 본다
	a := time.Date(2025, 3, 10, 23, 50, 0, 0, time.UTC)
	b := time.Date(2025, 3, 11, 0, 5, 0, 0, time.UTC)
	assert.Equal(t, 1, calendarDays(a, b))
}

func TestReconcilePresent_PromotionBoundary(t *testing.T) {
	inst := func(state contracts.InstanceState, first string) *contracts.SignalInstance {
		return &contracts.SignalInstance{State: state, FirstDate: day(first)}
	}

	// MinActiveDays(2)일째 되는 날 정확히 승격 - 그 전날은 아님
	assert.Equal(t, decideTouch, reconcilePresent(inst(contracts.InstanceNew, "2025-03-10"), day("2025-03-10")))
	assert.Equal(t, decideTouch, reconcilePresent(inst(contracts.InstanceNew, "2025-03-10"), day("2025-03-11")))
	assert.Equal(t, decidePromote, reconcilePresent(inst(contracts.InstanceNew, "2025-03-10"), day("2025-03-12")))
	assert.Equal(t, decidePromote, reconcilePresent(inst(contracts.InstanceNew, "2025-03-10"), day("2025-03-13")))

	// 이미 ACTIVE면 항상 터치
	assert.Equal(t, decideTouch, reconcilePresent(inst(contracts.InstanceActive, "2025-03-01"), day("2025-03-12")))
}

func TestReconcileAbsent_GraceBoundary(t *testing.T) {
	// 결석 1일차: 아직 유예
	d, absent := reconcileAbsent(&contracts.SignalInstance{DaysAbsent: 0})
	assert.Equal(t, decideTouch, d)
	assert.Equal(t, 1, absent)

	// 결석이 GracePeriodDays(2)에 도달하는 날 정확히 종료
	d, absent = reconcileAbsent(&contracts.SignalInstance{DaysAbsent: 1})
	assert.Equal(t, decideEnd, d)
	assert.Equal(t, 2, absent)

	d, absent = reconcileAbsent(&contracts.SignalInstance{DaysAbsent: 5})
	assert.Equal(t, decideEnd, d)
	assert.Equal(t, 6, absent)
}
