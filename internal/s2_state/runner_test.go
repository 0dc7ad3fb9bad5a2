package s2_state

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/pkg/config"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

type stubFacts struct {
	rows []*contracts.SignalFact
}

func (s *stubFacts) UpsertFacts(context.Context, []*contracts.SignalFact) error { return nil }

func (s *stubFacts) GetByDate(context.Context, time.Time, string) ([]*contracts.SignalFact, error) {
	return s.rows, nil
}

func (s *stubFacts) GetByAsset(context.Context, string, string, int) ([]*contracts.SignalFact, error) {
	return nil, nil
}

// memInstances is an in-memory contracts.InstanceRepository with the same
// live-key and transition semantics as the SQL implementation
type memInstances struct {
	seq  int64
	rows map[int64]*contracts.SignalInstance
}

func newMemInstances() *memInstances {
	return &memInstances{rows: make(map[int64]*contracts.SignalInstance)}
}

func (m *memInstances) GetLive(_ context.Context, configID string) ([]*contracts.SignalInstance, error) {
	var live []*contracts.SignalInstance
	for _, inst := range m.rows {
		if inst.ConfigID == configID && inst.State.IsLive() {
			cp := *inst
			live = append(live, &cp)
		}
	}
	return live, nil
}

func (m *memInstances) CreateIfAbsent(_ context.Context, inst *contracts.SignalInstance) (bool, error) {
	for _, existing := range m.rows {
		if existing.Key() == inst.Key() && existing.ConfigID == inst.ConfigID && existing.State.IsLive() {
			return false, nil
		}
	}
	m.seq++
	cp := *inst
	cp.InstanceID = m.seq
	cp.UpdatedAt = inst.LastSeenDate
	m.rows[m.seq] = &cp
	inst.InstanceID = m.seq
	return true, nil
}

func (m *memInstances) Transition(_ context.Context, instanceID int64, from, to contracts.InstanceState, reason string, daysAbsent int, asOf time.Time) error {
	inst, ok := m.rows[instanceID]
	if !ok || inst.State != from {
		return fmt.Errorf("instance %d not in expected state %s", instanceID, from)
	}
	inst.State = to
	if reason != "" {
		inst.EndedReason = reason
	}
	if to == contracts.InstanceCooldown {
		stamp := asOf
		inst.CooldownEnteredAt = &stamp
	}
	if daysAbsent >= 0 {
		inst.DaysAbsent = daysAbsent
	}
	inst.UpdatedAt = asOf
	return nil
}

func (m *memInstances) Touch(_ context.Context, instanceID int64, lastSeen time.Time, daysAbsent int) error {
	inst, ok := m.rows[instanceID]
	if !ok {
		return fmt.Errorf("instance %d not found", instanceID)
	}
	inst.LastSeenDate = lastSeen
	inst.DaysAbsent = daysAbsent
	return nil
}

func (m *memInstances) RecentCooldown(_ context.Context, key contracts.FactKey, configID string, asOf time.Time, window int) (bool, error) {
	for _, inst := range m.rows {
		if inst.Key() != key || inst.ConfigID != configID || inst.State != contracts.InstanceCooldown {
			continue
		}
		if inst.CooldownEnteredAt == nil {
			continue
		}
		entered := *inst.CooldownEnteredAt
		if entered.After(asOf.AddDate(0, 0, -window)) && !entered.After(asOf) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memInstances) StaleEnded(_ context.Context, configID string, asOf time.Time) ([]*contracts.SignalInstance, error) {
	var stale []*contracts.SignalInstance
	for _, inst := range m.rows {
		if inst.ConfigID == configID && inst.State == contracts.InstanceEnded &&
			calendarDays(inst.UpdatedAt, asOf) > 0 {
			cp := *inst
			stale = append(stale, &cp)
		}
	}
	return stale, nil
}

func stateJob(asOf time.Time) *contracts.Job {
	return &contracts.Job{
		JobID:      "job-1",
		JobType:    contracts.JobTypeState,
		AsOfDate:   asOf,
		UniverseID: "kr_equity_main",
		ConfigID:   "korea_equity_v1",
	}
}

func fact(assetID, templateName string, date time.Time) *contracts.SignalFact {
	return &contracts.SignalFact{
		AssetID:      assetID,
		Date:         date,
		TemplateName: templateName,
		ConfigID:     "korea_equity_v1",
		Direction:    contracts.DirectionBullish,
		Strength:     70,
		BaseWeight:   1,
	}
}

func TestRun_EndedKeyCoolsBeforeReopen(t *testing.T) {
	asOf := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	// 어제 ENDED로 끝난 인스턴스, 그리고 오늘 같은 키가 다시 발화한 facts
	instances := newMemInstances()
	instances.seq = 1
	instances.rows[1] = &contracts.SignalInstance{
		InstanceID:   1,
		AssetID:      "005930",
		TemplateName: "momentum_continuation",
		ConfigID:     "korea_equity_v1",
		State:        contracts.InstanceEnded,
		FirstDate:    asOf.AddDate(0, 0, -7),
		LastSeenDate: asOf.AddDate(0, 0, -3),
		DaysAbsent:   2,
		EndedReason:  "absent 2 days as of 2025-03-11",
		UpdatedAt:    asOf.AddDate(0, 0, -1),
	}
	facts := &stubFacts{rows: []*contracts.SignalFact{
		fact("005930", "momentum_continuation", asOf),
	}}

	runner := NewRunner(facts, instances, testLogger())
	result, err := runner.Run(context.Background(), stateJob(asOf))
	require.NoError(t, err)
	assert.Zero(t, result.ErrorCount)

	// 스윕이 먼저: ENDED는 오늘 날짜로 COOLDOWN 진입
	ended := instances.rows[1]
	assert.Equal(t, contracts.InstanceCooldown, ended.State)
	require.NotNil(t, ended.CooldownEnteredAt)
	assert.True(t, ended.CooldownEnteredAt.Equal(asOf))

	// 쿨다운 중인 키는 즉시 재발화 불가, 라이브 인스턴스 0개
	live, err := instances.GetLive(context.Background(), "korea_equity_v1")
	require.NoError(t, err)
	assert.Empty(t, live, "a key must not reopen the day after it ended")
	assert.Equal(t, 1, result.OutputCount, "sweep only, no creation")
}

func TestRun_EndPersistsFinalAbsence(t *testing.T) {
	asOf := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	instances := newMemInstances()
	instances.seq = 1
	instances.rows[1] = &contracts.SignalInstance{
		InstanceID:   1,
		AssetID:      "000660",
		TemplateName: "momentum_continuation",
		ConfigID:     "korea_equity_v1",
		State:        contracts.InstanceActive,
		FirstDate:    asOf.AddDate(0, 0, -5),
		LastSeenDate: asOf.AddDate(0, 0, -2),
		DaysAbsent:   1,
		UpdatedAt:    asOf.AddDate(0, 0, -1),
	}

	runner := NewRunner(&stubFacts{}, instances, testLogger())
	result, err := runner.Run(context.Background(), stateJob(asOf))
	require.NoError(t, err)
	assert.Zero(t, result.ErrorCount)

	// 종료 시점의 최종 결석 일수는 reason 문자열이 아니라 컬럼으로 남는다
	ended := instances.rows[1]
	assert.Equal(t, contracts.InstanceEnded, ended.State)
	assert.Equal(t, 2, ended.DaysAbsent)
	assert.Contains(t, ended.EndedReason, "absent 2 days")
}

func TestRun_RerunSameDayCreatesNoDuplicate(t *testing.T) {
	asOf := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	instances := newMemInstances()
	facts := &stubFacts{rows: []*contracts.SignalFact{
		fact("035420", "momentum_continuation", asOf),
	}}

	runner := NewRunner(facts, instances, testLogger())

	first, err := runner.Run(context.Background(), stateJob(asOf))
	require.NoError(t, err)
	assert.Equal(t, 1, first.OutputCount)

	// 같은 날짜 재실행: 새 인스턴스가 추가로 열리면 안 된다
	second, err := runner.Run(context.Background(), stateJob(asOf))
	require.NoError(t, err)
	assert.Zero(t, second.ErrorCount)

	live, err := instances.GetLive(context.Background(), "korea_equity_v1")
	require.NoError(t, err)
	assert.Len(t, live, 1, "rerun must not duplicate the live instance")
}
