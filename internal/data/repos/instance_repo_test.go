package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

func newTestInstance(assetID string, firstDate time.Time) *contracts.SignalInstance {
	return &contracts.SignalInstance{
		AssetID:        assetID,
		TemplateName:   "momentum_continuation",
		ConfigID:       "korea_equity_v1",
		State:          contracts.InstanceNew,
		FirstDate:      firstDate,
		LastSeenDate:   firstDate,
		DaysAbsent:     0,
		StrengthAtOpen: 70,
	}
}

func TestInstanceRepository_LiveKeyIdempotent(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	repo := NewInstanceRepository(pool)
	date := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	inst := newTestInstance(uuid.NewString(), date)

	// 첫 삽입은 성공하고 instance_id 채번
	created, err := repo.CreateIfAbsent(ctx, inst)
	require.NoError(t, err)
	require.True(t, created)
	assert.NotZero(t, inst.InstanceID)

	// 같은 키 재실행: 라이브 인스턴스가 있으면 조용한 no-op이어야 한다
	dup := newTestInstance(inst.AssetID, date)
	dup.StrengthAtOpen = 90
	created, err = repo.CreateIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created, "second insert for a live key must be a no-op")
	assert.Zero(t, dup.InstanceID)

	// 라이브 행은 정확히 하나
	var n int
	err = pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM signals.instances
		WHERE asset_id = $1 AND template_name = $2 AND config_id = $3
			AND state IN ('NEW', 'ACTIVE')
	`, inst.AssetID, inst.TemplateName, inst.ConfigID).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "exactly one live instance per key")
}

func TestInstanceRepository_EndedThenCooldownThenReentry(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	repo := NewInstanceRepository(pool)
	date := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	inst := newTestInstance(uuid.NewString(), date)

	created, err := repo.CreateIfAbsent(ctx, inst)
	require.NoError(t, err)
	require.True(t, created)

	// NEW -> ENDED: 최종 days_absent가 컬럼에 남아야 한다
	err = repo.Transition(ctx, inst.InstanceID, contracts.InstanceNew, contracts.InstanceEnded,
		"absent 2 days as of 2025-03-14", 2, date.AddDate(0, 0, 2))
	require.NoError(t, err)

	var daysAbsent int
	var endedReason string
	err = pool.QueryRow(ctx, `
		SELECT days_absent, ended_reason FROM signals.instances WHERE instance_id = $1
	`, inst.InstanceID).Scan(&daysAbsent, &endedReason)
	require.NoError(t, err)
	assert.Equal(t, 2, daysAbsent)
	assert.Contains(t, endedReason, "absent 2 days")

	// ENDED -> COOLDOWN: cooldown_entered_at 스탬프, days_absent는 유지(-1)
	cooledAt := date.AddDate(0, 0, 3)
	err = repo.Transition(ctx, inst.InstanceID, contracts.InstanceEnded, contracts.InstanceCooldown,
		"", -1, cooledAt)
	require.NoError(t, err)

	err = pool.QueryRow(ctx, `
		SELECT days_absent FROM signals.instances WHERE instance_id = $1
	`, inst.InstanceID).Scan(&daysAbsent)
	require.NoError(t, err)
	assert.Equal(t, 2, daysAbsent, "cooldown sweep must not reset days_absent")

	key := inst.Key()

	// 쿨다운 창 안에서는 감지, 창이 지나면 미감지
	recent, err := repo.RecentCooldown(ctx, key, inst.ConfigID, cooledAt, 5)
	require.NoError(t, err)
	assert.True(t, recent)

	recent, err = repo.RecentCooldown(ctx, key, inst.ConfigID, cooledAt.AddDate(0, 0, 6), 5)
	require.NoError(t, err)
	assert.False(t, recent)

	// 라이브 행이 없으니 같은 키로 새 사이클 재진입 가능 - 행 변조가 아니라 새 행
	reentry := newTestInstance(inst.AssetID, cooledAt.AddDate(0, 0, 6))
	created, err = repo.CreateIfAbsent(ctx, reentry)
	require.NoError(t, err)
	assert.True(t, created, "a non-live key must accept a fresh instance")
	assert.NotEqual(t, inst.InstanceID, reentry.InstanceID)
}
