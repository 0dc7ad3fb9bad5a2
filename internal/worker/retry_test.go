package worker

import (
	"context"
	"errors"
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

func TestRetryPolicy_TransientThenSuccess(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), testLogger(), "claim", func() error {
		calls++
		if calls < 3 {
			return contracts.Transient("claim", errors.New("connection reset"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}

	calls := 0
	transient := contracts.Transient("heartbeat", errors.New("timeout"))
	err := p.Do(context.Background(), testLogger(), "heartbeat", func() error {
		calls++
		return transient
	})

	assert.Equal(t, 2, calls)
	assert.True(t, contracts.IsRetryable(err))
}

func TestRetryPolicy_TerminalReturnsImmediately(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), testLogger(), "claim", func() error {
		calls++
		return contracts.ErrClaimLost
	})

	// ErrClaimLost는 재시도 대상이 아님 - 한 번만 호출
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, contracts.ErrClaimLost)

	calls = 0
	err = p.Do(context.Background(), testLogger(), "gate", func() error {
		calls++
		return &contracts.DataUnavailableError{UniverseID: "kr_equity_main"}
	})
	assert.Equal(t, 1, calls)
	assert.True(t, contracts.IsTerminal(err))
}

func TestRetryPolicy_ContextCancelled(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Do(ctx, testLogger(), "finish", func() error {
		return contracts.Transient("finish", errors.New("blip"))
	})

	assert.ErrorIs(t, err, context.Canceled)
}
