package worker

import (
	"context"
	"time"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// RetryPolicy retries transient failures with a fixed in-process backoff.
// ⭐ SSOT: claim/heartbeat 수준의 짧은 재시도는 이 정책으로만
//
// This covers store blips inside one attempt. Whole-job retries are a
// different mechanism - the queue's visibility window drives those.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy suits short store calls (claim, heartbeat, finish)
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 2 * time.Second}

// Do runs fn, retrying while the error is transient. Terminal errors and
// ErrClaimLost return immediately.
func (p RetryPolicy) Do(ctx context.Context, log *logger.Logger, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn()
		if err == nil || !contracts.IsRetryable(err) {
			return err
		}

		if attempt < p.MaxAttempts {
			log.WithError(err).Warnf("%s failed (attempt %d/%d), retrying", op, attempt, p.MaxAttempts)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff):
			}
		}
	}
	return err
}
