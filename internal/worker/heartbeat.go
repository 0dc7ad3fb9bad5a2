package worker

import (
	"context"
	"time"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// heartbeat extends a job's lease on a fixed cadence while its stages run.
// Driven by an explicit stop channel, not by polling shared state.
type heartbeat struct {
	jobs     contracts.JobRepository
	lease    time.Duration
	interval time.Duration
	log      *logger.Logger

	stop chan struct{}
	done chan struct{}
}

func newHeartbeat(jobs contracts.JobRepository, lease, interval time.Duration, log *logger.Logger) *heartbeat {
	return &heartbeat{
		jobs:     jobs,
		lease:    lease,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background lease extension for one job. A lost claim
// is logged and the loop exits - the stage work itself is not interrupted,
// but the conflict will surface in the data layer's conditional writes.
func (h *heartbeat) Start(ctx context.Context, jobID string) {
	go func() {
		defer close(h.done)

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := h.jobs.Heartbeat(ctx, jobID, h.lease); err != nil {
					h.log.WithError(err).Warnf("heartbeat failed for job %s", jobID)
					if err == contracts.ErrClaimLost {
						return
					}
				}
			}
		}
	}()
}

// Stop signals the loop and waits for it to exit
func (h *heartbeat) Stop() {
	close(h.stop)
	<-h.done
}
