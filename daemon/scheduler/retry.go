// SPDX-License-Identifier: LGPL-3.0-or-later

package scheduler

import (
	"context"
	"time"

	"hyperwarm/hverr"
	"hyperwarm/logger"
)

// DefaultBackoff is the fixed retry schedule the lifecycle controller uses
// for transient hypervisor errors: three attempts at 250ms, 1s, then 4s,
// matching the external-interfaces error-handling contract.
var DefaultBackoff = []time.Duration{250 * time.Millisecond, time.Second, 4 * time.Second}

// Retrier re-runs an operation against the fixed backoff schedule, but
// only for errors the taxonomy marks as transient; anything else returns
// immediately.
type Retrier struct {
	schedule []time.Duration
	log      logger.Logger
}

// NewRetrier builds a Retrier over schedule. A nil schedule uses
// DefaultBackoff.
func NewRetrier(schedule []time.Duration, log logger.Logger) *Retrier {
	if schedule == nil {
		schedule = DefaultBackoff
	}
	return &Retrier{schedule: schedule, log: log}
}

// Do calls op, retrying on hverr.KindTransient up to len(schedule) extra
// times with the configured delays between attempts. Non-transient errors
// and context cancellation are returned immediately.
func (r *Retrier) Do(ctx context.Context, opName string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= len(r.schedule); attempt++ {
		if attempt > 0 {
			delay := r.schedule[attempt-1]
			r.log.Info("retrying operation", "op", opName, "attempt", attempt, "delay", delay)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if hverr.KindOf(lastErr) != hverr.KindTransient {
			return lastErr
		}
	}
	return lastErr
}
