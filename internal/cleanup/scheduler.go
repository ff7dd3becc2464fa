/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package cleanup

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Runner performs one sweep.
type Runner interface {
	Run(ctx context.Context) (*Report, error)
}

// Scheduler runs sweeps periodically for long-lived deployments. Cron
// deployments call Job.Run once instead.
type Scheduler struct {
	runner         Runner
	interval       time.Duration
	runImmediately bool
	triggers       chan string
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// RunImmediately makes the scheduler sweep once on start instead of waiting
// for the first tick.
func RunImmediately() SchedulerOption {
	return func(s *Scheduler) {
		s.runImmediately = true
	}
}

// NewScheduler creates a new cleanup scheduler with the specified interval.
// The scheduler will sweep every interval duration.
//
// Parameters:
//   - runner: the sweep to run, usually a *Job
//   - interval: Duration between sweeps (e.g., 1*time.Hour)
//
// Returns a configured Scheduler ready to start.
func NewScheduler(runner Runner, interval time.Duration, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		interval: interval,
		triggers: make(chan string, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the cleanup scheduler, running periodically until the context is canceled.
// It uses a ticker to trigger sweeps at the configured interval and respects graceful
// shutdown via context cancellation.
//
// Returns nil on graceful shutdown. A failed sweep is logged and the
// scheduler waits for the next tick.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger := log.FromContext(ctx)

	if s.runImmediately {
		s.sweep(ctx, logger)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx, logger)
		case reason := <-s.triggers:
			logger.Info("sweep requested", "reason", reason)
			s.sweep(ctx, logger)
		}
	}
}

// Trigger requests a sweep ahead of the next tick. Requests made while one
// is already pending are merged into it.
func (s *Scheduler) Trigger(reason string) {
	select {
	case s.triggers <- reason:
	default:
	}
}

func (s *Scheduler) sweep(ctx context.Context, logger logr.Logger) {
	report, err := s.runner.Run(ctx)
	if err != nil {
		// Continue to next tick - don't stop scheduler on transient errors
		logger.Error(err, "sweep failed")
		return
	}
	logger.Info("sweep finished",
		"deleted", len(report.Deleted),
		"deleteFailures", len(report.DeleteFailures),
		"duration", report.Duration())
}
