// Package reconcile periodically repairs request drift across all students.
package reconcile

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/projex/core"
)

// Reconciler is implemented by workflow.Service.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// Scheduler runs a full reconciliation pass on a cron schedule (seconds precision, descriptors allowed).
type Scheduler struct {
	cron     *cron.Cron
	svc      Reconciler
	logger   core.Logger
	schedule string
	timeout  time.Duration
}

func NewScheduler(svc Reconciler, logger core.Logger, schedule string, timeout time.Duration) *Scheduler {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{cron: c, svc: svc, logger: logger, schedule: schedule, timeout: timeout}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.Run); err != nil {
		return errors.Wrapf(err, "scheduling reconciliation %q", s.schedule)
	}
	s.cron.Start()
	s.logger.Info("reconciliation scheduled: " + s.schedule)
	return nil
}

// Stop waits for a running pass to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("reconciliation stopped")
}

// Run performs one pass.
func (s *Scheduler) Run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	n, err := s.svc.ReconcileAll(ctx)
	if err != nil {
		s.logger.Error("reconciliation failed", err)
		return
	}
	s.logger.Info("reconciliation done", map[string]interface{}{
		"students": n,
		"took":     time.Since(start).String(),
	})
}
