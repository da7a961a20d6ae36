// internal/app/system/tasks/scheduler.go
package tasks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dalemusser/dormdesk/internal/app/system/unreadsync"
	"github.com/dalemusser/dormdesk/internal/app/workflow"
)

// Scheduler owns the background jobs: the daily expiry sweep over active
// assignments and the periodic unread-count reconciliation.
type Scheduler struct {
	engine        *cron.Cron
	resolver      *workflow.Resolver
	reconciler    *unreadsync.Reconciler
	log           *zap.Logger
	sweepSpec     string // e.g. "15 0 * * *", shortly after midnight UTC
	reconcileSpec string // e.g. "*/2 * * * *"
}

func NewScheduler(resolver *workflow.Resolver, reconciler *unreadsync.Reconciler, sweepSpec, reconcileSpec string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		engine:        cron.New(cron.WithLocation(time.UTC)),
		resolver:      resolver,
		reconciler:    reconciler,
		log:           logger,
		sweepSpec:     sweepSpec,
		reconcileSpec: reconcileSpec,
	}
}

// Start registers the jobs and starts the cron engine. The sweep also runs
// once immediately so a restart never leaves expired assignments holding
// rooms until the next midnight.
func (s *Scheduler) Start() error {
	if _, err := s.engine.AddFunc(s.sweepSpec, s.runSweep); err != nil {
		return err
	}
	if _, err := s.engine.AddFunc(s.reconcileSpec, s.runReconcile); err != nil {
		return err
	}

	go s.runSweep()

	s.engine.Start()
	s.log.Info("task scheduler started",
		zap.String("sweep_spec", s.sweepSpec),
		zap.String("reconcile_spec", s.reconcileSpec))
	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.engine.Stop()
	<-ctx.Done()
	s.log.Info("task scheduler stopped")
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := s.resolver.SweepExpired(ctx, time.Now()); err != nil {
		s.log.Error("assignment expiry sweep failed", zap.Error(err))
	}
}

func (s *Scheduler) runReconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.reconciler.ReconcileAll(ctx); err != nil {
		s.log.Error("unread count reconciliation failed", zap.Error(err))
	}
}
