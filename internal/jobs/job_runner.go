package jobs

import (
	"context"
	"fmt"
	"time"

	"rentalhub-backend/internal/config"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/metrics"
	"rentalhub-backend/internal/service"
)

// Job names, used for -run-once and as metric labels.
const (
	JobAdvanceDueRentals  = "advance-due-rentals"
	JobExpireDeposits     = "expire-deposits"
	JobReconcileInventory = "reconcile-inventory"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Orders    service.OrderService
	Deposits  service.DepositService
	Inventory service.InventoryService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config, m *metrics.Metrics) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		metrics:  m,
		now:      time.Now,
	}
}

// Config returns the configuration the runner was built with.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	started := jr.now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
		jr.metrics.JobRun(jobName, started, err)
	}()

	logger.Info("Starting job", "job", jobName)
	err = jobFunc(context.Background())
	if err != nil {
		logger.Error("Job failed", "job", jobName, "error", err)
		return err
	}
	logger.Info("Job completed", "job", jobName, "duration_ms", time.Since(started).Milliseconds())
	return nil
}

func (jr *JobRunner) recordSweep(jobName string, res service.SweepResult) {
	jr.metrics.SweepItems(jobName, "processed", res.Processed)
	jr.metrics.SweepItems(jobName, "failed", res.Failed)
	logger.Info("Sweep finished", "job", jobName,
		"scanned", res.Scanned, "processed", res.Processed, "failed", res.Failed)
}

// Run executes one job by name.
func (jr *JobRunner) Run(name string) error {
	switch name {
	case JobAdvanceDueRentals:
		return jr.AdvanceDueRentals()
	case JobExpireDeposits:
		return jr.ExpireDeposits()
	case JobReconcileInventory:
		return jr.ReconcileInventory()
	case "all":
		return jr.RunAll()
	default:
		return fmt.Errorf("unknown job %q", name)
	}
}

// RunAll runs every job once (for manual execution). A failing job does not stop the others.
func (jr *JobRunner) RunAll() error {
	var firstErr error
	for _, run := range []func() error{jr.ExpireDeposits, jr.AdvanceDueRentals, jr.ReconcileInventory} {
		if err := run(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
