package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rentalhub-backend/internal/app"
	"rentalhub-backend/internal/config"
	"rentalhub-backend/internal/jobs"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-deposits', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting RentalHub Cronjob Runner...", "log_level", cfg.Log.Level)

	application, err := app.Build(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	jobServices := &jobs.Services{
		Orders:    application.Orders,
		Deposits:  application.Deposits,
		Inventory: application.Inventory,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(jobServices, cfg, application.Metrics)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := jobRunner.Run(*runOnce); err != nil {
			logger.Error("Job failed", "job", *runOnce, "error", err)
			printJobs()
			application.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to initialize scheduler", "error", err)
		application.Close()
		os.Exit(1)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

func printJobs() {
	fmt.Printf("Available jobs:\n")
	for _, name := range []string{jobs.JobExpireDeposits, jobs.JobAdvanceDueRentals, jobs.JobReconcileInventory, "all"} {
		fmt.Printf("  - %s\n", name)
	}
}
