package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	httpapi "evently-backend/internal/api/http"
	"evently-backend/internal/config"
	"evently-backend/internal/jobs"
	"evently-backend/internal/logger"
	"evently-backend/internal/mail"
	"evently-backend/internal/push"
	"evently-backend/internal/repository"
	"evently-backend/internal/repository/memory"
	"evently-backend/internal/repository/postgres"
	"evently-backend/internal/scheduler"
	"evently-backend/internal/security"
	"evently-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a task once and exit (invites, jobs, cleanup, all)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Evently Cronjob Runner...", "environment", cfg.Environment, "log_level", cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	// Initialize external gateways
	mailer, err := mail.New(cfg.Mail)
	if err != nil {
		log.Fatalf("Failed to initialize mail gateway: %v", err)
	}
	pusher, err := push.New(ctx, cfg.Push)
	if err != nil {
		log.Fatalf("Failed to initialize push sender: %v", err)
	}

	// Initialize Job Runner
	delivery := service.NewInviteDelivery(store, mailer, cfg.Mail.AppURL, service.SystemClock)
	runner := jobs.NewJobRunner(store, delivery, jobs.HandlerDeps{
		Store:  store,
		Push:   pusher,
		Mail:   mailer,
		AppURL: cfg.Mail.AppURL,
	}, jobs.SettingsFromConfig(cfg), service.SystemClock)

	cronScheduler := scheduler.NewScheduler(runner, cfg.Scheduler)
	if err := cronScheduler.Init(); err != nil {
		log.Fatalf("Failed to register scheduled tasks: %v", err)
	}

	// Check if running a single task
	if *runOnce != "" {
		task, err := scheduler.ParseTask(*runOnce)
		if err != nil {
			log.Fatalf("Unknown task %q. Available tasks: invites, jobs, cleanup, all", *runOnce)
		}
		logger.Info("Running task once", "task", task)
		stopOnSignal := context.AfterFunc(ctx, cronScheduler.Stop)
		defer stopOnSignal()
		if err := cronScheduler.Trigger(ctx, task); err != nil {
			logger.Error("Task failed", "task", task, "error", err)
			os.Exit(1)
		}
		logger.Info("Task execution completed", "task", task)
		return
	}

	if err := cronScheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	triggerHandler := httpapi.NewTriggerHandler(
		security.NewTriggerAuthorizer(cfg.Trigger.Secret, cfg.IsDevelopment()),
		cronScheduler,
	)
	srv := &http.Server{
		Addr:              cfg.GetTriggerAddress(),
		Handler:           httpapi.NewTriggerRouter(triggerHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Trigger endpoint listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	if err != nil {
		logger.Error("Cronjob runner stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// openStore returns the configured store. db is nil for the memory driver.
func openStore(cfg *config.Config) (*repository.Store, *sql.DB, error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory storage; only work created by this process is visible")
		return memory.NewStore(), nil, nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("Database connection established")
	return postgres.NewStore(db), db, nil
}
