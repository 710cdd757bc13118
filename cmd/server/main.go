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
	"evently-backend/internal/logger"
	"evently-backend/internal/mail"
	"evently-backend/internal/payment"
	"evently-backend/internal/repository"
	"evently-backend/internal/repository/memory"
	"evently-backend/internal/repository/postgres"
	"evently-backend/internal/security"
	"evently-backend/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	migrate := flag.String("migrate", "", "Run database migrations and exit (up, down, status)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Evently API server...", "environment", cfg.Environment, "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)

	store, db, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	if *migrate != "" {
		if db == nil {
			log.Fatalf("Migrations require the postgres driver, got %q", cfg.Database.Driver)
		}
		if err := postgres.Migrate(db, *migrate); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		logger.Info("Migration finished", "command", *migrate)
		return
	}

	// Initialize external gateways
	mailer, err := mail.New(cfg.Mail)
	if err != nil {
		log.Fatalf("Failed to initialize mail gateway: %v", err)
	}
	payments := payment.New(cfg.Payment)

	// Initialize Services
	delivery := service.NewInviteDelivery(store, mailer, cfg.Mail.AppURL, service.SystemClock)
	inviteSvc := service.NewInviteService(store, delivery, service.InviteSettings{
		Expiry:      cfg.Invites.Expiry,
		MaxAttempts: cfg.Invites.MaxAttempts,
	}, service.SystemClock)
	participationSvc := service.NewParticipationService(store, payments, service.SystemClock)
	jobSvc := service.NewJobService(store, cfg.Jobs.MaxAttempts, service.SystemClock)

	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	router := httpapi.NewAPIRouter(tokenManager, httpapi.APIHandlers{
		Participations: httpapi.NewParticipationHandler(participationSvc),
		Invites:        httpapi.NewInviteHandler(inviteSvc),
		Jobs:           httpapi.NewJobHandler(jobSvc),
	})

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped. Goodbye!")
}

// openStore returns the configured store. db is nil for the memory driver.
func openStore(cfg *config.Config) (*repository.Store, *sql.DB, error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory storage; data is lost on exit")
		return memory.NewStore(), nil, nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("Database connection established")

	if cfg.Database.Migrate {
		if err := postgres.Migrate(db, "up"); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return postgres.NewStore(db), db, nil
}
