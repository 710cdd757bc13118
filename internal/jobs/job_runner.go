package jobs

import (
	"fmt"
	"runtime/debug"
	"time"

	"evently-backend/internal/config"
	"evently-backend/internal/logger"
	"evently-backend/internal/repository"
	"evently-backend/internal/service"
)

// Settings bounds the work done by one run of each task.
type Settings struct {
	InviteBatchSize         int
	JobBatchSize            int
	StuckAfter              time.Duration
	CompletedJobRetention   time.Duration
	TerminalInviteRetention time.Duration
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		InviteBatchSize:         cfg.Invites.BatchSize,
		JobBatchSize:            cfg.Jobs.BatchSize,
		StuckAfter:              cfg.Jobs.StuckAfter,
		CompletedJobRetention:   cfg.Retention.CompletedJobs,
		TerminalInviteRetention: cfg.Retention.TerminalInvite,
	}
}

// DefaultSettings mirrors the config defaults.
func DefaultSettings() Settings {
	return Settings{
		InviteBatchSize:         10,
		JobBatchSize:            20,
		StuckAfter:              30 * time.Minute,
		CompletedJobRetention:   7 * 24 * time.Hour,
		TerminalInviteRetention: 30 * 24 * time.Hour,
	}
}

// JobRunner coordinates all scheduled tasks
type JobRunner struct {
	store    *repository.Store
	delivery service.InviteDelivery
	registry *Registry
	settings Settings
	now      service.Clock
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store *repository.Store, delivery service.InviteDelivery, deps HandlerDeps, settings Settings, now service.Clock) *JobRunner {
	if now == nil {
		now = service.SystemClock
	}
	jr := &JobRunner{
		store:    store,
		delivery: delivery,
		settings: settings,
		now:      now,
	}
	if deps.Store == nil {
		deps.Store = store
	}
	jr.registry = NewRegistry(deps, jr.Sweep)
	return jr
}

// runWithRecovery wraps task execution with panic recovery and timing
func (jr *JobRunner) runWithRecovery(taskName string, taskFunc func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Task panicked", "task", taskName, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%s panicked: %v", taskName, r)
		}
		logger.TaskFinished(taskName, time.Since(start), err)
	}()

	logger.TaskStarted(taskName)
	return taskFunc()
}
