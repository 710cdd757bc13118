package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"evently-backend/internal/config"
	"evently-backend/internal/logger"
)

// Runner is the work the scheduler drives. *jobs.JobRunner implements it.
type Runner interface {
	ProcessPendingInvites(ctx context.Context) error
	ProcessJobQueue(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

type Task string

const (
	TaskInvites Task = "invites"
	TaskJobs    Task = "jobs"
	TaskCleanup Task = "cleanup"
	TaskAll     Task = "all"
)

var ErrUnknownTask = errors.New("unknown task")

// ParseTask accepts invites, jobs, cleanup or all.
func ParseTask(s string) (Task, error) {
	switch t := Task(s); t {
	case TaskInvites, TaskJobs, TaskCleanup, TaskAll:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTask, s)
	}
}

// Scheduler manages cron job scheduling. Registration happens once per
// instance and each task runs at most once at a time, whether started by a
// tick or by Trigger.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	cfg    config.SchedulerConfig

	mu         sync.Mutex
	registered bool
	started    bool

	guards map[Task]chan struct{}

	// ctx bounds every run, scheduled or triggered. Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a new scheduler with the provided runner
func NewScheduler(runner Runner, cfg config.SchedulerConfig) *Scheduler {
	log := cronLogger{}

	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   c,
		runner: runner,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		guards: map[Task]chan struct{}{
			TaskInvites: make(chan struct{}, 1),
			TaskJobs:    make(chan struct{}, 1),
			TaskCleanup: make(chan struct{}, 1),
		},
	}
}

// Init registers all scheduled tasks. Calling it again is a no-op.
func (s *Scheduler) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerLocked()
}

func (s *Scheduler) registerLocked() error {
	if s.registered {
		return nil
	}

	entries := []struct {
		spec string
		task Task
	}{
		{s.cfg.ProcessJobs, TaskJobs},
		{s.cfg.ProcessInvites, TaskInvites},
		{s.cfg.Cleanup, TaskCleanup},
	}

	var ids []cron.EntryID
	for _, e := range entries {
		task := e.task
		id, err := s.cron.AddFunc(e.spec, func() { s.tick(task) })
		if err != nil {
			for _, added := range ids {
				s.cron.Remove(added)
			}
			return fmt.Errorf("failed to register %s task with schedule %q: %w", task, e.spec, err)
		}
		ids = append(ids, id)
		logger.Info("Registered scheduled task", "task", task, "schedule", e.spec)
	}

	s.registered = true
	logger.Info("All cron jobs registered successfully")
	return nil
}

// Start begins the cron scheduler. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.registerLocked(); err != nil {
		return err
	}

	logger.Info("Starting cron scheduler...")
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.cron.Start()
	s.started = true
	logger.Info("Cron scheduler started successfully")
	return nil
}

// Stop cancels in-flight runs, including ones started by Trigger, and waits
// for scheduled runs to return. Triggers that start afterwards see a cancelled
// context until the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasStarted := s.started
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	if !wasStarted {
		return
	}
	logger.Info("Stopping cron scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Trigger runs task now, waiting for a run already in progress to finish first.
// TaskAll runs invites then jobs. ctx only bounds the wait: once a run starts
// it belongs to the scheduler and ends when it finishes or Stop is called.
func (s *Scheduler) Trigger(ctx context.Context, task Task) error {
	switch task {
	case TaskAll:
		if err := s.Trigger(ctx, TaskInvites); err != nil {
			return err
		}
		return s.Trigger(ctx, TaskJobs)
	case TaskInvites, TaskJobs, TaskCleanup:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}

	guard := s.guards[task]
	select {
	case guard <- struct{}{}:
	default:
		select {
		case guard <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	defer func() { <-guard }()

	logger.Info("Running task on demand", "task", task)
	return s.run(s.runContext(), task)
}

// tick is the cron entry point. It skips the run if the task is still busy.
func (s *Scheduler) tick(task Task) {
	guard := s.guards[task]
	select {
	case guard <- struct{}{}:
	default:
		logger.Warn("Skipping scheduled run, previous run still in progress", "task", task)
		return
	}
	defer func() { <-guard }()

	if err := s.run(s.runContext(), task); err != nil {
		logger.Error("Scheduled task failed", "task", task, "error", err)
	}
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) run(ctx context.Context, task Task) error {
	switch task {
	case TaskInvites:
		return s.runner.ProcessPendingInvites(ctx)
	case TaskJobs:
		return s.runner.ProcessJobQueue(ctx)
	case TaskCleanup:
		return s.runner.Cleanup(ctx)
	}
	return fmt.Errorf("%w: %q", ErrUnknownTask, task)
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
