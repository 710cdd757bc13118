package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evently-backend/internal/config"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   []Task
	err     error
	block   chan struct{}
	started chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{started: make(chan struct{}, 10)}
}

func (r *fakeRunner) record(ctx context.Context, task Task) error {
	r.mu.Lock()
	r.calls = append(r.calls, task)
	block, err := r.block, r.err
	r.mu.Unlock()

	r.started <- struct{}{}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (r *fakeRunner) ProcessPendingInvites(ctx context.Context) error {
	return r.record(ctx, TaskInvites)
}

func (r *fakeRunner) ProcessJobQueue(ctx context.Context) error {
	return r.record(ctx, TaskJobs)
}

func (r *fakeRunner) Cleanup(ctx context.Context) error {
	return r.record(ctx, TaskCleanup)
}

func (r *fakeRunner) Calls() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Task(nil), r.calls...)
}

var testSchedules = config.SchedulerConfig{
	ProcessJobs:    "0 * * * * *",
	ProcessInvites: "0 */2 * * * *",
	Cleanup:        "0 0 2 * * *",
}

func TestParseTask(t *testing.T) {
	for _, name := range []string{"invites", "jobs", "cleanup", "all"} {
		task, err := ParseTask(name)
		require.NoError(t, err)
		assert.Equal(t, Task(name), task)
	}

	_, err := ParseTask("reports")
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestInit_Idempotent(t *testing.T) {
	s := NewScheduler(newFakeRunner(), testSchedules)

	require.NoError(t, s.Init())
	require.NoError(t, s.Init())
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 3)
}

func TestInit_InvalidScheduleRegistersNothing(t *testing.T) {
	cfg := testSchedules
	cfg.Cleanup = "every day at two"
	s := NewScheduler(newFakeRunner(), cfg)

	err := s.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleanup")
	assert.Empty(t, s.cron.Entries())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(newFakeRunner(), testSchedules)
	assert.False(t, s.IsRunning())

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestTrigger_All(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler(runner, testSchedules)

	require.NoError(t, s.Trigger(context.Background(), TaskAll))
	assert.Equal(t, []Task{TaskInvites, TaskJobs}, runner.Calls())

	require.NoError(t, s.Trigger(context.Background(), TaskCleanup))
	assert.Equal(t, []Task{TaskInvites, TaskJobs, TaskCleanup}, runner.Calls())

	assert.ErrorIs(t, s.Trigger(context.Background(), Task("bogus")), ErrUnknownTask)
}

func TestTrigger_ReturnsRunnerError(t *testing.T) {
	runner := newFakeRunner()
	runner.err = errors.New("database unavailable")
	s := NewScheduler(runner, testSchedules)

	err := s.Trigger(context.Background(), TaskAll)
	require.Error(t, err)
	assert.Equal(t, []Task{TaskInvites}, runner.Calls(), "all stops at the first failure")
}

func TestTick_SkipsWhileRunning(t *testing.T) {
	runner := newFakeRunner()
	runner.block = make(chan struct{})
	s := NewScheduler(runner, testSchedules)

	done := make(chan struct{})
	go func() {
		s.tick(TaskJobs)
		close(done)
	}()
	<-runner.started

	s.tick(TaskJobs)
	assert.Len(t, runner.Calls(), 1, "overlapping tick is skipped")

	invitesDone := make(chan struct{})
	go func() {
		s.tick(TaskInvites)
		close(invitesDone)
	}()
	<-runner.started
	assert.Len(t, runner.Calls(), 2, "other tasks are not blocked")

	close(runner.block)
	<-done
	<-invitesDone

	s.tick(TaskJobs)
	assert.Equal(t, []Task{TaskJobs, TaskInvites, TaskJobs}, runner.Calls())
}

func TestTrigger_WaitsForRunningTick(t *testing.T) {
	runner := newFakeRunner()
	runner.block = make(chan struct{})
	s := NewScheduler(runner, testSchedules)

	go s.tick(TaskInvites)
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Trigger(ctx, TaskInvites)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, runner.Calls(), 1)

	triggered := make(chan error, 1)
	go func() { triggered <- s.Trigger(context.Background(), TaskInvites) }()
	close(runner.block)

	require.NoError(t, <-triggered)
	assert.Equal(t, []Task{TaskInvites, TaskInvites}, runner.Calls())
}

func TestTrigger_RunOutlivesCallerContext(t *testing.T) {
	runner := newFakeRunner()
	runner.block = make(chan struct{})
	s := NewScheduler(runner, testSchedules)

	ctx, cancel := context.WithCancel(context.Background())
	triggered := make(chan error, 1)
	go func() { triggered <- s.Trigger(ctx, TaskJobs) }()
	<-runner.started

	// the caller going away does not abort a run that already started
	cancel()
	select {
	case err := <-triggered:
		t.Fatalf("run ended with the caller: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.block)
	require.NoError(t, <-triggered)
}

func TestStop_CancelsTriggeredRun(t *testing.T) {
	runner := newFakeRunner()
	runner.block = make(chan struct{})
	s := NewScheduler(runner, testSchedules)

	triggered := make(chan error, 1)
	go func() { triggered <- s.Trigger(context.Background(), TaskCleanup) }()
	<-runner.started

	s.Stop()
	select {
	case err := <-triggered:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Stop did not cancel the triggered run")
	}
}

func TestStart_AfterStopRunsAgain(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler(runner, testSchedules)

	require.NoError(t, s.Start())
	s.Stop()
	require.NoError(t, s.Start())
	defer s.Stop()

	require.NoError(t, s.Trigger(context.Background(), TaskInvites))
	assert.Equal(t, []Task{TaskInvites}, runner.Calls())
}

func TestTick_FailureKeepsTicking(t *testing.T) {
	runner := newFakeRunner()
	runner.err = errors.New("boom")
	s := NewScheduler(runner, testSchedules)

	s.tick(TaskCleanup)
	s.tick(TaskCleanup)
	assert.Len(t, runner.Calls(), 2)
}

func TestCronDrivesTasks(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler(runner, config.SchedulerConfig{
		ProcessJobs:    "* * * * * *",
		ProcessInvites: "0 0 0 1 1 *",
		Cleanup:        "0 0 0 1 1 *",
	})
	require.NoError(t, s.Start())
	defer s.Stop()

	select {
	case <-runner.started:
	case <-time.After(3 * time.Second):
		t.Fatal("cron never ran the jobs task")
	}
	assert.Contains(t, runner.Calls(), TaskJobs)
}
