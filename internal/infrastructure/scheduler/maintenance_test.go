package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

type mockRequeuer struct {
	count int
	err   error
	calls int32
}

func (m *mockRequeuer) RequeueStuck(ctx context.Context) (int, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.count, m.err
}

type mockPoller struct {
	count     int
	err       error
	lastLimit int32
}

func (m *mockPoller) PollSubmitted(ctx context.Context, limit int) (int, error) {
	atomic.StoreInt32(&m.lastLimit, int32(limit))
	return m.count, m.err
}

type mockWarmer struct {
	count int
	err   error
}

func (m *mockWarmer) RefreshStale(ctx context.Context) (int, error) {
	return m.count, m.err
}

// ---------------------------------------------------------------------------
// Executor Tests
// ---------------------------------------------------------------------------

func TestOrderRequeueExecutor(t *testing.T) {
	executor := NewOrderRequeueExecutor(&mockRequeuer{count: 3})
	job := NewJob(JobKindOrderRequeue, "", uuid.Nil, JobPayload{}, 0)

	require.NoError(t, executor.Execute(context.Background(), job))
	assert.Equal(t, 3, job.Processed)
	assert.Equal(t, 3, job.Succeeded)
}

func TestOrderRequeueExecutor_Error(t *testing.T) {
	executor := NewOrderRequeueExecutor(&mockRequeuer{err: errors.New("database unavailable")})
	job := NewJob(JobKindOrderRequeue, "", uuid.Nil, JobPayload{}, 0)

	err := executor.Execute(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, 0, job.Processed)
}

func TestStatusPollExecutor(t *testing.T) {
	poller := &mockPoller{count: 7}
	executor := NewStatusPollExecutor(poller, 50)
	job := NewJob(JobKindStatusPoll, "", uuid.Nil, JobPayload{}, 0)

	require.NoError(t, executor.Execute(context.Background(), job))
	assert.Equal(t, 7, job.Processed)
	assert.Equal(t, int32(50), atomic.LoadInt32(&poller.lastLimit))
}

func TestStatusPollExecutor_DefaultLimit(t *testing.T) {
	poller := &mockPoller{}
	executor := NewStatusPollExecutor(poller, 0)
	job := NewJob(JobKindStatusPoll, "", uuid.Nil, JobPayload{}, 0)

	require.NoError(t, executor.Execute(context.Background(), job))
	assert.Equal(t, int32(20), atomic.LoadInt32(&poller.lastLimit))
}

func TestCatalogWarmupExecutor(t *testing.T) {
	executor := NewCatalogWarmupExecutor(&mockWarmer{count: 2})
	job := NewJob(JobKindCatalogWarmup, "", uuid.Nil, JobPayload{}, 0)

	require.NoError(t, executor.Execute(context.Background(), job))
	assert.Equal(t, 2, job.Processed)
}

// ---------------------------------------------------------------------------
// MaintenanceTrigger Tests
// ---------------------------------------------------------------------------

func TestMaintenanceTrigger_RunsEnabledDuties(t *testing.T) {
	requeuer := &mockRequeuer{count: 1}
	executors := map[JobKind]Executor{
		JobKindOrderRequeue: NewOrderRequeueExecutor(requeuer),
	}
	sched, err := New(DefaultConfig(), executors, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop(ctx)

	config := MaintenanceConfig{RequeueInterval: 20 * time.Millisecond}
	trigger := NewMaintenanceTrigger(config, sched, newTestLogger())

	require.NoError(t, trigger.Start(ctx))
	time.Sleep(150 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(stopCtx))

	assert.GreaterOrEqual(t, atomic.LoadInt32(&requeuer.calls), int32(2))

	history := sched.History(5)
	require.NotEmpty(t, history)
	assert.Equal(t, JobKindOrderRequeue, history[0].Kind)
	assert.Equal(t, 1, history[0].Processed)
}

func TestMaintenanceTrigger_ZeroIntervalDisablesDuty(t *testing.T) {
	requeuer := &mockRequeuer{}
	executors := map[JobKind]Executor{
		JobKindOrderRequeue: NewOrderRequeueExecutor(requeuer),
	}
	sched, err := New(DefaultConfig(), executors, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop(ctx)

	trigger := NewMaintenanceTrigger(MaintenanceConfig{}, sched, newTestLogger())
	require.NoError(t, trigger.Start(ctx))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, trigger.Stop(ctx))
	assert.Equal(t, int32(0), atomic.LoadInt32(&requeuer.calls))
}

func TestMaintenanceTrigger_SlowDutyDoesNotStack(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 10)
	requeuer := &slowRequeuer{release: release, started: started}
	executors := map[JobKind]Executor{
		JobKindOrderRequeue: NewOrderRequeueExecutor(requeuer),
	}
	sched, err := New(DefaultConfig(), executors, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop(ctx)

	config := MaintenanceConfig{RequeueInterval: 15 * time.Millisecond}
	trigger := NewMaintenanceTrigger(config, sched, newTestLogger())
	require.NoError(t, trigger.Start(ctx))

	<-started
	// several ticks elapse while the first run is blocked
	time.Sleep(100 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(stopCtx))
	close(release)
	time.Sleep(50 * time.Millisecond)

	// only the first run got through; later ticks were skipped
	assert.Equal(t, int32(1), atomic.LoadInt32(&requeuer.calls))
}

type slowRequeuer struct {
	release chan struct{}
	started chan struct{}
	calls   int32
}

func (s *slowRequeuer) RequeueStuck(ctx context.Context) (int, error) {
	atomic.AddInt32(&s.calls, 1)
	s.started <- struct{}{}
	<-s.release
	return 1, nil
}
