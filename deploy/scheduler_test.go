package deploy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Kazuha787/Huddle-Deploy-Bot/chain"
	"github.com/Kazuha787/Huddle-Deploy-Bot/events"
)

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	tick chan time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start, tick: make(chan time.Time)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker { return fakeTicker{c.tick} }

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Tick delivers one countdown tick; it blocks until the scheduler is
// actually waiting on the ticker, which keeps the test free of sleeps.
func (c *fakeClock) Tick() { c.tick <- time.Time{} }

type fakeTicker struct{ ch chan time.Time }

func (t fakeTicker) C() <-chan time.Time { return t.ch }
func (t fakeTicker) Stop()               {}

type fakeCycleRunner struct {
	runs chan struct{}
}

func (f *fakeCycleRunner) RunCycle(ctx context.Context, wallets []*chain.Wallet) *CycleRecord {
	f.runs <- struct{}{}
	return &CycleRecord{Started: time.Now(), Finished: time.Now()}
}

type recordingSink struct {
	mu        sync.Mutex
	snapshots []events.Snapshot
}

func (s *recordingSink) Event(events.Event) {}

func (s *recordingSink) Snapshot(snap events.Snapshot) {
	s.mu.Lock()
	s.snapshots = append(s.snapshots, snap)
	s.mu.Unlock()
}

func (s *recordingSink) all() []events.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Snapshot(nil), s.snapshots...)
}

func expectRun(t *testing.T, runner *fakeCycleRunner) {
	t.Helper()
	select {
	case <-runner.runs:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a cycle to start")
	}
}

func expectNoRun(t *testing.T, runner *fakeCycleRunner) {
	t.Helper()
	select {
	case <-runner.runs:
		t.Fatal("cycle started before the period elapsed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSchedulerRunsOncePerPeriod(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	runner := &fakeCycleRunner{runs: make(chan struct{})}
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := NewScheduler(runner, nil, 24*time.Hour, clock, nil, sink)
	errCh := make(chan error, 1)
	go func() { errCh <- sched.Run(ctx) }()

	// Initial state is RUNNING-CYCLE.
	expectRun(t, runner)

	// 23h into WAITING: no early transition.
	clock.Advance(23 * time.Hour)
	clock.Tick()
	expectNoRun(t, runner)

	// Crossing the 24h mark transitions exactly once.
	clock.Advance(2 * time.Hour)
	clock.Tick()
	expectRun(t, runner)

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancellation")
	}

	// Countdown snapshots were emitted during WAITING and stayed within
	// the period.
	snaps := sink.all()
	require.NotEmpty(t, snaps)
	for _, s := range snaps {
		require.Greater(t, s.NextCycle, time.Duration(0))
		require.LessOrEqual(t, s.NextCycle, 24*time.Hour)
	}
}

func TestSchedulerWaitInterruptible(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	runner := &fakeCycleRunner{runs: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	sched := NewScheduler(runner, nil, 24*time.Hour, clock, nil, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- sched.Run(ctx) }()
	expectRun(t, runner)

	// Cancel mid-WAITING; the loop must exit without another cycle.
	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler kept waiting after cancellation")
	}
}
