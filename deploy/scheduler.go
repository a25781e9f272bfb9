package deploy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Kazuha787/Huddle-Deploy-Bot/chain"
	"github.com/Kazuha787/Huddle-Deploy-Bot/events"
)

// countdown status resolution while WAITING
const countdownResolution = time.Second

// CycleRunner is what the scheduler drives once per period.
type CycleRunner interface {
	RunCycle(ctx context.Context, wallets []*chain.Wallet) *CycleRecord
}

// Scheduler alternates between RUNNING-CYCLE and WAITING forever. A cycle
// never fails as a whole; the only exits are context cancellation.
type Scheduler struct {
	runner  CycleRunner
	wallets []*chain.Wallet
	period  time.Duration
	clock   Clock
	log     *zap.Logger
	sink    events.Sink
}

func NewScheduler(runner CycleRunner, wallets []*chain.Wallet, period time.Duration, clock Clock, log *zap.Logger, sink events.Sink) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if sink == nil {
		sink = events.Nop{}
	}
	return &Scheduler{
		runner:  runner,
		wallets: wallets,
		period:  period,
		clock:   clock,
		log:     log,
		sink:    sink,
	}
}

// Run starts in RUNNING-CYCLE and loops until ctx is cancelled. Nothing is
// persisted mid-cycle, so cancellation is always safe, merely lossy for the
// in-flight cycle.
func (s *Scheduler) Run(ctx context.Context) error {
	for cycle := 1; ; cycle++ {
		start := s.clock.Now()
		s.log.Info("cycle starting",
			zap.Int("cycle", cycle),
			zap.Int("wallets", len(s.wallets)))
		events.Emit(s.sink, events.LevelInfo, fmt.Sprintf("cycle %d starting", cycle))

		rec := s.runner.RunCycle(ctx, s.wallets)

		s.log.Info("cycle finished",
			zap.Int("cycle", cycle),
			zap.Int("deployed", rec.Deployed()),
			zap.Int("failed", rec.Failed()),
			zap.Duration("elapsed", rec.Finished.Sub(rec.Started)))
		events.Emit(s.sink, events.LevelInfo,
			fmt.Sprintf("cycle %d finished: %d deployed, %d failed", cycle, rec.Deployed(), rec.Failed()))

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.waitUntil(ctx, start.Add(s.period), rec); err != nil {
			return err
		}
	}
}

// waitUntil holds the WAITING state until the wall clock reaches next,
// emitting a countdown snapshot at every tick.
func (s *Scheduler) waitUntil(ctx context.Context, next time.Time, rec *CycleRecord) error {
	ticker := s.clock.NewTicker(countdownResolution)
	defer ticker.Stop()

	summaries := rec.WalletSummaries()
	for {
		remaining := next.Sub(s.clock.Now())
		if remaining <= 0 {
			return nil
		}
		s.sink.Snapshot(events.Snapshot{Wallets: summaries, NextCycle: remaining})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
		}
	}
}
