package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Kazuha787/Huddle-Deploy-Bot/chain"
	"github.com/Kazuha787/Huddle-Deploy-Bot/events"
	"github.com/Kazuha787/Huddle-Deploy-Bot/namegen"
)

// SlotOutcome is the result of one (wallet, spec) deployment attempt.
type SlotOutcome struct {
	Wallet    common.Address
	Spec      namegen.TokenSpec
	Contract  *chain.Contract // nil when the deployment failed
	Err       error
	Transfers []TransferOutcome
}

func (s SlotOutcome) Succeeded() bool { return s.Err == nil }

// CycleRecord is the in-memory account of one full pass. It is reported to
// the status sink and then discarded; nothing persists across cycles.
type CycleRecord struct {
	Started  time.Time
	Finished time.Time
	Slots    []SlotOutcome
}

func (r *CycleRecord) Deployed() int {
	n := 0
	for _, s := range r.Slots {
		if s.Succeeded() {
			n++
		}
	}
	return n
}

func (r *CycleRecord) Failed() int { return len(r.Slots) - r.Deployed() }

// WalletSummaries aggregates slot outcomes per wallet in first-seen order.
func (r *CycleRecord) WalletSummaries() []events.WalletSummary {
	index := make(map[common.Address]int)
	var out []events.WalletSummary
	for _, s := range r.Slots {
		i, ok := index[s.Wallet]
		if !ok {
			i = len(out)
			index[s.Wallet] = i
			out = append(out, events.WalletSummary{Address: s.Wallet.Hex()})
		}
		if s.Succeeded() {
			out[i].Deployed++
		} else {
			out[i].Failed++
		}
	}
	return out
}

// RunCycle drives one full pass: wallets in fixed order, a fresh name batch
// per wallet, deploy then distribute per slot. Slot failures are recorded
// and skipped; only context cancellation cuts the pass short.
func (r *Runner) RunCycle(ctx context.Context, wallets []*chain.Wallet) *CycleRecord {
	rec := &CycleRecord{Started: time.Now()}
	defer func() { rec.Finished = time.Now() }()

	first := true
	for _, w := range wallets {
		specs, err := r.names.Batch(r.cfg.BatchSize)
		if err != nil {
			// Exhaustion condemns this wallet's batch, not the cycle.
			r.log.Error("name generation failed, skipping wallet batch",
				zap.String("wallet", w.Short()), zap.Error(err))
			events.Emit(r.sink, events.LevelError,
				fmt.Sprintf("wallet %s: name generation failed: %v", w.Short(), err))
			continue
		}

		for _, spec := range specs {
			if ctx.Err() != nil {
				return rec
			}
			if !first && !r.pace(ctx) {
				return rec
			}
			first = false

			rec.Slots = append(rec.Slots, r.runSlot(ctx, w, spec))
		}
	}
	return rec
}

func (r *Runner) runSlot(ctx context.Context, w *chain.Wallet, spec namegen.TokenSpec) SlotOutcome {
	slot := SlotOutcome{Wallet: w.Address(), Spec: spec}

	contract, err := r.DeployOne(ctx, w, spec)
	if err != nil {
		slot.Err = err
		r.log.Warn("deployment failed",
			zap.String("wallet", w.Short()),
			zap.String("token", spec.Name),
			zap.String("symbol", spec.Symbol),
			zap.Error(err))
		events.Emit(r.sink, events.LevelWarn,
			fmt.Sprintf("wallet %s: deploy %s (%s) failed: %v", w.Short(), spec.Name, spec.Symbol, err))
		return slot
	}

	slot.Contract = contract
	r.log.Info("contract deployed",
		zap.String("wallet", w.Short()),
		zap.String("token", spec.Name),
		zap.String("symbol", spec.Symbol),
		zap.String("address", contract.Address.Hex()))
	events.Emit(r.sink, events.LevelInfo,
		fmt.Sprintf("wallet %s: deployed %s (%s) at %s", w.Short(), spec.Name, spec.Symbol, contract.Address.Hex()))

	slot.Transfers = r.Distribute(ctx, w, contract)
	return slot
}

// pace observes the inter-attempt delay. Returns false when the context was
// cancelled during the wait.
func (r *Runner) pace(ctx context.Context) bool {
	if r.cfg.Pacing <= 0 {
		return true
	}
	timer := time.NewTimer(r.cfg.Pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
