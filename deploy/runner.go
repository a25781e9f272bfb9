// Package deploy sequences one cycle of token deployments and distributions
// across a fixed set of wallets, and schedules cycles on a 24-hour cadence.
package deploy

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Kazuha787/Huddle-Deploy-Bot/chain"
	"github.com/Kazuha787/Huddle-Deploy-Bot/compiler"
	"github.com/Kazuha787/Huddle-Deploy-Bot/events"
	"github.com/Kazuha787/Huddle-Deploy-Bot/namegen"
)

// Backend is the chain surface the runner needs. *chain.Client satisfies it;
// tests substitute fakes.
type Backend interface {
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	Deploy(ctx context.Context, w *chain.Wallet, art *compiler.Artifact, constructorArgs ...any) (*chain.Contract, error)
	Call(ctx context.Context, w *chain.Wallet, contract *chain.Contract, method string, args ...any) (common.Hash, error)
}

// TransferOutcome records one attempted distribution transfer.
type TransferOutcome struct {
	Recipient common.Address
	Amount    *big.Int
	TxHash    common.Hash
	Err       error
}

// Runner owns the per-slot mechanics: deploy one contract, distribute its
// supply, and drive a full cycle over all wallets.
type Runner struct {
	backend    Backend
	artifact   *compiler.Artifact
	names      *namegen.Generator
	recipients []common.Address
	cfg        Config
	rng        *rand.Rand
	log        *zap.Logger
	sink       events.Sink
}

func NewRunner(backend Backend, artifact *compiler.Artifact, names *namegen.Generator, recipients []common.Address, cfg Config, rng *rand.Rand, log *zap.Logger, sink events.Sink) *Runner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = zap.NewNop()
	}
	if sink == nil {
		sink = events.Nop{}
	}
	return &Runner{
		backend:    backend,
		artifact:   artifact,
		names:      names,
		recipients: recipients,
		cfg:        cfg,
		rng:        rng,
		log:        log,
		sink:       sink,
	}
}

// DeployOne deploys a single token contract from w. Wallets below the
// minimum balance fail fast with ErrInsufficientFunds and never reach the
// node, avoiding a doomed submission. No retries: the orchestrator decides
// what a failure means.
func (r *Runner) DeployOne(ctx context.Context, w *chain.Wallet, spec namegen.TokenSpec) (*chain.Contract, error) {
	balance, err := r.backend.Balance(ctx, w.Address())
	if err != nil {
		return nil, err
	}
	if balance.Cmp(r.cfg.MinBalance) < 0 {
		return nil, fmt.Errorf("wallet %s balance %s wei below minimum %s: %w",
			w.Short(), balance, r.cfg.MinBalance, chain.ErrInsufficientFunds)
	}
	return r.backend.Deploy(ctx, w, r.artifact, spec.Name, spec.Symbol, r.cfg.InitialSupply)
}

// Distribute transfers randomized amounts of the freshly minted supply to a
// uniform without-replacement sample of the recipient pool. Each transfer is
// independent; a failure is recorded and the rest of the sample is still
// attempted.
func (r *Runner) Distribute(ctx context.Context, w *chain.Wallet, contract *chain.Contract) []TransferOutcome {
	n := r.cfg.SampleSize
	if n > len(r.recipients) {
		n = len(r.recipients)
	}

	outcomes := make([]TransferOutcome, 0, n)
	for _, i := range r.rng.Perm(len(r.recipients))[:n] {
		recipient := r.recipients[i]
		amount := r.randomAmount()

		txHash, err := r.backend.Call(ctx, w, contract, "transfer", recipient, amount)
		outcomes = append(outcomes, TransferOutcome{
			Recipient: recipient,
			Amount:    amount,
			TxHash:    txHash,
			Err:       err,
		})

		if err != nil {
			r.log.Warn("transfer failed",
				zap.String("wallet", w.Short()),
				zap.String("recipient", recipient.Hex()),
				zap.Error(err))
			events.Emit(r.sink, events.LevelWarn,
				fmt.Sprintf("transfer to %s failed: %v", recipient.Hex(), err))
			continue
		}
		r.log.Info("transfer confirmed",
			zap.String("wallet", w.Short()),
			zap.String("recipient", recipient.Hex()),
			zap.String("amount", amount.String()),
			zap.String("tx", txHash.Hex()))
	}
	return outcomes
}

// randomAmount draws a whole-unit amount in [AmountMin, AmountMax] and
// scales it to the token's decimal precision.
func (r *Runner) randomAmount() *big.Int {
	units := r.cfg.AmountMin + r.rng.Int63n(r.cfg.AmountMax-r.cfg.AmountMin+1)
	return tokens(units, r.cfg.Decimals)
}
