package deploy

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/Kazuha787/Huddle-Deploy-Bot/chain"
	"github.com/Kazuha787/Huddle-Deploy-Bot/compiler"
	"github.com/Kazuha787/Huddle-Deploy-Bot/namegen"
)

func TestRunCycleIsolatesSlotFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.deployFail[4] = &chain.TxFailedError{Reason: "deployment reverted"}

	cfg := testConfig()
	cfg.BatchSize = 3
	cfg.SampleSize = 2
	pool := testPool(3)

	wallets := []*chain.Wallet{testWallet(t), testWallet(t)}
	r := newTestRunner(backend, pool, cfg)
	rec := r.RunCycle(context.Background(), wallets)

	require.Len(t, rec.Slots, 6, "one bad deployment must not halt the batch")
	require.Equal(t, 5, rec.Deployed())
	require.Equal(t, 1, rec.Failed())

	// Distribution runs only after a successful deployment: 5 contracts x
	// sample 2.
	require.Len(t, backend.calls, 10)
	contracts := make(map[common.Address]int)
	for _, c := range backend.calls {
		contracts[c.contract]++
	}
	require.Len(t, contracts, 5)
	for _, n := range contracts {
		require.Equal(t, 2, n)
	}

	// The failed slot carries the error and no transfers.
	var failedSlots int
	for _, s := range rec.Slots {
		if !s.Succeeded() {
			failedSlots++
			require.Nil(t, s.Contract)
			require.Empty(t, s.Transfers)
		}
	}
	require.Equal(t, 1, failedSlots)
}

func TestRunCycleConcreteScenario(t *testing.T) {
	// 1 wallet, batch 2, pool [A,B,C], sample 2, both deployments succeed.
	backend := newFakeBackend()
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.SampleSize = 2

	w := testWallet(t)
	r := newTestRunner(backend, testPool(3), cfg)
	rec := r.RunCycle(context.Background(), []*chain.Wallet{w})

	require.Equal(t, 2, backend.deployCalls)
	require.Equal(t, 2, rec.Deployed())
	require.Zero(t, rec.Failed())
	require.Len(t, backend.calls, 4, "2 transfers per contract")

	summaries := rec.WalletSummaries()
	require.Len(t, summaries, 1)
	require.Equal(t, w.Address().Hex(), summaries[0].Address)
	require.Equal(t, 2, summaries[0].Deployed)
	require.Zero(t, summaries[0].Failed)
}

func TestRunCycleSkipsWalletOnGenerationExhaustion(t *testing.T) {
	backend := newFakeBackend()
	cfg := testConfig()
	cfg.BatchSize = 3 // vocabulary below yields a single symbol

	rng := rand.New(rand.NewSource(5))
	names := namegen.NewWithVocabulary(rng, []string{"Tiny"}, []string{"Pond"})
	r := NewRunner(backend, &compiler.Artifact{ContractName: "T"}, names, testPool(3), cfg, rng, nil, nil)

	rec := r.RunCycle(context.Background(), []*chain.Wallet{testWallet(t), testWallet(t)})

	require.Empty(t, rec.Slots, "exhausted batches are skipped, not deployed")
	require.Zero(t, backend.deployCalls)
}

func TestRunCycleInsufficientFundsSlotSkipped(t *testing.T) {
	backend := newFakeBackend()
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.SampleSize = 1

	rich := testWallet(t)
	poor := testWallet(t)
	backend.balances[poor.Address()] = common.Big1

	r := newTestRunner(backend, testPool(3), cfg)
	rec := r.RunCycle(context.Background(), []*chain.Wallet{poor, rich})

	require.Len(t, rec.Slots, 4)
	require.Equal(t, 2, rec.Deployed())
	require.Equal(t, 2, rec.Failed())
	require.Equal(t, 2, backend.deployCalls, "gated wallet never reaches the node")

	for _, s := range rec.Slots {
		if s.Wallet == poor.Address() {
			require.ErrorIs(t, s.Err, chain.ErrInsufficientFunds)
		}
	}
}

func TestRunCycleStopsOnCancelledContext(t *testing.T) {
	backend := newFakeBackend()
	cfg := testConfig()
	cfg.BatchSize = 3

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(backend, testPool(3), cfg)
	rec := r.RunCycle(ctx, []*chain.Wallet{testWallet(t)})

	require.Empty(t, rec.Slots)
	require.Zero(t, backend.deployCalls)
}
