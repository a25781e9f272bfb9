package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Kazuha787/Huddle-Deploy-Bot/chain"
	"github.com/Kazuha787/Huddle-Deploy-Bot/compiler"
	"github.com/Kazuha787/Huddle-Deploy-Bot/contracts/token"
	"github.com/Kazuha787/Huddle-Deploy-Bot/deploy"
	"github.com/Kazuha787/Huddle-Deploy-Bot/events"
	"github.com/Kazuha787/Huddle-Deploy-Bot/namegen"
)

type config struct {
	RPCURL         string
	ChainID        int64
	PrivateKeys    string
	KeysFile       string
	RecipientsFile string
	ContractFile   string
	SolcPath       string
	GasFeeCap      int64
	GasTipCap      int64
	BatchSize      int
	SampleSize     int
	PacingMS       int64
	PeriodHours    int64
	ConfirmSecs    int64
}

func main() {
	_ = godotenv.Load()

	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		exitErr(err)
	}
	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		exitErr(err)
	}
}

func parseFlags(args []string) (config, error) {
	cfg := config{
		RPCURL:         envOr("RPC_URL", ""),
		ChainID:        envInt64("CHAIN_ID", 0),
		PrivateKeys:    envOr("PRIVATE_KEYS", ""),
		KeysFile:       envOr("KEYS_FILE", ""),
		RecipientsFile: envOr("RECIPIENTS_FILE", "recipients.txt"),
		ContractFile:   envOr("CONTRACT_FILE", ""),
		SolcPath:       envOr("SOLC_PATH", "solc"),
		GasFeeCap:      envInt64("GAS_FEE_CAP", 2_000_000_000),
		GasTipCap:      envInt64("GAS_TIP_CAP", 1_000_000_000),
		BatchSize:      int(envInt64("BATCH_SIZE", 5)),
		SampleSize:     int(envInt64("SAMPLE_SIZE", 7)),
		PacingMS:       envInt64("PACING_MS", 3000),
		PeriodHours:    envInt64("PERIOD_HOURS", 24),
		ConfirmSecs:    envInt64("CONFIRM_TIMEOUT_SECONDS", 600),
	}

	fs := flag.NewFlagSet("huddle-deploy", flag.ContinueOnError)
	fs.StringVar(&cfg.RPCURL, "rpc-url", cfg.RPCURL, "RPC URL")
	fs.Int64Var(&cfg.ChainID, "chain-id", cfg.ChainID, "chain id")
	fs.StringVar(&cfg.PrivateKeys, "private-keys", cfg.PrivateKeys, "comma-separated private key hexes")
	fs.StringVar(&cfg.KeysFile, "keys-file", cfg.KeysFile, "file with one private key hex per line")
	fs.StringVar(&cfg.RecipientsFile, "recipients-file", cfg.RecipientsFile, "file with one recipient address per line")
	fs.StringVar(&cfg.ContractFile, "contract-file", cfg.ContractFile, "token contract source (default: embedded)")
	fs.StringVar(&cfg.SolcPath, "solc", cfg.SolcPath, "path to solc binary")
	fs.Int64Var(&cfg.GasFeeCap, "gas-fee-cap", cfg.GasFeeCap, "EIP-1559 fee cap")
	fs.Int64Var(&cfg.GasTipCap, "gas-tip-cap", cfg.GasTipCap, "EIP-1559 tip cap")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "contracts per wallet per cycle")
	fs.IntVar(&cfg.SampleSize, "sample-size", cfg.SampleSize, "recipients per contract")
	fs.Int64Var(&cfg.PacingMS, "pacing-ms", cfg.PacingMS, "delay between deployments in ms")
	fs.Int64Var(&cfg.PeriodHours, "period-hours", cfg.PeriodHours, "hours between cycle starts")
	fs.Int64Var(&cfg.ConfirmSecs, "confirm-timeout-seconds", cfg.ConfirmSecs, "receipt wait deadline")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if cfg.RPCURL == "" || cfg.ChainID == 0 {
		return config{}, errors.New("rpc-url and chain-id are required")
	}
	if cfg.PrivateKeys == "" && cfg.KeysFile == "" {
		return config{}, errors.New("private-keys or keys-file is required")
	}
	return cfg, nil
}

func run(cfg config) error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	wallets, err := loadWallets(cfg)
	if err != nil {
		return err
	}
	recipients, err := loadRecipients(cfg.RecipientsFile)
	if err != nil {
		return err
	}

	source := token.Source()
	if cfg.ContractFile != "" {
		blob, err := os.ReadFile(cfg.ContractFile)
		if err != nil {
			return fmt.Errorf("read contract source: %w", err)
		}
		source = string(blob)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Compile once up front. A failure here is fatal: nothing can be
	// deployed without the artifact.
	solc := compiler.NewCached(&compiler.Solc{Path: cfg.SolcPath})
	artifact, err := solc.Compile(ctx, source)
	if err != nil {
		return err
	}
	log.Info("contract compiled",
		zap.String("contract", artifact.ContractName),
		zap.Int("bytecode_bytes", len(artifact.Bytecode)))

	client, err := chain.Dial(cfg.RPCURL, cfg.ChainID, big.NewInt(cfg.GasFeeCap), big.NewInt(cfg.GasTipCap))
	if err != nil {
		return err
	}
	defer client.Close()
	client.ConfirmTimeout = time.Duration(cfg.ConfirmSecs) * time.Second

	policy := deploy.DefaultConfig()
	policy.BatchSize = cfg.BatchSize
	policy.SampleSize = cfg.SampleSize
	policy.Pacing = time.Duration(cfg.PacingMS) * time.Millisecond
	policy.Period = time.Duration(cfg.PeriodHours) * time.Hour
	policy.Decimals = token.Decimals

	bus := events.NewBus(256)
	go consume(log, bus)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	runner := deploy.NewRunner(client, artifact, namegen.New(rng), recipients, policy, rng, log, bus)
	sched := deploy.NewScheduler(runner, wallets, policy.Period, deploy.SystemClock(), log, bus)

	log.Info("starting deployment loop",
		zap.Int("wallets", len(wallets)),
		zap.Int("recipients", len(recipients)),
		zap.Int("batch_size", policy.BatchSize),
		zap.Duration("period", policy.Period))

	return sched.Run(ctx)
}

// consume drains the event bus into log lines in place of the excluded
// display layer. Countdown snapshots are sampled down to once a minute.
func consume(log *zap.Logger, bus *events.Bus) {
	for {
		select {
		case e, ok := <-bus.Events():
			if !ok {
				return
			}
			switch e.Level {
			case events.LevelError:
				log.Error(e.Message)
			case events.LevelWarn:
				log.Warn(e.Message)
			default:
				log.Info(e.Message)
			}
		case s, ok := <-bus.Snapshots():
			if !ok {
				return
			}
			if s.NextCycle.Round(time.Second)%time.Minute == 0 {
				log.Info("waiting for next cycle", zap.Duration("remaining", s.NextCycle.Round(time.Second)))
			}
		}
	}
}

func loadWallets(cfg config) ([]*chain.Wallet, error) {
	keys := splitCSV(cfg.PrivateKeys)
	if cfg.KeysFile != "" {
		blob, err := os.ReadFile(cfg.KeysFile)
		if err != nil {
			return nil, fmt.Errorf("read keys file: %w", err)
		}
		keys = append(keys, splitLines(string(blob))...)
	}
	if len(keys) == 0 {
		return nil, errors.New("no private keys configured")
	}

	wallets := make([]*chain.Wallet, 0, len(keys))
	for i, k := range keys {
		w, err := chain.NewWallet(k)
		if err != nil {
			return nil, fmt.Errorf("key[%d]: %w", i, err)
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

func loadRecipients(path string) ([]common.Address, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipients file: %w", err)
	}
	lines := splitLines(string(blob))
	if len(lines) == 0 {
		return nil, fmt.Errorf("recipients file %s is empty", path)
	}
	out := make([]common.Address, 0, len(lines))
	for i, line := range lines {
		if !common.IsHexAddress(line) {
			return nil, fmt.Errorf("recipient[%d]: invalid address: %s", i, line)
		}
		out = append(out, common.HexToAddress(line))
	}
	return out, nil
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitLines(v string) []string {
	var out []string
	for _, line := range strings.Split(v, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
