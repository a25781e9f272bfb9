package deploy

import (
	"math/big"
	"time"
)

// Config holds the policy values of a deployment run. Defaults mirror the
// fixed policies of the baseline design; the entrypoint may override them.
type Config struct {
	// Contracts deployed per wallet per cycle.
	BatchSize int
	// Recipients sampled per deployed contract.
	SampleSize int
	// Delay between consecutive deployment attempts.
	Pacing time.Duration
	// Wall-clock period between cycle starts.
	Period time.Duration
	// Minimum wallet balance in wei before a deployment is attempted.
	MinBalance *big.Int
	// Raw initial supply passed to the token constructor.
	InitialSupply *big.Int
	// Token decimals; transfer amounts scale by 10^Decimals.
	Decimals uint8
	// Transfer amount range in whole token units, inclusive.
	AmountMin int64
	AmountMax int64
}

func DefaultConfig() Config {
	return Config{
		BatchSize:     5,
		SampleSize:    7,
		Pacing:        3 * time.Second,
		Period:        24 * time.Hour,
		MinBalance:    big.NewInt(1_000_000_000_000_000), // 0.001 ether
		InitialSupply: tokens(1_000_000, 18),
		Decimals:      18,
		AmountMin:     1,
		AmountMax:     50,
	}
}

// tokens scales a whole-unit amount by 10^decimals.
func tokens(units int64, decimals uint8) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(big.NewInt(units), scale)
}
