// Package token carries the default token contract source deployed each
// cycle when no external source file is configured.
package token

import (
	_ "embed"
)

const (
	name            = "HuddleToken"
	license         = "MIT"
	solidityVersion = "0.8.20"
	// Decimals declared by the contract; transfer amounts scale by this.
	Decimals = 18
)

//go:embed Token.sol
var source string

func Name() string            { return name }
func License() string         { return license }
func SolidityVersion() string { return solidityVersion }

// Source returns the embedded Solidity source text.
func Source() string { return source }
