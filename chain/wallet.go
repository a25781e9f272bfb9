package chain

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet is a signing identity: a secp256k1 key and its derived address.
// Wallets are loaded once at startup and never created by the core.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewWallet parses a hex-encoded private key, with or without 0x prefix.
func NewWallet(hexKey string) (*Wallet, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return WalletFromKey(key), nil
}

func WalletFromKey(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

func (w *Wallet) Address() common.Address { return w.address }

// Short returns an abbreviated address for log lines.
func (w *Wallet) Short() string {
	hex := w.address.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}
