// Package chain is a thin façade over an RPC connection: balance queries,
// contract deployment, and state-mutating calls with confirmation waits,
// signed by whichever wallet the caller supplies.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"

	"github.com/Kazuha787/Huddle-Deploy-Bot/compiler"
)

const (
	DefaultDeployGasLimit uint64 = 3_000_000
	DefaultCallGasLimit   uint64 = 100_000
)

// Contract is a deployed contract handle bound to the wallet that created it.
type Contract struct {
	Address common.Address
	ABI     *abi.ABI
	Owner   common.Address
}

type Client struct {
	client  *w3.Client
	signer  types.Signer
	chainID *big.Int

	gasFeeCap *big.Int
	gasTipCap *big.Int

	// Overridable before first use; defaults set by Dial.
	DeployGasLimit uint64
	CallGasLimit   uint64
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

func Dial(rpcURL string, chainID int64, gasFeeCap, gasTipCap *big.Int) (*Client, error) {
	client, err := w3.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	id := big.NewInt(chainID)
	return &Client{
		client:         client,
		signer:         types.NewLondonSigner(id),
		chainID:        id,
		gasFeeCap:      gasFeeCap,
		gasTipCap:      gasTipCap,
		DeployGasLimit: DefaultDeployGasLimit,
		CallGasLimit:   DefaultCallGasLimit,
		ConfirmTimeout: 10 * time.Minute,
		PollInterval:   2 * time.Second,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Balance returns the wallet's native balance in wei.
func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := c.client.CallCtx(ctx, eth.Balance(addr, nil).Returns(&balance)); err != nil {
		return nil, &TransportError{Op: "get balance", Err: err}
	}
	return balance, nil
}

func (c *Client) nonce(ctx context.Context, addr common.Address) (uint64, error) {
	var nonce uint64
	if err := c.client.CallCtx(ctx, eth.Nonce(addr, nil).Returns(&nonce)); err != nil {
		return 0, &TransportError{Op: "get nonce", Err: err}
	}
	return nonce, nil
}

// Deploy submits a contract-creation transaction signed by w, waits for
// confirmation, and returns the contract handle.
func (c *Client) Deploy(ctx context.Context, w *Wallet, art *compiler.Artifact, constructorArgs ...any) (*Contract, error) {
	ctor, err := art.ABI.Pack("", constructorArgs...)
	if err != nil {
		return nil, fmt.Errorf("encode constructor args: %w", err)
	}

	nonce, err := c.nonce(ctx, w.Address())
	if err != nil {
		return nil, err
	}
	contractAddr := crypto.CreateAddress(w.Address(), nonce)

	// The artifact is shared across every deployment; never append into its
	// backing array.
	data := make([]byte, 0, len(art.Bytecode)+len(ctor))
	data = append(append(data, art.Bytecode...), ctor...)

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasFeeCap: c.gasFeeCap,
		GasTipCap: c.gasTipCap,
		Gas:       c.DeployGasLimit,
		Data:      data,
	})

	txHash, err := c.sendTx(ctx, w, tx)
	if err != nil {
		return nil, err
	}
	receipt, err := c.waitForReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &TxFailedError{Hash: txHash, Reason: "deployment reverted"}
	}

	return &Contract{Address: contractAddr, ABI: &art.ABI, Owner: w.Address()}, nil
}

// Call submits a state-mutating method call signed by w and waits for
// confirmation.
func (c *Client) Call(ctx context.Context, w *Wallet, contract *Contract, method string, args ...any) (common.Hash, error) {
	data, err := contract.ABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode %s call: %w", method, err)
	}

	nonce, err := c.nonce(ctx, w.Address())
	if err != nil {
		return common.Hash{}, err
	}

	to := contract.Address
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		To:        &to,
		GasFeeCap: c.gasFeeCap,
		GasTipCap: c.gasTipCap,
		Gas:       c.CallGasLimit,
		Data:      data,
	})

	txHash, err := c.sendTx(ctx, w, tx)
	if err != nil {
		return common.Hash{}, err
	}
	receipt, err := c.waitForReceipt(ctx, txHash)
	if err != nil {
		return common.Hash{}, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Hash{}, &TxFailedError{Hash: txHash, Reason: method + " reverted"}
	}
	return txHash, nil
}

func (c *Client) sendTx(ctx context.Context, w *Wallet, tx *types.Transaction) (common.Hash, error) {
	signedTx, err := types.SignTx(tx, c.signer, w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := c.client.CallCtx(ctx, eth.SendTx(signedTx).Returns(nil)); err != nil {
		return common.Hash{}, classifySend("send tx", err)
	}
	return signedTx.Hash(), nil
}

// waitForReceipt polls until the transaction is mined. The wait is bounded
// by ConfirmTimeout; expiry surfaces as a TransportError rather than
// suspending indefinitely.
func (c *Client) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	deadline := time.Now().Add(c.ConfirmTimeout)
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := c.client.CallCtx(ctx, eth.TxReceipt(txHash).Returns(&receipt))
		if err == nil {
			return receipt, nil
		}

		if time.Now().After(deadline) {
			return nil, &TransportError{
				Op:  "wait for receipt",
				Err: fmt.Errorf("tx %s unconfirmed after %s", txHash.Hex(), c.ConfirmTimeout),
			}
		}
		select {
		case <-ctx.Done():
			return nil, &TransportError{Op: "wait for receipt", Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}
