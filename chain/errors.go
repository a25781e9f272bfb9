package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientFunds marks a deployment slot skipped for lack of gas
// money, either by the local balance gate or by a node-side rejection.
var ErrInsufficientFunds = errors.New("insufficient funds")

// TxFailedError is an on-chain rejection: the transaction was mined but
// reverted or ran out of gas.
type TxFailedError struct {
	Hash   common.Hash
	Reason string
}

func (e *TxFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.Hash.Hex(), e.Reason)
}

// TransportError is a network-level failure talking to the RPC node,
// including confirmation-wait expiry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// classifySend maps a node rejection at submission time onto the error
// taxonomy. Funds rejections surface as ErrInsufficientFunds so the caller
// can skip the slot; everything else is transport.
func classifySend(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "insufficient funds") {
		return fmt.Errorf("%s: %w", op, ErrInsufficientFunds)
	}
	return &TransportError{Op: op, Err: err}
}
