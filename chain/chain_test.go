package chain

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestNewWalletDerivesAddress(t *testing.T) {
	// Well-known throwaway dev key.
	const key = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	const addr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

	w, err := NewWallet(key)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(addr), w.Address())

	prefixed, err := NewWallet("0x" + key)
	require.NoError(t, err)
	require.Equal(t, w.Address(), prefixed.Address())
}

func TestNewWalletRejectsGarbage(t *testing.T) {
	_, err := NewWallet("not-a-key")
	require.Error(t, err)
}

func TestWalletShort(t *testing.T) {
	const key = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	w, err := NewWallet(key)
	require.NoError(t, err)
	require.Equal(t, "0xf39F…2266", w.Short())
}

func TestClassifySendFundsRejection(t *testing.T) {
	err := classifySend("send tx", errors.New("err: insufficient funds for gas * price + value"))
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestClassifySendTransport(t *testing.T) {
	err := classifySend("send tx", errors.New("connection refused"))
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, "send tx", terr.Op)
}

func TestClassifySendNil(t *testing.T) {
	require.NoError(t, classifySend("send tx", nil))
}

func TestTxFailedErrorMessage(t *testing.T) {
	err := &TxFailedError{Hash: common.HexToHash("0xabc"), Reason: "deployment reverted"}
	require.Contains(t, err.Error(), "deployment reverted")
	require.Contains(t, err.Error(), err.Hash.Hex())
}
