package mempool

import (
	"ibft_node/types"
)

// Mempool holds transactions waiting to be proposed.
type Mempool interface {
	// CheckTx checks a new transaction and adds it to the mempool.
	CheckTx(tx types.Tx, txInfo TxInfo) error

	// ReapMaxBytes returns transactions in arrival order whose total size
	// does not exceed maxBytes. A negative maxBytes reaps everything.
	ReapMaxBytes(maxBytes int64) types.Txs

	// ReapMaxTxs returns at most max transactions in arrival order.
	// A negative max reaps everything.
	ReapMaxTxs(max int) types.Txs

	// Lock locks the mempool. The consensus must be able to hold the lock
	// to safely update.
	Lock()

	// Unlock unlocks the mempool.
	Unlock()

	// Update removes the transactions committed at height.
	// NOTE: the caller must hold the lock.
	Update(height int64, txs types.Txs) error

	// Flush removes all transactions from the mempool.
	Flush()

	// Size returns the number of transactions in the mempool.
	Size() int

	// TxsBytes returns the total size of all txs in the mempool.
	TxsBytes() int64
}

//--------------------------------------------------------------------------------

// PreCheckFunc is an optional filter executed before CheckTx and rejects
// transaction if false is returned.
type PreCheckFunc func(types.Tx) error

// TxInfo are parameters that get passed when attempting to add a tx to the
// mempool.
type TxInfo struct {
	// SenderID identifies the peer the tx came from, empty for local txs.
	SenderID string
}

// PreCheckMaxBytes checks that the size of the transaction is smaller or
// equal to the expected maxBytes.
func PreCheckMaxBytes(maxBytes int64) PreCheckFunc {
	return func(tx types.Tx) error {
		if size := tx.ComputeSize(); size > maxBytes {
			return ErrTxTooLarge{Max: maxBytes, Actual: size}
		}
		return nil
	}
}
