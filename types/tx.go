package types

import (
	"github.com/tendermint/tendermint/crypto/merkle"
	"github.com/tendermint/tendermint/crypto/tmhash"
)

// Tx is an opaque transaction. Its contents are never interpreted here.
type Tx []byte

func (tx Tx) Hash() []byte {
	return tmhash.Sum(tx)
}

func (tx Tx) ComputeSize() int64 {
	return int64(len(tx))
}

// ===== tx array =====
type Txs []Tx

func ComputeSizeForTxs(txs []Tx) int64 {
	var dataSize int64

	for _, tx := range txs {
		dataSize += tx.ComputeSize()
	}

	return dataSize
}

// Hash returns the merkle root of the transaction hashes.
func (txs Txs) Hash() []byte {
	txBzs := make([][]byte, len(txs))
	for i := 0; i < len(txs); i++ {
		txBzs[i] = txs[i].Hash()
	}
	return merkle.HashFromByteSlices(txBzs)
}
