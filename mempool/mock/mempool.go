package mock

import (
	mempl "ibft_node/mempool"
	"ibft_node/types"
)

// Mempool is an empty implementation of a Mempool, useful for testing.
type Mempool struct{}

var _ mempl.Mempool = Mempool{}

func (Mempool) Lock()     {}
func (Mempool) Unlock()   {}
func (Mempool) Size() int { return 0 }
func (Mempool) CheckTx(_ types.Tx, _ mempl.TxInfo) error {
	return nil
}
func (Mempool) ReapMaxBytes(_ int64) types.Txs { return types.Txs{} }
func (Mempool) ReapMaxTxs(_ int) types.Txs     { return types.Txs{} }
func (Mempool) Update(
	_ int64,
	_ types.Txs,
) error {
	return nil
}
func (Mempool) Flush()          {}
func (Mempool) TxsBytes() int64 { return 0 }
