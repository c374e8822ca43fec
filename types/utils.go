package types

import (
	"time"

	tmtime "github.com/tendermint/tendermint/types/time"
)

func MakeGenesisBlock(chainID string, genesisTime time.Time, vals *ValidatorSet) *Block {
	return &Block{
		Header: Header{
			ChainID:        chainID,
			Height:         0,
			Time:           genesisTime,
			LastBlockHash:  nil,
			TxsHash:        Txs{}.Hash(),
			ValidatorsHash: vals.Hash(),
		},
		Data: Data{
			Txs: Txs{},
		},
	}
}

// MakeBlock returns a block at round for the height following parent.
func MakeBlock(parent *Header, round int32, proposer Address, vals *ValidatorSet, txs []Tx) *Block {
	data := Data{Txs: txs}
	if data.Txs == nil {
		data.Txs = Txs{}
	}

	now := tmtime.Now()
	if !now.After(parent.Time) {
		now = parent.Time.Add(time.Millisecond)
	}

	return &Block{
		Header: Header{
			ChainID:         parent.ChainID,
			Height:          parent.Height + 1,
			Round:           round,
			Time:            now,
			LastBlockHash:   parent.Hash(),
			TxsHash:         data.Hash(),
			ProposerAddress: proposer,
			ValidatorsHash:  vals.Hash(),
		},
		Data: data,
	}
}
