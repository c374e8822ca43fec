package state

import (
	tmbytes "github.com/tendermint/tendermint/libs/bytes"

	"ibft_node/types"
)

// Store persists what the executor needs to recover after a restart.
// store.ChainStore implements it.
type Store interface {
	ValidatorsAt(height int64) (*types.ValidatorSet, error)
	SaveValidators(height int64, vals *types.ValidatorSet) error
	SaveHeader(header *types.Header, seals []tmbytes.HexBytes) error
	LatestHeader() (*types.Header, error)
}

// LoadState rebuilds the state from the latest stored header.
func LoadState(store Store) (State, error) {
	header, err := store.LatestHeader()
	if err != nil {
		return State{}, err
	}
	vals, err := store.ValidatorsAt(header.Height + 1)
	if err != nil {
		return State{}, err
	}
	return State{
		ChainID:         header.ChainID,
		LastBlockHeight: header.Height,
		LastBlockHash:   header.Hash(),
		LastBlockTime:   header.Time,
		LastHeader:      header,
		Validators:      vals,
	}, nil
}
