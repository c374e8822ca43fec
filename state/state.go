package state

import (
	"time"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"

	"ibft_node/types"
)

// State is the chain as seen after the last committed block. It is a value:
// ApplyBlock returns a new State rather than changing the one it was given.
type State struct {
	ChainID string

	LastBlockHeight int64
	LastBlockHash   tmbytes.HexBytes
	LastBlockTime   time.Time
	LastHeader      *types.Header

	// Validators signs the block at LastBlockHeight+1.
	Validators *types.ValidatorSet
}

// MakeGenesisState returns the state before the first block is proposed.
func MakeGenesisState(genDoc *types.GenesisDoc) (State, error) {
	if err := genDoc.ValidateAndComplete(); err != nil {
		return State{}, ErrInvalidGenesis{Err: err}
	}
	genesis := genDoc.GenesisBlock()
	return State{
		ChainID:         genDoc.ChainID,
		LastBlockHeight: 0,
		LastBlockHash:   genesis.Hash(),
		LastBlockTime:   genesis.Header.Time,
		LastHeader:      &genesis.Header,
		Validators:      genDoc.ValidatorSet(),
	}, nil
}

// Copy returns a deep enough copy that the caller may change the result
// without touching state.
func (state State) Copy() State {
	newState := state
	newState.LastBlockHash = make(tmbytes.HexBytes, len(state.LastBlockHash))
	copy(newState.LastBlockHash, state.LastBlockHash)
	if state.LastHeader != nil {
		header := *state.LastHeader
		newState.LastHeader = &header
	}
	if state.Validators != nil {
		newState.Validators = state.Validators.Copy()
	}
	return newState
}

// NextRound is the first round of the height after the last block.
func (state State) NextRound() types.RoundIdentifier {
	return types.NewRoundIdentifier(state.LastBlockHeight+1, 0)
}

// IsEmpty reports whether the state was never initialised.
func (state State) IsEmpty() bool {
	return state.Validators == nil
}
