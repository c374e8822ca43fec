package state

import (
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	"github.com/tendermint/tendermint/libs/log"

	"ibft_node/consensus/validation"
	mempl "ibft_node/mempool"
	"ibft_node/types"
)

// BlockExecutor builds proposal blocks from the mempool and commits blocks
// finalized by consensus. It does not run transactions; committing a block
// means checking it together with its commit seals, persisting the header
// and dropping its transactions from the mempool.
type BlockExecutor struct {
	store   Store
	blocks  validation.BlockValidator
	mempool mempl.Mempool

	logger log.Logger
}

func NewBlockExecutor(store Store, blocks validation.BlockValidator, mempool mempl.Mempool) *BlockExecutor {
	return &BlockExecutor{
		store:   store,
		blocks:  blocks,
		mempool: mempool,
		logger:  log.NewNopLogger(),
	}
}

func (exec *BlockExecutor) SetLogger(logger log.Logger) {
	exec.logger = logger
}

// CreateProposalBlock builds the block proposer would propose in round of
// the height after state, from mempool transactions totalling at most
// maxBytes.
func (exec *BlockExecutor) CreateProposalBlock(
	state State,
	round int32,
	proposer types.Address,
	maxBytes int64,
) *types.Block {
	txs := exec.mempool.ReapMaxBytes(maxBytes)
	return types.MakeBlock(state.LastHeader, round, proposer, state.Validators, txs)
}

// ApplyBlock validates block on top of state, checks that seals hold a
// quorum of distinct validator seals over the block hash, saves the header
// and returns the new state. On error state is returned unchanged.
func (exec *BlockExecutor) ApplyBlock(state State, block *types.Block, seals []tmbytes.HexBytes) (State, error) {
	if state.LastHeader == nil {
		return state, ErrInvalidBlock{Height: block.Header.Height, Reason: "state has no last header"}
	}
	ok, err := exec.blocks.ValidateBlock(block, state.LastHeader, validation.FullValidation)
	if err != nil {
		return state, err
	}
	if !ok {
		return state, ErrInvalidBlock{Height: block.Header.Height, Reason: "rejected by block validator"}
	}
	if err := verifyCommitSeals(state.Validators, block.Hash(), seals); err != nil {
		return state, err
	}

	if err := exec.store.SaveHeader(&block.Header, seals); err != nil {
		return state, err
	}
	exec.mempool.Lock()
	err = exec.mempool.Update(block.Header.Height, block.Data.Txs)
	exec.mempool.Unlock()
	if err != nil {
		return state, err
	}
	nextVals, err := exec.store.ValidatorsAt(block.Header.Height + 1)
	if err != nil {
		return state, err
	}

	newState := state.Copy()
	newState.LastBlockHeight = block.Header.Height
	newState.LastBlockHash = block.Hash()
	newState.LastBlockTime = block.Header.Time
	header := block.Header
	newState.LastHeader = &header
	newState.Validators = nextVals

	exec.logger.Info("Committed block", "height", block.Header.Height, "round", block.Header.Round,
		"hash", block.Hash(), "txs", len(block.Data.Txs), "seals", len(seals))
	return newState, nil
}

// verifyCommitSeals matches every seal to the validator that made it.
// Seals do not name their signer, so each is tried against the set.
func verifyCommitSeals(vals *types.ValidatorSet, blockHash tmbytes.HexBytes, seals []tmbytes.HexBytes) error {
	quorum, err := vals.QuorumSize()
	if err != nil {
		return err
	}
	if len(seals) < quorum {
		return ErrNotEnoughCommitSeals{Got: len(seals), Needed: quorum}
	}

	signBytes := types.CommitSealBytes(blockHash)
	signers := make(map[string]struct{}, len(seals))
	for i, seal := range seals {
		var signer *types.Validator
		vals.Iterate(func(_ int, val *types.Validator) bool {
			if val.PubKey.VerifySignature(signBytes, seal) {
				signer = val
				return true
			}
			return false
		})
		if signer == nil {
			return ErrInvalidCommitSeal{Index: i, Reason: "no validator made this seal"}
		}
		key := string(signer.Address)
		if _, ok := signers[key]; ok {
			return ErrInvalidCommitSeal{Index: i, Reason: "second seal from " + signer.Address.String()}
		}
		signers[key] = struct{}{}
	}
	return nil
}
