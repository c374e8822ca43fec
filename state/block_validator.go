package state

import (
	"bytes"

	"github.com/tendermint/tendermint/libs/log"

	"ibft_node/consensus/validation"
	"ibft_node/types"
)

// HeaderValidator checks a proposed block against its parent header and the
// validator set stored for its height. It implements
// validation.BlockValidator.
type HeaderValidator struct {
	chainID    string
	validators validation.ValidatorProvider
	proposers  validation.ProposerSelector

	logger log.Logger
}

var _ validation.BlockValidator = (*HeaderValidator)(nil)

func NewHeaderValidator(
	chainID string,
	validators validation.ValidatorProvider,
	proposers validation.ProposerSelector,
) *HeaderValidator {
	return &HeaderValidator{
		chainID:    chainID,
		validators: validators,
		proposers:  proposers,
		logger:     log.NewNopLogger(),
	}
}

func (hv *HeaderValidator) SetLogger(logger log.Logger) {
	hv.logger = logger
}

// ValidateBlock implements validation.BlockValidator.
//
// LightValidation only checks that block extends parent. FullValidation
// also checks the chain id, the timestamp, the transaction root, the
// validator set hash and that the header names the proposer of its round.
func (hv *HeaderValidator) ValidateBlock(block *types.Block, parent *types.Header, mode validation.BlockValidationMode) (bool, error) {
	switch mode {
	case validation.NoValidation:
		return true, nil
	case validation.LightValidation, validation.FullValidation:
	default:
		return hv.reject(block, "unknown validation mode", "mode", mode), nil
	}

	if err := block.ValidateBasic(); err != nil {
		return hv.reject(block, "malformed block", "err", err), nil
	}
	if parent == nil {
		return hv.reject(block, "no parent header"), nil
	}
	header := &block.Header
	if header.Height != parent.Height+1 {
		return hv.reject(block, "height does not follow parent", "parent", parent.Height), nil
	}
	if !bytes.Equal(header.LastBlockHash, parent.Hash()) {
		return hv.reject(block, "parent hash mismatch", "expected", parent.Hash(), "got", header.LastBlockHash), nil
	}
	if mode == validation.LightValidation {
		return true, nil
	}

	if header.ChainID != hv.chainID {
		return hv.reject(block, "wrong chain id", "expected", hv.chainID, "got", header.ChainID), nil
	}
	if header.Time.Before(parent.Time) {
		return hv.reject(block, "timestamp before parent", "parent", parent.Time, "got", header.Time), nil
	}
	if !bytes.Equal(header.TxsHash, block.Data.Hash()) {
		return hv.reject(block, "transaction root mismatch"), nil
	}

	vals, err := hv.validators.ValidatorsAt(header.Height)
	if err != nil {
		hv.logger.Error("Cannot load validators", "height", header.Height, "err", err)
		return false, err
	}
	if !bytes.Equal(header.ValidatorsHash, vals.Hash()) {
		return hv.reject(block, "validators hash mismatch"), nil
	}
	proposer := hv.proposers.SelectProposer(types.NewRoundIdentifier(header.Height, header.Round), vals)
	if !header.ProposerAddress.Equal(proposer) {
		return hv.reject(block, "wrong proposer", "expected", proposer, "got", header.ProposerAddress), nil
	}
	return true, nil
}

func (hv *HeaderValidator) reject(block *types.Block, reason string, keyvals ...interface{}) bool {
	hv.logger.Debug("Invalid block", append([]interface{}{"reason", reason, "block", block}, keyvals...)...)
	return false
}

// FixedModeValidator validates every block in Mode whatever mode the
// caller asks for. Nodes configured for light or no validation wrap their
// HeaderValidator in it.
type FixedModeValidator struct {
	validation.BlockValidator
	Mode validation.BlockValidationMode
}

func (v FixedModeValidator) ValidateBlock(block *types.Block, parent *types.Header, _ validation.BlockValidationMode) (bool, error) {
	return v.BlockValidator.ValidateBlock(block, parent, v.Mode)
}
