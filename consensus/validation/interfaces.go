package validation

import (
	"ibft_node/types"
)

// ProposerSelector picks the validator that proposes in a round. It must be
// a deterministic, side-effect free function of its inputs.
type ProposerSelector interface {
	SelectProposer(round types.RoundIdentifier, vals *types.ValidatorSet) types.Address
}

// ValidatorProvider returns the validator set in force at a height.
type ValidatorProvider interface {
	ValidatorsAt(height int64) (*types.ValidatorSet, error)
}

// BlockValidationMode selects how thoroughly BlockValidator checks a block.
type BlockValidationMode uint8

const (
	FullValidation  = BlockValidationMode(0)
	LightValidation = BlockValidationMode(1)
	NoValidation    = BlockValidationMode(2)
)

func (m BlockValidationMode) String() string {
	switch m {
	case FullValidation:
		return "full"
	case LightValidation:
		return "light"
	case NoValidation:
		return "none"
	default:
		return "unknown"
	}
}

// BlockValidator checks a block's semantics against its parent header.
// A false result is a rejection; an error is an unexpected fault and is
// handed back to the caller untouched.
type BlockValidator interface {
	ValidateBlock(block *types.Block, parent *types.Header, mode BlockValidationMode) (bool, error)
}

// SignerRecoverer returns the address that signed a payload, or false if
// the signature is malformed or does not verify.
type SignerRecoverer interface {
	RecoverSigner(msg *types.SignedPayload) (types.Address, bool)
}

// SignerRecovererFunc adapts a function to SignerRecoverer.
type SignerRecovererFunc func(msg *types.SignedPayload) (types.Address, bool)

func (f SignerRecovererFunc) RecoverSigner(msg *types.SignedPayload) (types.Address, bool) {
	return f(msg)
}

// DefaultSignerRecoverer verifies the signature against the embedded
// public key.
var DefaultSignerRecoverer SignerRecoverer = SignerRecovererFunc(types.RecoverAuthor)
