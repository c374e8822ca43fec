package validation

import (
	"fmt"

	"github.com/tendermint/tendermint/libs/log"

	"ibft_node/types"
)

// MessageValidatorFactory builds validators that share one set of
// collaborators. Built validators hold no per-round state and may be used
// concurrently.
type MessageValidatorFactory struct {
	proposers  ProposerSelector
	validators ValidatorProvider
	blocks     BlockValidator
	recoverer  SignerRecoverer

	logger log.Logger
}

func NewMessageValidatorFactory(
	proposers ProposerSelector,
	validators ValidatorProvider,
	blocks BlockValidator,
) *MessageValidatorFactory {
	return &MessageValidatorFactory{
		proposers:  proposers,
		validators: validators,
		blocks:     blocks,
		recoverer:  DefaultSignerRecoverer,
		logger:     log.NewNopLogger(),
	}
}

func (f *MessageValidatorFactory) SetLogger(logger log.Logger) {
	f.logger = logger
}

func (f *MessageValidatorFactory) ProposerSelector() ProposerSelector {
	return f.proposers
}

// SetSignerRecoverer replaces the signature check used by validators built
// afterwards.
func (f *MessageValidatorFactory) SetSignerRecoverer(recoverer SignerRecoverer) {
	f.recoverer = recoverer
}

func (f *MessageValidatorFactory) signedDataValidator() *SignedDataValidator {
	v := NewSignedDataValidator(f.recoverer)
	v.SetLogger(f.logger)
	return v
}

func (f *MessageValidatorFactory) CreateMessageValidator() *MessageValidator {
	v := NewMessageValidator(f.signedDataValidator(), f.proposers, f.blocks)
	v.SetLogger(f.logger)
	return v
}

func (f *MessageValidatorFactory) CreateRoundChangeValidator() *RoundChangePayloadValidator {
	v := NewRoundChangePayloadValidator(f.signedDataValidator(), f.proposers, f.blocks)
	v.SetLogger(f.logger)
	return v
}

func (f *MessageValidatorFactory) CreateRoundChangeCertificateValidator() *RoundChangeCertificateValidator {
	v := NewRoundChangeCertificateValidator(f.CreateRoundChangeValidator())
	v.SetLogger(f.logger)
	return v
}

func (f *MessageValidatorFactory) CreateNewRoundValidator() *NewRoundValidator {
	v := NewNewRoundValidator(f.signedDataValidator(), f.proposers, f.blocks, f.CreateRoundChangeCertificateValidator())
	v.SetLogger(f.logger)
	return v
}

// RoundView returns a view of round with the validator set in force at the
// round's height. parent must be the header at round.Sequence-1.
func (f *MessageValidatorFactory) RoundView(round types.RoundIdentifier, parent *types.Header) (RoundView, error) {
	vals, err := f.validators.ValidatorsAt(round.Sequence)
	if err != nil {
		return RoundView{}, fmt.Errorf("validators at height %d: %w", round.Sequence, err)
	}
	if err := vals.ValidateBasic(); err != nil {
		return RoundView{}, fmt.Errorf("validators at height %d: %w", round.Sequence, err)
	}
	if parent != nil && parent.Height != round.Sequence-1 {
		return RoundView{}, fmt.Errorf("parent height %d does not precede round %v", parent.Height, round)
	}
	return RoundView{
		Round:      round,
		Validators: vals,
		Parent:     parent,
	}, nil
}
