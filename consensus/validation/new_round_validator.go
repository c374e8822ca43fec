package validation

import (
	"github.com/tendermint/tendermint/libs/log"

	"ibft_node/types"
)

// NewRoundValidator accepts or rejects the NEW-ROUND message with which a
// proposer opens a round above zero.
type NewRoundValidator struct {
	signed       *SignedDataValidator
	proposers    ProposerSelector
	blocks       BlockValidator
	certificates *RoundChangeCertificateValidator
	logger       log.Logger
}

func NewNewRoundValidator(
	signed *SignedDataValidator,
	proposers ProposerSelector,
	blocks BlockValidator,
	certificates *RoundChangeCertificateValidator,
) *NewRoundValidator {
	return &NewRoundValidator{
		signed:       signed,
		proposers:    proposers,
		blocks:       blocks,
		certificates: certificates,
		logger:       log.NewNopLogger(),
	}
}

func (v *NewRoundValidator) SetLogger(logger log.Logger) {
	v.logger = logger
	v.signed.SetLogger(logger)
	v.certificates.SetLogger(logger)
}

// ValidateNewRound checks that msg comes from the proposer of view.Round,
// carries a valid round-change certificate for that round and a valid
// proposal of the same author and round. If the certificate prepared a
// block, the proposal must re-propose exactly that block.
func (v *NewRoundValidator) ValidateNewRound(view RoundView, msg *types.SignedPayload) (bool, error) {
	if err := view.check(); err != nil {
		return false, err
	}
	if msg.Type() != types.NewRoundMessage {
		return reject(v.logger, msg, "not a new round"), nil
	}
	if view.Round.Round == 0 {
		return reject(v.logger, msg, "new round for round zero"), nil
	}

	proposer := v.proposers.SelectProposer(view.Round, view.Validators)
	author, ok := v.signed.Validate(msg, view.Round, view.Validators, proposer)
	if !ok {
		return false, nil
	}
	if view.seen(types.NewRoundMessage, author) {
		return reject(v.logger, msg, "duplicate new round", "author", author), nil
	}

	payload := msg.Payload.NewRound
	proposal := payload.Proposal
	if proposal.Type() != types.ProposalMessage {
		return reject(v.logger, msg, "new round does not embed a proposal"), nil
	}
	proposalAuthor, ok := v.signed.Validate(proposal, view.Round, view.Validators, proposer)
	if !ok {
		return reject(v.logger, msg, "embedded proposal is invalid"), nil
	}
	if !proposalAuthor.Equal(author) {
		return reject(v.logger, msg, "embedded proposal has another author",
			"author", author, "proposal_author", proposalAuthor), nil
	}

	ok, err := v.certificates.ValidateCertificate(view, payload.Certificate)
	if err != nil || !ok {
		return false, err
	}

	block := proposal.Payload.Proposal.Block
	ok, err = checkProposedBlock(v.logger, v.blocks, view, msg, block)
	if err != nil || !ok {
		return false, err
	}

	artifacts := types.ExtractRoundChangeArtifacts(payload.Certificate.RoundChanges)
	if artifacts.HasBlock() && !artifacts.Block.Equal(block) {
		return reject(v.logger, msg, "proposal does not carry the prepared block",
			"prepared", artifacts.Block.Hash(), "proposed", block.Hash()), nil
	}
	return true, nil
}
