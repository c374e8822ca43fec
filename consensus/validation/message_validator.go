package validation

import (
	"github.com/tendermint/tendermint/libs/log"

	"ibft_node/types"
)

// MessageValidator accepts or rejects PROPOSAL, PREPARE and COMMIT
// messages for the round described by a RoundView.
type MessageValidator struct {
	signed    *SignedDataValidator
	proposers ProposerSelector
	blocks    BlockValidator
	logger    log.Logger
}

func NewMessageValidator(
	signed *SignedDataValidator,
	proposers ProposerSelector,
	blocks BlockValidator,
) *MessageValidator {
	return &MessageValidator{
		signed:    signed,
		proposers: proposers,
		blocks:    blocks,
		logger:    log.NewNopLogger(),
	}
}

func (mv *MessageValidator) SetLogger(logger log.Logger) {
	mv.logger = logger
	mv.signed.SetLogger(logger)
}

// ValidateProposal accepts msg if it is a first PROPOSAL for view.Round,
// signed by the round's proposer, whose block is for the right height and
// passes full block validation against view.Parent.
func (mv *MessageValidator) ValidateProposal(view RoundView, msg *types.SignedPayload) (bool, error) {
	if err := view.check(); err != nil {
		return false, err
	}
	if msg.Type() != types.ProposalMessage {
		return mv.reject(msg, "not a proposal"), nil
	}

	proposer := mv.proposers.SelectProposer(view.Round, view.Validators)
	author, ok := mv.signed.Validate(msg, view.Round, view.Validators, proposer)
	if !ok {
		return false, nil
	}
	if view.seen(types.ProposalMessage, author) {
		return mv.reject(msg, "duplicate proposal", "author", author), nil
	}

	return checkProposedBlock(mv.logger, mv.blocks, view, msg, msg.Payload.Proposal.Block)
}

// ValidatePrepareOrCommit accepts a PREPARE or COMMIT from a validator for
// view.Round whose digest matches the block of view.Proposal. PREPAREs from
// the proposer are rejected and a COMMIT's seal must verify against its
// author's key.
func (mv *MessageValidator) ValidatePrepareOrCommit(view RoundView, msg *types.SignedPayload) (bool, error) {
	if err := view.check(); err != nil {
		return false, err
	}
	msgType := msg.Type()
	if msgType != types.PrepareMessage && msgType != types.CommitMessage {
		return mv.reject(msg, "not a prepare or commit"), nil
	}
	if view.Proposal == nil {
		return mv.reject(msg, "no proposal accepted for round"), nil
	}

	author, ok := mv.signed.Validate(msg, view.Round, view.Validators, nil)
	if !ok {
		return false, nil
	}
	if view.seen(msgType, author) {
		return mv.reject(msg, "duplicate message", "author", author), nil
	}
	if !BlockHashMatchesProposal(msg, view.Proposal) {
		return mv.reject(msg, "digest does not match proposed block",
			"digest", msg.Payload.Digest(), "block", view.Proposal.ProposedBlock().Hash()), nil
	}

	switch msgType {
	case types.PrepareMessage:
		if author.Equal(view.Proposal.Author()) {
			return mv.reject(msg, "prepare sent by the round's proposer", "author", author), nil
		}
	case types.CommitMessage:
		seal := msg.Payload.Commit.CommitSeal
		if !msg.PubKey.VerifySignature(types.CommitSealBytes(msg.Payload.Digest()), seal) {
			return mv.reject(msg, "commit seal does not verify", "author", author), nil
		}
	}

	return true, nil
}

// Validate dispatches on the message type.
func (mv *MessageValidator) Validate(view RoundView, msg *types.SignedPayload) (bool, error) {
	switch msg.Type() {
	case types.ProposalMessage:
		return mv.ValidateProposal(view, msg)
	case types.PrepareMessage, types.CommitMessage:
		return mv.ValidatePrepareOrCommit(view, msg)
	default:
		if err := view.check(); err != nil {
			return false, err
		}
		return mv.reject(msg, "unexpected message type"), nil
	}
}

// checkProposedBlock checks that block is for the height of view.Round and
// passes full validation against view.Parent.
func checkProposedBlock(
	logger log.Logger,
	blocks BlockValidator,
	view RoundView,
	msg *types.SignedPayload,
	block *types.Block,
) (bool, error) {
	if !blockMatchesRound(block, view.Round) {
		return reject(logger, msg, "block height does not match round", "block", block), nil
	}
	if err := view.checkParent(); err != nil {
		return false, err
	}
	ok, err := blocks.ValidateBlock(block, view.Parent, FullValidation)
	if err != nil {
		return false, err
	}
	if !ok {
		return reject(logger, msg, "block failed validation", "block", block.Hash()), nil
	}
	return true, nil
}

func (mv *MessageValidator) reject(msg *types.SignedPayload, reason string, keyvals ...interface{}) bool {
	return reject(mv.logger, msg, reason, keyvals...)
}
