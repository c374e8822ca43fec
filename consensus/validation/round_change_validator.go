package validation

import (
	"github.com/tendermint/tendermint/libs/log"

	"ibft_node/types"
)

// RoundChangePayloadValidator accepts or rejects a single ROUND-CHANGE
// for the target round in a RoundView, including any prepared certificate
// it carries.
type RoundChangePayloadValidator struct {
	signed    *SignedDataValidator
	proposers ProposerSelector
	blocks    BlockValidator
	logger    log.Logger
}

func NewRoundChangePayloadValidator(
	signed *SignedDataValidator,
	proposers ProposerSelector,
	blocks BlockValidator,
) *RoundChangePayloadValidator {
	return &RoundChangePayloadValidator{
		signed:    signed,
		proposers: proposers,
		blocks:    blocks,
		logger:    log.NewNopLogger(),
	}
}

func (v *RoundChangePayloadValidator) SetLogger(logger log.Logger) {
	v.logger = logger
	v.signed.SetLogger(logger)
}

// ValidateRoundChange checks msg against the target round view.Round. Any
// validator may ask for a round change. A prepared certificate, when
// present, must be for an earlier round of the same height and hold
// enough distinct valid PREPAREs for its proposal.
func (v *RoundChangePayloadValidator) ValidateRoundChange(view RoundView, msg *types.SignedPayload) (bool, error) {
	_, ok, err := v.validate(view, msg)
	return ok, err
}

func (v *RoundChangePayloadValidator) validate(view RoundView, msg *types.SignedPayload) (types.Address, bool, error) {
	if err := view.check(); err != nil {
		return nil, false, err
	}
	if msg.Type() != types.RoundChangeMessage {
		return nil, reject(v.logger, msg, "not a round change"), nil
	}

	author, ok := v.signed.Validate(msg, view.Round, view.Validators, nil)
	if !ok {
		return nil, false, nil
	}
	if view.seen(types.RoundChangeMessage, author) {
		return nil, reject(v.logger, msg, "duplicate round change", "author", author), nil
	}

	prepared := msg.Payload.RoundChange.Prepared
	if prepared == nil {
		return author, true, nil
	}
	ok, err := v.validatePrepared(view, msg, prepared)
	if err != nil || !ok {
		return nil, false, err
	}
	return author, true, nil
}

func (v *RoundChangePayloadValidator) validatePrepared(
	view RoundView,
	msg *types.SignedPayload,
	prepared *types.PreparedRoundArtifacts,
) (bool, error) {
	if err := prepared.ValidateBasic(); err != nil {
		return reject(v.logger, msg, "malformed prepared certificate", "err", err), nil
	}

	preparedRound := prepared.PreparedRound()
	if preparedRound.Sequence != view.Round.Sequence || preparedRound.Round >= view.Round.Round {
		return reject(v.logger, msg, "prepared certificate is not for an earlier round of the height",
			"prepared", preparedRound), nil
	}

	proposal := prepared.Proposal
	proposer := v.proposers.SelectProposer(preparedRound, view.Validators)
	proposalAuthor, ok := v.signed.Validate(proposal, preparedRound, view.Validators, proposer)
	if !ok {
		return reject(v.logger, msg, "prepared certificate has invalid proposal"), nil
	}
	ok, err := checkProposedBlock(v.logger, v.blocks, RoundView{
		Round:      preparedRound,
		Validators: view.Validators,
		Parent:     view.Parent,
	}, proposal, proposal.Payload.Proposal.Block)
	if err != nil || !ok {
		return false, err
	}

	need, err := view.Validators.PrepareQuorum()
	if err != nil {
		return false, err
	}
	if len(prepared.Prepares) < need {
		return reject(v.logger, msg, "prepared certificate lacks prepares",
			"prepares", len(prepared.Prepares), "need", need), nil
	}

	signers := make(map[string]struct{}, len(prepared.Prepares))
	for _, prepare := range prepared.Prepares {
		author, ok := v.signed.Validate(prepare, preparedRound, view.Validators, nil)
		if !ok {
			return reject(v.logger, msg, "prepared certificate has invalid prepare"), nil
		}
		if !BlockHashMatchesProposal(prepare, proposal) {
			return reject(v.logger, msg, "prepare digest does not match prepared block", "author", author), nil
		}
		if author.Equal(proposalAuthor) {
			return reject(v.logger, msg, "prepare signed by the proposer", "author", author), nil
		}
		key := string(author)
		if _, dup := signers[key]; dup {
			return reject(v.logger, msg, "duplicate prepare signer", "author", author), nil
		}
		signers[key] = struct{}{}
	}
	return true, nil
}

//-----------------------------------------------------------------------------

// RoundChangeCertificateValidator accepts or rejects a set of ROUND-CHANGE
// messages offered as justification for entering a round.
type RoundChangeCertificateValidator struct {
	roundChanges *RoundChangePayloadValidator
	logger       log.Logger
}

func NewRoundChangeCertificateValidator(roundChanges *RoundChangePayloadValidator) *RoundChangeCertificateValidator {
	return &RoundChangeCertificateValidator{
		roundChanges: roundChanges,
		logger:       log.NewNopLogger(),
	}
}

func (v *RoundChangeCertificateValidator) SetLogger(logger log.Logger) {
	v.logger = logger
	v.roundChanges.SetLogger(logger)
}

// ValidateCertificate accepts cert when it holds at least a quorum of
// ROUND-CHANGEs for view.Round from distinct validators, each valid on its
// own. view.Proposal and view.Seen are ignored.
func (v *RoundChangeCertificateValidator) ValidateCertificate(
	view RoundView,
	cert types.RoundChangeCertificate,
) (bool, error) {
	if err := view.check(); err != nil {
		return false, err
	}
	quorum, err := view.Validators.QuorumSize()
	if err != nil {
		return false, err
	}
	if cert.Size() < quorum {
		v.logger.Debug("Invalid round change certificate", "reason", "below quorum",
			"round", view.Round, "size", cert.Size(), "quorum", quorum)
		return false, nil
	}

	single := RoundView{
		Round:      view.Round,
		Validators: view.Validators,
		Parent:     view.Parent,
	}
	signers := make(map[string]struct{}, cert.Size())
	for _, rc := range cert.RoundChanges {
		if !rc.RoundIdentifier().Equal(view.Round) {
			v.logger.Debug("Invalid round change certificate", "reason", "round change for another round",
				"round", view.Round, "got", rc.RoundIdentifier())
			return false, nil
		}
		author, ok, err := v.roundChanges.validate(single, rc)
		if err != nil || !ok {
			return false, err
		}
		key := string(author)
		if _, dup := signers[key]; dup {
			v.logger.Debug("Invalid round change certificate", "reason", "duplicate signer",
				"round", view.Round, "author", author)
			return false, nil
		}
		signers[key] = struct{}{}
	}
	return true, nil
}
