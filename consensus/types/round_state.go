package types

import (
	"errors"
	"fmt"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"

	"ibft_node/consensus/validation"
	types "ibft_node/types"
)

var (
	ErrProposalExists    = errors.New("round already has a proposal")
	ErrNoProposal        = errors.New("round has no proposal")
	ErrDuplicateMessage  = errors.New("duplicate message")
	ErrWrongRound        = errors.New("message is for another round")
	ErrUnexpectedMessage = errors.New("unexpected message type")
)

//-----------------------------------------------------------------------------
// RoundStepType enum type

// RoundStepType enumerates the progress of a single round.
type RoundStepType uint8

const (
	RoundStepPropose   = RoundStepType(0x01) // waiting for the proposal
	RoundStepPrepare   = RoundStepType(0x02) // proposal accepted, collecting prepares
	RoundStepCommit    = RoundStepType(0x03) // prepared, collecting commits
	RoundStepCommitted = RoundStepType(0x04)
)

func (rs RoundStepType) String() string {
	switch rs {
	case RoundStepPropose:
		return "RoundStepPropose"
	case RoundStepPrepare:
		return "RoundStepPrepare"
	case RoundStepCommit:
		return "RoundStepCommit"
	case RoundStepCommitted:
		return "RoundStepCommitted"
	default:
		return "RoundStepUnknown"
	}
}

// RoundState tallies the messages accepted for one round. Messages must be
// validated before they are added. RoundState is not safe for concurrent
// use; the consensus routine owns it.
type RoundState struct {
	Round      types.RoundIdentifier
	Step       RoundStepType
	Validators *types.ValidatorSet
	Parent     *types.Header

	Proposal *types.SignedPayload

	prepares *messageSet
	commits  *messageSet

	quorum        int
	prepareQuorum int
}

func NewRoundState(round types.RoundIdentifier, vals *types.ValidatorSet, parent *types.Header) (*RoundState, error) {
	quorum, err := vals.QuorumSize()
	if err != nil {
		return nil, err
	}
	return &RoundState{
		Round:         round,
		Step:          RoundStepPropose,
		Validators:    vals,
		Parent:        parent,
		prepares:      newMessageSet(),
		commits:       newMessageSet(),
		quorum:        quorum,
		prepareQuorum: quorum - 1,
	}, nil
}

// View returns the view validators need to judge messages for this round.
// Seen reads the live tally.
func (rs *RoundState) View() validation.RoundView {
	return validation.RoundView{
		Round:      rs.Round,
		Validators: rs.Validators,
		Parent:     rs.Parent,
		Proposal:   rs.Proposal,
		Seen:       rs.Seen,
	}
}

// Seen reports whether a message of msgType from author was already
// accepted. Only one proposal is accepted per round, whoever signed it.
func (rs *RoundState) Seen(msgType types.MessageType, author types.Address) bool {
	switch msgType {
	case types.ProposalMessage, types.NewRoundMessage:
		return rs.Proposal != nil
	case types.PrepareMessage:
		return rs.prepares.has(author)
	case types.CommitMessage:
		return rs.commits.has(author)
	default:
		return false
	}
}

func (rs *RoundState) SetProposal(msg *types.SignedPayload) error {
	if msg.Type() != types.ProposalMessage {
		return ErrUnexpectedMessage
	}
	if !msg.RoundIdentifier().Equal(rs.Round) {
		return ErrWrongRound
	}
	if rs.Proposal != nil {
		return ErrProposalExists
	}
	rs.Proposal = msg
	rs.updateStep()
	return nil
}

// AddPrepare adds an accepted PREPARE and reports whether this made the
// round prepared.
func (rs *RoundState) AddPrepare(msg *types.SignedPayload) (bool, error) {
	return rs.add(rs.prepares, types.PrepareMessage, msg)
}

// AddCommit adds an accepted COMMIT and reports whether this made the round
// committed.
func (rs *RoundState) AddCommit(msg *types.SignedPayload) (bool, error) {
	return rs.add(rs.commits, types.CommitMessage, msg)
}

func (rs *RoundState) add(set *messageSet, msgType types.MessageType, msg *types.SignedPayload) (bool, error) {
	if msg.Type() != msgType {
		return false, ErrUnexpectedMessage
	}
	if !msg.RoundIdentifier().Equal(rs.Round) {
		return false, ErrWrongRound
	}
	if rs.Proposal == nil {
		return false, ErrNoProposal
	}
	before := rs.Step
	if err := set.add(msg); err != nil {
		return false, err
	}
	rs.updateStep()

	switch msgType {
	case types.PrepareMessage:
		return before < RoundStepCommit && rs.Step >= RoundStepCommit, nil
	default:
		return before < RoundStepCommitted && rs.Step == RoundStepCommitted, nil
	}
}

// IsPrepared reports whether the round has a proposal and a prepare quorum.
func (rs *RoundState) IsPrepared() bool {
	return rs.Proposal != nil && rs.prepares.size() >= rs.prepareQuorum
}

// IsCommitted reports whether the round has a proposal and a commit quorum.
func (rs *RoundState) IsCommitted() bool {
	return rs.Proposal != nil && rs.commits.size() >= rs.quorum
}

// PreparedCertificate returns the evidence of preparation to carry into a
// ROUND-CHANGE, or nil if the round is not prepared.
func (rs *RoundState) PreparedCertificate() *types.PreparedRoundArtifacts {
	if !rs.IsPrepared() {
		return nil
	}
	return &types.PreparedRoundArtifacts{
		Proposal: rs.Proposal,
		Prepares: rs.prepares.list(),
	}
}

// CommitSeals returns the seals of the accepted commits in arrival order.
func (rs *RoundState) CommitSeals() []tmbytes.HexBytes {
	commits := rs.commits.list()
	seals := make([]tmbytes.HexBytes, 0, len(commits))
	for _, c := range commits {
		seals = append(seals, c.Payload.Commit.CommitSeal)
	}
	return seals
}

// ProposedBlock returns the block of the accepted proposal.
func (rs *RoundState) ProposedBlock() *types.Block {
	return rs.Proposal.ProposedBlock()
}

func (rs *RoundState) updateStep() {
	switch {
	case rs.IsCommitted():
		rs.Step = RoundStepCommitted
	case rs.IsPrepared():
		rs.Step = RoundStepCommit
	case rs.Proposal != nil:
		rs.Step = RoundStepPrepare
	default:
		rs.Step = RoundStepPropose
	}
}

func (rs *RoundState) String() string {
	return fmt.Sprintf("RoundState{%v %v prepares:%d/%d commits:%d/%d}",
		rs.Round, rs.Step, rs.prepares.size(), rs.prepareQuorum, rs.commits.size(), rs.quorum)
}

//-----------------------------------------------------------------------------

// messageSet keeps at most one message per author, in arrival order.
type messageSet struct {
	msgs    []*types.SignedPayload
	authors map[string]struct{}
}

func newMessageSet() *messageSet {
	return &messageSet{
		authors: make(map[string]struct{}),
	}
}

func (ms *messageSet) add(msg *types.SignedPayload) error {
	key := string(msg.Author())
	if _, ok := ms.authors[key]; ok {
		return ErrDuplicateMessage
	}
	ms.authors[key] = struct{}{}
	ms.msgs = append(ms.msgs, msg)
	return nil
}

func (ms *messageSet) has(author types.Address) bool {
	_, ok := ms.authors[string(author)]
	return ok
}

func (ms *messageSet) size() int {
	return len(ms.msgs)
}

func (ms *messageSet) list() []*types.SignedPayload {
	list := make([]*types.SignedPayload, len(ms.msgs))
	copy(list, ms.msgs)
	return list
}
