package validation

import (
	"errors"
	"fmt"

	"ibft_node/types"
)

var (
	ErrNoParentHeader = errors.New("parent header required to validate blocks")
)

// RoundView is the caller's read-only snapshot of the round a message is
// checked against. Validators keep no state of their own: everything that
// varies between rounds arrives through a RoundView, so one validator can
// serve many rounds at once.
type RoundView struct {
	// Round is the round under validation. For ROUND-CHANGE messages and
	// certificates it is the target round.
	Round types.RoundIdentifier

	// Validators is the validator set at Round.Sequence.
	Validators *types.ValidatorSet

	// Parent is the header of the block at Round.Sequence-1.
	Parent *types.Header

	// Proposal is the PROPOSAL already accepted for Round, if any.
	Proposal *types.SignedPayload

	// Seen reports whether a message of the given type from the given
	// author was already accepted for Round. May be nil.
	Seen func(msgType types.MessageType, author types.Address) bool
}

// WithProposal returns a copy of the view with the accepted proposal set.
func (v RoundView) WithProposal(proposal *types.SignedPayload) RoundView {
	v.Proposal = proposal
	return v
}

func (v RoundView) seen(msgType types.MessageType, author types.Address) bool {
	return v.Seen != nil && v.Seen(msgType, author)
}

// check reports configuration faults, which are distinct from message
// rejections.
func (v RoundView) check() error {
	if v.Validators.IsNilOrEmpty() {
		return fmt.Errorf("round %v: %w", v.Round, types.ErrEmptyValidatorSet)
	}
	return nil
}

func (v RoundView) checkParent() error {
	if v.Parent == nil {
		return fmt.Errorf("round %v: %w", v.Round, ErrNoParentHeader)
	}
	return nil
}
