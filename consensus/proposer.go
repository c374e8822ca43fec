package consensus

import (
	"ibft_node/types"
)

// RoundRobinProposerSelector rotates the proposer through the ordered
// validator set: round r of height h is proposed by validator
// (h + r) mod n.
type RoundRobinProposerSelector struct{}

func NewRoundRobinProposerSelector() RoundRobinProposerSelector {
	return RoundRobinProposerSelector{}
}

// Implements validation.ProposerSelector.
func (RoundRobinProposerSelector) SelectProposer(round types.RoundIdentifier, vals *types.ValidatorSet) types.Address {
	proposer := vals.GetProposer(round.Sequence + int64(round.Round))
	if proposer == nil {
		return nil
	}
	return proposer.Address
}
