package validation

import (
	"bytes"

	"ibft_node/types"
)

// BlockHashMatchesProposal reports whether a PREPARE or COMMIT refers to the
// block carried by proposal.
func BlockHashMatchesProposal(msg, proposal *types.SignedPayload) bool {
	switch msg.Type() {
	case types.PrepareMessage, types.CommitMessage:
	default:
		return false
	}
	block := proposal.ProposedBlock()
	if block == nil {
		return false
	}
	return bytes.Equal(msg.Payload.Digest(), block.Hash())
}

// blockMatchesRound reports whether a proposed block is for the height
// being agreed on in round.
func blockMatchesRound(block *types.Block, round types.RoundIdentifier) bool {
	return block != nil && block.Header.Height == round.Sequence
}
