package types

import (
	"errors"
	"fmt"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

type MessageType uint8

const (
	UnknownMessage     = MessageType(0)
	ProposalMessage    = MessageType(1)
	PrepareMessage     = MessageType(2)
	CommitMessage      = MessageType(3)
	RoundChangeMessage = MessageType(4)
	NewRoundMessage    = MessageType(5)
)

func (t MessageType) String() string {
	switch t {
	case ProposalMessage:
		return "Proposal"
	case PrepareMessage:
		return "Prepare"
	case CommitMessage:
		return "Commit"
	case RoundChangeMessage:
		return "RoundChange"
	case NewRoundMessage:
		return "NewRound"
	default:
		return "UnknownMessage"
	}
}

// ProposalPayload proposes Block for Round.
type ProposalPayload struct {
	Round RoundIdentifier `json:"round"`
	Block *Block          `json:"block"`
}

// PreparePayload announces that the author accepted the proposal whose
// block hashes to Digest.
type PreparePayload struct {
	Round  RoundIdentifier  `json:"round"`
	Digest tmbytes.HexBytes `json:"digest"`
}

// CommitPayload carries the author's seal over Digest.
type CommitPayload struct {
	Round      RoundIdentifier  `json:"round"`
	Digest     tmbytes.HexBytes `json:"digest"`
	CommitSeal tmbytes.HexBytes `json:"commit_seal"`
}

// RoundChangePayload asks to move to Round. Prepared is set when the author
// saw a quorum prepare a block in an earlier round of the same height.
type RoundChangePayload struct {
	Round    RoundIdentifier         `json:"round"`
	Prepared *PreparedRoundArtifacts `json:"prepared"`
}

// NewRoundPayload is broadcast by the proposer of Round to start it. The
// certificate justifies leaving the earlier round.
type NewRoundPayload struct {
	Round       RoundIdentifier        `json:"round"`
	Certificate RoundChangeCertificate `json:"certificate"`
	Proposal    *SignedPayload         `json:"proposal"`
}

// Payload is a closed union of the protocol payloads: exactly one field is
// set. Type reports which.
type Payload struct {
	Proposal    *ProposalPayload    `json:"proposal"`
	Prepare     *PreparePayload     `json:"prepare"`
	Commit      *CommitPayload      `json:"commit"`
	RoundChange *RoundChangePayload `json:"round_change"`
	NewRound    *NewRoundPayload    `json:"new_round"`
}

// Type returns the tag of the variant that is set, or UnknownMessage if
// none or more than one is.
func (p Payload) Type() MessageType {
	t := UnknownMessage
	set := 0
	if p.Proposal != nil {
		t = ProposalMessage
		set++
	}
	if p.Prepare != nil {
		t = PrepareMessage
		set++
	}
	if p.Commit != nil {
		t = CommitMessage
		set++
	}
	if p.RoundChange != nil {
		t = RoundChangeMessage
		set++
	}
	if p.NewRound != nil {
		t = NewRoundMessage
		set++
	}
	if set != 1 {
		return UnknownMessage
	}
	return t
}

// RoundIdentifier returns the round the payload is bound to. For a
// ROUND-CHANGE that is the target round.
func (p Payload) RoundIdentifier() RoundIdentifier {
	switch p.Type() {
	case ProposalMessage:
		return p.Proposal.Round
	case PrepareMessage:
		return p.Prepare.Round
	case CommitMessage:
		return p.Commit.Round
	case RoundChangeMessage:
		return p.RoundChange.Round
	case NewRoundMessage:
		return p.NewRound.Round
	default:
		return RoundIdentifier{}
	}
}

// Digest returns the block hash a PREPARE or COMMIT refers to.
func (p Payload) Digest() tmbytes.HexBytes {
	switch p.Type() {
	case PrepareMessage:
		return p.Prepare.Digest
	case CommitMessage:
		return p.Commit.Digest
	default:
		return nil
	}
}

func (p Payload) ValidateBasic() error {
	t := p.Type()
	if t == UnknownMessage {
		return errors.New("payload must carry exactly one message")
	}
	if err := p.RoundIdentifier().ValidateBasic(); err != nil {
		return fmt.Errorf("invalid %v round: %w", t, err)
	}
	switch t {
	case ProposalMessage:
		if p.Proposal.Block == nil {
			return errors.New("proposal without block")
		}
	case PrepareMessage, CommitMessage:
		if len(p.Digest()) == 0 {
			return fmt.Errorf("%v without digest", t)
		}
	case NewRoundMessage:
		if p.NewRound.Proposal == nil {
			return errors.New("new round without proposal")
		}
	}
	return nil
}
