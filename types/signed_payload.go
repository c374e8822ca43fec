package types

import (
	"errors"
	"fmt"

	"github.com/tendermint/tendermint/crypto"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	tmjson "github.com/tendermint/tendermint/libs/json"
)

var commitSealDomain = []byte("ibft/commit-seal")

// SignedPayload is a protocol payload together with its author's public key
// and signature over PayloadSignBytes. The author is the address of PubKey,
// trusted only once the signature has been verified.
//
// Signed payloads are immutable after signing.
type SignedPayload struct {
	Payload   Payload          `json:"payload"`
	PubKey    crypto.PubKey    `json:"pub_key"`
	Signature tmbytes.HexBytes `json:"signature"`
}

// PayloadSignBytes returns the canonical bytes a payload is signed over.
func PayloadSignBytes(p Payload) []byte {
	bz, err := tmjson.Marshal(p)
	if err != nil {
		panic(err)
	}
	return bz
}

// CommitSealBytes returns the bytes a committer seals for the block with
// the given hash.
func CommitSealBytes(digest []byte) []byte {
	bz := make([]byte, 0, len(commitSealDomain)+len(digest))
	bz = append(bz, commitSealDomain...)
	return append(bz, digest...)
}

func (sp *SignedPayload) SignBytes() []byte {
	return PayloadSignBytes(sp.Payload)
}

func (sp *SignedPayload) Type() MessageType {
	if sp == nil {
		return UnknownMessage
	}
	return sp.Payload.Type()
}

func (sp *SignedPayload) RoundIdentifier() RoundIdentifier {
	if sp == nil {
		return RoundIdentifier{}
	}
	return sp.Payload.RoundIdentifier()
}

// Author returns the claimed author address without checking the
// signature. Use RecoverAuthor for untrusted messages.
func (sp *SignedPayload) Author() Address {
	if sp == nil || sp.PubKey == nil {
		return nil
	}
	return GetAddress(sp.PubKey)
}

// RecoverAuthor verifies the signature and returns the address of the key
// that produced it. ok is false for a missing key or a bad signature.
func RecoverAuthor(sp *SignedPayload) (addr Address, ok bool) {
	if sp == nil || sp.PubKey == nil || len(sp.Signature) == 0 {
		return nil, false
	}
	if !sp.PubKey.VerifySignature(sp.SignBytes(), sp.Signature) {
		return nil, false
	}
	addr = GetAddress(sp.PubKey)
	if addr.IsEmpty() {
		return nil, false
	}
	return addr, true
}

// ProposedBlock returns the block of a PROPOSAL, the block of the
// embedded proposal of a NEW-ROUND, or the prepared block of a
// ROUND-CHANGE. It returns nil otherwise.
func (sp *SignedPayload) ProposedBlock() *Block {
	switch sp.Type() {
	case ProposalMessage:
		return sp.Payload.Proposal.Block
	case NewRoundMessage:
		return sp.Payload.NewRound.Proposal.ProposedBlock()
	case RoundChangeMessage:
		if prepared := sp.Payload.RoundChange.Prepared; prepared != nil {
			return prepared.Proposal.ProposedBlock()
		}
	}
	return nil
}

func (sp *SignedPayload) String() string {
	if sp == nil {
		return "nil-SignedPayload"
	}
	return fmt.Sprintf("%v{%v by %v}", sp.Type(), sp.RoundIdentifier(), sp.Author())
}

//-----------------------------------------------------------------------------

// PreparedRoundArtifacts is the evidence that a quorum prepared
// Proposal's block in an earlier round: the proposal and the PREPAREs that
// accompanied it.
type PreparedRoundArtifacts struct {
	Proposal *SignedPayload   `json:"proposal"`
	Prepares []*SignedPayload `json:"prepares"`
}

// PreparedRound returns the round of the embedded proposal.
func (pra *PreparedRoundArtifacts) PreparedRound() RoundIdentifier {
	return pra.Proposal.RoundIdentifier()
}

func (pra *PreparedRoundArtifacts) ValidateBasic() error {
	if pra.Proposal == nil || pra.Proposal.Type() != ProposalMessage {
		return errors.New("prepared certificate without proposal")
	}
	for i, p := range pra.Prepares {
		if p.Type() != PrepareMessage {
			return fmt.Errorf("prepared certificate entry #%d is %v", i, p.Type())
		}
	}
	return nil
}

// RoundChangeCertificate is the set of ROUND-CHANGE messages justifying a
// move to a new round.
type RoundChangeCertificate struct {
	RoundChanges []*SignedPayload `json:"round_changes"`
}

func (c RoundChangeCertificate) Size() int {
	return len(c.RoundChanges)
}
