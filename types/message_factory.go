package types

import (
	"fmt"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// MessageFactory builds consensus messages signed by one validator.
type MessageFactory struct {
	privVal PrivValidator
}

func NewMessageFactory(privVal PrivValidator) *MessageFactory {
	return &MessageFactory{privVal: privVal}
}

// Address returns the address of the signing validator.
func (mf *MessageFactory) Address() (Address, error) {
	pub, err := mf.privVal.GetPubKey()
	if err != nil {
		return nil, err
	}
	return GetAddress(pub), nil
}

func (mf *MessageFactory) CreateProposal(round RoundIdentifier, block *Block) (*SignedPayload, error) {
	return mf.Sign(Payload{Proposal: &ProposalPayload{Round: round, Block: block}})
}

func (mf *MessageFactory) CreatePrepare(round RoundIdentifier, digest tmbytes.HexBytes) (*SignedPayload, error) {
	return mf.Sign(Payload{Prepare: &PreparePayload{Round: round, Digest: digest}})
}

// CreateCommit seals digest and wraps the seal in a signed COMMIT.
func (mf *MessageFactory) CreateCommit(round RoundIdentifier, digest tmbytes.HexBytes) (*SignedPayload, error) {
	seal, err := mf.privVal.SignCommitSeal(digest)
	if err != nil {
		return nil, fmt.Errorf("error sealing commit: %w", err)
	}
	return mf.Sign(Payload{Commit: &CommitPayload{Round: round, Digest: digest, CommitSeal: seal}})
}

// CreateRoundChange requests target. prepared may be nil.
func (mf *MessageFactory) CreateRoundChange(target RoundIdentifier, prepared *PreparedRoundArtifacts) (*SignedPayload, error) {
	return mf.Sign(Payload{RoundChange: &RoundChangePayload{Round: target, Prepared: prepared}})
}

func (mf *MessageFactory) CreateNewRound(
	round RoundIdentifier,
	certificate RoundChangeCertificate,
	proposal *SignedPayload,
) (*SignedPayload, error) {
	return mf.Sign(Payload{NewRound: &NewRoundPayload{
		Round:       round,
		Certificate: certificate,
		Proposal:    proposal,
	}})
}

// Sign signs an arbitrary payload.
func (mf *MessageFactory) Sign(payload Payload) (*SignedPayload, error) {
	pub, err := mf.privVal.GetPubKey()
	if err != nil {
		return nil, fmt.Errorf("can't get pubkey: %w", err)
	}
	sig, err := mf.privVal.SignPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("error signing %v: %w", payload.Type(), err)
	}
	return &SignedPayload{
		Payload:   payload,
		PubKey:    pub,
		Signature: sig,
	}, nil
}
