package types

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/crypto/ed25519"
)

// PrivValidator defines the functionality of a local validator that signs
// consensus messages.
type PrivValidator interface {
	GetPubKey() (crypto.PubKey, error)

	// SignPayload signs PayloadSignBytes(payload).
	SignPayload(payload Payload) ([]byte, error)

	// SignCommitSeal signs CommitSealBytes(digest).
	SignCommitSeal(digest []byte) ([]byte, error)
}

type PrivValidatorsByAddress []PrivValidator

func (pvs PrivValidatorsByAddress) Len() int {
	return len(pvs)
}

func (pvs PrivValidatorsByAddress) Less(i, j int) bool {
	pvi, err := pvs[i].GetPubKey()
	if err != nil {
		panic(err)
	}
	pvj, err := pvs[j].GetPubKey()
	if err != nil {
		panic(err)
	}

	return bytes.Compare(pvi.Address(), pvj.Address()) == -1
}

func (pvs PrivValidatorsByAddress) Swap(i, j int) {
	pvs[i], pvs[j] = pvs[j], pvs[i]
}

//----------------------------------------
// MockPV

// MockPV implements PrivValidator without any safety or persistence.
// Only use it for testing.
type MockPV struct {
	PrivKey crypto.PrivKey
	// BreakSignatures makes every signature invalid.
	BreakSignatures bool
}

func NewMockPV() MockPV {
	return MockPV{ed25519.GenPrivKey(), false}
}

// NewMockPVWithSecret derives a deterministic key from secret.
func NewMockPVWithSecret(secret []byte) MockPV {
	return MockPV{ed25519.GenPrivKeyFromSecret(secret), false}
}

// Implements PrivValidator.
func (pv MockPV) GetPubKey() (crypto.PubKey, error) {
	return pv.PrivKey.PubKey(), nil
}

// Implements PrivValidator.
func (pv MockPV) SignPayload(payload Payload) ([]byte, error) {
	return pv.sign(PayloadSignBytes(payload))
}

// Implements PrivValidator.
func (pv MockPV) SignCommitSeal(digest []byte) ([]byte, error) {
	return pv.sign(CommitSealBytes(digest))
}

func (pv MockPV) sign(msg []byte) ([]byte, error) {
	if pv.PrivKey == nil {
		return nil, errors.New("mock private validator without key")
	}
	if pv.BreakSignatures {
		msg = append([]byte("broken"), msg...)
	}
	return pv.PrivKey.Sign(msg)
}

// String returns a string representation of the MockPV.
func (pv MockPV) String() string {
	return fmt.Sprintf("MockPV{%v}", GetAddress(pv.PrivKey.PubKey()))
}
