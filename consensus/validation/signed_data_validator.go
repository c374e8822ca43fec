package validation

import (
	"github.com/tendermint/tendermint/libs/log"

	"ibft_node/types"
)

// SignedDataValidator checks the envelope of a single message: who signed
// it, whether they may sign, and whether it belongs to the round under
// validation.
type SignedDataValidator struct {
	recoverer SignerRecoverer
	logger    log.Logger
}

func NewSignedDataValidator(recoverer SignerRecoverer) *SignedDataValidator {
	if recoverer == nil {
		recoverer = DefaultSignerRecoverer
	}
	return &SignedDataValidator{
		recoverer: recoverer,
		logger:    log.NewNopLogger(),
	}
}

func (v *SignedDataValidator) SetLogger(logger log.Logger) {
	v.logger = logger
}

// Validate checks, in order, that the signature recovers to an author, that
// the author is in vals, that the payload is bound to round and, for
// PROPOSAL and NEW-ROUND payloads, that the author is expectedProposer.
// It returns the recovered author on success.
func (v *SignedDataValidator) Validate(
	msg *types.SignedPayload,
	round types.RoundIdentifier,
	vals *types.ValidatorSet,
	expectedProposer types.Address,
) (types.Address, bool) {
	if msg == nil {
		v.logger.Debug("Invalid consensus message", "reason", "nil message", "round", round)
		return nil, false
	}
	if err := msg.Payload.ValidateBasic(); err != nil {
		return nil, v.reject(msg, "malformed payload", "err", err)
	}

	author, ok := v.recoverer.RecoverSigner(msg)
	if !ok || author.IsEmpty() {
		return nil, v.reject(msg, "signature does not recover to a signer")
	}

	if !vals.HasAddress(author) {
		return nil, v.reject(msg, "author is not a validator", "author", author)
	}

	if !msg.RoundIdentifier().Equal(round) {
		return nil, v.reject(msg, "message is not for the expected round", "expected", round)
	}

	switch msg.Type() {
	case types.ProposalMessage, types.NewRoundMessage:
		if !author.Equal(expectedProposer) {
			return nil, v.reject(msg, "author is not the proposer of the round",
				"author", author, "proposer", expectedProposer)
		}
	}

	return author, true
}

func (v *SignedDataValidator) reject(msg *types.SignedPayload, reason string, keyvals ...interface{}) bool {
	return reject(v.logger, msg, reason, keyvals...)
}

// reject logs why msg was refused and returns false.
func reject(logger log.Logger, msg *types.SignedPayload, reason string, keyvals ...interface{}) bool {
	kv := make([]interface{}, 0, 6+len(keyvals))
	kv = append(kv, "reason", reason, "type", msg.Type(), "round", msg.RoundIdentifier())
	logger.Debug("Invalid consensus message", append(kv, keyvals...)...)
	return false
}
