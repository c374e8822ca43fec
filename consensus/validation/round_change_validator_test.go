package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibft_node/types"
)

func TestValidateRoundChangeWithoutCertificate(t *testing.T) {
	f := newFixture(t, 4, 5)
	target := f.round(2)
	view := f.view(t, 2)
	rcv := f.factory().CreateRoundChangeValidator()

	// Any validator may ask for a round change.
	for _, mf := range f.factories {
		ok, err := rcv.ValidateRoundChange(view, f.roundChange(t, mf, target, nil))
		require.NoError(t, err)
		assert.True(t, ok)
	}

	// The message must be bound to the target round, not the sender's.
	ok, err := rcv.ValidateRoundChange(view, f.roundChange(t, f.factories[0], f.round(1), nil))
	require.NoError(t, err)
	assert.False(t, ok)

	outsider := types.NewMessageFactory(types.NewMockPV())
	ok, err = rcv.ValidateRoundChange(view, f.roundChange(t, outsider, target, nil))
	require.NoError(t, err)
	assert.False(t, ok)

	rc := f.roundChange(t, f.factories[1], target, nil)
	dup := view
	dup.Seen = seenOnly(types.RoundChangeMessage, rc.Author())
	ok, err = rcv.ValidateRoundChange(dup, rc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateRoundChangePrepareCountBoundary(t *testing.T) {
	for _, n := range []int{4, 7} {
		f := newFixture(t, n, 5)
		target := f.round(3)
		view := f.view(t, 3)
		rcv := f.factory().CreateRoundChangeValidator()

		need, err := types.PrepareMessageCountForQuorum(n)
		require.NoError(t, err)

		short := f.prepared(t, f.round(1), need-1)
		ok, err := rcv.ValidateRoundChange(view, f.roundChange(t, f.factories[0], target, short))
		require.NoError(t, err)
		assert.False(t, ok, "n=%d with %d prepares", n, need-1)

		enough := f.prepared(t, f.round(1), need)
		ok, err = rcv.ValidateRoundChange(view, f.roundChange(t, f.factories[0], target, enough))
		require.NoError(t, err)
		assert.True(t, ok, "n=%d with %d prepares", n, need)
	}
}

func TestValidateRoundChangeRejectsBadPreparedCertificate(t *testing.T) {
	f := newFixture(t, 4, 5)
	target := f.round(3)
	preparedRound := f.round(1)
	need, err := f.vals.PrepareQuorum()
	require.NoError(t, err)

	tests := []struct {
		name     string
		prepared func(t *testing.T) *types.PreparedRoundArtifacts
	}{
		{"same round as target", func(t *testing.T) *types.PreparedRoundArtifacts {
			return f.prepared(t, target, need)
		}},
		{"later round than target", func(t *testing.T) *types.PreparedRoundArtifacts {
			return f.prepared(t, f.round(4), need)
		}},
		{"other height", func(t *testing.T) *types.PreparedRoundArtifacts {
			prepared := f.prepared(t, preparedRound, need)
			other := types.NewRoundIdentifier(target.Sequence-1, 1)
			proposal, err := f.proposer(other).CreateProposal(other, prepared.Proposal.ProposedBlock())
			require.NoError(t, err)
			prepared.Proposal = proposal
			return prepared
		}},
		{"proposal from non-proposer", func(t *testing.T) *types.PreparedRoundArtifacts {
			prepared := f.prepared(t, preparedRound, need)
			proposal, err := f.others(preparedRound)[0].CreateProposal(preparedRound, prepared.Proposal.ProposedBlock())
			require.NoError(t, err)
			prepared.Proposal = proposal
			return prepared
		}},
		{"prepare for another block", func(t *testing.T) *types.PreparedRoundArtifacts {
			prepared := f.prepared(t, preparedRound, need)
			other := f.block(preparedRound, "other")
			prepare, err := f.others(preparedRound)[need].CreatePrepare(preparedRound, other.Hash())
			require.NoError(t, err)
			prepared.Prepares[0] = prepare
			return prepared
		}},
		{"prepare for another round", func(t *testing.T) *types.PreparedRoundArtifacts {
			prepared := f.prepared(t, preparedRound, need)
			digest := prepared.Proposal.ProposedBlock().Hash()
			prepare, err := f.others(preparedRound)[need].CreatePrepare(f.round(2), digest)
			require.NoError(t, err)
			prepared.Prepares[0] = prepare
			return prepared
		}},
		{"prepare from proposer", func(t *testing.T) *types.PreparedRoundArtifacts {
			prepared := f.prepared(t, preparedRound, need)
			digest := prepared.Proposal.ProposedBlock().Hash()
			prepare, err := f.proposer(preparedRound).CreatePrepare(preparedRound, digest)
			require.NoError(t, err)
			prepared.Prepares[0] = prepare
			return prepared
		}},
		{"duplicate prepare signer", func(t *testing.T) *types.PreparedRoundArtifacts {
			prepared := f.prepared(t, preparedRound, need)
			prepared.Prepares[1] = prepared.Prepares[0]
			return prepared
		}},
		{"commit in place of prepare", func(t *testing.T) *types.PreparedRoundArtifacts {
			prepared := f.prepared(t, preparedRound, need)
			digest := prepared.Proposal.ProposedBlock().Hash()
			commit, err := f.others(preparedRound)[0].CreateCommit(preparedRound, digest)
			require.NoError(t, err)
			prepared.Prepares[0] = commit
			return prepared
		}},
		{"no proposal", func(t *testing.T) *types.PreparedRoundArtifacts {
			prepared := f.prepared(t, preparedRound, need)
			prepared.Proposal = nil
			return prepared
		}},
	}

	rcv := f.factory().CreateRoundChangeValidator()
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rc := f.roundChange(t, f.factories[0], target, tc.prepared(t))
			ok, err := rcv.ValidateRoundChange(f.view(t, 3), rc)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestValidateRoundChangePreparedBlockGoesThroughOracle(t *testing.T) {
	f := newFixture(t, 4, 5)
	target := f.round(2)
	need, err := f.vals.PrepareQuorum()
	require.NoError(t, err)
	rc := f.roundChange(t, f.factories[0], target, f.prepared(t, f.round(1), need))

	f.blocks = blockValidatorFunc(func(*types.Block, *types.Header, BlockValidationMode) (bool, error) {
		return false, nil
	})
	ok, err := f.factory().CreateRoundChangeValidator().ValidateRoundChange(f.view(t, 2), rc)
	require.NoError(t, err)
	assert.False(t, ok)

	f.blocks = blockValidatorFunc(func(*types.Block, *types.Header, BlockValidationMode) (bool, error) {
		return false, errOracle
	})
	_, err = f.factory().CreateRoundChangeValidator().ValidateRoundChange(f.view(t, 2), rc)
	assert.ErrorIs(t, err, errOracle)

	// Without a prepared block there is nothing to ask the oracle.
	ok, err = f.factory().CreateRoundChangeValidator().ValidateRoundChange(f.view(t, 2), f.roundChange(t, f.factories[0], target, nil))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateRoundChangeCertificate(t *testing.T) {
	f := newFixture(t, 4, 5)
	target := f.round(1)
	view := f.view(t, 1)
	cv := f.factory().CreateRoundChangeCertificateValidator()

	quorum, err := f.vals.QuorumSize()
	require.NoError(t, err)

	ok, err := cv.ValidateCertificate(view, f.certificate(t, target, quorum))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cv.ValidateCertificate(view, f.certificate(t, target, len(f.factories)))
	require.NoError(t, err)
	assert.True(t, ok)

	// Every message is valid on its own, but there are too few.
	ok, err = cv.ValidateCertificate(view, f.certificate(t, target, quorum-1))
	require.NoError(t, err)
	assert.False(t, ok)

	t.Run("duplicate signer", func(t *testing.T) {
		cert := f.certificate(t, target, quorum)
		cert.RoundChanges = append(cert.RoundChanges[:quorum-1], cert.RoundChanges[0])
		ok, err := cv.ValidateCertificate(view, cert)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("mixed target rounds", func(t *testing.T) {
		cert := f.certificate(t, target, quorum)
		cert.RoundChanges[1] = f.roundChange(t, f.factories[1], f.round(2), nil)
		ok, err := cv.ValidateCertificate(view, cert)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("one invalid message", func(t *testing.T) {
		cert := f.certificate(t, target, quorum)
		outsider := types.NewMessageFactory(types.NewMockPV())
		cert.RoundChanges[2] = f.roundChange(t, outsider, target, nil)
		ok, err := cv.ValidateCertificate(view, cert)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("seen filter ignored", func(t *testing.T) {
		cert := f.certificate(t, target, quorum)
		seen := view
		seen.Seen = func(types.MessageType, types.Address) bool { return true }
		ok, err := cv.ValidateCertificate(seen, cert)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("empty validator set", func(t *testing.T) {
		empty := view
		empty.Validators = nil
		_, err := cv.ValidateCertificate(empty, f.certificate(t, target, quorum))
		assert.ErrorIs(t, err, types.ErrEmptyValidatorSet)
	})
}
