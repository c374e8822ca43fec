package validation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"ibft_node/types"
)

const testChainID = "validation-test"

type proposerFunc func(round types.RoundIdentifier, vals *types.ValidatorSet) types.Address

func (f proposerFunc) SelectProposer(round types.RoundIdentifier, vals *types.ValidatorSet) types.Address {
	return f(round, vals)
}

var roundRobin = proposerFunc(func(round types.RoundIdentifier, vals *types.ValidatorSet) types.Address {
	return vals.GetProposer(round.Sequence + int64(round.Round)).Address
})

type blockValidatorFunc func(block *types.Block, parent *types.Header, mode BlockValidationMode) (bool, error)

func (f blockValidatorFunc) ValidateBlock(block *types.Block, parent *types.Header, mode BlockValidationMode) (bool, error) {
	return f(block, parent, mode)
}

var acceptAllBlocks = blockValidatorFunc(func(*types.Block, *types.Header, BlockValidationMode) (bool, error) {
	return true, nil
})

var errOracle = errors.New("block oracle unavailable")

type validatorsFunc func(height int64) (*types.ValidatorSet, error)

func (f validatorsFunc) ValidatorsAt(height int64) (*types.ValidatorSet, error) {
	return f(height)
}

// fixture is a chain of n validators whose parent block sits just below
// height.
type fixture struct {
	vals      *types.ValidatorSet
	factories []*types.MessageFactory
	parent    *types.Header
	blocks    BlockValidator
	logger    log.Logger
}

func newFixture(t *testing.T, n int, height int64) *fixture {
	vals, privs := types.RandValidatorSet(n)
	factories := make([]*types.MessageFactory, len(privs))
	for i, pv := range privs {
		factories[i] = types.NewMessageFactory(pv)
	}

	parent := types.MakeGenesisBlock(testChainID, time.Now().UTC(), vals).Header
	for h := int64(1); h < height; h++ {
		proposer := roundRobin(types.NewRoundIdentifier(h, 0), vals)
		parent = types.MakeBlock(&parent, 0, proposer, vals, nil).Header
	}

	return &fixture{
		vals:      vals,
		factories: factories,
		parent:    &parent,
		blocks:    acceptAllBlocks,
		logger:    log.TestingLogger(),
	}
}

func (f *fixture) factory() *MessageValidatorFactory {
	factory := NewMessageValidatorFactory(roundRobin, validatorsFunc(func(int64) (*types.ValidatorSet, error) {
		return f.vals, nil
	}), f.blocks)
	factory.SetLogger(f.logger)
	return factory
}

func (f *fixture) round(round int32) types.RoundIdentifier {
	return types.NewRoundIdentifier(f.parent.Height+1, round)
}

func (f *fixture) view(t *testing.T, round int32) RoundView {
	view, err := f.factory().RoundView(f.round(round), f.parent)
	require.NoError(t, err)
	return view
}

func (f *fixture) proposerIndex(round types.RoundIdentifier) int {
	idx, _ := f.vals.GetByAddress(roundRobin(round, f.vals))
	return int(idx)
}

func (f *fixture) proposer(round types.RoundIdentifier) *types.MessageFactory {
	return f.factories[f.proposerIndex(round)]
}

// others returns the factories of every validator except the proposer of
// round.
func (f *fixture) others(round types.RoundIdentifier) []*types.MessageFactory {
	skip := f.proposerIndex(round)
	others := make([]*types.MessageFactory, 0, len(f.factories)-1)
	for i, mf := range f.factories {
		if i != skip {
			others = append(others, mf)
		}
	}
	return others
}

func (f *fixture) block(round types.RoundIdentifier, tag string) *types.Block {
	proposer := roundRobin(round, f.vals)
	return types.MakeBlock(f.parent, round.Round, proposer, f.vals, []types.Tx{types.Tx(tag)})
}

func (f *fixture) proposal(t *testing.T, round types.RoundIdentifier, block *types.Block) *types.SignedPayload {
	msg, err := f.proposer(round).CreateProposal(round, block)
	require.NoError(t, err)
	return msg
}

func (f *fixture) prepared(t *testing.T, round types.RoundIdentifier, prepares int) *types.PreparedRoundArtifacts {
	block := f.block(round, fmt.Sprintf("prepared-%v", round))
	proposal := f.proposal(t, round, block)

	others := f.others(round)
	require.LessOrEqual(t, prepares, len(others))
	artifacts := &types.PreparedRoundArtifacts{Proposal: proposal}
	for _, mf := range others[:prepares] {
		prepare, err := mf.CreatePrepare(round, block.Hash())
		require.NoError(t, err)
		artifacts.Prepares = append(artifacts.Prepares, prepare)
	}
	return artifacts
}

func (f *fixture) roundChange(
	t *testing.T,
	mf *types.MessageFactory,
	target types.RoundIdentifier,
	prepared *types.PreparedRoundArtifacts,
) *types.SignedPayload {
	msg, err := mf.CreateRoundChange(target, prepared)
	require.NoError(t, err)
	return msg
}

// certificate returns size ROUND-CHANGEs for target from distinct
// validators without prepared certificates.
func (f *fixture) certificate(t *testing.T, target types.RoundIdentifier, size int) types.RoundChangeCertificate {
	require.LessOrEqual(t, size, len(f.factories))
	var cert types.RoundChangeCertificate
	for _, mf := range f.factories[:size] {
		cert.RoundChanges = append(cert.RoundChanges, f.roundChange(t, mf, target, nil))
	}
	return cert
}

func (f *fixture) newRound(
	t *testing.T,
	round types.RoundIdentifier,
	cert types.RoundChangeCertificate,
	block *types.Block,
) *types.SignedPayload {
	mf := f.proposer(round)
	proposal, err := mf.CreateProposal(round, block)
	require.NoError(t, err)
	msg, err := mf.CreateNewRound(round, cert, proposal)
	require.NoError(t, err)
	return msg
}

func seenOnly(msgType types.MessageType, author types.Address) func(types.MessageType, types.Address) bool {
	return func(t types.MessageType, a types.Address) bool {
		return t == msgType && a.Equal(author)
	}
}
