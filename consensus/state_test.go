package consensus

import (
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/events"
	"github.com/tendermint/tendermint/libs/log"
	tmtime "github.com/tendermint/tendermint/types/time"
	"github.com/tendermint/tm-db/memdb"

	cstypes "ibft_node/consensus/types"
	"ibft_node/consensus/validation"
	"ibft_node/libs/metric"
	"ibft_node/mempool/mock"
	sm "ibft_node/state"
	"ibft_node/store"
	"ibft_node/types"
)

const (
	testChainID  = "consensus-test"
	eventTimeout = 5 * time.Second
)

type testNode struct {
	genDoc    *types.GenesisDoc
	vals      *types.ValidatorSet
	factories []*types.MessageFactory
	store     *store.ChainStore
	blocks    *sm.HeaderValidator
	metrics   *metric.MetricSet
	cs        *ConsensusState
}

func newTestNode(t *testing.T, n int) *testNode {
	vals, privs := types.RandValidatorSet(n)
	genDoc := &types.GenesisDoc{ChainID: testChainID, GenesisTime: tmtime.Now()}
	factories := make([]*types.MessageFactory, n)
	for i, v := range vals.Validators {
		genDoc.Validators = append(genDoc.Validators, types.GenesisValidator{PubKey: v.PubKey})
		factories[i] = types.NewMessageFactory(privs[i])
	}
	require.NoError(t, genDoc.ValidateAndComplete())

	chain := store.NewChainStoreWithDB(memdb.NewDB())
	t.Cleanup(func() { chain.Close() })
	require.NoError(t, chain.SaveGenesis(genDoc))

	proposers := NewRoundRobinProposerSelector()
	blocks := sm.NewHeaderValidator(testChainID, chain, proposers)
	factory := validation.NewMessageValidatorFactory(proposers, chain, blocks)

	metrics := metric.NewMetricSet()
	genesis := genDoc.GenesisBlock()
	cs, err := NewConsensusState(factory, &genesis.Header, WithPrivValidator(privs[0]), WithMetricSet(metrics))
	require.NoError(t, err)
	cs.SetLogger(log.TestingLogger())

	return &testNode{
		genDoc:    genDoc,
		vals:      vals,
		factories: factories,
		store:     chain,
		blocks:    blocks,
		metrics:   metrics,
		cs:        cs,
	}
}

func (tn *testNode) parent() *types.Header {
	return &tn.genDoc.GenesisBlock().Header
}

func (tn *testNode) proposerIndex(round types.RoundIdentifier) int {
	idx, _ := tn.vals.GetByAddress(NewRoundRobinProposerSelector().SelectProposer(round, tn.vals))
	return int(idx)
}

func (tn *testNode) block(round types.RoundIdentifier, txs ...types.Tx) *types.Block {
	proposer := NewRoundRobinProposerSelector().SelectProposer(round, tn.vals)
	return types.MakeBlock(tn.parent(), round.Round, proposer, tn.vals, txs)
}

// subscribe forwards every event fired under name to the returned channel.
func (tn *testNode) subscribe(name string) <-chan events.EventData {
	ch := make(chan events.EventData, 10)
	tn.cs.EventSwitch().AddListenerForEvent("test", name, func(data events.EventData) {
		ch <- data
	})
	return ch
}

func (tn *testNode) send(t *testing.T, msgs ...*types.SignedPayload) {
	for _, msg := range msgs {
		require.True(t, tn.cs.ReceiveMessage(msg, "peer"))
	}
}

func waitEvent(t *testing.T, ch <-chan events.EventData) events.EventData {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, ch <-chan events.EventData) {
	t.Helper()
	select {
	case data := <-ch:
		t.Fatalf("unexpected event %v", data)
	default:
	}
}

func TestConsensusStateCommitsBlock(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	tn := newTestNode(t, 4)
	proposals := tn.subscribe(EventProposalAccepted)
	prepared := tn.subscribe(EventPrepared)
	committed := tn.subscribe(EventCommitted)

	require.NoError(t, tn.cs.Start())
	defer tn.cs.Stop()

	round := types.NewRoundIdentifier(1, 0)
	assert.Equal(t, round, tn.cs.RoundIdentifier())
	assert.Equal(t, cstypes.RoundStepPropose, tn.cs.Step())

	proposerIdx := tn.proposerIndex(round)
	proposer := tn.factories[proposerIdx]
	block := tn.block(round, types.Tx("a"), types.Tx("b"))

	// A proposal from anyone else is rejected.
	usurper := tn.factories[(proposerIdx+1)%4]
	bad, err := usurper.CreateProposal(round, block)
	require.NoError(t, err)
	proposal, err := proposer.CreateProposal(round, block)
	require.NoError(t, err)
	tn.send(t, bad, proposal)

	accepted := waitEvent(t, proposals).(*types.SignedPayload)
	assert.Equal(t, block.Hash(), accepted.ProposedBlock().Hash())

	// The proposer's own prepare does not count.
	own, err := proposer.CreatePrepare(round, block.Hash())
	require.NoError(t, err)
	tn.send(t, own)

	var others []*types.MessageFactory
	for i, mf := range tn.factories {
		if i != proposerIdx {
			others = append(others, mf)
		}
	}
	for _, mf := range others[:2] {
		prepare, err := mf.CreatePrepare(round, block.Hash())
		require.NoError(t, err)
		tn.send(t, prepare)
	}

	cert := waitEvent(t, prepared).(*types.PreparedRoundArtifacts)
	assert.Len(t, cert.Prepares, 2)
	assert.Equal(t, cstypes.RoundStepCommit, tn.cs.Step())
	assert.NotNil(t, tn.cs.PreparedCertificate())
	assert.Equal(t, int64(1), tn.cs.metric.MessageCount(types.PrepareMessage, false))
	assert.Equal(t, int64(1), tn.cs.metric.MessageCount(types.ProposalMessage, false))

	// The third prepare arrives after the round is prepared; no second event.
	late, err := others[2].CreatePrepare(round, block.Hash())
	require.NoError(t, err)
	tn.send(t, late)

	// Commits may come from the proposer too.
	for _, mf := range []*types.MessageFactory{proposer, others[0], others[1]} {
		commit, err := mf.CreateCommit(round, block.Hash())
		require.NoError(t, err)
		tn.send(t, commit)
	}

	result := waitEvent(t, committed).(*CommittedBlock)
	assert.Equal(t, round, result.Round)
	assert.Equal(t, block.Hash(), result.Block.Hash())
	assert.Len(t, result.CommitSeals, 3)
	assert.Equal(t, cstypes.RoundStepCommitted, tn.cs.Step())
	assertNoEvent(t, prepared)

	// The seals are enough for the executor to commit the block.
	state, err := sm.MakeGenesisState(tn.genDoc)
	require.NoError(t, err)
	state, err = sm.NewBlockExecutor(tn.store, tn.blocks, mock.Mempool{}).ApplyBlock(state, result.Block, result.CommitSeals)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.LastBlockHeight)

	var status consensusStatus
	require.NoError(t, jsoniter.UnmarshalFromString(tn.metrics.GetMetrics(MetricLabel).JSONString(), &status))
	assert.Equal(t, int64(1), status.Height)
	assert.Equal(t, int64(1), status.LastCommittedHeight)
	assert.Equal(t, cstypes.RoundStepCommitted.String(), status.Step)
	assert.Equal(t, int64(3), status.Messages["Commit.accepted"])
}

func TestConsensusStateRoundChange(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	tn := newTestNode(t, 4)
	quorums := tn.subscribe(EventRoundChangeQuorum)
	newRounds := tn.subscribe(EventNewRound)

	require.NoError(t, tn.cs.Start())
	defer tn.cs.Stop()

	target := types.NewRoundIdentifier(1, 1)

	// Round changes for the current round and other heights are ignored.
	stale, err := tn.factories[0].CreateRoundChange(types.NewRoundIdentifier(1, 0), nil)
	require.NoError(t, err)
	future, err := tn.factories[0].CreateRoundChange(types.NewRoundIdentifier(2, 1), nil)
	require.NoError(t, err)
	tn.send(t, stale, future)

	var roundChanges []*types.SignedPayload
	for _, mf := range tn.factories[:3] {
		rc, err := mf.CreateRoundChange(target, nil)
		require.NoError(t, err)
		roundChanges = append(roundChanges, rc)
	}
	// A duplicate does not count towards the quorum.
	tn.send(t, roundChanges[0], roundChanges[0], roundChanges[1])
	tn.send(t, roundChanges[2])

	quorum := waitEvent(t, quorums).(*RoundChangeQuorum)
	assert.Equal(t, target, quorum.Target)
	assert.False(t, quorum.Artifacts.HasBlock())
	assert.Equal(t, 3, quorum.Artifacts.Certificate.Size())
	assert.Equal(t, int64(1), tn.cs.metric.MessageCount(types.RoundChangeMessage, false))

	proposer := tn.factories[tn.proposerIndex(target)]
	proposal, err := proposer.CreateProposal(target, tn.block(target, types.Tx("r1")))
	require.NoError(t, err)
	newRound, err := proposer.CreateNewRound(target, quorum.Artifacts.Certificate, proposal)
	require.NoError(t, err)
	tn.send(t, newRound)

	entered := waitEvent(t, newRounds).(types.RoundIdentifier)
	assert.Equal(t, target, entered)
	assert.Equal(t, target, tn.cs.RoundIdentifier())
	assert.Equal(t, cstypes.RoundStepPrepare, tn.cs.Step())
	assert.Nil(t, tn.cs.PreparedCertificate())

	// Replaying the NEW-ROUND for the round we are in is ignored.
	tn.send(t, newRound)
	assertNoEvent(t, newRounds)
}

// A node keeps carrying the certificate of an earlier prepared round after
// it moves on, until a later round prepares.
func TestPreparedCertificateSurvivesRoundChange(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	tn := newTestNode(t, 4)
	prepared := tn.subscribe(EventPrepared)
	quorums := tn.subscribe(EventRoundChangeQuorum)
	newRounds := tn.subscribe(EventNewRound)

	require.NoError(t, tn.cs.Start())
	defer tn.cs.Stop()

	prepare := func(round types.RoundIdentifier, block *types.Block) {
		proposerIdx := tn.proposerIndex(round)
		sent := 0
		for i, mf := range tn.factories {
			if i == proposerIdx || sent == 2 {
				continue
			}
			msg, err := mf.CreatePrepare(round, block.Hash())
			require.NoError(t, err)
			tn.send(t, msg)
			sent++
		}
	}

	round0 := types.NewRoundIdentifier(1, 0)
	block := tn.block(round0, types.Tx("kept"))
	proposal, err := tn.factories[tn.proposerIndex(round0)].CreateProposal(round0, block)
	require.NoError(t, err)
	tn.send(t, proposal)
	prepare(round0, block)

	first := waitEvent(t, prepared).(*types.PreparedRoundArtifacts)
	require.NotNil(t, tn.cs.PreparedCertificate())
	assert.Equal(t, round0, tn.cs.PreparedCertificate().PreparedRound())

	target := types.NewRoundIdentifier(1, 1)
	var roundChanges []*types.SignedPayload
	for i, mf := range tn.factories[:3] {
		var carried *types.PreparedRoundArtifacts
		if i == 0 {
			carried = first
		}
		rc, err := mf.CreateRoundChange(target, carried)
		require.NoError(t, err)
		roundChanges = append(roundChanges, rc)
	}
	tn.send(t, roundChanges...)

	quorum := waitEvent(t, quorums).(*RoundChangeQuorum)
	require.True(t, quorum.Artifacts.HasBlock())
	assert.Equal(t, block.Hash(), quorum.Artifacts.Block.Hash())

	proposer := tn.factories[tn.proposerIndex(target)]
	reproposal, err := proposer.CreateProposal(target, quorum.Artifacts.Block)
	require.NoError(t, err)
	newRound, err := proposer.CreateNewRound(target, quorum.Artifacts.Certificate, reproposal)
	require.NoError(t, err)
	tn.send(t, newRound)
	assert.Equal(t, target, waitEvent(t, newRounds).(types.RoundIdentifier))

	cert := tn.cs.PreparedCertificate()
	require.NotNil(t, cert, "round 0 certificate must outlive the round")
	assert.Equal(t, round0, cert.PreparedRound())
	assert.Equal(t, block.Hash(), cert.Proposal.ProposedBlock().Hash())

	// Once the new round prepares its certificate takes over.
	prepare(target, block)
	second := waitEvent(t, prepared).(*types.PreparedRoundArtifacts)
	assert.Equal(t, target, second.PreparedRound())
	assert.Equal(t, target, tn.cs.PreparedCertificate().PreparedRound())
}

func TestNewConsensusStateErrors(t *testing.T) {
	tn := newTestNode(t, 4)
	factory := validation.NewMessageValidatorFactory(NewRoundRobinProposerSelector(), tn.store, tn.blocks)

	_, err := NewConsensusState(factory, nil)
	assert.ErrorIs(t, err, ErrNilParent)

	metrics := metric.NewMetricSet()
	_, err = NewConsensusState(factory, tn.parent(), WithMetricSet(metrics))
	require.NoError(t, err)
	_, err = NewConsensusState(factory, tn.parent(), WithMetricSet(metrics))
	assert.Error(t, err, "metric label taken")
}
