package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	"github.com/tendermint/tendermint/libs/log"

	"ibft_node/consensus/validation"
	mempl "ibft_node/mempool"
	"ibft_node/mempool/mock"
	"ibft_node/types"
)

func TestMakeGenesisState(t *testing.T) {
	c := newTestChain(t, 4)

	state, err := MakeGenesisState(c.genDoc)
	require.NoError(t, err)
	assert.Equal(t, testChainID, state.ChainID)
	assert.Equal(t, int64(0), state.LastBlockHeight)
	assert.Equal(t, c.genDoc.GenesisBlock().Hash(), state.LastBlockHash)
	assert.Equal(t, types.NewRoundIdentifier(1, 0), state.NextRound())
	assert.False(t, state.IsEmpty())

	_, err = MakeGenesisState(&types.GenesisDoc{})
	var invalid ErrInvalidGenesis
	assert.ErrorAs(t, err, &invalid)

	loaded, err := LoadState(c.store)
	require.NoError(t, err)
	assert.Equal(t, state.LastBlockHash, loaded.LastBlockHash)
	assert.Equal(t, state.Validators.Hash(), loaded.Validators.Hash())
}

func TestStateCopy(t *testing.T) {
	c := newTestChain(t, 4)
	state, err := MakeGenesisState(c.genDoc)
	require.NoError(t, err)

	cp := state.Copy()
	cp.LastBlockHash[0] ^= 0xff
	cp.LastHeader.Height = 42
	assert.NotEqual(t, state.LastBlockHash, cp.LastBlockHash)
	assert.Equal(t, int64(0), state.LastHeader.Height)
}

func TestApplyBlock(t *testing.T) {
	c := newTestChain(t, 4)
	exec := NewBlockExecutor(c.store, c.hv, mock.Mempool{})
	exec.SetLogger(log.TestingLogger())

	state, err := MakeGenesisState(c.genDoc)
	require.NoError(t, err)

	for height := int64(1); height <= 3; height++ {
		block := c.block(state.LastHeader, 0, types.Tx("tx"))
		state, err = exec.ApplyBlock(state, block, c.seals(t, block, 3))
		require.NoError(t, err)
		assert.Equal(t, height, state.LastBlockHeight)
		assert.Equal(t, block.Hash(), state.LastBlockHash)
	}

	latest, err := c.store.LatestHeader()
	require.NoError(t, err)
	assert.Equal(t, state.LastBlockHash, latest.Hash())

	loaded, err := LoadState(c.store)
	require.NoError(t, err)
	assert.Equal(t, int64(3), loaded.LastBlockHeight)
}

func TestApplyBlockPicksUpNextEpoch(t *testing.T) {
	c := newTestChain(t, 4)
	exec := NewBlockExecutor(c.store, c.hv, mock.Mempool{})
	state, err := MakeGenesisState(c.genDoc)
	require.NoError(t, err)

	next, _ := types.RandValidatorSet(5)
	require.NoError(t, c.store.SaveValidators(2, next))

	block := c.block(state.LastHeader, 0)
	state, err = exec.ApplyBlock(state, block, c.seals(t, block, 4))
	require.NoError(t, err)
	assert.Equal(t, next.Hash(), state.Validators.Hash())
}

func TestApplyBlockRejects(t *testing.T) {
	c := newTestChain(t, 4)
	exec := NewBlockExecutor(c.store, c.hv, mock.Mempool{})
	genesis, err := MakeGenesisState(c.genDoc)
	require.NoError(t, err)

	block := c.block(genesis.LastHeader, 0)
	seals := c.seals(t, block, 4)
	other := c.block(genesis.LastHeader, 1)

	t.Run("invalid block", func(t *testing.T) {
		bad := c.block(genesis.LastHeader, 0)
		bad.Header.ChainID = "other"
		state, err := exec.ApplyBlock(genesis, bad, c.seals(t, bad, 4))
		assert.ErrorIs(t, err, ErrBlockValidation)
		assert.Equal(t, genesis, state)
	})

	t.Run("below quorum", func(t *testing.T) {
		_, err := exec.ApplyBlock(genesis, block, seals[:2])
		var notEnough ErrNotEnoughCommitSeals
		require.ErrorAs(t, err, &notEnough)
		assert.Equal(t, 3, notEnough.Needed)
	})

	t.Run("seal over another block", func(t *testing.T) {
		mixed := append([]tmbytes.HexBytes{}, seals[:2]...)
		mixed = append(mixed, c.seals(t, other, 3)[2])
		_, err := exec.ApplyBlock(genesis, block, mixed)
		var invalid ErrInvalidCommitSeal
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, 2, invalid.Index)
	})

	t.Run("duplicate signer", func(t *testing.T) {
		_, err := exec.ApplyBlock(genesis, block, []tmbytes.HexBytes{seals[0], seals[1], seals[0]})
		var invalid ErrInvalidCommitSeal
		assert.ErrorAs(t, err, &invalid)
	})

	height, err := c.store.Height()
	require.NoError(t, err)
	assert.Equal(t, int64(0), height, "nothing was saved")
}

func TestProposalBlockFromMempool(t *testing.T) {
	c := newTestChain(t, 4)
	mempool := mempl.NewListMempool(mempl.DefaultConfig(), 0)
	exec := NewBlockExecutor(c.store, c.hv, mempool)
	state, err := MakeGenesisState(c.genDoc)
	require.NoError(t, err)

	for _, tx := range []string{"tx-1", "tx-2", "tx-3"} {
		require.NoError(t, mempool.CheckTx(types.Tx(tx), mempl.TxInfo{}))
	}

	round := state.NextRound()
	proposer := c.vals.GetProposer(round.Sequence).Address
	block := exec.CreateProposalBlock(state, round.Round, proposer, 8)
	require.Len(t, block.Data.Txs, 2)
	assert.Equal(t, types.Tx("tx-1"), block.Data.Txs[0])

	ok, err := c.hv.ValidateBlock(block, state.LastHeader, validation.FullValidation)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = exec.ApplyBlock(state, block, c.seals(t, block, 3))
	require.NoError(t, err)
	assert.Equal(t, types.Txs{types.Tx("tx-3")}, mempool.ReapMaxTxs(-1))
}
