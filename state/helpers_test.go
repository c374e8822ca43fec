package state

import (
	"testing"

	"github.com/stretchr/testify/require"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	tmtime "github.com/tendermint/tendermint/types/time"
	"github.com/tendermint/tm-db/memdb"

	"ibft_node/consensus"
	"ibft_node/store"
	"ibft_node/types"
)

const testChainID = "state-test"

type testChain struct {
	genDoc *types.GenesisDoc
	vals   *types.ValidatorSet
	privs  []types.PrivValidator
	store  *store.ChainStore
	hv     *HeaderValidator
}

func newTestChain(t *testing.T, n int) *testChain {
	vals, privs := types.RandValidatorSet(n)
	genDoc := &types.GenesisDoc{ChainID: testChainID, GenesisTime: tmtime.Now()}
	for _, v := range vals.Validators {
		genDoc.Validators = append(genDoc.Validators, types.GenesisValidator{PubKey: v.PubKey})
	}
	require.NoError(t, genDoc.ValidateAndComplete())

	cs := store.NewChainStoreWithDB(memdb.NewDB())
	t.Cleanup(func() { cs.Close() })
	require.NoError(t, cs.SaveGenesis(genDoc))

	return &testChain{
		genDoc: genDoc,
		vals:   vals,
		privs:  privs,
		store:  cs,
		hv:     NewHeaderValidator(testChainID, cs, consensus.NewRoundRobinProposerSelector()),
	}
}

// block builds a valid block for round on top of parent.
func (c *testChain) block(parent *types.Header, round int32, txs ...types.Tx) *types.Block {
	proposer := c.vals.GetProposer(parent.Height + 1 + int64(round))
	return types.MakeBlock(parent, round, proposer.Address, c.vals, txs)
}

func (c *testChain) seals(t *testing.T, block *types.Block, n int) []tmbytes.HexBytes {
	seals := make([]tmbytes.HexBytes, 0, n)
	for _, pv := range c.privs[:n] {
		seal, err := pv.SignCommitSeal(block.Hash())
		require.NoError(t, err)
		seals = append(seals, seal)
	}
	return seals
}
