package types

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorSetBasics(t *testing.T) {
	vals, privs := RandValidatorSet(4)
	require.NoError(t, vals.ValidateBasic())
	require.Equal(t, 4, vals.Size())

	for i, pv := range privs {
		pub, err := pv.GetPubKey()
		require.NoError(t, err)
		addr := GetAddress(pub)

		assert.True(t, vals.HasAddress(addr))
		idx, val := vals.GetByAddress(addr)
		assert.Equal(t, int32(i), idx, "privs and validators share an order")
		assert.True(t, val.Address.Equal(addr))
	}

	assert.False(t, vals.HasAddress(Address("nobody")))
	idx, val := vals.GetByAddress(Address("nobody"))
	assert.Equal(t, int32(-1), idx)
	assert.Nil(t, val)

	q, err := vals.QuorumSize()
	require.NoError(t, err)
	assert.Equal(t, 3, q)
	p, err := vals.PrepareQuorum()
	require.NoError(t, err)
	assert.Equal(t, 2, p)
}

func TestValidatorSetGetProposerWraps(t *testing.T) {
	vals, _ := RandValidatorSet(3)
	addrs := vals.Addresses()

	for offset := int64(0); offset < 9; offset++ {
		assert.True(t, addrs[offset%3].Equal(vals.GetProposer(offset).Address))
	}
	assert.True(t, addrs[2].Equal(vals.GetProposer(-1).Address))

	assert.Nil(t, NewValidatorSet(nil).GetProposer(0))
}

func TestValidatorSetValidateBasic(t *testing.T) {
	assert.ErrorIs(t, NewValidatorSet(nil).ValidateBasic(), ErrEmptyValidatorSet)

	val, _ := RandValidator()
	dup := NewValidatorSet([]*Validator{val, val})
	assert.Error(t, dup.ValidateBasic())

	wrongAddr := val.Copy()
	wrongAddr.Address = Address("short")
	assert.Error(t, NewValidatorSet([]*Validator{wrongAddr}).ValidateBasic())

	other, _ := RandValidator()
	mismatched := val.Copy()
	mismatched.Address = other.Address
	assert.Error(t, NewValidatorSet([]*Validator{mismatched}).ValidateBasic())
}

func TestValidatorSetHashDependsOnOrder(t *testing.T) {
	a, _ := RandValidator()
	b, _ := RandValidator()

	ab := NewValidatorSet([]*Validator{a, b})
	ba := NewValidatorSet([]*Validator{b, a})
	assert.NotEqual(t, ab.Hash(), ba.Hash())
	assert.Equal(t, ab.Hash(), ab.Copy().Hash())
}

func TestGenesisDocSaveAndLoad(t *testing.T) {
	vals, _ := RandValidatorSet(4)
	genDoc := &GenesisDoc{ChainID: "genesis-test"}
	for i, v := range vals.Validators {
		genDoc.Validators = append(genDoc.Validators, GenesisValidator{
			PubKey: v.PubKey,
			Name:   string(rune('a' + i)),
		})
	}
	require.NoError(t, genDoc.ValidateAndComplete())
	assert.False(t, genDoc.GenesisTime.IsZero())

	file := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, genDoc.SaveAs(file))

	loaded, err := GenesisDocFromFile(file)
	require.NoError(t, err)
	assert.Equal(t, genDoc.ChainID, loaded.ChainID)
	assert.Equal(t, vals.Hash(), loaded.ValidatorSet().Hash())
	assert.Equal(t, genDoc.GenesisBlock().Hash(), loaded.GenesisBlock().Hash())
}

func TestGenesisDocRejectsBadInput(t *testing.T) {
	assert.Error(t, (&GenesisDoc{}).ValidateAndComplete())
	assert.ErrorIs(t, (&GenesisDoc{ChainID: "x"}).ValidateAndComplete(), ErrEmptyValidatorSet)

	val, _ := RandValidator()
	other, _ := RandValidator()
	genDoc := &GenesisDoc{ChainID: "x", Validators: []GenesisValidator{{Address: other.Address, PubKey: val.PubKey}}}
	assert.Error(t, genDoc.ValidateAndComplete())
}
