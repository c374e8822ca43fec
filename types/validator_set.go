// fork from github.com/tendermint/tendermint/types/validator_set.go
package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tendermint/tendermint/crypto/merkle"
)

// ValidatorSet represent the ordered set of *Validator at a given height.
//
// The validators can be fetched by address or index. The order is the one
// the set was created with and is fixed for all rounds of a given height;
// proposer selection indexes into it.
//
// A ValidatorSet is a read-only snapshot once handed to the consensus
// engine. All getters return copies.
type ValidatorSet struct {
	// NOTE: persisted via reflect, must be exported.
	Validators []*Validator `json:"validators"`
}

// NewValidatorSet initializes a ValidatorSet by copying over the values from
// `valz`, a list of Validators. If valz is nil or empty, the new ValidatorSet
// will have an empty list of Validators.
//
// Duplicate addresses are only detected by ValidateBasic.
func NewValidatorSet(valz []*Validator) *ValidatorSet {
	vals := &ValidatorSet{}
	vals.Validators = validatorListCopy(valz)
	if vals.Validators == nil {
		vals.Validators = []*Validator{}
	}
	return vals
}

func (vals *ValidatorSet) ValidateBasic() error {
	if vals.IsNilOrEmpty() {
		return ErrEmptyValidatorSet
	}

	seen := make(map[string]struct{}, len(vals.Validators))
	for idx, val := range vals.Validators {
		if err := val.ValidateBasic(); err != nil {
			return fmt.Errorf("invalid validator #%d: %w", idx, err)
		}
		key := string(val.Address)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate validator #%d: %v", idx, val.Address)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// IsNilOrEmpty returns true if validator set is nil or empty.
func (vals *ValidatorSet) IsNilOrEmpty() bool {
	return vals == nil || len(vals.Validators) == 0
}

// Makes a copy of the validator list.
func validatorListCopy(valsList []*Validator) []*Validator {
	if valsList == nil {
		return nil
	}
	valsCopy := make([]*Validator, len(valsList))
	for i, val := range valsList {
		valsCopy[i] = val.Copy()
	}
	return valsCopy
}

// Copy each validator into a new ValidatorSet.
func (vals *ValidatorSet) Copy() *ValidatorSet {
	return &ValidatorSet{
		Validators: validatorListCopy(vals.Validators),
	}
}

// HasAddress returns true if address given is in the validator set, false -
// otherwise.
func (vals *ValidatorSet) HasAddress(address Address) bool {
	if vals == nil {
		return false
	}
	for _, val := range vals.Validators {
		if val.Address.Equal(address) {
			return true
		}
	}
	return false
}

// GetByAddress returns an index of the validator with address and validator
// itself (copy) if found. Otherwise, -1 and nil are returned.
func (vals *ValidatorSet) GetByAddress(address Address) (index int32, val *Validator) {
	for idx, val := range vals.Validators {
		if val.Address.Equal(address) {
			return int32(idx), val.Copy()
		}
	}
	return -1, nil
}

// GetByIndex returns the validator's address and validator itself (copy) by
// index.
// It returns nil values if index is less than 0 or greater or equal to
// len(ValidatorSet.Validators).
func (vals *ValidatorSet) GetByIndex(index int32) (address Address, val *Validator) {
	if index < 0 || int(index) >= len(vals.Validators) {
		return nil, nil
	}
	val = vals.Validators[index]
	return val.Address, val.Copy()
}

// Size returns the length of the validator set.
func (vals *ValidatorSet) Size() int {
	if vals == nil {
		return 0
	}
	return len(vals.Validators)
}

// Addresses returns the validator addresses in set order.
func (vals *ValidatorSet) Addresses() []Address {
	addrs := make([]Address, 0, vals.Size())
	for _, val := range vals.Validators {
		addrs = append(addrs, val.Address)
	}
	return addrs
}

// GetProposer returns the validator at position offset modulo the set size.
// If the validator set is empty, nil is returned.
func (vals *ValidatorSet) GetProposer(offset int64) (proposer *Validator) {
	if vals.IsNilOrEmpty() {
		return nil
	}
	n := int64(len(vals.Validators))
	idx := offset % n
	if idx < 0 {
		idx += n
	}

	return vals.Validators[idx].Copy()
}

// QuorumSize is the number of distinct validator signatures needed to
// certify an agreement in this set.
func (vals *ValidatorSet) QuorumSize() (int, error) {
	return QuorumSize(vals.Size())
}

// PrepareQuorum is the number of PREPARE messages that, with the PROPOSAL,
// reach quorum in this set.
func (vals *ValidatorSet) PrepareQuorum() (int, error) {
	return PrepareMessageCountForQuorum(vals.Size())
}

// Hash returns the Merkle root hash build using validators (as leaves) in the
// set.
func (vals *ValidatorSet) Hash() []byte {
	if vals == nil {
		return merkle.HashFromByteSlices(nil)
	}
	bzs := make([][]byte, len(vals.Validators))
	for i, val := range vals.Validators {
		bzs[i] = val.Bytes()
	}
	return merkle.HashFromByteSlices(bzs)
}

// Iterate will run the given function over the set.
func (vals *ValidatorSet) Iterate(fn func(index int, val *Validator) bool) {
	for i, val := range vals.Validators {
		stop := fn(i, val.Copy())
		if stop {
			break
		}
	}
}

//----------------

// String returns a string representation of ValidatorSet.
//
// See StringIndented.
func (vals *ValidatorSet) String() string {
	return vals.StringIndented("")
}

// StringIndented returns an intended String.
//
// See Validator#String.
func (vals *ValidatorSet) StringIndented(indent string) string {
	if vals == nil {
		return "nil-ValidatorSet"
	}
	var valStrings []string
	vals.Iterate(func(index int, val *Validator) bool {
		valStrings = append(valStrings, val.String())
		return false
	})
	return fmt.Sprintf(`ValidatorSet{
%s  Validators:
%s    %v
%s}`,
		indent,
		indent, strings.Join(valStrings, "\n"+indent+"    "),
		indent)

}

//----------------------------------------

// RandValidatorSet returns a randomized validator set (size: +numValidators+)
// ordered by address, and the matching private validators in the same order.
//
// EXPOSED FOR TESTING.
func RandValidatorSet(numValidators int) (*ValidatorSet, []PrivValidator) {
	var (
		valz           = make([]*Validator, numValidators)
		privValidators = make([]PrivValidator, numValidators)
	)

	for i := 0; i < numValidators; i++ {
		val, privValidator := RandValidator()
		valz[i] = val
		privValidators[i] = privValidator
	}

	sort.Sort(PrivValidatorsByAddress(privValidators))
	sort.Slice(valz, func(i, j int) bool {
		return valz[i].Address.Compare(valz[j].Address) < 0
	})

	return NewValidatorSet(valz), privValidators
}
