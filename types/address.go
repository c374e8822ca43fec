package types

import (
	"bytes"

	"github.com/tendermint/tendermint/crypto"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// Address identifies a validator. It is derived from the validator's public key.
type Address crypto.Address

func GetAddress(key crypto.PubKey) Address {
	return Address(key.Address())
}

func (addr Address) Equal(other Address) bool {
	if addr == nil || other == nil {
		return false
	}
	return bytes.Equal(crypto.Address(addr), crypto.Address(other))
}

// Compare orders addresses bytewise.
func (addr Address) Compare(other Address) int {
	return bytes.Compare(addr, other)
}

func (addr Address) IsEmpty() bool {
	return len(addr) == 0
}

func (addr Address) String() string {
	return tmbytes.HexBytes(addr).String()
}

func (addr Address) MarshalJSON() ([]byte, error) {
	return tmbytes.HexBytes(addr).MarshalJSON()
}

func (addr *Address) UnmarshalJSON(data []byte) error {
	var hb tmbytes.HexBytes
	if err := hb.UnmarshalJSON(data); err != nil {
		return err
	}
	*addr = Address(hb)
	return nil
}
