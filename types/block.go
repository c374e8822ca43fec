package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/tendermint/tendermint/crypto/merkle"
	"github.com/tendermint/tendermint/crypto/tmhash"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// Block is the unit agreed on by consensus. Blocks are immutable once
// proposed: the hash is recomputed from the contents on every call so a
// block can be shared across goroutines without locking.
type Block struct {
	Header Header `json:"header"`
	Data   Data   `json:"data"`
}

func (b *Block) ValidateBasic() error {
	if b == nil {
		return errors.New("nil block")
	}
	if err := b.Header.ValidateBasic(); err != nil {
		return fmt.Errorf("invalid header: %w", err)
	}
	return nil
}

// Hash returns the header hash, or nil for a nil block.
func (b *Block) Hash() tmbytes.HexBytes {
	if b == nil {
		return nil
	}
	return b.Header.Hash()
}

// Equal compares blocks by hash.
func (b *Block) Equal(other *Block) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.Hash().String() == other.Hash().String()
}

func (b *Block) String() string {
	if b == nil {
		return "nil-Block"
	}
	return fmt.Sprintf("Block{%d/%d %v txs=%d}", b.Header.Height, b.Header.Round, b.Hash(), len(b.Data.Txs))
}

type Header struct {
	ChainID string    `json:"chain_id"`
	Height  int64     `json:"height"`
	Round   int32     `json:"round"` // round in which the block was first proposed
	Time    time.Time `json:"time"`

	LastBlockHash   tmbytes.HexBytes `json:"last_block_hash"`
	TxsHash         tmbytes.HexBytes `json:"txs_hash"`
	ProposerAddress Address          `json:"proposer_address"`
	ValidatorsHash  tmbytes.HexBytes `json:"validators_hash"`
}

func (h *Header) ValidateBasic() error {
	if h.ChainID == "" {
		return errors.New("empty chain id")
	}
	if h.Height < 0 {
		return fmt.Errorf("negative height %d", h.Height)
	}
	if h.Round < 0 {
		return fmt.Errorf("negative round %d", h.Round)
	}
	if h.Height > 0 && len(h.LastBlockHash) != tmhash.Size {
		return fmt.Errorf("last block hash has wrong size %d", len(h.LastBlockHash))
	}
	return nil
}

// Hash returns the merkle root of the header fields.
func (h *Header) Hash() tmbytes.HexBytes {
	if h == nil {
		return nil
	}
	return merkle.HashFromByteSlices([][]byte{
		[]byte(h.ChainID),
		int64Bytes(h.Height),
		int64Bytes(int64(h.Round)),
		int64Bytes(h.Time.UnixNano()),
		h.LastBlockHash,
		h.TxsHash,
		h.ProposerAddress,
		h.ValidatorsHash,
	})
}

type Data struct {
	Txs Txs `json:"txs"`
}

func (d *Data) Hash() tmbytes.HexBytes {
	if d == nil {
		return (Txs{}).Hash()
	}
	return d.Txs.Hash()
}

func int64Bytes(v int64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, uint64(v))
	return bz
}
