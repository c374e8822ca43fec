package privval

import (
	"fmt"
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/crypto/ed25519"
	tmjson "github.com/tendermint/tendermint/libs/json"
	tmos "github.com/tendermint/tendermint/libs/os"
	"github.com/tendermint/tendermint/libs/tempfile"

	"ibft_node/types"
)

//-------------------------------------------------------------------------------

// FilePVKey stores the immutable part of PrivValidator.
type FilePVKey struct {
	Address types.Address  `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	PrivKey crypto.PrivKey `json:"priv_key"`

	filePath string
}

// Save persists the FilePVKey to its filePath.
func (pvKey FilePVKey) Save() error {
	outFile := pvKey.filePath
	if outFile == "" {
		return errors.New("cannot save PrivValidator key: filePath not set")
	}

	jsonBytes, err := tmjson.MarshalIndent(pvKey, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal PrivValidator key")
	}
	return errors.Wrapf(tempfile.WriteFileAtomic(outFile, jsonBytes, 0600), "write %s", outFile)
}

//-------------------------------------------------------------------------------

// FilePV implements types.PrivValidator with an ed25519 key kept in a JSON
// file.
// NOTE: the directory containing pv.Key.filePath must already exist.
type FilePV struct {
	Key FilePVKey
}

var _ types.PrivValidator = (*FilePV)(nil)

// NewFilePV generates a new validator from the given key and paths.
func NewFilePV(privKey crypto.PrivKey, keyFilePath string) *FilePV {
	return &FilePV{
		Key: FilePVKey{
			Address:  types.GetAddress(privKey.PubKey()),
			PubKey:   privKey.PubKey(),
			PrivKey:  privKey,
			filePath: keyFilePath,
		},
	}
}

// GenFilePVFromSecret derives the key from secret, so every node of a
// testnet can be regenerated from its index.
func GenFilePVFromSecret(keyFilePath string, secret []byte) *FilePV {
	return NewFilePV(ed25519.GenPrivKeyFromSecret(secret), keyFilePath)
}

// GenFilePV generates a new validator with randomly generated private key
// and sets the filePaths, but does not call Save().
func GenFilePV(keyFilePath string) *FilePV {
	return NewFilePV(ed25519.GenPrivKey(), keyFilePath)
}

// LoadFilePV loads a FilePV from keyFilePath.
func LoadFilePV(keyFilePath string) (*FilePV, error) {
	keyJSONBytes, err := ioutil.ReadFile(keyFilePath)
	if err != nil {
		return nil, errors.Wrap(err, "read PrivValidator key")
	}
	pvKey := FilePVKey{}
	if err := tmjson.Unmarshal(keyJSONBytes, &pvKey); err != nil {
		return nil, errors.Wrapf(err, "error reading PrivValidator key from %v", keyFilePath)
	}
	if pvKey.PrivKey == nil {
		return nil, errors.Errorf("no private key in %v", keyFilePath)
	}

	// overwrite pubkey and address for convenience
	pvKey.PubKey = pvKey.PrivKey.PubKey()
	pvKey.Address = types.GetAddress(pvKey.PubKey)
	pvKey.filePath = keyFilePath

	return &FilePV{
		Key: pvKey,
	}, nil
}

// LoadOrGenFilePV loads a FilePV from the given filePath
// or else generates a new one and saves it there.
func LoadOrGenFilePV(keyFilePath string) (*FilePV, error) {
	if tmos.FileExists(keyFilePath) {
		return LoadFilePV(keyFilePath)
	}
	pv := GenFilePV(keyFilePath)
	if err := pv.Save(); err != nil {
		return nil, err
	}
	return pv, nil
}

// GetAddress returns the address of the validator.
func (pv *FilePV) GetAddress() types.Address {
	return pv.Key.Address
}

// GetPubKey returns the public key of the validator.
// Implements PrivValidator.
func (pv *FilePV) GetPubKey() (crypto.PubKey, error) {
	return pv.Key.PubKey, nil
}

// SignPayload signs the canonical bytes of payload. Implements
// PrivValidator.
func (pv *FilePV) SignPayload(payload types.Payload) ([]byte, error) {
	sig, err := pv.Key.PrivKey.Sign(types.PayloadSignBytes(payload))
	if err != nil {
		return nil, fmt.Errorf("error signing %v payload: %w", payload.Type(), err)
	}
	return sig, nil
}

// SignCommitSeal seals the block with hash digest. Implements
// PrivValidator.
func (pv *FilePV) SignCommitSeal(digest []byte) ([]byte, error) {
	sig, err := pv.Key.PrivKey.Sign(types.CommitSealBytes(digest))
	if err != nil {
		return nil, fmt.Errorf("error sealing commit: %w", err)
	}
	return sig, nil
}

// Save persists the FilePV to disk.
func (pv *FilePV) Save() error {
	return pv.Key.Save()
}

// String returns a string representation of the FilePV.
func (pv *FilePV) String() string {
	return fmt.Sprintf(
		"PrivValidator{%v}",
		pv.GetAddress(),
	)
}
