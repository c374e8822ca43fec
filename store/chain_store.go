package store

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	tmjson "github.com/tendermint/tendermint/libs/json"
	"github.com/tendermint/tendermint/libs/log"
	tmdb "github.com/tendermint/tm-db"
	leveldb "github.com/tendermint/tm-db/goleveldb"
	"github.com/tendermint/tm-db/memdb"

	"ibft_node/types"
)

var (
	ErrNotFound = errors.New("not found")
)

const (
	prefixHeader     = "H:"
	prefixSeals      = "S:"
	prefixValidators = "V:"
	keyLatest        = "latest"
)

// heights are zero padded so the keys of one prefix sort by height
func heightKey(prefix string, height int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, height))
}

// BackendType names the database a ChainStore is opened on.
type BackendType string

const (
	GoLevelDBBackend BackendType = "goleveldb"
	MemDBBackend     BackendType = "memdb" // nothing is written to dir
)

// ValidateBackend returns an error if backend is not a supported database.
func ValidateBackend(backend BackendType) error {
	switch backend {
	case GoLevelDBBackend, MemDBBackend:
		return nil
	default:
		return fmt.Errorf("unknown db backend %q, expected %s or %s", backend, GoLevelDBBackend, MemDBBackend)
	}
}

// NewChainStore opens a store named name in dir on the given backend.
func NewChainStore(name string, backend BackendType, dir string) (*ChainStore, error) {
	var db tmdb.DB
	switch backend {
	case GoLevelDBBackend:
		levelDB, err := leveldb.NewDB(name, dir)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s db in %s", backend, dir)
		}
		db = levelDB
	case MemDBBackend:
		db = memdb.NewDB()
	default:
		return nil, ValidateBackend(backend)
	}
	return NewChainStoreWithDB(db), nil
}

func NewChainStoreWithDB(db tmdb.DB) *ChainStore {
	return &ChainStore{db: db, logger: log.NewNopLogger()}
}

// ChainStore persists committed headers with their commit seals and the
// validator sets in force from given heights on. A validator set saved at
// height h applies to every height from h up to the next saved set, so sets
// only need saving at epoch boundaries.
//
// ChainStore implements validation.ValidatorProvider.
type ChainStore struct {
	mtx sync.Mutex
	db  tmdb.DB

	logger log.Logger
}

func (cs *ChainStore) SetLogger(logger log.Logger) {
	cs.logger = logger
}

func (cs *ChainStore) Close() error {
	return cs.db.Close()
}

// SaveGenesis stores the genesis header and the genesis validator set at
// height 0.
func (cs *ChainStore) SaveGenesis(genDoc *types.GenesisDoc) error {
	if err := cs.SaveValidators(0, genDoc.ValidatorSet()); err != nil {
		return err
	}
	genesis := genDoc.GenesisBlock()
	return cs.SaveHeader(&genesis.Header, nil)
}

// SaveValidators records vals as the set in force from height on.
func (cs *ChainStore) SaveValidators(height int64, vals *types.ValidatorSet) error {
	if height < 0 {
		return fmt.Errorf("negative height %d", height)
	}
	if err := vals.ValidateBasic(); err != nil {
		return errors.Wrapf(err, "validators at height %d", height)
	}
	bz, err := tmjson.Marshal(vals)
	if err != nil {
		return errors.Wrap(err, "marshal validators")
	}
	if err := cs.db.SetSync(heightKey(prefixValidators, height), bz); err != nil {
		return errors.Wrapf(err, "save validators at height %d", height)
	}
	cs.logger.Debug("saved validators", "height", height, "hash", tmbytes.HexBytes(vals.Hash()))
	return nil
}

// ValidatorsAt returns the set saved at the greatest height not above
// height.
func (cs *ChainStore) ValidatorsAt(height int64) (*types.ValidatorSet, error) {
	if height < 0 {
		return nil, fmt.Errorf("negative height %d", height)
	}
	it, err := cs.db.ReverseIterator(heightKey(prefixValidators, 0), heightKey(prefixValidators, height+1))
	if err != nil {
		return nil, errors.Wrap(err, "iterate validators")
	}
	defer it.Close()

	if !it.Valid() {
		if err := it.Error(); err != nil {
			return nil, errors.Wrap(err, "iterate validators")
		}
		return nil, errors.Wrapf(ErrNotFound, "validators at height %d", height)
	}
	vals := new(types.ValidatorSet)
	if err := tmjson.Unmarshal(it.Value(), vals); err != nil {
		return nil, errors.Wrapf(err, "corrupt validators under %s", it.Key())
	}
	return vals, nil
}

// SaveHeader stores a committed header and the commit seals that
// finalized it, and advances the latest height.
func (cs *ChainStore) SaveHeader(header *types.Header, seals []tmbytes.HexBytes) error {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()

	if err := header.ValidateBasic(); err != nil {
		return errors.Wrap(err, "invalid header")
	}
	hbz, err := tmjson.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "marshal header")
	}
	sbz, err := tmjson.Marshal(seals)
	if err != nil {
		return errors.Wrap(err, "marshal commit seals")
	}

	batch := cs.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(heightKey(prefixHeader, header.Height), hbz); err != nil {
		return err
	}
	if err := batch.Set(heightKey(prefixSeals, header.Height), sbz); err != nil {
		return err
	}
	latest, err := cs.height()
	if err != nil {
		return err
	}
	if header.Height > latest {
		if err := batch.Set([]byte(keyLatest), heightKey("", header.Height)); err != nil {
			return err
		}
	}
	if err := batch.WriteSync(); err != nil {
		return errors.Wrapf(err, "save header at height %d", header.Height)
	}
	return nil
}

func (cs *ChainStore) LoadHeader(height int64) (*types.Header, error) {
	bz, err := cs.db.Get(heightKey(prefixHeader, height))
	if err != nil {
		return nil, errors.Wrapf(err, "load header at height %d", height)
	}
	if bz == nil {
		return nil, errors.Wrapf(ErrNotFound, "header at height %d", height)
	}
	header := new(types.Header)
	if err := tmjson.Unmarshal(bz, header); err != nil {
		return nil, errors.Wrapf(err, "corrupt header at height %d", height)
	}
	return header, nil
}

func (cs *ChainStore) LoadCommitSeals(height int64) ([]tmbytes.HexBytes, error) {
	bz, err := cs.db.Get(heightKey(prefixSeals, height))
	if err != nil {
		return nil, errors.Wrapf(err, "load commit seals at height %d", height)
	}
	if bz == nil {
		return nil, errors.Wrapf(ErrNotFound, "commit seals at height %d", height)
	}
	var seals []tmbytes.HexBytes
	if err := tmjson.Unmarshal(bz, &seals); err != nil {
		return nil, errors.Wrapf(err, "corrupt commit seals at height %d", height)
	}
	return seals, nil
}

// Height returns the greatest stored header height, or -1 for an empty
// store.
func (cs *ChainStore) Height() (int64, error) {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()
	return cs.height()
}

func (cs *ChainStore) height() (int64, error) {
	bz, err := cs.db.Get([]byte(keyLatest))
	if err != nil {
		return -1, errors.Wrap(err, "load latest height")
	}
	if bz == nil {
		return -1, nil
	}
	var height int64
	if _, err := fmt.Sscanf(string(bz), "%d", &height); err != nil {
		return -1, errors.Wrapf(err, "corrupt latest height %q", bz)
	}
	return height, nil
}

// LatestHeader returns the header at Height.
func (cs *ChainStore) LatestHeader() (*types.Header, error) {
	height, err := cs.Height()
	if err != nil {
		return nil, err
	}
	if height < 0 {
		return nil, errors.Wrap(ErrNotFound, "empty store")
	}
	return cs.LoadHeader(height)
}
