package mempool

import (
	"crypto/sha256"
	"errors"
	"sync"
	"sync/atomic"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	"github.com/tendermint/tendermint/libs/clist"
	"github.com/tendermint/tendermint/libs/log"

	"ibft_node/libs/metric"
	"ibft_node/types"
)

const (
	TxKeySize = sha256.Size
)

// Config bounds the mempool.
type Config struct {
	// Size is the maximum number of transactions held.
	Size int `mapstructure:"size"`
	// MaxTxsBytes is the maximum total size of the held transactions.
	MaxTxsBytes int64 `mapstructure:"max_txs_bytes"`
	// MaxTxBytes is the maximum size of a single transaction.
	MaxTxBytes int64 `mapstructure:"max_tx_bytes"`
}

// ValidateBasic performs basic validation and returns an error if any
// check fails. Zero disables a limit.
func (cfg Config) ValidateBasic() error {
	if cfg.Size < 0 {
		return errors.New("size can't be negative")
	}
	if cfg.MaxTxsBytes < 0 {
		return errors.New("max_txs_bytes can't be negative")
	}
	if cfg.MaxTxBytes < 0 {
		return errors.New("max_tx_bytes can't be negative")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		Size:        5000,
		MaxTxsBytes: 1024 * 1024 * 1024, // 1GB
		MaxTxBytes:  1024 * 1024,        // 1MB
	}
}

// ListMempool is an ordered in-memory pool of transactions. Transactions
// are reaped in arrival order and removed once Update reports them
// committed.
type ListMempool struct {
	// Atomic integers
	height   int64 // the last block Update()'d to
	txsBytes int64 // total size of mempool, in bytes

	config Config

	updateMtx sync.RWMutex
	preCheck  PreCheckFunc

	txs    *clist.CList // concurrent linked-list of good txs
	txsMap sync.Map     // TxKey -> *clist.CElement

	metric *memMetric
	logger log.Logger
}

var _ Mempool = (*ListMempool)(nil)

type ListMempoolOption func(*ListMempool)

func NewListMempool(config Config, height int64, options ...ListMempoolOption) *ListMempool {
	mem := &ListMempool{
		height: height,
		config: config,
		txs:    clist.New(),
		metric: newMemMetric(),
		logger: log.NewNopLogger(),
	}
	if config.MaxTxBytes > 0 {
		mem.preCheck = PreCheckMaxBytes(config.MaxTxBytes)
	}

	for _, option := range options {
		option(mem)
	}

	return mem
}

// WithPreCheck sets a filter for the mempool to reject a tx if f(tx)
// returns an error. It replaces the size check of the config.
func WithPreCheck(f PreCheckFunc) ListMempoolOption {
	return func(mem *ListMempool) { mem.preCheck = f }
}

// RegisterMetric registers the mempool metric in ms.
func (mem *ListMempool) RegisterMetric(ms *metric.MetricSet) error {
	return ms.SetMetrics(MetricLabel, mem.metric)
}

func (mem *ListMempool) SetLogger(logger log.Logger) {
	mem.logger = logger
}

// Lock locks the write side of updateMtx.
func (mem *ListMempool) Lock() {
	mem.updateMtx.Lock()
}

// Unlock releases the write side of updateMtx.
func (mem *ListMempool) Unlock() {
	mem.updateMtx.Unlock()
}

func (mem *ListMempool) Size() int {
	return mem.txs.Len()
}

func (mem *ListMempool) TxsBytes() int64 {
	return atomic.LoadInt64(&mem.txsBytes)
}

// TxsWaitChan returns a channel that is closed once the mempool is not
// empty.
func (mem *ListMempool) TxsWaitChan() <-chan struct{} {
	return mem.txs.WaitChan()
}

// TxsFront returns the first transaction in the ordered list.
func (mem *ListMempool) TxsFront() *clist.CElement {
	return mem.txs.Front()
}

func (mem *ListMempool) CheckTx(tx types.Tx, txInfo TxInfo) error {
	mem.updateMtx.RLock()
	defer mem.updateMtx.RUnlock()

	if len(tx) == 0 {
		return ErrEmptyTx
	}
	if mem.preCheck != nil {
		if err := mem.preCheck(tx); err != nil {
			return err
		}
	}
	if err := mem.isFull(len(tx)); err != nil {
		return err
	}

	memTx := &mempoolTx{
		height: atomic.LoadInt64(&mem.height),
		tx:     tx,
	}
	if _, loaded := mem.txsMap.LoadOrStore(TxKey(tx), (*clist.CElement)(nil)); loaded {
		return ErrTxInMap
	}
	mem.addTx(memTx)

	mem.logger.Debug("added good transaction",
		"tx", tmbytes.HexBytes(tx.Hash()),
		"sender", txInfo.SenderID,
		"height", memTx.height,
		"total", mem.Size(),
	)
	return nil
}

func (mem *ListMempool) isFull(txSize int) error {
	var (
		memSize  = mem.Size()
		txsBytes = mem.TxsBytes()
	)
	if (mem.config.Size > 0 && memSize >= mem.config.Size) ||
		(mem.config.MaxTxsBytes > 0 && int64(txSize)+txsBytes > mem.config.MaxTxsBytes) {
		return ErrMempoolIsFull{
			NumTxs:      memSize,
			MaxTxs:      mem.config.Size,
			TxsBytes:    txsBytes,
			MaxTxsBytes: mem.config.MaxTxsBytes,
		}
	}
	return nil
}

// addTx adds memTx to the linked list and the lookup map, and grows the
// byte count.
func (mem *ListMempool) addTx(memTx *mempoolTx) {
	e := mem.txs.PushBack(memTx)
	mem.txsMap.Store(TxKey(memTx.tx), e)
	atomic.AddInt64(&mem.txsBytes, int64(len(memTx.tx)))
	mem.metric.MarkSize(mem.Size(), mem.TxsBytes())
}

// removeTx is the reverse of addTx.
func (mem *ListMempool) removeTx(tx types.Tx, elem *clist.CElement) {
	mem.txs.Remove(elem)
	elem.DetachPrev()
	mem.txsMap.Delete(TxKey(tx))
	atomic.AddInt64(&mem.txsBytes, int64(-len(tx)))
}

func (mem *ListMempool) ReapMaxBytes(maxBytes int64) types.Txs {
	mem.updateMtx.RLock()
	defer mem.updateMtx.RUnlock()

	var totalBytes int64
	txs := make(types.Txs, 0, mem.txs.Len())
	for e := mem.txs.Front(); e != nil; e = e.Next() {
		memTx := e.Value.(*mempoolTx)
		size := memTx.tx.ComputeSize()
		if maxBytes > -1 && totalBytes+size > maxBytes {
			return txs
		}
		totalBytes += size
		txs = append(txs, memTx.tx)
	}
	return txs
}

func (mem *ListMempool) ReapMaxTxs(max int) types.Txs {
	mem.updateMtx.RLock()
	defer mem.updateMtx.RUnlock()

	if max < 0 {
		max = mem.txs.Len()
	}

	txs := make(types.Txs, 0, max)
	for e := mem.txs.Front(); e != nil && len(txs) < max; e = e.Next() {
		memTx := e.Value.(*mempoolTx)
		txs = append(txs, memTx.tx)
	}
	return txs
}

// Update implements Mempool. Lock must be held by the caller.
func (mem *ListMempool) Update(height int64, txs types.Txs) error {
	atomic.StoreInt64(&mem.height, height)

	for _, tx := range txs {
		if e, ok := mem.txsMap.Load(TxKey(tx)); ok {
			if elem, ok := e.(*clist.CElement); ok && elem != nil {
				mem.removeTx(tx, elem)
			}
		}
	}
	mem.metric.MarkSize(mem.Size(), mem.TxsBytes())
	mem.metric.MarkUpdate(height, len(txs))
	return nil
}

func (mem *ListMempool) Flush() {
	mem.updateMtx.Lock()
	defer mem.updateMtx.Unlock()

	for e := mem.txs.Front(); e != nil; e = e.Next() {
		mem.txs.Remove(e)
		e.DetachPrev()
	}
	mem.txsMap.Range(func(key, _ interface{}) bool {
		mem.txsMap.Delete(key)
		return true
	})
	atomic.StoreInt64(&mem.txsBytes, 0)
	mem.metric.MarkSize(0, 0)
}

// ------------------------------

type mempoolTx struct {
	height int64 // height that this tx had been validated in
	tx     types.Tx
}

// Height returns the height for this transaction
func (memTx *mempoolTx) Height() int64 {
	return atomic.LoadInt64(&memTx.height)
}

// ------------------------------

// TxKey is the fixed length array hash used as the key in maps.
func TxKey(tx types.Tx) [TxKeySize]byte {
	return sha256.Sum256(tx)
}
