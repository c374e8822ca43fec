package mempool

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
)

const MetricLabel = "mempool"

func newMemMetric() *memMetric {
	return &memMetric{}
}

type memMetric struct {
	mtx           sync.RWMutex
	TxsNum        int   `json:"txs_num"`         // transactions in the mempool
	TotalTxsBytes int64 `json:"total_txs_bytes"` // their total size
	Height        int64 `json:"height"`          // last height Update()'d to
	CommittedTxs  int64 `json:"committed_txs"`   // removed by Update since start
}

// JSONString implements metric.MetricItem.
func (mm *memMetric) JSONString() string {
	mm.mtx.RLock()
	defer mm.mtx.RUnlock()
	s, _ := jsoniter.MarshalToString(mm)
	return s
}

func (mm *memMetric) MarkSize(txsNum int, txsBytes int64) {
	mm.mtx.Lock()
	defer mm.mtx.Unlock()
	mm.TxsNum = txsNum
	mm.TotalTxsBytes = txsBytes
}

func (mm *memMetric) MarkUpdate(height int64, committed int) {
	mm.mtx.Lock()
	defer mm.mtx.Unlock()
	mm.Height = height
	mm.CommittedTxs += int64(committed)
}
