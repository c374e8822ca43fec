package consensus

import (
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	metrics "github.com/rcrowley/go-metrics"

	"ibft_node/types"
)

const MetricLabel = "consensus"

func newConsensusMetric() *consensusMetric {
	return &consensusMetric{
		status: consensusStatus{
			Height:              0,
			Round:               0,
			RoundStartTime:      time.Time{},
			LastCommittedHeight: -1,
			Step:                "",
			IsProposer:          false,
			ProposerAddress:     "",
		},
		registry: metrics.NewRegistry(),
	}
}

// consensusMetric tracks the consensus routine. Status fields are written by
// the routine and read by whoever renders the metric.
type consensusMetric struct {
	mtx    sync.RWMutex
	status consensusStatus

	registry metrics.Registry
}

type consensusStatus struct {
	Height              int64     `json:"height"`
	Round               int32     `json:"round"`
	RoundStartTime      time.Time `json:"round_start_time"`
	LastCommittedHeight int64     `json:"last_committed_height"`
	Step                string    `json:"step"`

	IsProposer      bool   `json:"is_proposer"`
	ProposerAddress string `json:"proposer_address"`

	Messages map[string]int64 `json:"messages,omitempty"`
}

// JSONString implements metric.MetricItem.
func (cm *consensusMetric) JSONString() string {
	cm.mtx.RLock()
	status := cm.status
	cm.mtx.RUnlock()

	status.Messages = make(map[string]int64)
	cm.registry.Each(func(name string, i interface{}) {
		if c, ok := i.(metrics.Counter); ok {
			status.Messages[name] = c.Count()
		}
	})

	s, _ := jsoniter.MarshalToString(status)
	return s
}

func (cm *consensusMetric) MarkRound(round types.RoundIdentifier, start time.Time) {
	cm.mtx.Lock()
	cm.status.Height = round.Sequence
	cm.status.Round = round.Round
	cm.status.RoundStartTime = start
	cm.mtx.Unlock()
}

func (cm *consensusMetric) MarkStep(step fmt.Stringer) {
	cm.mtx.Lock()
	cm.status.Step = step.String()
	cm.mtx.Unlock()
}

func (cm *consensusMetric) MarkProposer(proposer types.Address, isProposer bool) {
	cm.mtx.Lock()
	cm.status.ProposerAddress = proposer.String()
	cm.status.IsProposer = isProposer
	cm.mtx.Unlock()
}

func (cm *consensusMetric) MarkCommitted(height int64) {
	cm.mtx.Lock()
	cm.status.LastCommittedHeight = height
	cm.mtx.Unlock()
}

// MarkMessage counts a judged message by type and verdict.
func (cm *consensusMetric) MarkMessage(msgType types.MessageType, accepted bool) {
	verdict := "rejected"
	if accepted {
		verdict = "accepted"
	}
	metrics.GetOrRegisterCounter(fmt.Sprintf("%v.%s", msgType, verdict), cm.registry).Inc(1)
}

// MessageCount returns how many messages of msgType got the verdict.
func (cm *consensusMetric) MessageCount(msgType types.MessageType, accepted bool) int64 {
	verdict := "rejected"
	if accepted {
		verdict = "accepted"
	}
	return metrics.GetOrRegisterCounter(fmt.Sprintf("%v.%s", msgType, verdict), cm.registry).Count()
}
