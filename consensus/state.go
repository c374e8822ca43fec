package consensus

import (
	"errors"
	"fmt"
	"sync"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	"github.com/tendermint/tendermint/libs/events"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"
	tmtime "github.com/tendermint/tendermint/types/time"

	cstypes "ibft_node/consensus/types"
	"ibft_node/consensus/validation"
	"ibft_node/libs/metric"
	"ibft_node/types"
)

// Events fired on the event switch. Listeners run on the consensus routine
// and must not block.
const (
	EventProposalAccepted  = "ProposalAccepted"  // *types.SignedPayload
	EventPrepared          = "Prepared"          // *types.PreparedRoundArtifacts
	EventCommitted         = "Committed"         // *CommittedBlock
	EventRoundChangeQuorum = "RoundChangeQuorum" // *RoundChangeQuorum
	EventNewRound          = "NewRound"          // types.RoundIdentifier
)

var (
	ErrNilParent = errors.New("nil parent header")
)

// CommittedBlock is the payload of EventCommitted.
type CommittedBlock struct {
	Round       types.RoundIdentifier
	Block       *types.Block
	CommitSeals []tmbytes.HexBytes
}

// RoundChangeQuorum is the payload of EventRoundChangeQuorum.
type RoundChangeQuorum struct {
	Target    types.RoundIdentifier
	Artifacts types.RoundChangeArtifacts
}

// ConsensusState runs the message side of IBFT for one height. Messages are
// validated and tallied on a single routine, so the tally structures need no
// locking of their own. Round timers and block proposal live elsewhere;
// they learn about progress through the event switch.
type ConsensusState struct {
	service.BaseService

	proposers            validation.ProposerSelector
	msgValidator         *validation.MessageValidator
	roundChangeValidator *validation.RoundChangePayloadValidator
	newRoundValidator    *validation.NewRoundValidator

	// our own address, if we are a validator
	address types.Address

	mtx          sync.RWMutex
	parent       *types.Header
	validators   *types.ValidatorSet
	roundState   *cstypes.RoundState
	roundChanges *cstypes.RoundChangeSet

	// certificate of the last round this node saw prepared at this height
	latestPrepared *types.PreparedRoundArtifacts

	peerMsgQueue chan msgInfo
	eventSwitch  events.EventSwitch

	metric    *consensusMetric
	metricSet *metric.MetricSet
}

type ConsensusOption func(*ConsensusState)

// WithPrivValidator marks the node as the validator behind pv.
func WithPrivValidator(pv types.PrivValidator) ConsensusOption {
	return func(cs *ConsensusState) {
		pub, err := pv.GetPubKey()
		if err != nil {
			cs.Logger.Error("can't get pubkey", "err", err)
			return
		}
		cs.address = types.GetAddress(pub)
	}
}

// WithMetricSet registers the consensus metric in ms.
func WithMetricSet(ms *metric.MetricSet) ConsensusOption {
	return func(cs *ConsensusState) {
		cs.metricSet = ms
	}
}

// NewConsensusState returns a service deciding the block that follows
// parent, starting at round 0.
func NewConsensusState(
	factory *validation.MessageValidatorFactory,
	parent *types.Header,
	options ...ConsensusOption,
) (*ConsensusState, error) {
	if parent == nil {
		return nil, ErrNilParent
	}
	round := types.NewRoundIdentifier(parent.Height+1, 0)
	view, err := factory.RoundView(round, parent)
	if err != nil {
		return nil, err
	}
	roundState, err := cstypes.NewRoundState(round, view.Validators, parent)
	if err != nil {
		return nil, err
	}
	roundChanges, err := cstypes.NewRoundChangeSet(view.Validators)
	if err != nil {
		return nil, err
	}

	cs := &ConsensusState{
		proposers:            factory.ProposerSelector(),
		msgValidator:         factory.CreateMessageValidator(),
		roundChangeValidator: factory.CreateRoundChangeValidator(),
		newRoundValidator:    factory.CreateNewRoundValidator(),
		parent:               parent,
		validators:           view.Validators,
		roundState:           roundState,
		roundChanges:         roundChanges,
		peerMsgQueue:         make(chan msgInfo, msgQueueSize),
		eventSwitch:          events.NewEventSwitch(),
		metric:               newConsensusMetric(),
	}
	cs.BaseService = *service.NewBaseService(nil, "CONSENSUS", cs)

	for _, opt := range options {
		opt(cs)
	}

	if cs.metricSet != nil {
		if err := cs.metricSet.SetMetrics(MetricLabel, cs.metric); err != nil {
			return nil, fmt.Errorf("register consensus metric: %w", err)
		}
	}
	cs.markRound(round)

	return cs, nil
}

func (cs *ConsensusState) SetLogger(logger log.Logger) {
	cs.Logger = logger
	cs.eventSwitch.SetLogger(logger.With("module", "events"))
	validationLogger := logger.With("module", "validation")
	cs.msgValidator.SetLogger(validationLogger)
	cs.roundChangeValidator.SetLogger(validationLogger)
	cs.newRoundValidator.SetLogger(validationLogger)
}

// EventSwitch returns the switch on which consensus events are fired.
func (cs *ConsensusState) EventSwitch() events.EventSwitch {
	return cs.eventSwitch
}

func (cs *ConsensusState) OnStart() error {
	if err := cs.eventSwitch.Start(); err != nil {
		return err
	}
	go cs.receiveRoutine()
	cs.Logger.Info("consensus receive routine started", "round", cs.RoundIdentifier())
	return nil
}

func (cs *ConsensusState) OnStop() {
	if err := cs.eventSwitch.Stop(); err != nil {
		cs.Logger.Error("failed trying to stop eventSwitch", "error", err)
	}
	cs.Logger.Info("consensus service stopped")
}

// ReceiveMessage queues msg for the consensus routine. It blocks while the
// queue is full and returns false if the service quits first.
func (cs *ConsensusState) ReceiveMessage(msg *types.SignedPayload, peerID string) bool {
	select {
	case cs.peerMsgQueue <- msgInfo{Msg: msg, PeerID: peerID}:
		return true
	case <-cs.Quit():
		return false
	}
}

// RoundIdentifier returns the current round.
func (cs *ConsensusState) RoundIdentifier() types.RoundIdentifier {
	cs.mtx.RLock()
	defer cs.mtx.RUnlock()
	return cs.roundState.Round
}

// Step returns the progress of the current round.
func (cs *ConsensusState) Step() cstypes.RoundStepType {
	cs.mtx.RLock()
	defer cs.mtx.RUnlock()
	return cs.roundState.Step
}

// PreparedCertificate returns the prepared certificate of the current
// round, or else of the latest earlier round of this height that prepared,
// or nil. It is what a ROUND-CHANGE sent by this node must carry.
func (cs *ConsensusState) PreparedCertificate() *types.PreparedRoundArtifacts {
	cs.mtx.RLock()
	defer cs.mtx.RUnlock()
	if cert := cs.roundState.PreparedCertificate(); cert != nil {
		return cert
	}
	return cs.latestPrepared
}

// MetricJSON renders the consensus metric.
func (cs *ConsensusState) MetricJSON() string {
	return cs.metric.JSONString()
}

func (cs *ConsensusState) receiveRoutine() {
	cs.Logger.Debug("consensus receive routine starts")
	for {
		select {
		case <-cs.Quit():
			cs.Logger.Info("receiveRoutine quit")
			return
		case mi := <-cs.peerMsgQueue:
			for _, ev := range cs.handleMsg(mi) {
				cs.eventSwitch.FireEvent(ev.name, ev.data)
			}
		}
	}
}

// pendingEvent is fired once the state lock is released so listeners may
// query the state.
type pendingEvent struct {
	name string
	data events.EventData
}

func (cs *ConsensusState) handleMsg(mi msgInfo) []pendingEvent {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()

	msg := mi.Msg
	if msg == nil {
		return nil
	}
	if msg.RoundIdentifier().Sequence != cs.roundState.Round.Sequence {
		cs.Logger.Debug("ignore message for another height", "msg", msg, "peer", mi.PeerID)
		return nil
	}

	switch msg.Type() {
	case types.ProposalMessage:
		return cs.handleProposal(msg)
	case types.PrepareMessage, types.CommitMessage:
		return cs.handlePrepareOrCommit(msg)
	case types.RoundChangeMessage:
		return cs.handleRoundChange(msg)
	case types.NewRoundMessage:
		return cs.handleNewRound(msg)
	default:
		cs.metric.MarkMessage(msg.Type(), false)
		cs.Logger.Debug("ignore unknown message", "peer", mi.PeerID)
		return nil
	}
}

func (cs *ConsensusState) handleProposal(msg *types.SignedPayload) []pendingEvent {
	rs := cs.roundState
	if !msg.RoundIdentifier().Equal(rs.Round) {
		cs.Logger.Debug("ignore proposal for another round", "msg", msg, "round", rs.Round)
		return nil
	}
	ok, err := cs.msgValidator.ValidateProposal(rs.View(), msg)
	if !cs.judged(msg, ok, err) {
		return nil
	}
	if err := rs.SetProposal(msg); err != nil {
		cs.Logger.Error("set proposal failed", "err", err)
		return nil
	}
	cs.Logger.Info("accepted proposal", "round", rs.Round, "block", msg.ProposedBlock())
	cs.metric.MarkStep(rs.Step)
	return []pendingEvent{{EventProposalAccepted, msg}}
}

func (cs *ConsensusState) handlePrepareOrCommit(msg *types.SignedPayload) []pendingEvent {
	rs := cs.roundState
	if !msg.RoundIdentifier().Equal(rs.Round) {
		cs.Logger.Debug("ignore message for another round", "msg", msg, "round", rs.Round)
		return nil
	}
	ok, err := cs.msgValidator.ValidatePrepareOrCommit(rs.View(), msg)
	if !cs.judged(msg, ok, err) {
		return nil
	}

	var evs []pendingEvent
	if msg.Type() == types.PrepareMessage {
		prepared, err := rs.AddPrepare(msg)
		if err != nil {
			cs.Logger.Error("add prepare failed", "err", err)
			return nil
		}
		if prepared {
			cs.Logger.Info("round prepared", "round", rs.Round)
			cs.latestPrepared = rs.PreparedCertificate()
			evs = append(evs, pendingEvent{EventPrepared, cs.latestPrepared})
		}
	} else {
		committed, err := rs.AddCommit(msg)
		if err != nil {
			cs.Logger.Error("add commit failed", "err", err)
			return nil
		}
		if committed {
			block := rs.ProposedBlock()
			cs.Logger.Info("round committed", "round", rs.Round, "block", block)
			cs.metric.MarkCommitted(block.Header.Height)
			evs = append(evs, pendingEvent{EventCommitted, &CommittedBlock{
				Round:       rs.Round,
				Block:       block,
				CommitSeals: rs.CommitSeals(),
			}})
		}
	}
	cs.metric.MarkStep(rs.Step)
	return evs
}

func (cs *ConsensusState) handleRoundChange(msg *types.SignedPayload) []pendingEvent {
	target := msg.RoundIdentifier()
	if !cs.roundState.Round.Less(target) {
		cs.Logger.Debug("ignore round change for a past round", "msg", msg, "round", cs.roundState.Round)
		return nil
	}
	view := validation.RoundView{
		Round:      target,
		Validators: cs.validators,
		Parent:     cs.parent,
		Seen:       cs.roundChanges.Seen(target),
	}
	ok, err := cs.roundChangeValidator.ValidateRoundChange(view, msg)
	if !cs.judged(msg, ok, err) {
		return nil
	}

	artifacts, quorum, err := cs.roundChanges.AddRoundChange(msg)
	if err != nil {
		cs.Logger.Error("add round change failed", "err", err)
		return nil
	}
	if !quorum {
		return nil
	}
	cs.Logger.Info("round change quorum", "target", target, "carries_block", artifacts.HasBlock())
	return []pendingEvent{{EventRoundChangeQuorum, &RoundChangeQuorum{Target: target, Artifacts: artifacts}}}
}

func (cs *ConsensusState) handleNewRound(msg *types.SignedPayload) []pendingEvent {
	target := msg.RoundIdentifier()
	if !cs.roundState.Round.Less(target) {
		cs.Logger.Debug("ignore new round for a past round", "msg", msg, "round", cs.roundState.Round)
		return nil
	}
	view := validation.RoundView{
		Round:      target,
		Validators: cs.validators,
		Parent:     cs.parent,
	}
	ok, err := cs.newRoundValidator.ValidateNewRound(view, msg)
	if !cs.judged(msg, ok, err) {
		return nil
	}

	rs, err := cstypes.NewRoundState(target, cs.validators, cs.parent)
	if err != nil {
		cs.Logger.Error("can't enter round", "round", target, "err", err)
		return nil
	}
	if err := rs.SetProposal(msg.Payload.NewRound.Proposal); err != nil {
		cs.Logger.Error("set proposal failed", "err", err)
		return nil
	}
	cs.roundState = rs
	cs.roundChanges.DiscardRoundsBelow(target)
	cs.markRound(target)
	cs.metric.MarkStep(rs.Step)

	cs.Logger.Info("entered new round", "round", target, "block", rs.ProposedBlock())
	return []pendingEvent{
		{EventNewRound, target},
		{EventProposalAccepted, rs.Proposal},
	}
}

// judged records the verdict on msg and reports whether it was accepted.
// Errors are configuration or block validator faults, not bad messages.
func (cs *ConsensusState) judged(msg *types.SignedPayload, ok bool, err error) bool {
	if err != nil {
		cs.Logger.Error("failed to validate message", "type", msg.Type(), "round", msg.RoundIdentifier(), "err", err)
		ok = false
	}
	cs.metric.MarkMessage(msg.Type(), ok)
	return ok
}

func (cs *ConsensusState) markRound(round types.RoundIdentifier) {
	proposer := cs.proposers.SelectProposer(round, cs.validators)
	cs.metric.MarkRound(round, tmtime.Now())
	cs.metric.MarkProposer(proposer, !cs.address.IsEmpty() && cs.address.Equal(proposer))
	cs.metric.MarkStep(cstypes.RoundStepPropose)
}

// ----- MsgInfo -----

const msgQueueSize = 1000

type msgInfo struct {
	Msg    *types.SignedPayload
	PeerID string
}
