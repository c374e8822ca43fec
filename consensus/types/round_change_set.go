package types

import (
	types "ibft_node/types"
)

// RoundChangeSet collects validated ROUND-CHANGE messages per target round
// of one height. Like RoundState it is owned by the consensus routine.
type RoundChangeSet struct {
	quorum int

	rounds   map[types.RoundIdentifier]*messageSet
	actioned map[types.RoundIdentifier]struct{}

	// rounds below floor have been discarded
	floor types.RoundIdentifier
}

func NewRoundChangeSet(vals *types.ValidatorSet) (*RoundChangeSet, error) {
	quorum, err := vals.QuorumSize()
	if err != nil {
		return nil, err
	}
	return &RoundChangeSet{
		quorum:   quorum,
		rounds:   make(map[types.RoundIdentifier]*messageSet),
		actioned: make(map[types.RoundIdentifier]struct{}),
	}, nil
}

// Seen returns the duplicate check for ROUND-CHANGEs targeting target.
func (rcs *RoundChangeSet) Seen(target types.RoundIdentifier) func(types.MessageType, types.Address) bool {
	return func(msgType types.MessageType, author types.Address) bool {
		if msgType != types.RoundChangeMessage {
			return false
		}
		set, ok := rcs.rounds[target]
		return ok && set.has(author)
	}
}

// AddRoundChange adds a validated ROUND-CHANGE. When the message completes a
// quorum for its target round the artifacts for opening that round are
// returned with ok set; this happens at most once per round. Messages for
// discarded or already actioned rounds are dropped.
func (rcs *RoundChangeSet) AddRoundChange(msg *types.SignedPayload) (artifacts types.RoundChangeArtifacts, ok bool, err error) {
	if msg.Type() != types.RoundChangeMessage {
		return artifacts, false, ErrUnexpectedMessage
	}
	target := msg.RoundIdentifier()
	if target.Less(rcs.floor) {
		return artifacts, false, nil
	}
	if _, done := rcs.actioned[target]; done {
		return artifacts, false, nil
	}

	set, exists := rcs.rounds[target]
	if !exists {
		set = newMessageSet()
		rcs.rounds[target] = set
	}
	if err := set.add(msg); err != nil {
		return artifacts, false, err
	}
	if set.size() < rcs.quorum {
		return artifacts, false, nil
	}

	rcs.actioned[target] = struct{}{}
	return types.ExtractRoundChangeArtifacts(set.list()), true, nil
}

// Size returns the number of ROUND-CHANGEs held for target.
func (rcs *RoundChangeSet) Size(target types.RoundIdentifier) int {
	set, ok := rcs.rounds[target]
	if !ok {
		return 0
	}
	return set.size()
}

// DiscardRoundsBelow drops every round lower than round and ignores them
// from now on.
func (rcs *RoundChangeSet) DiscardRoundsBelow(round types.RoundIdentifier) {
	if round.Less(rcs.floor) {
		return
	}
	rcs.floor = round
	for target := range rcs.rounds {
		if target.Less(round) {
			delete(rcs.rounds, target)
		}
	}
	for target := range rcs.actioned {
		if target.Less(round) {
			delete(rcs.actioned, target)
		}
	}
}
