package types

import "fmt"

// RoundIdentifier names one attempt at agreeing on a block: the chain height
// (Sequence) and the attempt index within that height (Round).
type RoundIdentifier struct {
	Sequence int64 `json:"sequence"`
	Round    int32 `json:"round"`
}

func NewRoundIdentifier(sequence int64, round int32) RoundIdentifier {
	return RoundIdentifier{Sequence: sequence, Round: round}
}

// Compare orders identifiers by sequence, then round.
// It returns -1, 0 or 1.
func (r RoundIdentifier) Compare(other RoundIdentifier) int {
	switch {
	case r.Sequence < other.Sequence:
		return -1
	case r.Sequence > other.Sequence:
		return 1
	case r.Round < other.Round:
		return -1
	case r.Round > other.Round:
		return 1
	default:
		return 0
	}
}

func (r RoundIdentifier) Less(other RoundIdentifier) bool {
	return r.Compare(other) < 0
}

func (r RoundIdentifier) Equal(other RoundIdentifier) bool {
	return r == other
}

// Next returns the following round at the same sequence.
func (r RoundIdentifier) Next() RoundIdentifier {
	return RoundIdentifier{Sequence: r.Sequence, Round: r.Round + 1}
}

func (r RoundIdentifier) ValidateBasic() error {
	if r.Sequence < 0 {
		return fmt.Errorf("negative sequence %d", r.Sequence)
	}
	if r.Round < 0 {
		return fmt.Errorf("negative round %d", r.Round)
	}
	return nil
}

func (r RoundIdentifier) String() string {
	return fmt.Sprintf("%d/%d", r.Sequence, r.Round)
}
