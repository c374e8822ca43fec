package types

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyValidatorSet = errors.New("validator set is nil or empty")
)

// ErrInvalidValidatorCount is returned by the quorum functions when asked
// about a validator set that cannot exist.
type ErrInvalidValidatorCount struct {
	Count int
}

func (e ErrInvalidValidatorCount) Error() string {
	return fmt.Sprintf("invalid validator count %d: must be positive", e.Count)
}

// Is lets errors.Is match ErrEmptyValidatorSet.
func (e ErrInvalidValidatorCount) Is(target error) bool {
	return target == ErrEmptyValidatorSet
}

// FaultTolerance is the number of byzantine validators a set of n tolerates.
func FaultTolerance(n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidValidatorCount{Count: n}
	}
	return (n - 1) / 3, nil
}

// QuorumSize is the number of distinct signatures that certify an
// agreement among n validators: n - f, i.e. 2f+1 when n = 3f+1.
func QuorumSize(n int) (int, error) {
	f, err := FaultTolerance(n)
	if err != nil {
		return 0, err
	}
	return n - f, nil
}

// PrepareMessageCountForQuorum is the number of PREPAREs that, together
// with the PROPOSAL, make up a quorum.
func PrepareMessageCountForQuorum(n int) (int, error) {
	q, err := QuorumSize(n)
	if err != nil {
		return 0, err
	}
	return q - 1, nil
}
