package state

import (
	"errors"
	"fmt"
)

var (
	ErrBlockValidation = errors.New("block failed validation")
)

type (
	ErrInvalidGenesis struct {
		Err error
	}

	ErrInvalidBlock struct {
		Height int64
		Reason string
	}

	ErrNotEnoughCommitSeals struct {
		Got    int
		Needed int
	}

	ErrInvalidCommitSeal struct {
		Index  int
		Reason string
	}
)

func (e ErrInvalidGenesis) Error() string {
	return fmt.Sprintf("invalid genesis: %v", e.Err)
}

func (e ErrInvalidGenesis) Unwrap() error {
	return e.Err
}

func (e ErrInvalidBlock) Error() string {
	return fmt.Sprintf("invalid block at height %d: %s", e.Height, e.Reason)
}

func (e ErrInvalidBlock) Is(target error) bool {
	return target == ErrBlockValidation
}

func (e ErrNotEnoughCommitSeals) Error() string {
	return fmt.Sprintf("not enough commit seals: got %d, needed %d", e.Got, e.Needed)
}

func (e ErrInvalidCommitSeal) Error() string {
	return fmt.Sprintf("invalid commit seal #%d: %s", e.Index, e.Reason)
}
