package pauliframe

import (
	"errors"
	"fmt"
)

var (
	// ErrNilCircuit is returned when no circuit is given.
	ErrNilCircuit = errors.New("circuit is nil")
	// ErrNilReference is returned when no reference runner is given.
	ErrNilReference = errors.New("reference runner is nil")
)

// ErrInvalidTrajectories indicates a non-positive trajectory count.
type ErrInvalidTrajectories struct {
	Trajectories int
}

func (e *ErrInvalidTrajectories) Error() string {
	return fmt.Sprintf("trajectories must be positive, got %d", e.Trajectories)
}

// ErrReferenceShape indicates reference outcomes whose length does not match
// the ensemble's measurement slots.
type ErrReferenceShape struct {
	Expected int
	Actual   int
}

func (e *ErrReferenceShape) Error() string {
	return fmt.Sprintf("reference outcomes: expected %d bits, got %d", e.Expected, e.Actual)
}
