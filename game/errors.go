package game

import "fmt"

// Kind classifies the taxonomy of errors a Game Instance or the registries
// around it can produce. See spec section 7.
type Kind string

const (
	KindCapacity    Kind = "capacity"
	KindValidation  Kind = "validation"
	KindConsistency Kind = "consistency"
	KindGame        Kind = "game"
)

// Error is the single error type every public Instance method funnels
// exceptions from subclass logic into. It wraps the underlying cause without
// discarding it.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// NewValidationError builds a validation-kind Error, e.g. invalid action,
// duplicate spectator/player, add-on-active, add-on-full.
func NewValidationError(err error) *Error {
	return newError(KindValidation, err)
}

// NewConsistencyError builds a consistency-kind Error: double-free, an
// active ID found in a waiting state, or similar invariant breach.
func NewConsistencyError(err error) *Error {
	return newError(KindConsistency, err)
}

// NewCapacityError builds a capacity-kind Error: the ID pool is empty.
func NewCapacityError(err error) *Error {
	return newError(KindCapacity, err)
}

var (
	ErrFull            = fmt.Errorf("game is full")
	ErrActive          = fmt.Errorf("cannot add players to an active game")
	ErrAlreadyActive   = fmt.Errorf("game is already active")
	ErrNotActive       = fmt.Errorf("inactive games cannot be reset")
	ErrSpectatorPlayer = fmt.Errorf("cannot spectate and play at the same time")
	ErrInconsistent    = fmt.Errorf("inconsistent state")
	ErrAtCapacity      = fmt.Errorf("server at max capacity")
	ErrDoubleFree      = fmt.Errorf("double free on a game")
)
