package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tkahng/gamecore/game"
)

func TestErrorEventForCreateFailureIsCreationFailed(t *testing.T) {
	err := game.NewValidationError(errors.New("unknown kind"))
	require.Equal(t, eventCreationFailed, errorEventFor(eventCreate, err))
}

func TestErrorEventForGameKindIsGameError(t *testing.T) {
	err := game.NewConsistencyError(errors.New("boom"))
	require.Equal(t, eventServerError, errorEventFor(eventAction, err))

	gameErr := &game.Error{Kind: game.KindGame, Err: errors.New("panic recovered")}
	require.Equal(t, eventGameError, errorEventFor(eventAction, gameErr))
}

func TestErrorEventForOtherEventIsServerError(t *testing.T) {
	err := game.NewValidationError(errors.New("not seated"))
	require.Equal(t, eventServerError, errorEventFor(eventLeave, err))
}
