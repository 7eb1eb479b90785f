package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type appliedCall struct {
	idx    int
	action any
}

// fakeGame is a minimal Hooks implementation for exercising Base directly,
// the way a concrete kind like connectfour.ConnectFour would.
type fakeGame struct {
	*Base

	full        bool
	lastGame    bool
	gameOver    bool
	validAction bool
	applyErr    error
	applied     []appliedCall
}

func newFakeGame(numSlots int) *fakeGame {
	b := NewBase(1, numSlots, 30, 1000, false, false)
	f := &fakeGame{Base: b, validAction: true}
	f.Base.SetHooks(f)
	return f
}

func (f *fakeGame) IsFull() bool { return f.full }
func (f *fakeGame) ApplyAction(idx int, action any) error {
	f.applied = append(f.applied, appliedCall{idx, action})
	return f.applyErr
}
func (f *fakeGame) IsLastGame() bool                                { return f.lastGame }
func (f *fakeGame) CurrGameOver() bool                              { return f.gameOver }
func (f *fakeGame) IsValidAction(userID string, action any) bool    { return f.validAction }
func (f *fakeGame) GetState() any                                  { return "state" }
func (f *fakeGame) GetData() any                                   { return nil }

func TestBaseAddPlayerFillsSlotsAndRejectsDuplicates(t *testing.T) {
	f := newFakeGame(2)

	require.NoError(t, f.AddPlayer("alice", nil, -1))
	require.NoError(t, f.AddPlayer("bob", nil, -1))
	require.ElementsMatch(t, []string{"alice", "bob"}, f.Players())

	err := f.AddPlayer("alice", nil, -1)
	require.Error(t, err)

	idx0 := 0
	err = f.AddPlayer("carol", &idx0, -1)
	require.Error(t, err)
}

func TestBaseAddPlayerRejectsWhileActive(t *testing.T) {
	f := newFakeGame(2)
	require.NoError(t, f.AddPlayer("alice", nil, -1))
	require.NoError(t, f.Activate())

	err := f.AddPlayer("bob", nil, -1)
	require.Error(t, err)

	var gameErr *Error
	require.ErrorAs(t, err, &gameErr)
	require.Equal(t, KindValidation, gameErr.Kind)
}

func TestBaseAddSpectatorRejectsExistingPlayer(t *testing.T) {
	f := newFakeGame(2)
	require.NoError(t, f.AddPlayer("alice", nil, -1))

	err := f.AddSpectator("alice")
	require.Error(t, err)

	require.NoError(t, f.AddSpectator("bob"))
	require.Equal(t, []string{"bob"}, f.Spectators())
}

func TestBaseActivateTwiceErrors(t *testing.T) {
	f := newFakeGame(1)
	require.NoError(t, f.AddPlayer("alice", nil, -1))
	require.NoError(t, f.Activate())

	err := f.Activate()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrAlreadyActive))
}

func TestBaseEnqueueActionRequiresActiveAndPlayer(t *testing.T) {
	f := newFakeGame(1)
	require.NoError(t, f.AddPlayer("alice", nil, -1))

	_, err := f.EnqueueAction("alice", "move")
	require.Error(t, err)

	_, err = f.EnqueueAction("stranger", "move")
	require.Error(t, err)
	require.NoError(t, f.Activate())

	ok, err := f.EnqueueAction("alice", "move")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBaseEnqueueActionInvalidHonorsIgnoreFlag(t *testing.T) {
	f := newFakeGame(1)
	require.NoError(t, f.AddPlayer("alice", nil, -1))
	require.NoError(t, f.Activate())
	f.validAction = false

	ok, err := f.EnqueueAction("alice", "bad")
	require.Error(t, err)
	require.False(t, ok)

	f.ignoreInvalidActions = true
	ok, err = f.EnqueueAction("alice", "bad")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBaseTickAppliesPendingActionAndFinishes(t *testing.T) {
	f := newFakeGame(1)
	require.NoError(t, f.AddPlayer("alice", nil, -1))
	require.NoError(t, f.Activate())

	ok, err := f.EnqueueAction("alice", 7)
	require.NoError(t, err)
	require.True(t, ok)

	status, err := f.Tick()
	require.NoError(t, err)
	require.Equal(t, StatusActive, status)
	require.Len(t, f.applied, 1)
	require.Equal(t, 7, f.applied[0].action)

	f.gameOver = true
	f.lastGame = true
	status, err = f.Tick()
	require.NoError(t, err)
	require.Equal(t, StatusDone, status)
}

func TestBaseTickInactiveIsNoop(t *testing.T) {
	f := newFakeGame(1)
	status, err := f.Tick()
	require.NoError(t, err)
	require.Equal(t, StatusInactive, status)
}

func TestBaseNeedsResetTransitionsThroughReset(t *testing.T) {
	f := newFakeGame(1)
	require.NoError(t, f.AddPlayer("alice", nil, -1))
	require.NoError(t, f.Activate())

	f.gameOver = true
	f.lastGame = false

	status, err := f.Tick()
	require.NoError(t, err)
	require.Equal(t, StatusReset, status)
	require.True(t, f.IsActive())
}

func TestBaseResetRejectsWhenInactive(t *testing.T) {
	f := newFakeGame(1)
	_, err := f.Reset()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotActive))
}
