package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTurnGame struct {
	*TurnBasedBase

	full     bool
	lastGame bool
	over     bool
	applied  []appliedCall
}

func newFakeTurnGame(numSlots int, turnTimeout time.Duration) *fakeTurnGame {
	b := NewBase(1, numSlots, 30, 1000, false, false)
	n := NewNPCBase(b, 1, false)
	tb := NewTurnBasedBase(n, turnTimeout)
	f := &fakeTurnGame{TurnBasedBase: tb}
	f.TurnBasedBase.SetHooks(f)
	return f
}

func (f *fakeTurnGame) IsFull() bool { return f.full }
func (f *fakeTurnGame) ApplyAction(idx int, action any) error {
	f.applied = append(f.applied, appliedCall{idx, action})
	return nil
}
func (f *fakeTurnGame) IsLastGame() bool                             { return f.lastGame }
func (f *fakeTurnGame) CurrGameOver() bool                           { return f.over }
func (f *fakeTurnGame) IsValidAction(userID string, action any) bool { return true }
func (f *fakeTurnGame) GetState() any                                { return "state" }
func (f *fakeTurnGame) GetData() any                                 { return nil }
func (f *fakeTurnGame) Policy(userID string) (Policy, bool)          { return nil, false }
func (f *fakeTurnGame) GetDefaultAction(userID string) any           { return "default-action" }

func TestTurnBasedOnlyCurrPlayerMayAct(t *testing.T) {
	f := newFakeTurnGame(2, 0)
	require.NoError(t, f.AddPlayer("alice", nil, -1))
	require.NoError(t, f.AddPlayer("bob", nil, -1))
	require.NoError(t, f.Activate())
	defer f.Deactivate()

	curr := f.CurrPlayer()
	other := "alice"
	if curr == "alice" {
		other = "bob"
	}

	_, err := f.EnqueueAction(other, "move")
	require.Error(t, err)

	ok, err := f.EnqueueAction(curr, "move")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTurnBasedAdvanceTurnRoundRobin(t *testing.T) {
	f := newFakeTurnGame(2, 0)
	require.NoError(t, f.AddPlayer("alice", nil, -1))
	require.NoError(t, f.AddPlayer("bob", nil, -1))
	require.NoError(t, f.Activate())
	defer f.Deactivate()

	first := f.CurrPlayer()
	startTurn := f.CurrTurnNumber()

	ok, err := f.EnqueueAction(first, "move")
	require.NoError(t, err)
	require.True(t, ok)

	status, err := f.Tick()
	require.NoError(t, err)
	require.Equal(t, StatusActive, status)

	require.NotEqual(t, first, f.CurrPlayer())
	require.Equal(t, startTurn+1, f.CurrTurnNumber())
	require.Len(t, f.applied, 1)
}

func TestTurnBasedWatchdogSynthesizesDefaultAction(t *testing.T) {
	f := newFakeTurnGame(2, 20*time.Millisecond)
	require.NoError(t, f.AddPlayer("alice", nil, -1))
	require.NoError(t, f.AddPlayer("bob", nil, -1))
	require.NoError(t, f.Activate())
	defer f.Deactivate()

	first := f.CurrPlayer()

	deadline := time.After(2 * time.Second)
	for {
		status, err := f.Tick()
		require.NoError(t, err)
		require.NotEqual(t, Status(""), status)
		if f.CurrPlayer() != first {
			break
		}
		select {
		case <-time.After(15 * time.Millisecond):
		case <-deadline:
			t.Fatal("turn never advanced via the timeout watchdog")
		}
	}

	require.Len(t, f.applied, 1)
	require.Equal(t, "default-action", f.applied[0].action)
}
