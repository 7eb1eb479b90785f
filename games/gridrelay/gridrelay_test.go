package gridrelay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tkahng/gamecore/game"
)

func TestGridRelayRunsToGoal(t *testing.T) {
	inst, err := New(1, map[string]any{"players": 1})
	require.NoError(t, err)
	gr := inst.(*GridRelay)

	require.NoError(t, gr.AddPlayer("alice", nil, -1))
	require.True(t, gr.IsReady())
	require.NoError(t, gr.Activate())

	gr.positions[0] = Pos{X: 0, Y: 0}
	gr.goals[0] = Pos{X: 2, Y: 0}

	status := game.StatusActive
	moves := []int{DirRight, DirRight}
	for _, dir := range moves {
		ok, enqErr := gr.EnqueueAction("alice", dir)
		require.NoError(t, enqErr)
		require.True(t, ok)
		status, err = gr.Tick()
		require.NoError(t, err)
	}

	require.Equal(t, game.StatusDone, status)
}

func TestGridRelayRejectsInvalidDirection(t *testing.T) {
	inst, err := New(2, map[string]any{"players": 1})
	require.NoError(t, err)
	gr := inst.(*GridRelay)

	require.NoError(t, gr.AddPlayer("alice", nil, -1))
	require.NoError(t, gr.Activate())

	// GridRelay ignores invalid actions: the move is dropped without an error.
	ok, err := gr.EnqueueAction("alice", 99)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGridRelayVsAISeatsNPC(t *testing.T) {
	inst, err := New(3, map[string]any{"players": 2, "vs_ai": true})
	require.NoError(t, err)
	gr := inst.(*GridRelay)

	require.NoError(t, gr.AddPlayer("alice", nil, -1))
	require.True(t, gr.IsFull())
	require.True(t, gr.IsReady())
	require.NoError(t, gr.Activate())

	_, ok := gr.Policy("npc-0")
	require.True(t, ok)
}
