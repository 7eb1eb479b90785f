package connectfour

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tkahng/gamecore/game"
)

func newTwoPlayerGame(t *testing.T) (*ConnectFour, string, string) {
	t.Helper()
	inst, err := New(1, nil)
	require.NoError(t, err)
	cf := inst.(*ConnectFour)

	require.NoError(t, cf.AddPlayer("alice", nil, -1))
	require.NoError(t, cf.AddPlayer("bob", nil, -1))
	require.True(t, cf.IsReady())
	require.NoError(t, cf.Activate())
	return cf, "alice", "bob"
}

func TestConnectFourVerticalWin(t *testing.T) {
	cf, alice, _ := newTwoPlayerGame(t)

	status := game.StatusActive
	var err error
	for i := 0; i < 40 && status == game.StatusActive; i++ {
		curr := cf.CurrPlayer()
		col := 1
		if curr == alice {
			col = 0
		}
		ok, enqErr := cf.EnqueueAction(curr, col)
		require.NoError(t, enqErr)
		require.True(t, ok)

		status, err = cf.Tick()
		require.NoError(t, err)
	}

	require.Equal(t, game.StatusDone, status)
	require.Equal(t, 1, cf.gamesWon[0]+cf.gamesWon[1])
}

func TestConnectFourRejectsOutOfTurnAction(t *testing.T) {
	cf, alice, bob := newTwoPlayerGame(t)

	notTurn := alice
	if cf.CurrPlayer() == alice {
		notTurn = bob
	}

	ok, err := cf.EnqueueAction(notTurn, 0)
	require.Error(t, err)
	require.False(t, ok)
}

func TestConnectFourInvalidColumnRejected(t *testing.T) {
	cf, _, _ := newTwoPlayerGame(t)
	curr := cf.CurrPlayer()

	ok, err := cf.EnqueueAction(curr, 99)
	require.Error(t, err)
	require.False(t, ok)
}

func TestConnectFourVsAISeatsNPC(t *testing.T) {
	inst, err := New(2, map[string]any{"vs_ai": true})
	require.NoError(t, err)
	cf := inst.(*ConnectFour)

	require.NoError(t, cf.AddPlayer("alice", nil, -1))
	require.True(t, cf.IsFull())
	require.True(t, cf.IsReady())
	require.NoError(t, cf.Activate())

	_, ok := cf.Policy("npc-0")
	require.True(t, ok)
}
