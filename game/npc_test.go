package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedPolicy struct {
	action any
}

func (p *fixedPolicy) Action(state any) (any, error) { return p.action, nil }
func (p *fixedPolicy) Reset()                        {}

type fakeNPCGame struct {
	*NPCBase

	full     bool
	lastGame bool
	gameOver bool
	applied  chan appliedCall
}

func newFakeNPCGame(numSlots, ticksPerAI int) *fakeNPCGame {
	return newFakeNPCGameBlocking(numSlots, ticksPerAI, false)
}

func newFakeNPCGameBlocking(numSlots, ticksPerAI int, blockForAI bool) *fakeNPCGame {
	b := NewBase(1, numSlots, 30, 1000, false, false)
	n := NewNPCBase(b, ticksPerAI, blockForAI)
	f := &fakeNPCGame{NPCBase: n, applied: make(chan appliedCall, 10)}
	f.NPCBase.SetHooks(f)
	return f
}

func (f *fakeNPCGame) IsFull() bool { return f.full }
func (f *fakeNPCGame) ApplyAction(idx int, action any) error {
	f.applied <- appliedCall{idx, action}
	return nil
}
func (f *fakeNPCGame) IsLastGame() bool                             { return f.lastGame }
func (f *fakeNPCGame) CurrGameOver() bool                           { return f.gameOver }
func (f *fakeNPCGame) IsValidAction(userID string, action any) bool { return true }
func (f *fakeNPCGame) GetState() any                                { return "state" }
func (f *fakeNPCGame) GetData() any                                 { return nil }
func (f *fakeNPCGame) Policy(userID string) (Policy, bool) {
	return &fixedPolicy{action: "npc-move"}, true
}

func TestNPCBaseIsEmptyRequiresHuman(t *testing.T) {
	f := newFakeNPCGame(2, 1)
	idx := 1
	require.NoError(t, f.AddNPCPlayer("npc-0", &idx))

	require.True(t, f.IsEmpty())

	require.NoError(t, f.AddPlayer("alice", nil, -1))
	require.False(t, f.IsEmpty())
}

func TestNPCBaseIsReadyRequiresHumanAndFull(t *testing.T) {
	f := newFakeNPCGame(2, 1)
	idx := 1
	require.NoError(t, f.AddNPCPlayer("npc-0", &idx))
	f.full = true
	require.False(t, f.IsReady())

	// AddPlayer refuses a full game, so report a free seat while alice joins.
	f.full = false
	require.NoError(t, f.AddPlayer("alice", nil, -1))
	f.full = true
	require.True(t, f.IsReady())
}

func TestNPCBasePolicyActsAsynchronously(t *testing.T) {
	f := newFakeNPCGame(2, 1)
	idx := 1
	require.NoError(t, f.AddNPCPlayer("npc-0", &idx))
	require.NoError(t, f.AddPlayer("alice", nil, -1))
	require.NoError(t, f.Activate())
	defer f.Deactivate()

	deadline := time.After(2 * time.Second)
	for {
		if _, err := f.Tick(); err != nil {
			t.Fatalf("tick failed: %v", err)
		}
		select {
		case call := <-f.applied:
			require.Equal(t, "npc-move", call.action)
			return
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("npc action was never applied")
		}
	}
}

func TestNPCBaseBlockForAIWaitsForEnqueuedNPCAction(t *testing.T) {
	f := newFakeNPCGameBlocking(2, 1, true)
	idx := 1
	require.NoError(t, f.AddNPCPlayer("npc-0", &idx))
	require.NoError(t, f.AddPlayer("alice", nil, -1))
	require.NoError(t, f.Activate())
	defer f.Deactivate()

	// Seed the NPC's action queue directly, standing in for its policy
	// consumer, so the blocking get inside Tick's applyActions has
	// something to return rather than waiting on the async consumer.
	ok, err := f.EnqueueAction("npc-0", "npc-move")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.Tick()
	require.NoError(t, err)

	select {
	case call := <-f.applied:
		require.Equal(t, 1, call.idx)
		require.Equal(t, "npc-move", call.action)
	case <-time.After(2 * time.Second):
		t.Fatal("block_for_ai slot's enqueued action was never applied")
	}
}

func TestNPCBaseActivateRejectsUntrackedRoster(t *testing.T) {
	f := newFakeNPCGame(1, 1)
	require.NoError(t, f.AddPlayer("alice", nil, -1))
	f.playerSlots[0] = "ghost"

	err := f.Activate()
	require.Error(t, err)
	var gameErr *Error
	require.ErrorAs(t, err, &gameErr)
	require.Equal(t, KindConsistency, gameErr.Kind)
}
