package game

import (
	"fmt"
	"sync"
	"time"
)

// TurnHooks extends NPCHooks with the one extra override a turn-based kind
// must supply: synthesizing a default action for a player who lets the
// turn clock run out.
type TurnHooks interface {
	NPCHooks
	GetDefaultAction(userID string) any
}

// TurnBasedBase embeds NPCBase and adds turn ordering: a channel-backed
// binary semaphore per seat standing in for the original's per-player
// threading.Semaphore(value=0) turn tokens, plus a watchdog goroutine that
// advances the turn on a player's behalf if they never act. It mirrors
// server/game/base.py's TurnBasedGame.
type TurnBasedBase struct {
	*NPCBase

	hooks TurnHooks

	turnTimeout time.Duration

	currPlayerIdx  int
	currTurnNumber int
	currGameNumber int

	turnTokens *Map[string, chan struct{}]

	timeoutStop chan struct{}
	timeoutWG   sync.WaitGroup
}

// NewTurnBasedBase wraps an already-constructed NPCBase. turnTimeout <= 0
// disables the watchdog, matching an unset turn_timeout in the original.
func NewTurnBasedBase(npcBase *NPCBase, turnTimeout time.Duration) *TurnBasedBase {
	return &TurnBasedBase{
		NPCBase:     npcBase,
		turnTimeout: turnTimeout,
		turnTokens:  NewMap[string, chan struct{}](),
	}
}

func (t *TurnBasedBase) SetHooks(h TurnHooks) {
	t.hooks = h
	t.NPCBase.SetHooks(h)
}

func (t *TurnBasedBase) AddPlayer(userID string, idx *int, bufSize int) error {
	if err := t.NPCBase.AddPlayer(userID, idx, bufSize); err != nil {
		return err
	}
	t.turnTokens.Set(userID, make(chan struct{}, 1))
	return nil
}

func (t *TurnBasedBase) AddNPCPlayer(userID string, idx *int) error {
	if err := t.NPCBase.AddNPCPlayer(userID, idx); err != nil {
		return err
	}
	t.turnTokens.Set(userID, make(chan struct{}, 1))
	return nil
}

// Activate bumps the game-number counter (used to rotate the start player
// across replays of the same instance), delegates to NPCBase.Activate to
// spin up the NPC policy consumers, hands the first turn token, then starts
// the timeout watchdog.
func (t *TurnBasedBase) Activate() error {
	t.currGameNumber++
	if err := t.NPCBase.Activate(); err != nil {
		t.currGameNumber--
		return err
	}
	for _, tok := range t.turnTokens.Snapshot() {
		select {
		case <-tok:
		default:
		}
	}
	t.advanceTurn(true)
	t.timeoutStop = make(chan struct{})
	t.timeoutWG.Add(1)
	go t.timeoutWatchdog(t.timeoutStop)
	return nil
}

func (t *TurnBasedBase) Deactivate() error {
	if t.timeoutStop != nil {
		close(t.timeoutStop)
	}
	t.timeoutWG.Wait()
	return t.NPCBase.Deactivate()
}

// Tick reimplements the active/needs-reset/finished envelope itself rather
// than delegating to NPCBase.Tick, since the action-application phase must
// be scoped to exactly the current player's slot instead of draining every
// occupied slot.
func (t *TurnBasedBase) Tick() (Status, error) {
	return safeValue(func() (Status, error) {
		if !t.Base.IsActive() {
			return StatusInactive, nil
		}
		if t.Base.NeedsReset() {
			return t.Base.Reset()
		}
		if err := t.applyTurnAction(); err != nil {
			return Status(""), err
		}
		if t.Base.IsFinished() {
			return StatusDone, nil
		}
		return StatusActive, nil
	})
}

func (t *TurnBasedBase) applyTurnAction() error {
	idx := t.currPlayerIdx
	if idx < 0 || idx >= len(t.Base.playerSlots) {
		return NewConsistencyError(fmt.Errorf("current turn index %d out of range", idx))
	}
	user := t.Base.playerSlots[idx]
	if user == EmptySlot {
		return NewConsistencyError(fmt.Errorf("current turn player slot %d is empty", idx))
	}
	action, ok := t.Base.pendingActions[idx].Get()
	if !ok {
		return nil
	}
	if err := t.Base.hooks.ApplyAction(idx, action); err != nil {
		return NewValidationError(err)
	}
	t.advanceTurn(false)
	return nil
}

// advanceTurn moves curr_player forward (get_start_player on the first
// call of a fresh activation, get_next_player thereafter), releases the
// next player's turn token, and — if the next player is an NPC — pushes
// the current state to its policy consumer so it can act without waiting
// for a human-driven tick.
func (t *TurnBasedBase) advanceTurn(initial bool) {
	n := len(t.Base.playerSlots)
	if n == 0 {
		return
	}
	if initial {
		t.currTurnNumber = 0
		t.currPlayerIdx = t.currGameNumber % n
	} else {
		t.currTurnNumber++
		t.currPlayerIdx = t.nextOccupiedSlot(t.currPlayerIdx)
	}
	nextUser := t.Base.playerSlots[t.currPlayerIdx]
	if nextUser == EmptySlot {
		return
	}
	if tok, ok := t.turnTokens.Get(nextUser); ok {
		select {
		case tok <- struct{}{}:
		default:
		}
	}
	if t.NPCBase.npcPlayers.Has(nextUser) {
		if sc, ok := t.NPCBase.stateChans.Get(nextUser); ok {
			sc.Push(t.Base.GetState())
		}
	}
}

func (t *TurnBasedBase) nextOccupiedSlot(from int) int {
	n := len(t.Base.playerSlots)
	for i := 1; i <= n; i++ {
		cand := (from + i) % n
		if t.Base.playerSlots[cand] != EmptySlot {
			return cand
		}
	}
	return from
}

// CurrPlayer returns the user ID holding the turn right now.
func (t *TurnBasedBase) CurrPlayer() string {
	if t.currPlayerIdx < 0 || t.currPlayerIdx >= len(t.Base.playerSlots) {
		return EmptySlot
	}
	return t.Base.playerSlots[t.currPlayerIdx]
}

// CurrTurnNumber returns the number of turns advanced in this activation.
func (t *TurnBasedBase) CurrTurnNumber() int {
	return t.currTurnNumber
}

// EnqueueAction first attempts a non-blocking acquire of the caller's turn
// token; failing that means it is not their turn. On success it forwards to
// Base.EnqueueAction (bypassing NPCBase, which does not override this path)
// and releases the token back if that forwarded call did not actually
// enqueue anything, so a full per-slot queue cannot strand the game
// waiting on a token nobody holds.
func (t *TurnBasedBase) EnqueueAction(userID string, action any) (bool, error) {
	tok, ok := t.turnTokens.Get(userID)
	if !ok {
		return false, NewValidationError(fmt.Errorf("user %s is not a player in this game", userID))
	}
	select {
	case <-tok:
	default:
		return false, NewValidationError(fmt.Errorf("it is not %s's turn", userID))
	}
	enqueued, err := t.Base.EnqueueAction(userID, action)
	if err != nil || !enqueued {
		select {
		case tok <- struct{}{}:
		default:
		}
	}
	return enqueued, err
}

// timeoutWatchdog synthesizes and enqueues a default action on a player's
// behalf if curr_player/curr_turn_number are unchanged across one full
// turnTimeout interval, exactly as the original's timeout_function thread
// does by comparing state across successive exit_event.wait wakeups.
func (t *TurnBasedBase) timeoutWatchdog(stop <-chan struct{}) {
	defer t.timeoutWG.Done()
	if t.turnTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(t.turnTimeout)
	defer ticker.Stop()

	lastPlayerIdx, lastTurn := -1, -1
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if t.Base.IsActive() && t.currPlayerIdx == lastPlayerIdx && t.currTurnNumber == lastTurn {
				user := t.Base.playerSlots[t.currPlayerIdx]
				if user != EmptySlot {
					action := t.hooks.GetDefaultAction(user)
					_, _ = t.EnqueueAction(user, action)
				}
			}
			lastPlayerIdx, lastTurn = t.currPlayerIdx, t.currTurnNumber
		}
	}
}
