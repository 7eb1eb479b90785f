package game

import (
	"fmt"
	"sync"
)

// Base is the concrete, embeddable struct providing the default behavior of
// every game kind, mirroring server/game/base.py's Game class. A concrete
// kind embeds *Base and, after constructing it, calls SetHooks(self) so
// Base's default method bodies can call back into the kind's overrides
// (IsFull, ApplyAction, IsLastGame, CurrGameOver, IsValidAction, GetState,
// GetData) — Go has no subclass dispatch through embedding, so the hooks
// reference stands in for it.
//
// Base.Lock/Unlock is the single "game lock" spec section 5 refers to: the
// coordinator and Tick Driver hold it across every state-mutating sequence.
// Base's own mutating methods assume the caller already holds it and do not
// re-acquire it internally. EnqueueAction is the one exception: it is never
// called under the game lock, and synchronizes only through the per-slot
// action queue's own mutex, exactly as _enqueue_action in the original does
// not take self.lock either.
type Base struct {
	mu sync.Mutex

	id    int
	hooks Hooks

	playerSlots    []string
	pendingActions []*actionQueue
	spectators     *Set[string]

	active                bool
	fps                   int
	resetTimeoutMillis    int
	ignoreInvalidActions  bool
	debug                 bool
	inToJSON              bool
}

// NewBase allocates numSlots player slots, all EMPTY, and an unbounded
// pending-action queue behind each. AddPlayer replaces a seat's queue with
// one of the bufSize it is given (-1 for unbounded).
func NewBase(id, numSlots, fps, resetTimeoutMillis int, ignoreInvalidActions, debug bool) *Base {
	b := &Base{
		id:                   id,
		playerSlots:          make([]string, numSlots),
		pendingActions:       make([]*actionQueue, numSlots),
		spectators:           NewSet[string](),
		fps:                  fps,
		resetTimeoutMillis:   resetTimeoutMillis,
		ignoreInvalidActions: ignoreInvalidActions,
		debug:                debug,
	}
	for i := range b.playerSlots {
		b.playerSlots[i] = EmptySlot
		b.pendingActions[i] = newActionQueue(-1)
	}
	return b
}

// SetHooks wires the concrete kind's override implementations back into
// Base. Must be called once, immediately after construction, before the
// instance is published into the Games table.
func (b *Base) SetHooks(h Hooks) {
	b.hooks = h
}

func (b *Base) Lock()   { b.mu.Lock() }
func (b *Base) Unlock() { b.mu.Unlock() }

func (b *Base) ID() int                  { return b.id }
func (b *Base) FPS() int                 { return b.fps }
func (b *Base) ResetTimeoutMillis() int  { return b.resetTimeoutMillis }
func (b *Base) IsActive() bool           { return b.active }

func (b *Base) IsFull() bool {
	v, _ := safeValue(func() (bool, error) { return b.hooks.IsFull(), nil })
	return v
}

// IsReady defaults to IsFull; NPCBase shadows this to also require at least
// one human player.
func (b *Base) IsReady() bool {
	return b.IsFull()
}

// IsEmpty defaults to "no players and no spectators"; NPCBase shadows this
// to also treat an all-NPC roster as empty.
func (b *Base) IsEmpty() bool {
	return b.NumPlayers() == 0 && b.spectators.Len() == 0
}

func (b *Base) CurrGameOver() bool {
	v, _ := safeValue(func() (bool, error) { return b.hooks.CurrGameOver(), nil })
	return v
}

func (b *Base) IsFinished() bool {
	return b.CurrGameOver() && b.isLastGame()
}

func (b *Base) isLastGame() bool {
	v, _ := safeValue(func() (bool, error) { return b.hooks.IsLastGame(), nil })
	return v
}

func (b *Base) NeedsReset() bool {
	return b.CurrGameOver() && !b.IsFinished()
}

// Activate flips the instance active. A second Activate on an already-active
// instance is rejected rather than treated as a no-op, since NPCBase and
// TurnBasedBase spawn background goroutines here; letting it through a
// second time would double-spawn workers.
func (b *Base) Activate() error {
	return safeCall(func() error {
		if b.active {
			return NewValidationError(ErrAlreadyActive)
		}
		b.active = true
		return nil
	})
}

func (b *Base) Deactivate() error {
	return safeCall(func() error {
		b.active = false
		return nil
	})
}

func (b *Base) Reset() (Status, error) {
	return safeValue(func() (Status, error) {
		if !b.active {
			return Status(""), NewValidationError(ErrNotActive)
		}
		if b.IsFinished() {
			return StatusDone, nil
		}
		// Cycle through the concrete kind's own Deactivate/Activate when it
		// has them, so the layers embedding Base restart with the round.
		var cycle interface {
			Activate() error
			Deactivate() error
		} = b
		if lc, ok := b.hooks.(interface {
			Activate() error
			Deactivate() error
		}); ok {
			cycle = lc
		}
		if err := cycle.Deactivate(); err != nil {
			return Status(""), err
		}
		if err := cycle.Activate(); err != nil {
			return Status(""), err
		}
		return StatusReset, nil
	})
}

func (b *Base) Tick() (Status, error) {
	return safeValue(func() (Status, error) {
		if !b.active {
			return StatusInactive, nil
		}
		if b.NeedsReset() {
			return b.Reset()
		}
		if err := b.applyActions(); err != nil {
			return Status(""), err
		}
		if b.IsFinished() {
			return StatusDone, nil
		}
		return StatusActive, nil
	})
}

// applyActions drains every pending action of each occupied slot, in slot
// order, and hands each to ApplyAction. A slot with nothing queued this
// tick is silently skipped, matching the original's queue.Empty handling.
// An NPC slot under block_for_ai instead waits for its policy consumer's
// enqueue and applies that one action (see NPCSlotBlocker).
func (b *Base) applyActions() error {
	blocker, canBlock := b.hooks.(NPCSlotBlocker)
	for i, p := range b.playerSlots {
		if p == EmptySlot {
			continue
		}
		blocking := canBlock && blocker.BlockForAI() && blocker.IsNPCSlot(i)
		for {
			var action any
			var ok bool
			if blocking {
				action, ok = b.pendingActions[i].GetBlocking(blocker.StopChan())
			} else {
				action, ok = b.pendingActions[i].Get()
			}
			if !ok {
				break
			}
			if err := b.hooks.ApplyAction(i, action); err != nil {
				return NewValidationError(err)
			}
			if blocking {
				break
			}
		}
	}
	return nil
}

// indexOf is read without the game lock by design (see EnqueueAction); it
// mirrors the same informally-synchronized lookup the original performs
// against self.players from inside _enqueue_action.
func (b *Base) indexOf(userID string) int {
	for i, p := range b.playerSlots {
		if p == userID {
			return i
		}
	}
	return -1
}

func (b *Base) NumPlayers() int {
	n := 0
	for _, p := range b.playerSlots {
		if p != EmptySlot {
			n++
		}
	}
	return n
}

func (b *Base) AddPlayer(userID string, idx *int, bufSize int) error {
	return safeCall(func() error {
		if b.active {
			return NewValidationError(ErrActive)
		}
		if b.IsFull() {
			return NewValidationError(ErrFull)
		}
		if b.spectators.Has(userID) {
			return NewValidationError(ErrSpectatorPlayer)
		}
		if b.indexOf(userID) >= 0 {
			return NewValidationError(fmt.Errorf("user %s is already a player", userID))
		}
		slot := -1
		if idx != nil {
			if *idx < 0 || *idx >= len(b.playerSlots) {
				return NewValidationError(fmt.Errorf("slot index %d out of range", *idx))
			}
			if b.playerSlots[*idx] != EmptySlot {
				return NewValidationError(fmt.Errorf("slot %d is already occupied", *idx))
			}
			slot = *idx
		} else {
			for i, p := range b.playerSlots {
				if p == EmptySlot {
					slot = i
					break
				}
			}
			if slot < 0 {
				return NewValidationError(ErrFull)
			}
		}
		b.playerSlots[slot] = userID
		b.pendingActions[slot] = newActionQueue(bufSize)
		return nil
	})
}

func (b *Base) AddSpectator(userID string) error {
	return safeCall(func() error {
		if b.indexOf(userID) >= 0 {
			return NewValidationError(ErrSpectatorPlayer)
		}
		b.spectators.Add(userID)
		return nil
	})
}

func (b *Base) RemovePlayer(userID string) bool {
	idx := b.indexOf(userID)
	if idx < 0 {
		return false
	}
	b.playerSlots[idx] = EmptySlot
	b.pendingActions[idx].Clear()
	return true
}

func (b *Base) RemoveSpectator(userID string) bool {
	if !b.spectators.Has(userID) {
		return false
	}
	b.spectators.Remove(userID)
	return true
}

// EnqueueAction is intentionally called without the game lock held (see the
// Base doc comment). It rejects actions from non-players and while inactive
// with an error; an invalid action is dropped silently (false, nil) when
// ignoreInvalidActions is set and rejected with an error otherwise. These
// checks and the queue
// Put itself only rely on data structures safe for concurrent, lock-free
// access from this single entry point.
func (b *Base) EnqueueAction(userID string, action any) (bool, error) {
	return safeValue(func() (bool, error) {
		idx := b.indexOf(userID)
		if idx < 0 {
			return false, NewValidationError(fmt.Errorf("user %s is not a player in this game", userID))
		}
		if !b.active {
			return false, NewValidationError(fmt.Errorf("game is not active"))
		}
		if !b.hooks.IsValidAction(userID, action) {
			if b.ignoreInvalidActions {
				return false, nil
			}
			return false, NewValidationError(fmt.Errorf("invalid action from %s", userID))
		}
		ok := b.pendingActions[idx].Put(action)
		return ok, nil
	})
}

func (b *Base) IsValidAction(userID string, action any) bool {
	v, _ := safeValue(func() (bool, error) { return b.hooks.IsValidAction(userID, action), nil })
	return v
}

func (b *Base) GetState() any {
	v, _ := safeValue(func() (any, error) { return b.hooks.GetState(), nil })
	return v
}

func (b *Base) GetData() any {
	v, _ := safeValue(func() (any, error) { return b.hooks.GetData(), nil })
	return v
}

// ToJSON defaults to GetState's wire representation; a kind's hooks may
// implement JSONOverrider to replace it. A kind embedding Base always has
// the promoted ToJSON, so the inToJSON flag turns that re-entry into the
// GetState fallback instead of endless recursion.
func (b *Base) ToJSON() any {
	if jo, ok := b.hooks.(JSONOverrider); ok && !b.inToJSON {
		b.inToJSON = true
		defer func() { b.inToJSON = false }()
		v, _ := safeValue(func() (any, error) { return jo.ToJSON(), nil })
		return v
	}
	return b.GetState()
}

func (b *Base) Players() []string {
	out := make([]string, 0, len(b.playerSlots))
	for _, p := range b.playerSlots {
		if p != EmptySlot {
			out = append(out, p)
		}
	}
	return out
}

func (b *Base) Spectators() []string {
	return b.spectators.Snapshot()
}

// Slots returns a copy of every seat, EMPTY included, in slot-index order.
// Concrete kinds outside the game package use this to map their own
// per-slot state (board position, score, ...) back onto occupancy.
func (b *Base) Slots() []string {
	out := make([]string, len(b.playerSlots))
	copy(out, b.playerSlots)
	return out
}
