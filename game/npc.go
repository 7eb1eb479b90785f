package game

import (
	"fmt"
	"sync"
)

// Policy is an NPC's decision-making strategy: Action maps a state snapshot
// to the next action, Reset clears any episode-scoped internal state. This
// is the Go counterpart of the original's abstract NPC class.
type Policy interface {
	Action(state any) (action any, err error)
	Reset()
}

// NPCHooks extends Hooks with the one additional override an NPC-capable
// kind must supply: looking up the Policy behind a given NPC user ID.
type NPCHooks interface {
	Hooks
	Policy(userID string) (Policy, bool)
}

// NPCBase embeds Base and adds background policy-consumer goroutines, one
// per NPC seat, each fed the latest game state through a StateChan and
// enqueuing whatever action its Policy decides on back through the normal
// EnqueueAction path. It mirrors server/game/base.py's NPCGame.
type NPCBase struct {
	*Base

	hooks NPCHooks

	npcPlayers   *Set[string]
	humanPlayers *Set[string]
	stateChans   *Map[string, *StateChan]

	ticksPerAIAction int
	tickCount        int
	blockForAI       bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewNPCBase wraps an already-constructed Base. ticksPerAIAction gates how
// often (in Tick calls) the current state is pushed to NPC consumers; <= 1
// pushes every tick. blockForAI, when set, makes Base.applyActions wait for
// an NPC slot's policy consumer to enqueue its action each tick instead of
// silently skipping an empty queue, mirroring NPCGame.block_for_ai.
func NewNPCBase(base *Base, ticksPerAIAction int, blockForAI bool) *NPCBase {
	return &NPCBase{
		Base:             base,
		npcPlayers:       NewSet[string](),
		humanPlayers:     NewSet[string](),
		stateChans:       NewMap[string, *StateChan](),
		ticksPerAIAction: ticksPerAIAction,
		blockForAI:       blockForAI,
	}
}

// BlockForAI reports whether applyActions should block on an NPC slot's
// queue rather than skip it empty, implementing NPCSlotBlocker.
func (n *NPCBase) BlockForAI() bool { return n.blockForAI }

// IsNPCSlot reports whether slot idx is currently seated by an NPC,
// implementing NPCSlotBlocker.
func (n *NPCBase) IsNPCSlot(idx int) bool {
	if idx < 0 || idx >= len(n.Base.playerSlots) {
		return false
	}
	return n.npcPlayers.Has(n.Base.playerSlots[idx])
}

// StopChan reports the channel that closes on Deactivate, implementing
// NPCSlotBlocker: it unblocks any applyActions call waiting on a slot whose
// NPC never enqueues.
func (n *NPCBase) StopChan() <-chan struct{} { return n.stop }

// SetHooks wires both Base's Hooks and NPCBase's own NPCHooks to the same
// concrete kind.
func (n *NPCBase) SetHooks(h NPCHooks) {
	n.hooks = h
	n.Base.SetHooks(h)
}

// AddPlayer shadows Base.AddPlayer for the human join path used by the
// coordinator; it additionally tracks the seat as human-occupied.
func (n *NPCBase) AddPlayer(userID string, idx *int, bufSize int) error {
	if err := n.Base.AddPlayer(userID, idx, bufSize); err != nil {
		return err
	}
	n.humanPlayers.Add(userID)
	return nil
}

// AddNPCPlayer seats an NPC. Unlike human players, NPC seats are populated
// by the concrete kind's constructor rather than through a join request,
// since there is no connecting websocket client behind them.
func (n *NPCBase) AddNPCPlayer(userID string, idx *int) error {
	if _, ok := n.hooks.Policy(userID); !ok {
		return NewValidationError(fmt.Errorf("no policy registered for npc %s", userID))
	}
	if err := n.Base.AddPlayer(userID, idx, 1); err != nil {
		return err
	}
	n.npcPlayers.Add(userID)
	n.stateChans.Set(userID, NewStateChan())
	return nil
}

// RemovePlayer shadows Base.RemovePlayer so a departed human no longer
// counts toward IsEmpty/IsReady.
func (n *NPCBase) RemovePlayer(userID string) bool {
	if !n.Base.RemovePlayer(userID) {
		return false
	}
	n.humanPlayers.Remove(userID)
	return true
}

// IsEmpty requires at least one human seat occupied or one spectator; an
// all-NPC roster with no spectators is treated as empty so the coordinator
// will clean it up rather than run a spectator-less simulation forever.
func (n *NPCBase) IsEmpty() bool {
	return n.humanPlayers.Len() == 0 && n.Base.spectators.Len() == 0
}

// IsReady requires the roster full and at least one human seated.
func (n *NPCBase) IsReady() bool {
	return n.Base.IsFull() && n.humanPlayers.Len() > 0
}

func (n *NPCBase) sanityCheckRoster() error {
	for _, p := range n.Base.Players() {
		if !n.npcPlayers.Has(p) && !n.humanPlayers.Has(p) {
			return NewConsistencyError(fmt.Errorf("seated player %s is neither tracked human nor npc", p))
		}
	}
	return nil
}

// Activate sanity-checks every seated player is accounted for as human or
// NPC, resets each NPC's policy, then spawns one policyConsumer goroutine
// per NPC seat before delegating to Base.Activate.
func (n *NPCBase) Activate() error {
	if err := n.sanityCheckRoster(); err != nil {
		return err
	}
	for _, uid := range n.npcPlayers.Snapshot() {
		policy, ok := n.hooks.Policy(uid)
		if !ok {
			return NewConsistencyError(fmt.Errorf("no policy registered for npc %s", uid))
		}
		policy.Reset()
	}
	if err := n.Base.Activate(); err != nil {
		return err
	}
	n.stop = make(chan struct{})
	for _, uid := range n.npcPlayers.Snapshot() {
		policy, _ := n.hooks.Policy(uid)
		sc, _ := n.stateChans.Get(uid)
		n.wg.Add(1)
		go n.policyConsumer(uid, policy, sc, n.stop)
	}
	return nil
}

// Deactivate signals every policy consumer to unblock (the stop channel
// stands in for the original's sentinel push into each NPC's queue), waits
// for them to exit, then delegates to Base.Deactivate.
func (n *NPCBase) Deactivate() error {
	if n.stop != nil {
		close(n.stop)
	}
	n.wg.Wait()
	return n.Base.Deactivate()
}

func (n *NPCBase) policyConsumer(userID string, policy Policy, sc *StateChan, stop chan struct{}) {
	defer n.wg.Done()
	for {
		state, ok := sc.Wait(stop)
		if !ok {
			return
		}
		action, err := policy.Action(state)
		if err != nil {
			continue
		}
		_, _ = n.Base.EnqueueAction(userID, action)
	}
}

// Tick delegates to Base.Tick, then — every ticksPerAIAction ticks — pushes
// the current state to every NPC's consumer so its policy can act async
// from the tick loop, matching the original's periodic policy-feed cadence.
func (n *NPCBase) Tick() (Status, error) {
	status, err := n.Base.Tick()
	if err != nil || !n.Base.IsActive() {
		return status, err
	}
	n.tickCount++
	if n.ticksPerAIAction <= 1 || n.tickCount%n.ticksPerAIAction == 0 {
		state := n.Base.GetState()
		for _, uid := range n.npcPlayers.Snapshot() {
			if sc, ok := n.stateChans.Get(uid); ok {
				sc.Push(state)
			}
		}
	}
	return status, err
}
