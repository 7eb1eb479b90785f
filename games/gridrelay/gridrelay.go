// Package gridrelay implements a small real-time, NPC-capable cooperative
// game kind exercising the non-turn-based branch of the game package:
// every seated player moves a token toward its own goal cell every tick,
// simultaneously rather than in turn order. It is loosely grounded on the
// coordination shape of original_source/server/game/overcooked.py (shared
// real-time episode, optional NPC teammates) — the underlying task is a
// deliberate simplification of Overcooked's kitchen simulation, which is
// explicitly out of scope (spec.md's Non-goals exclude exact per-game rule
// fidelity).
package gridrelay

import (
	"fmt"
	"math/rand"

	"github.com/tkahng/gamecore/game"
)

const DefaultGridSize = 8

// Direction codes accepted as an action payload.
const (
	DirUp = iota
	DirDown
	DirLeft
	DirRight
)

// Pos is a grid coordinate.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// State is the wire representation returned from GetState.
type State struct {
	GridSize  int    `json:"grid_size"`
	Positions []Pos  `json:"positions"`
	Goals     []Pos  `json:"goals"`
	Slots     []string `json:"slots"`
	Ticks     int    `json:"ticks"`
	MaxTicks  int    `json:"max_ticks"`
}

// GridRelay is a cooperative real-time game kind: the round ends once every
// occupied seat's token has reached its goal, or maxTicks elapses.
type GridRelay struct {
	*game.NPCBase

	gridSize   int
	maxPlayers int
	maxTicks   int
	ticks      int

	positions []Pos
	goals     []Pos

	policies map[string]game.Policy
	rng      *rand.Rand
}

// New constructs a fresh GridRelay instance. params["players"] (int) sets
// the seat count (default 2). params["vs_ai"] (bool) seats one NPC
// teammate with a greedy-toward-goal policy in the last seat.
func New(id int, params map[string]any) (game.Instance, error) {
	maxPlayers := 2
	if v, ok := asInt(params["players"]); ok && v > 0 {
		maxPlayers = v
	}

	base := game.NewBase(id, maxPlayers, 10, 1500, true, false)
	// block_for_ai stays off here: with no state pushed to a freshly seated
	// NPC's policy consumer until after its first apply_actions call, a
	// slot that blocks from tick one has no action to wait for yet.
	npcBase := game.NewNPCBase(base, 5, false)

	gr := &GridRelay{
		NPCBase:    npcBase,
		gridSize:   DefaultGridSize,
		maxPlayers: maxPlayers,
		maxTicks:   300,
		policies:   make(map[string]game.Policy),
		rng:        rand.New(rand.NewSource(int64(id) + 1)),
	}
	gr.NPCBase.SetHooks(gr)

	if vsAI, _ := params["vs_ai"].(bool); vsAI && maxPlayers >= 2 {
		gr.policies["npc-0"] = &greedyPolicy{owner: gr, seat: maxPlayers - 1}
		idx := maxPlayers - 1
		if err := gr.AddNPCPlayer("npc-0", &idx); err != nil {
			return nil, err
		}
	}
	return gr, nil
}

// Activate resets the tick counter and scatters a fresh spawn/goal pair for
// every seat.
func (g *GridRelay) Activate() error {
	g.ticks = 0
	g.positions = make([]Pos, g.maxPlayers)
	g.goals = make([]Pos, g.maxPlayers)
	for i := range g.positions {
		g.positions[i] = g.randomCell()
		g.goals[i] = g.randomCell()
	}
	return g.NPCBase.Activate()
}

func (g *GridRelay) randomCell() Pos {
	return Pos{X: g.rng.Intn(g.gridSize), Y: g.rng.Intn(g.gridSize)}
}

func (g *GridRelay) IsFull() bool {
	return g.NumPlayers() == g.maxPlayers
}

func (g *GridRelay) IsLastGame() bool {
	return true
}

func (g *GridRelay) CurrGameOver() bool {
	return g.allAtGoal() || g.ticks >= g.maxTicks
}

func (g *GridRelay) IsValidAction(userID string, action any) bool {
	dir, ok := asInt(action)
	return ok && dir >= DirUp && dir <= DirRight
}

func (g *GridRelay) ApplyAction(playerIdx int, action any) error {
	dir, ok := asInt(action)
	if !ok || dir < DirUp || dir > DirRight {
		return fmt.Errorf("invalid direction %v", action)
	}
	g.move(playerIdx, dir)
	return nil
}

func (g *GridRelay) move(seat, dir int) {
	p := g.positions[seat]
	switch dir {
	case DirUp:
		p.Y = clamp(p.Y-1, 0, g.gridSize-1)
	case DirDown:
		p.Y = clamp(p.Y+1, 0, g.gridSize-1)
	case DirLeft:
		p.X = clamp(p.X-1, 0, g.gridSize-1)
	case DirRight:
		p.X = clamp(p.X+1, 0, g.gridSize-1)
	}
	g.positions[seat] = p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (g *GridRelay) allAtGoal() bool {
	slots := g.Slots()
	for i, seat := range slots {
		if seat == game.EmptySlot {
			continue
		}
		if g.positions[i] != g.goals[i] {
			return false
		}
	}
	return true
}

func (g *GridRelay) Policy(userID string) (game.Policy, bool) {
	p, ok := g.policies[userID]
	return p, ok
}

// Tick advances the shared round clock before delegating to NPCBase.Tick,
// which applies this tick's queued moves and periodically republishes the
// state to any NPC teammates.
func (g *GridRelay) Tick() (game.Status, error) {
	g.ticks++
	return g.NPCBase.Tick()
}

func (g *GridRelay) GetState() any {
	return State{
		GridSize:  g.gridSize,
		Positions: append([]Pos(nil), g.positions...),
		Goals:     append([]Pos(nil), g.goals...),
		Slots:     g.Slots(),
		Ticks:     g.ticks,
		MaxTicks:  g.maxTicks,
	}
}

func (g *GridRelay) GetData() any {
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// greedyPolicy steps one seat toward its goal each time it is asked to act,
// the NPC teammate's default behavior when a GridRelay game is created with
// vs_ai=true.
type greedyPolicy struct {
	owner *GridRelay
	seat  int
}

func (p *greedyPolicy) Action(state any) (any, error) {
	pos := p.owner.positions[p.seat]
	goal := p.owner.goals[p.seat]
	switch {
	case pos.X < goal.X:
		return DirRight, nil
	case pos.X > goal.X:
		return DirLeft, nil
	case pos.Y < goal.Y:
		return DirDown, nil
	case pos.Y > goal.Y:
		return DirUp, nil
	default:
		return nil, fmt.Errorf("seat %d is already at its goal", p.seat)
	}
}

func (p *greedyPolicy) Reset() {}
