// Package connectfour implements a turn-based, optionally NPC-opponent
// Connect Four game kind on top of the game package's TurnBasedBase,
// grounded on original_source/server/game/c4.py's ConnectFourGame. Board
// math is implemented directly rather than delegating to an external
// simulator, since c4.py's kaggle_environments dependency has no Go
// equivalent in the retrieved pack.
package connectfour

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/tkahng/gamecore/game"
)

const (
	Cols = 7
	Rows = 6

	winLength = 4
)

// Cell is the contents of one board position.
type Cell int

const (
	CellEmpty Cell = iota
	CellRed
	CellYellow
)

// State is the wire representation returned from GetState.
type State struct {
	Board        [Rows][Cols]Cell `json:"board"`
	CurrPlayer   string           `json:"curr_player"`
	TurnNumber   int              `json:"turn_number"`
	GamesWon     [2]int           `json:"games_won"`
	SeriesLength int              `json:"series_length"`
}

// ConnectFour is a 2-seat turn-based game kind; a series can span more than
// one round (seriesLength), with the start player rotating each round via
// TurnBasedBase's game-number-indexed get_start_player logic.
type ConnectFour struct {
	*game.TurnBasedBase

	board        [Rows][Cols]Cell
	seriesLength int
	gamesWon     [2]int
	policies     map[string]game.Policy
	rng          *rand.Rand
}

// New constructs a fresh Connect Four instance. params["series_length"]
// (int) sets how many won rounds the series runs for, counted across both
// seats (drawn rounds do not count), defaulting to a single round. Setting
// params["vs_ai"] (bool) seats an NPC in the second slot with a random-move
// policy, mirroring c4.py's non-"human" playerOne configuration.
func New(id int, params map[string]any) (game.Instance, error) {
	seriesLength := 1
	if v, ok := asInt(params["series_length"]); ok && v > 0 {
		seriesLength = v
	}

	base := game.NewBase(id, 2, 30, 3000, false, false)
	// Turn-based play serializes actions through per-seat turn tokens
	// instead of Base.applyActions, so block_for_ai has nothing to gate here.
	npcBase := game.NewNPCBase(base, 1, false)
	tb := game.NewTurnBasedBase(npcBase, 30*time.Second)

	cf := &ConnectFour{
		TurnBasedBase: tb,
		seriesLength:  seriesLength,
		policies:      make(map[string]game.Policy),
		rng:           rand.New(rand.NewSource(int64(id) + 1)),
	}
	cf.TurnBasedBase.SetHooks(cf)

	if vsAI, _ := params["vs_ai"].(bool); vsAI {
		cf.policies["npc-0"] = &randomPolicy{owner: cf}
		idx := 1
		if err := cf.AddNPCPlayer("npc-0", &idx); err != nil {
			return nil, err
		}
	}
	return cf, nil
}

// Activate clears the board before delegating, so every round of a series
// (each a fresh TurnBasedBase activation) starts from an empty grid.
func (c *ConnectFour) Activate() error {
	c.board = [Rows][Cols]Cell{}
	return c.TurnBasedBase.Activate()
}

func (c *ConnectFour) IsFull() bool {
	return c.NumPlayers() == 2
}

func (c *ConnectFour) IsLastGame() bool {
	return c.gamesWon[0]+c.gamesWon[1] >= c.seriesLength
}

func (c *ConnectFour) CurrGameOver() bool {
	return c.winningPlayer() >= 0 || c.isBoardFull()
}

func (c *ConnectFour) IsValidAction(userID string, action any) bool {
	col, ok := asInt(action)
	if !ok {
		return false
	}
	return col >= 0 && col < Cols && c.board[0][col] == CellEmpty
}

func (c *ConnectFour) ApplyAction(playerIdx int, action any) error {
	col, ok := asInt(action)
	if !ok {
		return fmt.Errorf("invalid column action")
	}
	row := c.dropRow(col)
	if row < 0 {
		return fmt.Errorf("column %d is full", col)
	}
	c.board[row][col] = playerCell(playerIdx)
	if c.winningPlayer() == playerIdx {
		c.gamesWon[playerIdx]++
	}
	return nil
}

func (c *ConnectFour) GetDefaultAction(userID string) any {
	open := c.openColumns()
	if len(open) == 0 {
		return 0
	}
	return open[c.rng.Intn(len(open))]
}

func (c *ConnectFour) Policy(userID string) (game.Policy, bool) {
	p, ok := c.policies[userID]
	return p, ok
}

func (c *ConnectFour) GetState() any {
	return State{
		Board:        c.board,
		CurrPlayer:   c.CurrPlayer(),
		TurnNumber:   c.CurrTurnNumber(),
		GamesWon:     c.gamesWon,
		SeriesLength: c.seriesLength,
	}
}

func (c *ConnectFour) GetData() any {
	return nil
}

func (c *ConnectFour) openColumns() []int {
	open := make([]int, 0, Cols)
	for col := 0; col < Cols; col++ {
		if c.board[0][col] == CellEmpty {
			open = append(open, col)
		}
	}
	return open
}

func (c *ConnectFour) dropRow(col int) int {
	if col < 0 || col >= Cols {
		return -1
	}
	for row := Rows - 1; row >= 0; row-- {
		if c.board[row][col] == CellEmpty {
			return row
		}
	}
	return -1
}

func (c *ConnectFour) isBoardFull() bool {
	return len(c.openColumns()) == 0
}

// winningPlayer returns 0 or 1 if that player has four in a row, else -1.
func (c *ConnectFour) winningPlayer() int {
	for player := 0; player < 2; player++ {
		if c.hasFourInARow(playerCell(player)) {
			return player
		}
	}
	return -1
}

func (c *ConnectFour) hasFourInARow(v Cell) bool {
	dirs := [][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			if c.board[row][col] != v {
				continue
			}
			for _, d := range dirs {
				if c.runLength(row, col, d[0], d[1], v) >= winLength {
					return true
				}
			}
		}
	}
	return false
}

func (c *ConnectFour) runLength(row, col, dr, dc int, v Cell) int {
	n := 0
	for row >= 0 && row < Rows && col >= 0 && col < Cols && c.board[row][col] == v {
		n++
		row += dr
		col += dc
	}
	return n
}

func playerCell(idx int) Cell {
	if idx == 0 {
		return CellRed
	}
	return CellYellow
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

// randomPolicy picks a uniformly random legal column, the default NPC
// opponent when a Connect Four game is created with vs_ai=true.
type randomPolicy struct {
	owner *ConnectFour
}

func (p *randomPolicy) Action(state any) (any, error) {
	open := p.owner.openColumns()
	if len(open) == 0 {
		return nil, fmt.Errorf("no open columns")
	}
	return open[p.owner.rng.Intn(len(open))], nil
}

func (p *randomPolicy) Reset() {}
