// Package coordinator implements the Session Coordinator: the single
// authority that maps connected users onto Game Instances, matches waiting
// players into rooms, and runs each active room's Tick Driver. It is
// grounded directly on original_source/server/app.py's module-level state
// (GAMES, ACTIVE_GAMES, WAITING_GAMES, USERS, USER_ROOMS) and socket
// handlers (on_create, on_join, on_leave, on_action, on_connect,
// on_disconnect).
package coordinator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tkahng/gamecore/game"
	"github.com/tkahng/gamecore/games"
)

// Broadcaster is the transport-facing side of a room: emitting an event to
// every client seated in it, and tearing the room down when the game
// leaves. The coordinator depends only on this interface so it never has
// to know about websockets or HTTP.
type Broadcaster interface {
	BroadcastToRoom(roomID int, event string, payload any)
	// EmitToUser writes event/payload to one user's own connection, bypassing
	// room membership. Used for replies that have no room to scope to: a
	// join against an empty queue with create_if_not_found=false, and a
	// leaver's own final end_game/end_lobby after they've already left.
	EmitToUser(userID string, event string, payload any)
	CloseRoom(roomID int)
}

// Coordinator owns every cross-room registry named in spec section 4.1 and
// wires them into the handler methods below.
type Coordinator struct {
	pool     *game.IDPool
	registry *games.Registry

	broadcaster Broadcaster
	logger      *slog.Logger
	maxFPS      int

	games        *game.Map[int, game.Instance]
	activeGames  *game.Set[int]
	waitingGames *game.Map[string, *game.Queue[int]]
	users        *game.Map[string, *sync.Mutex]
	userRooms    *game.Map[string, int]

	wg sync.WaitGroup
}

// New builds a Coordinator over a fixed-size room-ID pool and a kind
// registry. maxFPS <= 0 disables the server-wide tick rate cap, leaving
// every room to run at its own declared FPS.
func New(pool *game.IDPool, registry *games.Registry, broadcaster Broadcaster, logger *slog.Logger, maxFPS int) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		pool:         pool,
		registry:     registry,
		broadcaster:  broadcaster,
		logger:       logger,
		maxFPS:       maxFPS,
		games:        game.NewMap[int, game.Instance](),
		activeGames:  game.NewSet[int](),
		waitingGames: game.NewMap[string, *game.Queue[int]](),
		users:        game.NewMap[string, *sync.Mutex](),
		userRooms:    game.NewMap[string, int](),
	}
}

// Connect registers a per-user lock, the Go counterpart of on_connect's
// implicit USERS[user_id] population.
func (c *Coordinator) Connect(userID string) error {
	if _, ok := c.users.Get(userID); !ok {
		c.users.Set(userID, &sync.Mutex{})
	}
	return nil
}

// Disconnect leaves any room the user is seated in, then drops their lock
// entry, mirroring on_disconnect.
func (c *Coordinator) Disconnect(userID string) error {
	err := c.Leave(userID)
	c.users.Delete(userID)
	return err
}

// WithUserLock serializes every handler call for a single user end to end,
// matching app.py's `with USERS[user_id]:` wrapper around every socket
// handler. The transport layer calls this around each inbound event.
func (c *Coordinator) WithUserLock(userID string, fn func() error) error {
	mu, ok := c.users.Get(userID)
	if !ok {
		mu = &sync.Mutex{}
		c.users.Set(userID, mu)
	}
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// Create instantiates a brand-new room of the given kind for userID,
// mirroring on_create / _create_game without the waiting-queue lookup
// on_join performs first.
func (c *Coordinator) Create(userID, kind string, params map[string]any) error {
	if _, enrolled := c.userRooms.Get(userID); enrolled {
		return nil
	}
	if !c.registry.Has(kind) {
		return game.NewValidationError(fmt.Errorf("unknown game kind %q", kind))
	}
	inst, err := c.tryCreateGame(kind, params)
	if err != nil {
		return err
	}
	return c.seatAndMaybeStart(userID, inst, kind)
}

// Join seats userID into an existing waiting room of the given kind, or, if
// none is waiting and createIfNotFound is set, creates a fresh one,
// mirroring on_join / get_waiting_game. With createIfNotFound false and no
// room waiting, it replies waiting{in_game:false} directly to the caller
// instead of creating anything.
func (c *Coordinator) Join(userID, kind string, createIfNotFound bool) error {
	if _, enrolled := c.userRooms.Get(userID); enrolled {
		return nil
	}
	if !c.registry.Has(kind) {
		return game.NewValidationError(fmt.Errorf("unknown game kind %q", kind))
	}
	inst, ok := c.getWaitingGame(kind)
	if !ok {
		if !createIfNotFound {
			c.broadcaster.EmitToUser(userID, "waiting", map[string]any{"in_game": false})
			return nil
		}
		var err error
		inst, err = c.tryCreateGame(kind, nil)
		if err != nil {
			return err
		}
	}
	return c.seatAndMaybeStart(userID, inst, kind)
}

// Action forwards a player's action to their current room, mirroring
// on_action.
func (c *Coordinator) Action(userID string, action any) error {
	roomID, ok := c.userRooms.Get(userID)
	if !ok {
		return game.NewValidationError(fmt.Errorf("user %s is not in a game", userID))
	}
	inst, ok := c.games.Get(roomID)
	if !ok {
		return game.NewConsistencyError(fmt.Errorf("room %d has no instance", roomID))
	}
	_, err := inst.EnqueueAction(userID, action)
	return err
}

// Leave removes userID from their current room (as player or spectator)
// and applies the transition table from spec section 4.5.4 / app.py's
// _leave_game: Active+Empty deactivates and lets the Tick Driver finish and
// clean up on its own; Waiting+Empty cleans up immediately since no Tick
// Driver is running for a room that never activated; Waiting+NonEmpty
// rebroadcasts a waiting update; Active+NonEmpty is a no-op.
func (c *Coordinator) Leave(userID string) error {
	roomID, ok := c.userRooms.Get(userID)
	if !ok {
		return nil
	}
	inst, ok := c.games.Get(roomID)
	if !ok {
		c.userRooms.Delete(userID)
		return nil
	}

	inst.Lock()
	wasActive := c.activeGames.Has(roomID)
	if !inst.RemovePlayer(userID) {
		inst.RemoveSpectator(userID)
	}
	c.userRooms.Delete(userID)
	isEmptyNow := inst.IsEmpty()

	var deactivateErr error
	if wasActive && isEmptyNow {
		deactivateErr = inst.Deactivate()
	}
	inst.Unlock()

	if deactivateErr != nil {
		return deactivateErr
	}

	switch {
	case wasActive && isEmptyNow:
		// The running Tick Driver observes Tick() return INACTIVE next
		// iteration and performs the final broadcast + cleanup itself.
	case !wasActive && isEmptyNow:
		c.cleanupGame(inst)
	case !wasActive && !isEmptyNow:
		c.broadcaster.BroadcastToRoom(roomID, "waiting", map[string]any{"in_game": true})
	}

	if wasActive {
		c.broadcaster.EmitToUser(userID, "end_game", map[string]any{"status": string(game.StatusDone), "data": map[string]any{}})
	} else {
		c.broadcaster.EmitToUser(userID, "end_lobby", nil)
	}
	return nil
}

// tryCreateGame mirrors try_create_game: acquire a free ID, construct the
// instance, publish it into the Games table, or release the ID back on
// any failure.
func (c *Coordinator) tryCreateGame(kind string, params map[string]any) (game.Instance, error) {
	id, err := c.pool.Acquire()
	if err != nil {
		return nil, err
	}
	inst, err := c.registry.New(kind, id, params)
	if err != nil {
		c.pool.Release(id)
		return nil, game.NewValidationError(err)
	}
	c.games.Set(id, inst)
	return inst, nil
}

// cleanupGame mirrors cleanup_game: drop every occupant's room mapping,
// tell the transport layer to tear the room down, free the ID, and
// best-effort deactivate if somehow still active.
func (c *Coordinator) cleanupGame(inst game.Instance) {
	id := inst.ID()
	for _, u := range inst.Players() {
		c.userRooms.Delete(u)
	}
	for _, u := range inst.Spectators() {
		c.userRooms.Delete(u)
	}
	c.broadcaster.CloseRoom(id)
	c.games.Delete(id)
	c.activeGames.Remove(id)
	if inst.IsActive() {
		inst.Lock()
		_ = inst.Deactivate()
		inst.Unlock()
	}
	c.pool.Release(id)
}

// getWaitingGame mirrors get_waiting_game: pop from the per-kind waiting
// queue, skipping any ID that went stale (freed by a leave/cleanup
// elsewhere) without proactively scanning the queue on every cleanup.
func (c *Coordinator) getWaitingGame(kind string) (game.Instance, bool) {
	q := c.waitingQueueFor(kind)
	for {
		id, ok := q.PopValid(func(id int) bool { return !c.pool.IsFree(id) })
		if !ok {
			return nil, false
		}
		inst, ok := c.games.Get(id)
		if !ok {
			continue
		}
		return inst, true
	}
}

func (c *Coordinator) waitingQueueFor(kind string) *game.Queue[int] {
	q, ok := c.waitingGames.Get(kind)
	if !ok {
		q = game.NewQueue[int]()
		c.waitingGames.Set(kind, q)
	}
	return q
}

// seatAndMaybeStart seats userID as a player (or spectator, if the room is
// already full) into inst, and either activates the room and starts its
// Tick Driver or pushes it onto the waiting queue, mirroring the tail half
// of _create_game shared by both Create and Join.
func (c *Coordinator) seatAndMaybeStart(userID string, inst game.Instance, kind string) error {
	inst.Lock()
	spectating := inst.IsFull()
	var seatErr error
	if spectating {
		seatErr = inst.AddSpectator(userID)
	} else {
		seatErr = inst.AddPlayer(userID, nil, -1)
	}
	if seatErr != nil {
		inst.Unlock()
		return seatErr
	}
	c.userRooms.Set(userID, inst.ID())

	ready := inst.IsReady()
	var activateErr error
	if ready {
		activateErr = inst.Activate()
		if activateErr == nil {
			c.activeGames.Add(inst.ID())
		}
	}
	inst.Unlock()

	if activateErr != nil {
		return activateErr
	}

	if ready {
		c.broadcaster.BroadcastToRoom(inst.ID(), "start_game", map[string]any{
			"spectating": spectating,
			"start_info": inst.ToJSON(),
		})
		c.startTickDriver(inst)
	} else {
		c.waitingQueueFor(kind).Push(inst.ID())
		c.broadcaster.BroadcastToRoom(inst.ID(), "waiting", map[string]any{"in_game": true})
	}
	return nil
}

// RoomOf reports the room userID is currently seated in, if any. The
// transport layer calls this right after Create/Join succeeds to learn
// which room to start forwarding broadcasts to.
func (c *Coordinator) RoomOf(userID string) (int, bool) {
	return c.userRooms.Get(userID)
}

// DebugSnapshot returns the data the /debug endpoint (spec section 6)
// reports: every registry's current contents.
func (c *Coordinator) DebugSnapshot() map[string]any {
	freeMap, queued := c.pool.Snapshot()
	waiting := make(map[string][]int)
	for kind, q := range c.waitingGames.Snapshot() {
		ids := []int{}
		for _, id := range q.Snapshot() {
			if !c.pool.IsFree(id) {
				ids = append(ids, id)
			}
		}
		waiting[kind] = ids
	}
	return map[string]any{
		"active_games":  c.activeGames.Snapshot(),
		"waiting_games": waiting,
		"all_games":     c.games.Keys(),
		"users":         c.users.Keys(),
		"user_rooms":    c.userRooms.Snapshot(),
		"free_map":      freeMap,
		"free_ids":      queued,
	}
}

// Shutdown announces an inactive end-of-game to every still-tracked room,
// the Go counterpart of app.py's on_exit shutdown hook. It does not itself
// wait for in-flight Tick Driver goroutines; cmd/gameserver's graceful
// shutdown sequence bounds the overall shutdown with its own timeout.
func (c *Coordinator) Shutdown() {
	for _, id := range c.games.Keys() {
		c.broadcaster.BroadcastToRoom(id, "end_game", map[string]any{"status": string(game.StatusInactive)})
	}
}
