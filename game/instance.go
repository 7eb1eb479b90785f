package game

// Status is the result of a single Tick call (spec section 4.2.1).
type Status string

const (
	StatusActive   Status = "active"
	StatusReset    Status = "reset"
	StatusDone     Status = "done"
	StatusInactive Status = "inactive"
)

// EmptySlot is the sentinel placed into a player slot that holds no user.
const EmptySlot = ""

// Instance is the uniform contract every game kind satisfies (spec section
// 4.2). A concrete kind embeds Base (or NPCBase, or TurnBasedBase) and
// overrides the abstract hooks (IsFull, ApplyAction, CurrGameOver,
// IsLastGame, IsValidAction, GetState, GetData) that Base cannot provide a
// default for.
type Instance interface {
	// Lock/Unlock serialize every state-mutating sequence on the instance,
	// including Tick (spec section 5). EnqueueAction is deliberately
	// excluded from this requirement; it synchronizes only through the
	// per-slot action queue (and, for turn-based kinds, the turn tokens).
	Lock()
	Unlock()

	ID() int
	FPS() int
	ResetTimeoutMillis() int

	IsFull() bool
	IsReady() bool
	IsEmpty() bool
	IsActive() bool
	Activate() error
	Deactivate() error
	IsFinished() bool
	CurrGameOver() bool
	NeedsReset() bool
	Reset() (Status, error)

	AddPlayer(userID string, idx *int, bufSize int) error
	AddSpectator(userID string) error
	RemovePlayer(userID string) bool
	RemoveSpectator(userID string) bool

	EnqueueAction(userID string, action any) (bool, error)
	IsValidAction(userID string, action any) bool

	Tick() (Status, error)

	GetState() any
	ToJSON() any
	GetData() any

	Players() []string
	Spectators() []string
}

// Hooks are the abstract methods a concrete game kind must implement; Base
// calls these through an embedded reference set by the concrete kind's
// constructor (see Base.hooks). This stands in for the Python ABC's
// @abstractmethod methods, since Go has no subclass dispatch: the object
// under construction supplies a vtable of its own overrides back to the
// struct it embeds.
type Hooks interface {
	IsFull() bool
	ApplyAction(playerIdx int, action any) error
	IsLastGame() bool
	CurrGameOver() bool
	IsValidAction(userID string, action any) bool
	GetState() any
	GetData() any
}

// JSONOverrider is an optional second interface a concrete kind's hooks may
// implement when it needs a wire representation that differs from GetState
// (e.g. a psiturk variant that nests trial metadata around the raw state).
// Base.ToJSON type-asserts for this and falls back to GetState otherwise.
type JSONOverrider interface {
	ToJSON() any
}

// NPCSlotBlocker is an optional interface a concrete kind's hooks satisfy by
// embedding NPCBase. Base.applyActions type-asserts for it so a kind with
// block_for_ai set (spec section 4.3) waits for an NPC slot's policy
// consumer to enqueue its action each tick, instead of treating an empty
// queue as skip-this-tick the way a human slot's unfilled queue is.
type NPCSlotBlocker interface {
	BlockForAI() bool
	IsNPCSlot(idx int) bool
	StopChan() <-chan struct{}
}
