// Package games collects the concrete game kinds and the name-to-
// constructor registry the coordinator uses to instantiate them, the Go
// counterpart of the original's GAME_NAME_TO_CLS/GAME_TYPES globals.
package games

import "github.com/tkahng/gamecore/game"

// Constructor builds a fresh game.Instance for a newly acquired room ID.
// params carries kind-specific configuration (e.g. board size) decoded
// from the create request.
type Constructor func(id int, params map[string]any) (game.Instance, error)

// Registry is a name -> Constructor lookup, safe for concurrent use.
type Registry struct {
	kinds *game.Map[string, Constructor]
}

// NewRegistry builds an empty registry; call Register for each kind.
func NewRegistry() *Registry {
	return &Registry{kinds: game.NewMap[string, Constructor]()}
}

func (r *Registry) Register(name string, ctor Constructor) {
	r.kinds.Set(name, ctor)
}

func (r *Registry) Kinds() []string {
	return r.kinds.Keys()
}

func (r *Registry) Has(name string) bool {
	_, ok := r.kinds.Get(name)
	return ok
}

func (r *Registry) New(name string, id int, params map[string]any) (game.Instance, error) {
	ctor, ok := r.kinds.Get(name)
	if !ok {
		return nil, game.NewValidationError(unknownKindError(name))
	}
	return ctor(id, params)
}

type unknownKindErr struct{ name string }

func (e unknownKindErr) Error() string { return "unknown game kind: " + e.name }

func unknownKindError(name string) error { return unknownKindErr{name: name} }
