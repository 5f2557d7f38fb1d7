package world

import (
	"sync"

	"github.com/google/uuid"
)

// Position is a point in the game world. Movement physics live in the game
// engine; this is just the coordinate payload teleports carry.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Actor is the session-side view of a connected entity that can hold
// permissions and send or receive teleport requests.
type Actor struct {
	Id   uuid.UUID
	Name string
	Pos  Position
}

// State tracks the actors currently attached to the session, keyed by their
// engine uuid. All access goes through its methods.
type State struct {
	mu     sync.RWMutex
	actors map[uuid.UUID]*Actor
}

func NewState() *State {
	return &State{
		actors: make(map[uuid.UUID]*Actor),
	}
}

// Join registers an actor as online.
func (s *State) Join(id uuid.UUID, name string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.actors[id]; exists {
		return ErrActorExists
	}
	s.actors[id] = &Actor{Id: id, Name: name, Pos: pos}
	return nil
}

// Leave removes an actor from the online set.
func (s *State) Leave(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.actors[id]; !exists {
		return ErrActorNotFound
	}
	delete(s.actors, id)
	return nil
}

// Get returns a copy of the actor. The second return is false if the actor
// is not online.
func (s *State) Get(id uuid.UUID) (Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.actors[id]
	if !ok {
		return Actor{}, false
	}
	return *a, true
}

// Online reports whether the actor is currently attached to the session.
func (s *State) Online(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.actors[id]
	return ok
}

// Position returns the actor's current position.
func (s *State) Position(id uuid.UUID) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.actors[id]
	if !ok {
		return Position{}, false
	}
	return a.Pos, true
}

// Move places the actor at pos. The caller is expected to have resolved any
// authorization already; this is the raw position write.
func (s *State) Move(id uuid.UUID, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actors[id]
	if !ok {
		return ErrActorNotFound
	}
	a.Pos = pos
	return nil
}

// ForEach calls fn for every online actor.
func (s *State) ForEach(fn func(Actor)) {
	s.mu.RLock()
	actors := make([]Actor, 0, len(s.actors))
	for _, a := range s.actors {
		actors = append(actors, *a)
	}
	s.mu.RUnlock()

	for _, a := range actors {
		fn(a)
	}
}
