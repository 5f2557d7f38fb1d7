package teleport

import (
	"github.com/google/uuid"
	"github.com/pixil98/servercore/internal/world"
)

// DestinationKind selects how a teleport target position is resolved.
type DestinationKind int

const (
	// DestinationPosition is a fixed point.
	DestinationPosition DestinationKind = iota

	// DestinationActor tracks another actor. The position is read at
	// execution time, not at creation time.
	DestinationActor
)

// Destination is where a teleport execution moves its subject.
type Destination struct {
	kind  DestinationKind
	actor uuid.UUID
	pos   world.Position
}

func PositionDestination(pos world.Position) Destination {
	return Destination{kind: DestinationPosition, pos: pos}
}

func ActorDestination(id uuid.UUID) Destination {
	return Destination{kind: DestinationActor, actor: id}
}

func (d Destination) Kind() DestinationKind {
	return d.kind
}

// Resolve returns the current target position, or false if the tracked
// actor is no longer online.
func (d Destination) Resolve(w *world.State) (world.Position, bool) {
	switch d.kind {
	case DestinationActor:
		return w.Position(d.actor)
	default:
		return d.pos, true
	}
}
