package teleport

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pixil98/servercore/internal/world"
)

// RecipientKind selects how a request recipient is addressed.
type RecipientKind int

const (
	// RecipientActor addresses a connected actor by id. The actor can be
	// moved and can answer requests.
	RecipientActor RecipientKind = iota

	// RecipientPosition addresses a fixed point in the world. It cannot be
	// moved, so it can only serve requests where the sender does the moving.
	RecipientPosition
)

// Recipient is the target of a teleport request.
type Recipient struct {
	kind  RecipientKind
	actor uuid.UUID
	pos   world.Position
}

func ActorRecipient(id uuid.UUID) Recipient {
	return Recipient{kind: RecipientActor, actor: id}
}

func PositionRecipient(pos world.Position) Recipient {
	return Recipient{kind: RecipientPosition, pos: pos}
}

func (r Recipient) Kind() RecipientKind {
	return r.kind
}

// Actor returns the addressed actor id. Only meaningful for RecipientActor.
func (r Recipient) Actor() (uuid.UUID, bool) {
	return r.actor, r.kind == RecipientActor
}

// Static reports whether the recipient is immovable.
func (r Recipient) Static() bool {
	return r.kind == RecipientPosition
}

// Resolvable reports whether the recipient can currently be reached.
func (r Recipient) Resolvable(w *world.State) bool {
	switch r.kind {
	case RecipientActor:
		return w.Online(r.actor)
	case RecipientPosition:
		return true
	default:
		return false
	}
}

// Destination converts the recipient into a teleport destination.
func (r Recipient) Destination() Destination {
	switch r.kind {
	case RecipientActor:
		return ActorDestination(r.actor)
	default:
		return PositionDestination(r.pos)
	}
}

func (r Recipient) String() string {
	switch r.kind {
	case RecipientActor:
		return r.actor.String()
	default:
		return fmt.Sprintf("(%.1f, %.1f, %.1f)", r.pos.X, r.pos.Y, r.pos.Z)
	}
}
