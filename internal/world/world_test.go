package world

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pixil98/go-testutil"
)

func TestJoinLeave(t *testing.T) {
	s := NewState()
	id := uuid.New()

	if err := s.Join(id, "alice", Position{X: 1, Y: 64, Z: -3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "online", s.Online(id), true)

	if err := s.Join(id, "alice", Position{}); !errors.Is(err, ErrActorExists) {
		t.Fatalf("expected ErrActorExists, got %v", err)
	}

	if err := s.Leave(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "online after leave", s.Online(id), false)

	if err := s.Leave(id); !errors.Is(err, ErrActorNotFound) {
		t.Fatalf("expected ErrActorNotFound, got %v", err)
	}
}

func TestMove(t *testing.T) {
	s := NewState()
	id := uuid.New()

	if err := s.Move(id, Position{X: 5}); !errors.Is(err, ErrActorNotFound) {
		t.Fatalf("expected ErrActorNotFound, got %v", err)
	}

	if err := s.Join(id, "bob", Position{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Move(id, Position{X: 5, Y: 70, Z: 9}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos, ok := s.Position(id)
	testutil.AssertEqual(t, "found", ok, true)
	testutil.AssertEqual(t, "x", pos.X, 5.0)
	testutil.AssertEqual(t, "y", pos.Y, 70.0)
	testutil.AssertEqual(t, "z", pos.Z, 9.0)
}
