package teleport

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pixil98/go-testutil"
	"github.com/pixil98/servercore/internal/scheduler"
	"github.com/pixil98/servercore/internal/world"
)

// recordingNotifier counts lifecycle events per request.
type recordingNotifier struct {
	sent      []uuid.UUID
	received  []uuid.UUID
	accepted  []uuid.UUID
	denied    []uuid.UUID
	cancelled []uuid.UUID
	timedOut  []uuid.UUID
}

func (n *recordingNotifier) RequestSent(r *Request)      { n.sent = append(n.sent, r.Id()) }
func (n *recordingNotifier) RequestReceived(r *Request)  { n.received = append(n.received, r.Id()) }
func (n *recordingNotifier) RequestAccepted(r *Request)  { n.accepted = append(n.accepted, r.Id()) }
func (n *recordingNotifier) RequestDenied(r *Request)    { n.denied = append(n.denied, r.Id()) }
func (n *recordingNotifier) RequestCancelled(r *Request) { n.cancelled = append(n.cancelled, r.Id()) }
func (n *recordingNotifier) RequestTimedOut(r *Request)  { n.timedOut = append(n.timedOut, r.Id()) }

const (
	testDelay   = 3
	testTimeout = 10
)

type fixture struct {
	sched *scheduler.Scheduler
	world *world.State
	notes *recordingNotifier
	mgr   *Manager

	alice uuid.UUID
	bob   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		sched: scheduler.NewScheduler(),
		world: world.NewState(),
		notes: &recordingNotifier{},
		alice: uuid.New(),
		bob:   uuid.New(),
	}
	f.mgr = NewManager(f.sched, f.world, f.notes, testDelay, testTimeout)

	err := f.world.Join(f.alice, "alice", world.Position{X: 0, Y: 64, Z: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = f.world.Join(f.bob, "bob", world.Position{X: 100, Y: 70, Z: -40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return f
}

func (f *fixture) tick(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := f.sched.Tick(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func (f *fixture) position(t *testing.T, id uuid.UUID) world.Position {
	t.Helper()
	pos, ok := f.world.Position(id)
	if !ok {
		t.Fatalf("actor %s not online", id)
	}
	return pos
}

func TestRequestAcceptMovesSender(t *testing.T) {
	f := newFixture(t)

	req, err := f.mgr.RequestTeleportTo(f.alice, ActorRecipient(f.bob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "direction", req.Direction(), Inbound)
	testutil.AssertEqual(t, "received notifications", len(f.notes.received), 1)
	testutil.AssertEqual(t, "sent notifications", len(f.notes.sent), 1)
	testutil.AssertEqual(t, "pending sent", len(f.mgr.Sent(f.alice)), 1)
	testutil.AssertEqual(t, "pending received", len(f.mgr.Received(f.bob)), 1)

	err = f.mgr.Accept(f.bob, req.Id())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "state", req.State(), Accepted)
	testutil.AssertEqual(t, "accepted notifications", len(f.notes.accepted), 1)
	if _, ok := f.mgr.Request(req.Id()); ok {
		t.Error("expected request to be deregistered")
	}

	// The mover counts down before the move lands.
	f.tick(t, testDelay)
	testutil.AssertEqual(t, "position before countdown ends", f.position(t, f.alice).X, 0.0)

	f.tick(t, 1)
	testutil.AssertEqual(t, "x after teleport", f.position(t, f.alice).X, 100.0)
	testutil.AssertEqual(t, "z after teleport", f.position(t, f.alice).Z, -40.0)

	// The timeout task was cancelled; advancing past the window must not
	// produce a timeout notification.
	f.tick(t, testTimeout+1)
	testutil.AssertEqual(t, "timeouts", len(f.notes.timedOut), 0)
}

func TestRequestOutboundMovesRecipient(t *testing.T) {
	f := newFixture(t)

	req, err := f.mgr.RequestTeleportFrom(f.alice, ActorRecipient(f.bob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "direction", req.Direction(), Outbound)

	err = f.mgr.Accept(f.bob, req.Id())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.tick(t, testDelay+1)
	testutil.AssertEqual(t, "x after teleport", f.position(t, f.bob).X, 0.0)
	testutil.AssertEqual(t, "y after teleport", f.position(t, f.bob).Y, 64.0)
}

func TestRequestOutboundStaticRecipientFailsFast(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.RequestTeleportFrom(f.alice, PositionRecipient(world.Position{X: 1, Y: 2, Z: 3}))
	if !errors.Is(err, ErrStaticRecipient) {
		t.Errorf("expected ErrStaticRecipient, got %v", err)
	}
	testutil.AssertEqual(t, "sent notifications", len(f.notes.sent), 0)
}

func TestRequestInboundPositionRecipient(t *testing.T) {
	f := newFixture(t)

	// Asking to go to a fixed point is allowed; nothing there can answer,
	// so the request just times out.
	req, err := f.mgr.RequestTeleportTo(f.alice, PositionRecipient(world.Position{X: 5, Y: 6, Z: 7}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.tick(t, testTimeout+1)
	testutil.AssertEqual(t, "state", req.State(), TimedOut)
}

func TestRequestTimeout(t *testing.T) {
	f := newFixture(t)

	req, err := f.mgr.RequestTeleportTo(f.alice, ActorRecipient(f.bob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.tick(t, testTimeout)
	testutil.AssertEqual(t, "state before timeout", req.State(), Pending)

	f.tick(t, 1)
	testutil.AssertEqual(t, "state", req.State(), TimedOut)
	testutil.AssertEqual(t, "timeout notifications", len(f.notes.timedOut), 1)
	if _, ok := f.mgr.Request(req.Id()); ok {
		t.Error("expected request to be deregistered")
	}
	testutil.AssertEqual(t, "pending sent", len(f.mgr.Sent(f.alice)), 0)
	testutil.AssertEqual(t, "pending received", len(f.mgr.Received(f.bob)), 0)

	// Answering after the timeout is a no-op, not an acceptance.
	err = f.mgr.Accept(f.bob, req.Id())
	if !errors.Is(err, ErrUnknownRequest) {
		t.Errorf("expected ErrUnknownRequest, got %v", err)
	}
	testutil.AssertEqual(t, "accepted notifications", len(f.notes.accepted), 0)
}

func TestRequestDeny(t *testing.T) {
	f := newFixture(t)

	req, err := f.mgr.RequestTeleportTo(f.alice, ActorRecipient(f.bob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = f.mgr.Deny(f.bob, req.Id())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "state", req.State(), Denied)
	testutil.AssertEqual(t, "denied notifications", len(f.notes.denied), 1)

	// Nobody moves.
	f.tick(t, testTimeout+1)
	testutil.AssertEqual(t, "x", f.position(t, f.alice).X, 0.0)
	testutil.AssertEqual(t, "timeouts", len(f.notes.timedOut), 0)
}

func TestRequestCancelBySender(t *testing.T) {
	f := newFixture(t)

	req, err := f.mgr.RequestTeleportTo(f.alice, ActorRecipient(f.bob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only the sender can cancel.
	err = f.mgr.Cancel(f.bob, req.Id())
	if !errors.Is(err, ErrUnknownRequest) {
		t.Errorf("expected ErrUnknownRequest, got %v", err)
	}

	err = f.mgr.Cancel(f.alice, req.Id())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "state", req.State(), Cancelled)
	testutil.AssertEqual(t, "cancelled notifications", len(f.notes.cancelled), 1)
	testutil.AssertEqual(t, "pending received", len(f.mgr.Received(f.bob)), 0)
}

func TestIdempotentTerminalTransitions(t *testing.T) {
	f := newFixture(t)

	req, err := f.mgr.RequestTeleportTo(f.alice, ActorRecipient(f.bob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := req.Accept(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := req.Accept(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.Deny()
	req.Cancel()

	testutil.AssertEqual(t, "state", req.State(), Accepted)
	testutil.AssertEqual(t, "accepted notifications", len(f.notes.accepted), 1)
	testutil.AssertEqual(t, "denied notifications", len(f.notes.denied), 0)
	testutil.AssertEqual(t, "cancelled notifications", len(f.notes.cancelled), 0)
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t)
	offline := uuid.New()

	tests := map[string]struct {
		sender    uuid.UUID
		recipient Recipient
		expErr    error
	}{
		"offline sender":    {offline, ActorRecipient(f.bob), ErrSenderOffline},
		"offline recipient": {f.alice, ActorRecipient(offline), ErrRecipientGone},
		"self request":      {f.alice, ActorRecipient(f.alice), ErrSelfRequest},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.mgr.RequestTeleportTo(tt.sender, tt.recipient)
			if !errors.Is(err, tt.expErr) {
				t.Errorf("expected %v, got %v", tt.expErr, err)
			}
		})
	}
}

func TestExecutionCancelObservedNextTick(t *testing.T) {
	f := newFixture(t)

	f.mgr.TeleportTo(f.alice, PositionDestination(world.Position{X: 9, Y: 9, Z: 9}))
	e, ok := f.mgr.Executing(f.alice)
	if !ok {
		t.Fatal("expected an execution in flight")
	}

	f.tick(t, 1)
	e.Cancel()

	// The flag is observed on the next pass, not synchronously.
	if _, ok := f.mgr.Executing(f.alice); !ok {
		t.Fatal("expected execution to still be registered")
	}

	f.tick(t, 1)
	if _, ok := f.mgr.Executing(f.alice); ok {
		t.Error("expected execution to be cleared")
	}

	f.tick(t, testDelay+2)
	testutil.AssertEqual(t, "x unchanged", f.position(t, f.alice).X, 0.0)
}

func TestExecutionDestinationGone(t *testing.T) {
	f := newFixture(t)

	f.mgr.TeleportTo(f.alice, ActorDestination(f.bob))
	if err := f.world.Leave(f.bob); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Destination can no longer resolve; the execution clears without a move.
	f.tick(t, testDelay+2)
	if _, ok := f.mgr.Executing(f.alice); ok {
		t.Error("expected execution to be cleared")
	}
	testutil.AssertEqual(t, "x unchanged", f.position(t, f.alice).X, 0.0)
}

func TestConcurrentExecutionGuard(t *testing.T) {
	f := newFixture(t)

	f.mgr.TeleportTo(f.alice, PositionDestination(world.Position{X: 10, Y: 64, Z: 10}))
	first, ok := f.mgr.Executing(f.alice)
	if !ok {
		t.Fatal("expected an execution in flight")
	}

	// A second teleport while one is active is silently ignored.
	f.mgr.TeleportTo(f.alice, PositionDestination(world.Position{X: -10, Y: 64, Z: -10}))
	current, ok := f.mgr.Executing(f.alice)
	if !ok || current != first {
		t.Fatal("expected the first execution to survive")
	}

	f.tick(t, testDelay+2)
	testutil.AssertEqual(t, "x", f.position(t, f.alice).X, 10.0)

	// Once cleared, a new one may start.
	f.mgr.TeleportTo(f.alice, PositionDestination(world.Position{X: -10, Y: 64, Z: -10}))
	if _, ok := f.mgr.Executing(f.alice); !ok {
		t.Error("expected a fresh execution")
	}
}

func TestHandleLeave(t *testing.T) {
	f := newFixture(t)

	req, err := f.mgr.RequestTeleportTo(f.alice, ActorRecipient(f.bob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.mgr.TeleportTo(f.alice, PositionDestination(world.Position{X: 1, Y: 1, Z: 1}))

	f.mgr.HandleLeave(f.alice)
	testutil.AssertEqual(t, "state", req.State(), Cancelled)

	f.tick(t, 1)
	if _, ok := f.mgr.Executing(f.alice); ok {
		t.Error("expected execution to be cleared")
	}
}

func TestEndToEndTimeoutThenRetryAccept(t *testing.T) {
	f := newFixture(t)

	// First ask times out unanswered.
	first, err := f.mgr.RequestTeleportTo(f.alice, ActorRecipient(f.bob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.tick(t, testTimeout+1)
	testutil.AssertEqual(t, "first state", first.State(), TimedOut)
	testutil.AssertEqual(t, "timeout notifications", len(f.notes.timedOut), 1)

	// Second ask gets accepted before its window closes.
	second, err := f.mgr.RequestTeleportTo(f.alice, ActorRecipient(f.bob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.tick(t, testTimeout/2)
	if err := f.mgr.Accept(f.bob, second.Id()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.tick(t, testDelay+1)
	testutil.AssertEqual(t, "x after teleport", f.position(t, f.alice).X, 100.0)

	f.tick(t, testTimeout+1)
	testutil.AssertEqual(t, "timeout notifications after accept", len(f.notes.timedOut), 1)
}

func TestHandleLeaveDuringTickPass(t *testing.T) {
	f := newFixture(t)

	f.mgr.TeleportTo(f.alice, ActorDestination(f.bob))
	if _, ok := f.mgr.Executing(f.alice); !ok {
		t.Fatal("expected an execution in flight")
	}

	// The driver ticks on its own goroutine while the session goroutine
	// tears the actor down.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if err := f.sched.Tick(context.Background()); err != nil {
				t.Errorf("unexpected tick error: %v", err)
			}
		}
	}()
	f.mgr.HandleLeave(f.alice)
	<-done

	// Regardless of which side won, the execution slot is free again.
	if _, ok := f.mgr.Executing(f.alice); ok {
		t.Error("expected execution to be cleared")
	}
	testutil.AssertEqual(t, "pending tasks", f.sched.Pending(), 0)
}
