package teleport

import (
	"github.com/google/uuid"
)

// Direction distinguishes who moves when a request is accepted.
type Direction int

const (
	// Inbound means the sender wants to teleport to the recipient.
	Inbound Direction = iota

	// Outbound means the sender wants the recipient brought to them.
	Outbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "outbound"
	}
	return "inbound"
}

// State is the request lifecycle. Every state other than Pending is
// terminal.
type State int

const (
	Pending State = iota
	Accepted
	Denied
	TimedOut
	Cancelled
)

// Request is one pending teleport ask between two actors. All transitions
// out of Pending are guarded so that a late or duplicated call after the
// first terminal transition is a safe no-op.
type Request struct {
	id        uuid.UUID
	dir       Direction
	sender    uuid.UUID
	recipient Recipient

	valid        bool
	state        State
	timeoutToken uuid.UUID

	mgr *Manager
}

func (r *Request) Id() uuid.UUID {
	return r.id
}

func (r *Request) Direction() Direction {
	return r.dir
}

func (r *Request) Sender() uuid.UUID {
	return r.sender
}

func (r *Request) Recipient() Recipient {
	return r.recipient
}

func (r *Request) State() State {
	return r.state
}

// StillValid reports whether the request can still be answered.
func (r *Request) StillValid() bool {
	r.mgr.mu.Lock()
	valid := r.valid
	r.mgr.mu.Unlock()
	return valid && r.recipient.Resolvable(r.mgr.world)
}

// Accept closes the request and starts the countdown teleport for whichever
// side the direction says moves.
func (r *Request) Accept() error {
	m := r.mgr
	m.mu.Lock()
	if !r.valid {
		m.mu.Unlock()
		return nil
	}

	var mover uuid.UUID
	var dest Destination
	switch r.dir {
	case Outbound:
		actor, ok := r.recipient.Actor()
		if !ok {
			m.mu.Unlock()
			return ErrStaticRecipient
		}
		mover = actor
		dest = ActorDestination(r.sender)
	default:
		mover = r.sender
		dest = r.recipient.Destination()
	}

	r.close(Accepted)
	e := m.startExecution(mover, dest)
	m.mu.Unlock()

	if e != nil {
		e.Prepare()
	}
	m.notifier.RequestAccepted(r)
	return nil
}

// Deny closes the request without moving anyone.
func (r *Request) Deny() {
	m := r.mgr
	m.mu.Lock()
	if !r.valid {
		m.mu.Unlock()
		return
	}
	r.close(Denied)
	m.mu.Unlock()

	m.notifier.RequestDenied(r)
}

// Cancel withdraws the request on the sender's behalf.
func (r *Request) Cancel() {
	m := r.mgr
	m.mu.Lock()
	if !r.valid {
		m.mu.Unlock()
		return
	}
	r.close(Cancelled)
	m.mu.Unlock()

	m.notifier.RequestCancelled(r)
}

// timeout fires from the scheduler when the recipient never answered.
func (r *Request) timeout() {
	m := r.mgr
	m.mu.Lock()
	if !r.valid {
		m.mu.Unlock()
		return
	}
	r.valid = false
	r.state = TimedOut
	m.terminateRequest(r)
	m.mu.Unlock()

	m.notifier.RequestTimedOut(r)
}

// close invalidates the request, stops its timeout task, and drops it from
// the registry. Caller holds the manager lock.
func (r *Request) close(s State) {
	r.valid = false
	r.state = s
	// The token may already be spent if the timeout raced us to the same
	// tick, so an unknown-token error here is expected.
	_ = r.mgr.sched.Cancel(r.timeoutToken)
	r.mgr.terminateRequest(r)
}
