package teleport

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pixil98/servercore/internal/scheduler"
	"github.com/pixil98/servercore/internal/world"
)

// Notifier is told about request lifecycle events so the chat layer can
// message the parties involved. Calls arrive after the transition has been
// applied.
type Notifier interface {
	RequestSent(r *Request)
	RequestReceived(r *Request)
	RequestAccepted(r *Request)
	RequestDenied(r *Request)
	RequestCancelled(r *Request)
	RequestTimedOut(r *Request)
}

// session tracks one actor's teleport state: the countdown teleport in
// flight (at most one) and the requests they have sent and received.
type session struct {
	execution *Execution
	sent      map[uuid.UUID]*Request
	received  map[uuid.UUID]*Request
}

func newSession() *session {
	return &session{
		sent:     map[uuid.UUID]*Request{},
		received: map[uuid.UUID]*Request{},
	}
}

// Manager owns every in-flight request and execution. It issues ids,
// arms timeout tasks, and keeps the per-actor bookkeeping that the request
// lifecycle hooks update so callers never have to.
type Manager struct {
	mu sync.Mutex

	sched    *scheduler.Scheduler
	world    *world.State
	notifier Notifier

	delayTicks   int
	timeoutTicks int

	active     map[uuid.UUID]*Request
	executions map[uuid.UUID]*Execution
	sessions   map[uuid.UUID]*session
}

func NewManager(sched *scheduler.Scheduler, w *world.State, notifier Notifier, delayTicks, timeoutTicks int) *Manager {
	return &Manager{
		sched:        sched,
		world:        w,
		notifier:     notifier,
		delayTicks:   delayTicks,
		timeoutTicks: timeoutTicks,
		active:       map[uuid.UUID]*Request{},
		executions:   map[uuid.UUID]*Execution{},
		sessions:     map[uuid.UUID]*session{},
	}
}

// RequestTeleportTo asks to bring the sender to the recipient.
func (m *Manager) RequestTeleportTo(sender uuid.UUID, recipient Recipient) (*Request, error) {
	return m.createRequest(Inbound, sender, recipient)
}

// RequestTeleportFrom asks to bring the recipient to the sender. A static
// recipient cannot be moved, so this fails at creation rather than letting
// the request dangle until accept.
func (m *Manager) RequestTeleportFrom(sender uuid.UUID, recipient Recipient) (*Request, error) {
	if recipient.Static() {
		return nil, ErrStaticRecipient
	}
	return m.createRequest(Outbound, sender, recipient)
}

func (m *Manager) createRequest(dir Direction, sender uuid.UUID, recipient Recipient) (*Request, error) {
	if !m.world.Online(sender) {
		return nil, ErrSenderOffline
	}
	if !recipient.Resolvable(m.world) {
		return nil, ErrRecipientGone
	}
	if actor, ok := recipient.Actor(); ok && actor == sender {
		return nil, ErrSelfRequest
	}

	m.mu.Lock()

	r := &Request{
		id:        m.nextRequestId(),
		dir:       dir,
		sender:    sender,
		recipient: recipient,
		valid:     true,
		mgr:       m,
	}

	m.active[r.id] = r
	m.session(sender).sent[r.id] = r
	if actor, ok := recipient.Actor(); ok {
		m.session(actor).received[r.id] = r
	}

	m.mu.Unlock()

	// Scheduled outside the lock: a zero-tick timeout arriving mid-pass
	// runs synchronously and takes the lock itself.
	token, err := m.sched.Schedule(r.timeout, m.timeoutTicks)
	if err != nil {
		m.mu.Lock()
		r.valid = false
		m.terminateRequest(r)
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	r.timeoutToken = token
	m.mu.Unlock()

	m.notifier.RequestReceived(r)
	m.notifier.RequestSent(r)
	return r, nil
}

// Accept answers a request the actor received.
func (m *Manager) Accept(actor, id uuid.UUID) error {
	r, ok := m.receivedRequest(actor, id)
	if !ok {
		return ErrUnknownRequest
	}
	return r.Accept()
}

// Deny answers a request the actor received.
func (m *Manager) Deny(actor, id uuid.UUID) error {
	r, ok := m.receivedRequest(actor, id)
	if !ok {
		return ErrUnknownRequest
	}
	r.Deny()
	return nil
}

// Cancel withdraws a request the actor sent.
func (m *Manager) Cancel(actor, id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[actor]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownRequest
	}
	r, ok := s.sent[id]
	m.mu.Unlock()
	if !ok {
		return ErrUnknownRequest
	}

	r.Cancel()
	return nil
}

func (m *Manager) receivedRequest(actor, id uuid.UUID) (*Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[actor]
	if !ok {
		return nil, false
	}
	r, ok := s.received[id]
	return r, ok
}

// Request looks up an in-flight request by id.
func (m *Manager) Request(id uuid.UUID) (*Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.active[id]
	return r, ok
}

// Sent returns the requests the actor is waiting on an answer for.
func (m *Manager) Sent(actor uuid.UUID) []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[actor]
	if !ok {
		return nil
	}
	reqs := make([]*Request, 0, len(s.sent))
	for _, r := range s.sent {
		reqs = append(reqs, r)
	}
	return reqs
}

// Received returns the requests awaiting the actor's answer.
func (m *Manager) Received(actor uuid.UUID) []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[actor]
	if !ok {
		return nil
	}
	reqs := make([]*Request, 0, len(s.received))
	for _, r := range s.received {
		reqs = append(reqs, r)
	}
	return reqs
}

// TeleportTo starts a countdown teleport for the actor with the configured
// delay. If the actor already has one in flight the call is silently
// ignored until the first clears.
func (m *Manager) TeleportTo(actor uuid.UUID, dest Destination) {
	m.teleportTo(actor, dest, m.delayTicks)
}

// TeleportNow starts a teleport that executes on the next tick.
func (m *Manager) TeleportNow(actor uuid.UUID, dest Destination) {
	m.teleportTo(actor, dest, 0)
}

func (m *Manager) teleportTo(actor uuid.UUID, dest Destination, delay int) {
	m.mu.Lock()
	e := m.newExecutionLocked(actor, dest, delay)
	m.mu.Unlock()

	if e != nil {
		e.Prepare()
	}
}

// Executing returns the actor's in-flight countdown teleport, if any.
func (m *Manager) Executing(actor uuid.UUID) (*Execution, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[actor]
	if !ok || s.execution == nil {
		return nil, false
	}
	return s.execution, true
}

// HandleLeave drops the actor's teleport state: the countdown teleport is
// cancelled and every request they sent is withdrawn. Requests they had
// received are left to time out so the senders still get told.
func (m *Manager) HandleLeave(actor uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[actor]
	if !ok {
		m.mu.Unlock()
		return
	}
	if s.execution != nil {
		s.execution.Cancel()
	}
	sent := make([]*Request, 0, len(s.sent))
	for _, r := range s.sent {
		sent = append(sent, r)
	}
	m.mu.Unlock()

	for _, r := range sent {
		r.Cancel()
	}
}

// ExecutionObserver implementation. Frees the actor's execution slot so the
// next TeleportTo can proceed.

func (m *Manager) TeleportSucceeded(e *Execution) {
	m.clearExecution(e)
}

func (m *Manager) TeleportFailed(e *Execution) {
	m.clearExecution(e)
}

func (m *Manager) clearExecution(e *Execution) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.executions, e.Id())
	if s, ok := m.sessions[e.Subject()]; ok && s.execution == e {
		s.execution = nil
	}
}

// startExecution begins the post-accept teleport. Caller holds the lock.
func (m *Manager) startExecution(mover uuid.UUID, dest Destination) *Execution {
	return m.newExecutionLocked(mover, dest, m.delayTicks)
}

func (m *Manager) newExecutionLocked(actor uuid.UUID, dest Destination, delay int) *Execution {
	s := m.session(actor)
	if s.execution != nil {
		return nil
	}

	e := NewExecution(m.nextExecutionId(), actor, dest, delay, m.sched, m.world, m)
	s.execution = e
	m.executions[e.Id()] = e
	return e
}

func (m *Manager) session(actor uuid.UUID) *session {
	s, ok := m.sessions[actor]
	if !ok {
		s = newSession()
		m.sessions[actor] = s
	}
	return s
}

// terminateRequest drops the request from the registry and both parties'
// session maps. Caller holds the lock.
func (m *Manager) terminateRequest(r *Request) {
	delete(m.active, r.id)
	if s, ok := m.sessions[r.sender]; ok {
		delete(s.sent, r.id)
	}
	if actor, ok := r.recipient.Actor(); ok {
		if s, ok := m.sessions[actor]; ok {
			delete(s.received, r.id)
		}
	}
}

// nextRequestId retries on collision rather than treating one as an error.
func (m *Manager) nextRequestId() uuid.UUID {
	for {
		id := uuid.New()
		if _, ok := m.active[id]; !ok {
			return id
		}
	}
}

func (m *Manager) nextExecutionId() uuid.UUID {
	for {
		id := uuid.New()
		if _, ok := m.executions[id]; !ok {
			return id
		}
	}
}
