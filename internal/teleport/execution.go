package teleport

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pixil98/servercore/internal/scheduler"
	"github.com/pixil98/servercore/internal/world"
)

// ExecutionObserver is told how a countdown teleport ended. Exactly one of
// the two methods fires, once.
type ExecutionObserver interface {
	TeleportSucceeded(e *Execution)
	TeleportFailed(e *Execution)
}

// Execution is a countdown-then-move teleport. It is created inert and does
// nothing until Prepare puts it on the scheduler. Cancel may arrive from a
// session goroutine while the driver is mid-pass, so the mutable state is
// guarded by its own lock; the observer is never called while it is held.
type Execution struct {
	id      uuid.UUID
	subject uuid.UUID
	dest    Destination
	delay   int

	mu        sync.Mutex
	countdown int
	armed     bool
	cancelled bool

	sched *scheduler.Scheduler
	world *world.State
	obs   ExecutionObserver
}

func NewExecution(id, subject uuid.UUID, dest Destination, delay int, sched *scheduler.Scheduler, w *world.State, obs ExecutionObserver) *Execution {
	return &Execution{
		id:        id,
		subject:   subject,
		dest:      dest,
		delay:     delay,
		countdown: delay,
		sched:     sched,
		world:     w,
		obs:       obs,
	}
}

func (e *Execution) Id() uuid.UUID {
	return e.id
}

func (e *Execution) Subject() uuid.UUID {
	return e.subject
}

func (e *Execution) Delay() int {
	return e.delay
}

func (e *Execution) Countdown() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countdown
}

// Prepare schedules the first countdown pass. Calling it twice is a no-op.
func (e *Execution) Prepare() {
	e.mu.Lock()
	if e.armed {
		e.mu.Unlock()
		return
	}
	e.armed = true
	e.mu.Unlock()

	_, _ = e.sched.Schedule(e.tick, 0)
}

// Cancel flags the execution. The flag is observed on the next scheduler
// pass, not synchronously.
func (e *Execution) Cancel() {
	e.mu.Lock()
	e.cancelled = true
	e.mu.Unlock()
}

func (e *Execution) Cancelled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

func (e *Execution) tick() {
	e.mu.Lock()
	if e.cancelled {
		e.mu.Unlock()
		e.obs.TeleportFailed(e)
		return
	}
	if e.countdown <= 0 {
		e.mu.Unlock()
		if e.execute() {
			e.obs.TeleportSucceeded(e)
		} else {
			e.obs.TeleportFailed(e)
		}
		return
	}
	e.countdown--
	e.mu.Unlock()

	_, _ = e.sched.Schedule(e.tick, 1)
}

func (e *Execution) execute() bool {
	pos, ok := e.dest.Resolve(e.world)
	if !ok {
		return false
	}

	if err := e.world.Move(e.subject, pos); err != nil {
		return false
	}

	return true
}
