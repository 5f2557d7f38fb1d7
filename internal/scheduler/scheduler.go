package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNegativeDelay = errors.New("delay can't be negative")
	ErrUnknownToken  = errors.New("no task registered for token")
	ErrTokenMismatch = errors.New("task token mismatch")
)

// Scheduler defers callbacks by a whole number of ticks. It is driven by the
// tick driver, exactly once per game tick. Actions run to completion inside
// the tick; there is no other timing source.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[uuid.UUID]*task
	ticking bool
}

type task struct {
	token     uuid.UUID
	delay     int
	remaining int
	action    func()
	valid     bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		tasks: map[uuid.UUID]*task{},
	}
}

// Schedule registers action to run delayTicks ticks from now and returns a
// cancellation token.
//
// A task scheduled from inside a tick pass has already missed that pass, so
// its delay is reduced by one to compensate. If that reduction makes the
// delay negative the action runs synchronously, inside this call, and the
// returned token refers to an already-completed task.
func (s *Scheduler) Schedule(action func(), delayTicks int) (uuid.UUID, error) {
	if delayTicks < 0 {
		return uuid.Nil, fmt.Errorf("%w: %d", ErrNegativeDelay, delayTicks)
	}

	s.mu.Lock()
	if s.ticking {
		delayTicks--
		if delayTicks == -1 {
			s.mu.Unlock()
			action()
			return uuid.New(), nil
		}
	}

	token := s.nextToken()
	s.tasks[token] = &task{
		token:     token,
		delay:     delayTicks,
		remaining: delayTicks,
		action:    action,
		valid:     true,
	}
	s.mu.Unlock()

	return token, nil
}

// nextToken must be called with the lock held.
func (s *Scheduler) nextToken() uuid.UUID {
	for {
		token := uuid.New()
		if _, ok := s.tasks[token]; !ok {
			return token
		}
	}
}

// Cancel invalidates and removes the task registered under token. Cancelling
// a token whose task has already fired returns ErrUnknownToken.
func (s *Scheduler) Cancel(token uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	if t.token != token {
		return fmt.Errorf("%w: registered under %s", ErrTokenMismatch, t.token)
	}

	t.valid = false
	delete(s.tasks, token)
	return nil
}

// Pending returns the number of live tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Tick advances every live task once and runs the ones that come due.
// Task state is only touched under the lock; actions run outside it, so a
// running action may schedule or cancel tasks. Tasks added during the pass
// are not part of it; they are first considered on the next tick.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.mu.Lock()
	s.ticking = true
	due := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.remaining == 0 {
			due = append(due, t)
		}
		t.remaining--
	}
	s.mu.Unlock()

	for _, t := range due {
		// Due tasks stay registered until this moment so a cancellation
		// arriving after the sweep still lands.
		s.mu.Lock()
		runnable := t.valid
		t.valid = false
		delete(s.tasks, t.token)
		s.mu.Unlock()
		if runnable {
			t.action()
		}
	}

	s.mu.Lock()
	s.ticking = false
	s.mu.Unlock()

	return nil
}
