package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/pixil98/go-testutil"
)

func tick(t *testing.T, s *Scheduler) {
	t.Helper()
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected tick error: %v", err)
	}
}

func TestScheduleZeroDelay(t *testing.T) {
	s := NewScheduler()

	runs := 0
	_, err := s.Schedule(func() { runs++ }, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "runs before tick", runs, 0)
	tick(t, s)
	testutil.AssertEqual(t, "runs after tick", runs, 1)
	testutil.AssertEqual(t, "pending", s.Pending(), 0)

	// A fired one-shot never runs again.
	tick(t, s)
	testutil.AssertEqual(t, "runs after extra tick", runs, 1)
}

func TestScheduleCountdown(t *testing.T) {
	s := NewScheduler()

	runs := 0
	_, err := s.Schedule(func() { runs++ }, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		tick(t, s)
		testutil.AssertEqual(t, "runs mid-countdown", runs, 0)
		testutil.AssertEqual(t, "still pending", s.Pending(), 1)
	}

	// Fires on the fourth tick, where remaining reaches zero.
	tick(t, s)
	testutil.AssertEqual(t, "runs", runs, 1)
	testutil.AssertEqual(t, "pending", s.Pending(), 0)
}

func TestScheduleNegativeDelay(t *testing.T) {
	s := NewScheduler()

	_, err := s.Schedule(func() {}, -1)
	if !errors.Is(err, ErrNegativeDelay) {
		t.Fatalf("expected ErrNegativeDelay, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	s := NewScheduler()

	runs := 0
	token, err := s.Schedule(func() { runs++ }, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Cancel(token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "pending", s.Pending(), 0)

	tick(t, s)
	tick(t, s)
	testutil.AssertEqual(t, "runs", runs, 0)

	// Second cancel is an error, not a crash.
	err = s.Cancel(token)
	if !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}

func TestCancelUnknownToken(t *testing.T) {
	s := NewScheduler()

	err := s.Cancel(uuid.New())
	if !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}

func TestCancelAfterFire(t *testing.T) {
	s := NewScheduler()

	token, err := s.Schedule(func() {}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tick(t, s)

	err = s.Cancel(token)
	if !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}

func TestScheduleDuringTickRunsSynchronously(t *testing.T) {
	s := NewScheduler()

	var order []string
	_, err := s.Schedule(func() {
		order = append(order, "outer-start")
		if _, err := s.Schedule(func() { order = append(order, "inner") }, 0); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		order = append(order, "outer-end")
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tick(t, s)

	// The zero-delay task scheduled mid-pass ran inside the Schedule call,
	// not queued onto this pass or the next.
	testutil.AssertEqual(t, "order length", len(order), 3)
	testutil.AssertEqual(t, "first", order[0], "outer-start")
	testutil.AssertEqual(t, "second", order[1], "inner")
	testutil.AssertEqual(t, "third", order[2], "outer-end")
	testutil.AssertEqual(t, "pending", s.Pending(), 0)
}

func TestScheduleDuringTickCompensatesDelay(t *testing.T) {
	s := NewScheduler()

	runs := 0
	_, err := s.Schedule(func() {
		if _, err := s.Schedule(func() { runs++ }, 2); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tick(t, s) // outer fires, schedules inner with delay 2 -> effective 1
	testutil.AssertEqual(t, "runs after scheduling tick", runs, 0)
	tick(t, s)
	testutil.AssertEqual(t, "runs one tick later", runs, 0)
	tick(t, s)
	testutil.AssertEqual(t, "runs two ticks later", runs, 1)
}

func TestCancelDuringTick(t *testing.T) {
	s := NewScheduler()

	runs := 0
	var victim uuid.UUID
	victim, err := s.Schedule(func() { runs++ }, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = s.Schedule(func() {
		if err := s.Cancel(victim); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tick(t, s)
	tick(t, s)
	testutil.AssertEqual(t, "victim never ran", runs, 0)
	testutil.AssertEqual(t, "pending", s.Pending(), 0)
}

func TestConcurrentCancelWhileTicking(t *testing.T) {
	s := NewScheduler()

	var fired int32
	tokens := make([]uuid.UUID, 0, 50)
	for i := 0; i < 50; i++ {
		token, err := s.Schedule(func() { atomic.AddInt32(&fired, 1) }, i%5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tokens = append(tokens, token)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			if err := s.Tick(context.Background()); err != nil {
				t.Errorf("unexpected tick error: %v", err)
			}
		}
	}()
	for _, token := range tokens {
		// Losing the race to the pass is fine; firing after a successful
		// cancel is not.
		_ = s.Cancel(token)
	}
	<-done

	testutil.AssertEqual(t, "pending", s.Pending(), 0)
	if n := int(atomic.LoadInt32(&fired)); n > 50 {
		t.Errorf("expected at most 50 firings, got %d", n)
	}
}

func TestConcurrentScheduleWhileTicking(t *testing.T) {
	s := NewScheduler()

	var fired int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			if err := s.Tick(context.Background()); err != nil {
				t.Errorf("unexpected tick error: %v", err)
			}
		}
	}()
	for i := 0; i < 20; i++ {
		if _, err := s.Schedule(func() { atomic.AddInt32(&fired, 1) }, 1); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	<-done

	// Drain whatever the racing passes didn't reach.
	for i := 0; i < 3; i++ {
		tick(t, s)
	}
	testutil.AssertEqual(t, "all fired", int(atomic.LoadInt32(&fired)), 20)
	testutil.AssertEqual(t, "pending", s.Pending(), 0)
}
