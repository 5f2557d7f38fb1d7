package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/pixil98/go-testutil"
)

type countingManager struct {
	ticks int
	order *[]string
	name  string
	err   error
}

func (m *countingManager) Tick(ctx context.Context) error {
	m.ticks++
	if m.order != nil {
		*m.order = append(*m.order, m.name)
	}
	return m.err
}

func TestTickRunsManagersInOrder(t *testing.T) {
	var order []string
	first := &countingManager{name: "first", order: &order}
	second := &countingManager{name: "second", order: &order}

	d := NewTickDriver([]Manager{first, second})
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "first ticks", first.ticks, 1)
	testutil.AssertEqual(t, "second ticks", second.ticks, 1)
	testutil.AssertEqual(t, "order[0]", order[0], "first")
	testutil.AssertEqual(t, "order[1]", order[1], "second")
}

func TestTickStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	first := &countingManager{name: "first", err: boom}
	second := &countingManager{name: "second"}

	d := NewTickDriver([]Manager{first, second})
	if !errors.Is(d.Tick(context.Background()), boom) {
		t.Error("expected the manager error to propagate")
	}
	testutil.AssertEqual(t, "second ticks", second.ticks, 0)
}
