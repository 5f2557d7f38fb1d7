package driver

import (
	"context"
	"time"
)

// DefaultTickLength matches the usual 20 ticks-per-second game rate.
const DefaultTickLength = time.Millisecond * 50

type Manager interface {
	Tick(context.Context) error
}

// TickDriver runs the game loop: every tick length it advances each
// registered manager once, in order.
type TickDriver struct {
	tickLength time.Duration
	managers   []Manager
}

func NewTickDriver(managers []Manager, opts ...TickDriverOpt) *TickDriver {
	d := &TickDriver{
		tickLength: DefaultTickLength,
		managers:   managers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *TickDriver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := d.Tick(ctx)
			if err != nil {
				return err
			}
		}
	}
}

func (d *TickDriver) Tick(ctx context.Context) error {
	for _, m := range d.managers {
		if err := m.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}
