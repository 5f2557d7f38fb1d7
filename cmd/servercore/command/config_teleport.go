package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

const (
	// At 20 ticks per second: a 10 second countdown, 15 second ask window.
	defaultTeleportDelayTicks   = 200
	defaultTeleportTimeoutTicks = 300
)

type TeleportConfig struct {
	// DelayTicks is the countdown before an accepted or direct teleport
	// lands.
	DelayTicks *int `json:"delay_ticks,omitempty"`

	// TimeoutTicks is how long a request waits for an answer.
	TimeoutTicks *int `json:"timeout_ticks,omitempty"`
}

func (c *TeleportConfig) validate() error {
	el := errors.NewErrorList()

	if c.DelayTicks != nil && *c.DelayTicks < 0 {
		el.Add(fmt.Errorf("delay_ticks must not be negative"))
	}
	if c.TimeoutTicks != nil && *c.TimeoutTicks < 1 {
		el.Add(fmt.Errorf("timeout_ticks must be at least 1"))
	}

	return el.Err()
}

func (c *TeleportConfig) delayTicks() int {
	if c.DelayTicks == nil {
		return defaultTeleportDelayTicks
	}
	return *c.DelayTicks
}

func (c *TeleportConfig) timeoutTicks() int {
	if c.TimeoutTicks == nil {
		return defaultTeleportTimeoutTicks
	}
	return *c.TimeoutTicks
}
