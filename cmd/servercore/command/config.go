package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

type Config struct {
	TickInterval string           `json:"tick_interval"`
	Listeners    []ListenerConfig `json:"listeners"`
	Storage      StorageConfig    `json:"storage"`
	Nats         NatsConfig       `json:"nats"`
	Teleport     TeleportConfig   `json:"teleport"`
	Session      SessionConfig    `json:"session"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_interval: %w", err))
		} else if d < time.Millisecond*10 {
			el.Add(fmt.Errorf("tick_interval must be at least 10ms"))
		}
	}

	for i, l := range c.Listeners {
		err := l.validate()
		if err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}

	el.Add(c.Storage.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Teleport.validate())
	el.Add(c.Session.validate())

	return el.Err()
}

// SessionConfig covers the player-facing session defaults.
type SessionConfig struct {
	// SpawnX/Y/Z is where joining players appear.
	SpawnX float64 `json:"spawn_x"`
	SpawnY float64 `json:"spawn_y"`
	SpawnZ float64 `json:"spawn_z"`

	// Ops maps player names to operator levels. Operators at or above
	// the teleport admin level bypass permission checks.
	Ops map[string]int `json:"ops"`

	// AdminLevel is the operator level that bypasses permission checks.
	// Defaults to 4.
	AdminLevel int `json:"admin_level"`
}

func (c *SessionConfig) validate() error {
	el := errors.NewErrorList()

	if c.AdminLevel < 0 {
		el.Add(fmt.Errorf("admin_level must not be negative"))
	}
	for name, level := range c.Ops {
		if name == "" {
			el.Add(fmt.Errorf("ops: empty player name"))
		}
		if level < 0 {
			el.Add(fmt.Errorf("ops %q: level must not be negative", name))
		}
	}

	return el.Err()
}

func (c *SessionConfig) adminLevel() int {
	if c.AdminLevel == 0 {
		return 4
	}
	return c.AdminLevel
}
