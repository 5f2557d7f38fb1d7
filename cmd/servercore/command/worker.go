package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-service"
	"github.com/pixil98/servercore/internal/commands"
	"github.com/pixil98/servercore/internal/console"
	"github.com/pixil98/servercore/internal/driver"
	"github.com/pixil98/servercore/internal/listener"
	"github.com/pixil98/servercore/internal/messaging"
	"github.com/pixil98/servercore/internal/scheduler"
	"github.com/pixil98/servercore/internal/state"
	"github.com/pixil98/servercore/internal/teleport"
	"github.com/pixil98/servercore/internal/world"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Message bus
	nats, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	// Persistence
	rankStore, err := cfg.Storage.BuildRankStore()
	if err != nil {
		return nil, fmt.Errorf("creating rank store: %w", err)
	}
	playerStore, err := cfg.Storage.BuildPlayerStore()
	if err != nil {
		return nil, fmt.Errorf("creating player store: %w", err)
	}
	manifest, err := cfg.Storage.LoadManifest()
	if err != nil {
		return nil, fmt.Errorf("loading permission manifest: %w", err)
	}

	// Core session state
	w := world.NewState()
	sched := scheduler.NewScheduler()

	auth, err := state.NewManager(rankStore, playerStore, manifest, w, messaging.NewPermissionSyncer(nats), cfg.Session.adminLevel())
	if err != nil {
		return nil, fmt.Errorf("creating state manager: %w", err)
	}

	tp := teleport.NewManager(sched, w, messaging.NewChatNotifier(nats, w), cfg.Teleport.delayTicks(), cfg.Teleport.timeoutTicks())

	// Command surface
	cmdHandler := commands.NewHandler(auth, tp, w)
	executor := messaging.NewExecutor(cmdHandler, nats, nats)

	// Player sessions
	spawn := world.Position{X: cfg.Session.SpawnX, Y: cfg.Session.SpawnY, Z: cfg.Session.SpawnZ}
	sessions := console.NewSessionManager(cmdHandler, auth, tp, w, nats, spawn, cfg.Session.Ops)
	cm := listener.NewConnectionManager(sessions)

	// Create Listeners
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		lst, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = lst
	}

	// Setup the tick driver
	var opts []driver.TickDriverOpt
	if cfg.TickInterval != "" {
		d, err := time.ParseDuration(cfg.TickInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing tick_interval: %w", err)
		}
		opts = append(opts, driver.WithTickLength(d))
	}
	drv := driver.NewTickDriver([]driver.Manager{sched}, opts...)

	// Create a worker list
	return service.WorkerList{
		"nats":      nats,
		"driver":    drv,
		"executor":  executor,
		"listeners": &listeners,
	}, nil
}
