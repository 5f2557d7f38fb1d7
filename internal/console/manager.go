package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/pixil98/servercore/internal/commands"
	"github.com/pixil98/servercore/internal/messaging"
	"github.com/pixil98/servercore/internal/state"
	"github.com/pixil98/servercore/internal/teleport"
	"github.com/pixil98/servercore/internal/world"
)

// playerNamespace seeds name-derived player ids so a returning player keeps
// their ranks and permissions across sessions.
var playerNamespace = uuid.MustParse("5f2c9a60-4a3d-41d8-9de1-7c15ed4457aa")

// Subscriber registers per-player subjects on the message bus.
type Subscriber interface {
	Subscribe(subject string, handler func(subject string, data []byte)) (func(), error)
}

// SessionManager logs connections in and runs their session loops.
type SessionManager struct {
	cmdHandler *commands.Handler
	auth       *state.Manager
	tp         *teleport.Manager
	world      *world.State
	bus        Subscriber

	spawn world.Position
	ops   map[string]int
}

func NewSessionManager(cmd *commands.Handler, auth *state.Manager, tp *teleport.Manager, w *world.State, bus Subscriber, spawn world.Position, ops map[string]int) *SessionManager {
	return &SessionManager{
		cmdHandler: cmd,
		auth:       auth,
		tp:         tp,
		world:      w,
		bus:        bus,
		spawn:      spawn,
		ops:        ops,
	}
}

// readWriter pairs the shared buffered reader with the raw writer so the
// session never loses bytes the login step buffered ahead.
type readWriter struct {
	io.Reader
	io.Writer
}

// RunSession takes over a fresh connection: login, join the world, play
// until disconnect, then tear the player's session state down.
func (m *SessionManager) RunSession(ctx context.Context, rawConn io.ReadWriter) error {
	reader := bufio.NewReader(rawConn)
	conn := readWriter{reader, rawConn}

	name, err := m.login(reader, conn)
	if err != nil {
		return err
	}

	id := PlayerId(name)
	if err := m.world.Join(id, name, m.spawn); err != nil {
		if errors.Is(err, world.ErrActorExists) {
			fmt.Fprintf(conn, "Someone named %s is already connected.\n", name)
			return nil
		}
		return fmt.Errorf("joining world: %w", err)
	}
	defer func() {
		m.tp.HandleLeave(id)
		if err := m.auth.SavePlayer(id); err != nil {
			fmt.Fprintf(conn, "Warning: your state could not be saved.\n")
		}
		_ = m.world.Leave(id)
	}()

	if err := m.auth.HandleJoin(id); err != nil {
		return fmt.Errorf("syncing permissions: %w", err)
	}

	session := &Session{
		conn:  conn,
		actor: state.Actor{Id: id, OpLevel: m.ops[strings.ToLower(name)]},
		name:  name,

		cmdHandler: m.cmdHandler,
		msgs:       make(chan []byte, 16),
	}

	unsubscribe, err := m.bus.Subscribe(messaging.ChatSubject(id), func(_ string, data []byte) {
		session.Deliver(data)
	})
	if err != nil {
		return fmt.Errorf("subscribing to chat: %w", err)
	}
	defer unsubscribe()

	return session.Play(ctx)
}

// login reads the player's name off a fresh connection. It consumes exactly
// one line from the shared reader so the session loop picks up cleanly after
// it.
func (m *SessionManager) login(reader *bufio.Reader, w io.Writer) (string, error) {
	if _, err := w.Write([]byte("What is your name? ")); err != nil {
		return "", err
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading name: %w", err)
	}

	name := strings.TrimSpace(line)
	if name == "" || strings.ContainsAny(name, " \t") {
		return "", fmt.Errorf("invalid name %q", name)
	}
	return name, nil
}

// PlayerId derives a stable player id from a name.
func PlayerId(name string) uuid.UUID {
	return uuid.NewSHA1(playerNamespace, []byte(strings.ToLower(name)))
}
