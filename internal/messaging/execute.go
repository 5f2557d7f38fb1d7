package messaging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/servercore/internal/commands"
	"github.com/pixil98/servercore/internal/state"
)

// executeSubject is the wildcard for per-player remote command execution.
const executeSubject = "execute.*"

// Subscriber registers handlers on the message bus.
type Subscriber interface {
	Subscribe(subject string, handler func(subject string, data []byte)) (func(), error)
}

// Executor runs command lines that arrive over the bus on a player's
// execute subject, and sends the output back on their chat subject.
type Executor struct {
	handler *commands.Handler
	pub     Publisher
	bus     Subscriber
}

func NewExecutor(handler *commands.Handler, pub Publisher, bus Subscriber) *Executor {
	return &Executor{handler: handler, pub: pub, bus: bus}
}

// Start attaches the executor once the bus comes up, then holds the
// subscription until shutdown. The bus worker starts concurrently, so the
// first attach attempts may find it not yet accepting subscriptions.
func (e *Executor) Start(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var detach func()
	for detach == nil {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d, err := e.Attach(ctx, e.bus)
			if err == nil {
				detach = d
			}
		}
	}
	defer detach()

	<-ctx.Done()
	return nil
}

// Attach subscribes the executor. The returned function detaches it.
func (e *Executor) Attach(ctx context.Context, sub Subscriber) (func(), error) {
	return sub.Subscribe(executeSubject, func(subject string, data []byte) {
		e.handle(ctx, subject, data)
	})
}

func (e *Executor) handle(ctx context.Context, subject string, data []byte) {
	idPart := strings.TrimPrefix(subject, "execute.")
	actorId, err := uuid.Parse(idPart)
	if err != nil {
		slog.Warn("ignoring execute message with bad subject", "subject", subject)
		return
	}

	actor := state.Actor{Id: actorId}
	var out bytes.Buffer
	err = e.handler.ExecLine(ctx, actor, &out, string(data))

	var ue *commands.UserError
	switch {
	case errors.As(err, &ue):
		e.reply(actorId, ue.Message)
	case err != nil:
		slog.Error("remote command failed", "actor", actorId, "error", err)
		e.reply(actorId, "Something went wrong running that command.")
	}

	if out.Len() > 0 {
		e.reply(actorId, out.String())
	}
}

func (e *Executor) reply(actor uuid.UUID, msg string) {
	if err := e.pub.Publish(ChatSubject(actor), []byte(msg)); err != nil {
		slog.Warn("failed to deliver command output", "actor", actor, "error", err)
	}
}
