package listener

import (
	"context"
	"io"
	"log/slog"

	"github.com/pixil98/servercore/internal/console"
)

type ConnectionManager struct {
	sm *console.SessionManager
}

func NewConnectionManager(sm *console.SessionManager) *ConnectionManager {
	return &ConnectionManager{
		sm: sm,
	}
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriter) {
	if err := m.sm.RunSession(ctx, conn); err != nil {
		slog.WarnContext(ctx, "console session", "error", err)
	}
}
