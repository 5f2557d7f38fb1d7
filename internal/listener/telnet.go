package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"

	"github.com/iammegalith/telnet"
	"github.com/pixil98/go-log"
	"github.com/sirupsen/logrus"
)

type TelnetListener struct {
	port uint16
	cm   *ConnectionManager
}

func NewTelnetListener(port uint16, cm *ConnectionManager) *TelnetListener {
	return &TelnetListener{
		port: port,
		cm:   cm,
	}
}

func (l *TelnetListener) Start(ctx context.Context) error {
	// Sessions share one context so shutdown cancels them all together.
	sessCtx, cancelSessions := context.WithCancel(context.Background())

	sessions := &telnetSessions{
		accept: l.cm.AcceptConnection,
		logger: log.GetLogger(ctx),
		ctx:    sessCtx,
		cancel: cancelSessions,
	}

	svr := telnet.NewServer(fmt.Sprintf(":%d", l.port), sessions)

	// done signals that Start is returning, success or not.
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			svr.Stop()
			sessions.Stop()
		case <-done:
			// ListenAndServe already returned; nothing left to stop.
		}
	}()

	err := svr.ListenAndServe()
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d is already in use (another server running?)", l.port)
		}
		return fmt.Errorf("serving telnet on port %d: %w", l.port, err)
	}

	return nil
}

// telnetSessions tracks live telnet sessions so Stop can cancel them and
// wait for them to drain.
type telnetSessions struct {
	wg     sync.WaitGroup
	accept func(context.Context, io.ReadWriter)
	logger logrus.FieldLogger
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *telnetSessions) HandleTelnet(conn *telnet.Connection) {
	s.wg.Add(1)
	defer s.wg.Done()
	defer func() {
		if err := conn.Close(); err != nil {
			s.logger.Errorf("closing telnet connection: %s", err)
		}
	}()

	ctx := log.SetLogger(s.ctx, s.logger)
	s.accept(ctx, newCRLFReadWriter(conn))
}

func (s *telnetSessions) Stop() {
	s.cancel()
	s.wg.Wait()
}
