package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pixil98/servercore/internal/commands"
	"github.com/pixil98/servercore/internal/display"
	"github.com/pixil98/servercore/internal/state"
)

// Session is one connected player's interactive loop: read a line, run the
// verb, write the result, until the connection drops or they quit.
type Session struct {
	conn  io.ReadWriter
	actor state.Actor
	name  string

	cmdHandler *commands.Handler

	msgs chan []byte
}

func (s *Session) Id() uuid.UUID {
	return s.actor.Id
}

func (s *Session) Play(ctx context.Context) error {
	// Start goroutine to read input lines into a channel
	inputChan := make(chan string)
	inputErrChan := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(s.conn)
		for scanner.Scan() {
			inputChan <- scanner.Text()
		}
		inputErrChan <- scanner.Err()
		close(inputChan)
	}()

	if err := s.writeLine(fmt.Sprintf("Welcome, %s. Type help for commands.", display.Capitalize(s.name))); err != nil {
		return err
	}
	if err := s.prompt(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-s.msgs:
			// Bus message (chat, permission notices) for this player
			if err := s.writeLine("\n" + string(msg)); err != nil {
				return err
			}
			if err := s.prompt(); err != nil {
				return err
			}

		case line, ok := <-inputChan:
			if !ok {
				// Input channel closed (connection lost).
				select {
				case err := <-inputErrChan:
					return err
				default:
					return nil
				}
			}

			line = strings.TrimSpace(line)
			if line == "" {
				if err := s.prompt(); err != nil {
					return err
				}
				continue
			}

			if line == "quit" || line == "exit" {
				if err := s.writeLine("Goodbye!"); err != nil {
					slog.Warn("failed to write goodbye", "actor", s.actor.Id, "error", err)
				}
				return nil
			}

			err := s.cmdHandler.ExecLine(ctx, s.actor, s.conn, line)
			if err != nil {
				var userErr *commands.UserError
				if errors.As(err, &userErr) {
					if err := s.writeLine(userErr.Message); err != nil {
						return err
					}
				} else {
					// System error - log and disconnect
					return fmt.Errorf("command execution failed: %w", err)
				}
			}

			if err := s.prompt(); err != nil {
				return err
			}
		}
	}
}

// Deliver queues a bus message for display. Drops the message if the
// session's buffer is full rather than blocking the bus.
func (s *Session) Deliver(msg []byte) {
	select {
	case s.msgs <- msg:
	default:
		slog.Warn("dropping message for slow session", "actor", s.actor.Id)
	}
}

func (s *Session) prompt() error {
	_, err := s.conn.Write([]byte("> "))
	return err
}

func (s *Session) writeLine(msg string) error {
	_, err := s.conn.Write([]byte(display.Wrap(msg) + "\n"))
	return err
}
