// Package bus carries commands from input channels to the agent loop and
// responses back. The shell is strictly turn-taking, but the bus keeps the
// channel implementations decoupled from command processing.
package bus

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var ErrBusClosed = errors.New("command bus closed")

// Command is one user instruction awaiting resolution.
type Command struct {
	ID      string
	Channel string
	Text    string
	Time    time.Time
}

// Response is the textual outcome of a command. Per the engine's contract
// there is always one, even on total failure.
type Response struct {
	CommandID string
	Channel   string
	Text      string
	Executed  bool
}

func NewCommand(channel, text string) Command {
	return Command{
		ID:      uuid.NewString(),
		Channel: channel,
		Text:    text,
		Time:    time.Now(),
	}
}

type CommandBus struct {
	commands  chan Command
	responses chan Response
	done      chan struct{}
	closed    atomic.Bool
}

func NewCommandBus() *CommandBus {
	return &CommandBus{
		commands:  make(chan Command, 16),
		responses: make(chan Response, 16),
		done:      make(chan struct{}),
	}
}

func (cb *CommandBus) PublishCommand(ctx context.Context, cmd Command) error {
	if cb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case <-cb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	case cb.commands <- cmd:
		return nil
	}
}

func (cb *CommandBus) ConsumeCommand(ctx context.Context) (Command, bool) {
	select {
	case cmd, ok := <-cb.commands:
		return cmd, ok
	case <-cb.done:
		return Command{}, false
	case <-ctx.Done():
		return Command{}, false
	}
}

func (cb *CommandBus) PublishResponse(ctx context.Context, resp Response) error {
	if cb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case <-cb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	case cb.responses <- resp:
		return nil
	}
}

func (cb *CommandBus) SubscribeResponse(ctx context.Context) (Response, bool) {
	select {
	case resp, ok := <-cb.responses:
		return resp, ok
	case <-cb.done:
		return Response{}, false
	case <-ctx.Done():
		return Response{}, false
	}
}

func (cb *CommandBus) Close() {
	if cb.closed.CompareAndSwap(false, true) {
		close(cb.done)
	}
}
