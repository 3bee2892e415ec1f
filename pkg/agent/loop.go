// Package agent is the assistant loop: it consumes commands from the bus,
// answers from the built-in table when possible, routes conversational
// questions to the solver gateway, and hands everything else to the
// resolution engine.
package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/mpetrov/marvin/pkg/bus"
	"github.com/mpetrov/marvin/pkg/logger"
	"github.com/mpetrov/marvin/pkg/memory"
	"github.com/mpetrov/marvin/pkg/resolve"
	"github.com/mpetrov/marvin/pkg/session"
	"github.com/mpetrov/marvin/pkg/state"
)

type Agent struct {
	bus      *bus.CommandBus
	builtins *Builtins
	engine   *resolve.Engine
	chatter  Chatter
	sessions *session.Manager
	events   *memory.EventLog
	runtime  *state.Manager

	// turnMu enforces strict turn-taking: one command is fully resolved
	// before the next starts, and the heartbeat sweep shares the same lock
	// so the store only ever has one writer in this process.
	turnMu sync.Mutex
}

// Chatter answers conversational questions. The solver gateway's Query
// satisfies it.
type Chatter interface {
	Query(ctx context.Context, prompt string) (string, error)
}

type Options struct {
	Bus      *bus.CommandBus
	Builtins *Builtins
	Engine   *resolve.Engine
	Chatter  Chatter
	Sessions *session.Manager
	Events   *memory.EventLog
	Runtime  *state.Manager
}

func New(opts Options) *Agent {
	return &Agent{
		bus:      opts.Bus,
		builtins: opts.Builtins,
		engine:   opts.Engine,
		chatter:  opts.Chatter,
		sessions: opts.Sessions,
		events:   opts.Events,
		runtime:  opts.Runtime,
	}
}

// TurnLock exposes the turn mutex so background work (the heartbeat sweep)
// can serialize with command processing.
func (a *Agent) TurnLock() sync.Locker {
	return &a.turnMu
}

// Run consumes commands until the context ends or the bus closes.
func (a *Agent) Run(ctx context.Context) error {
	logger.InfoC("agent", "Assistant loop started")
	for {
		cmd, ok := a.bus.ConsumeCommand(ctx)
		if !ok {
			logger.InfoC("agent", "Assistant loop stopped")
			return ctx.Err()
		}
		resp := a.processCommand(ctx, cmd)
		if err := a.bus.PublishResponse(ctx, resp); err != nil {
			logger.WarnCF("agent", "Response dropped", map[string]interface{}{
				"command_id": cmd.ID,
				"error":      err.Error(),
			})
		}
	}
}

func (a *Agent) processCommand(ctx context.Context, cmd bus.Command) bus.Response {
	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	a.events.Record(memory.EventUserCommand, cmd.Text)
	if err := a.runtime.RecordCommand(cmd.Channel); err != nil {
		logger.DebugCF("agent", "State update failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if reply, ok := a.builtins.TryHandle(ctx, cmd.Text); ok {
		a.events.Record(memory.EventAction, reply)
		return bus.Response{
			CommandID: cmd.ID,
			Channel:   cmd.Channel,
			Text:      reply,
			Executed:  true,
		}
	}

	if isQuestion(cmd.Text) {
		return bus.Response{
			CommandID: cmd.ID,
			Channel:   cmd.Channel,
			Text:      a.chat(ctx, cmd.Channel, cmd.Text),
		}
	}

	outcome := a.engine.Resolve(ctx, cmd.Text)
	if outcome.Learned {
		if err := a.runtime.RecordLearned(); err != nil {
			logger.DebugCF("agent", "State update failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	a.events.Record(memory.EventAction, outcome.Report)

	return bus.Response{
		CommandID: cmd.ID,
		Channel:   cmd.Channel,
		Text:      outcome.Report,
		Executed:  outcome.Executed,
	}
}

// chat sends a conversational question to the gateway with the channel's
// recent history folded into the prompt.
func (a *Agent) chat(ctx context.Context, channel, text string) string {
	var b strings.Builder
	for _, msg := range a.sessions.GetHistory(channel) {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString("user: ")
	b.WriteString(text)

	answer, err := a.chatter.Query(ctx, b.String())
	if err != nil {
		logger.WarnCF("agent", "Chat query failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "I can't reach my language services right now."
	}

	a.sessions.AddMessage(channel, "user", text)
	a.sessions.AddMessage(channel, "assistant", answer)
	if err := a.sessions.Save(channel); err != nil {
		logger.DebugCF("agent", "Session save failed", map[string]interface{}{
			"channel": channel,
			"error":   err.Error(),
		})
	}
	return answer
}

// questionWords marks commands that are conversation, not automation.
var questionWords = []string{
	"what", "who", "why", "how", "when", "where",
	"tell me", "explain", "do you", "are you", "can you",
}

func isQuestion(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if strings.HasSuffix(t, "?") {
		return true
	}
	for _, w := range questionWords {
		if strings.HasPrefix(t, w+" ") {
			return true
		}
	}
	return false
}
