package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mpetrov/marvin/pkg/logger"
)

// ErrSolverUnavailable is returned only after every configured provider has
// failed to answer.
var ErrSolverUnavailable = errors.New("no text-generation provider responded")

// systemMessage is the standing instruction sent with every solver query.
// The answer format matters: the extractor downstream maps keyboard
// shortcuts, pyautogui-style calls and fenced code into concrete actions,
// so the prompt steers providers toward those shapes.
const systemMessage = "You are marvin, an efficient desktop assistant. " +
	"When asked how to perform a desktop task, respond with concrete, minimal steps. " +
	"For GUI automation use only pyautogui-style calls (press, hotkey, write, moveTo, click, screenshot) " +
	"inside a single fenced code block, with no explanations or extra text. " +
	"Keyboard shortcuts may also be given in plain ctrl+key notation. " +
	"If the question is conversational (weather, facts, chat), just answer it normally."

// ContextSource supplies recent-history context for prompts. Usually the
// event log's LastN.
type ContextSource func() string

// Gateway is the External Solver Gateway: one Ask fans out across the
// configured providers in order, each tried once, first answer wins.
type Gateway struct {
	providers []Provider
	memory    ContextSource
	options   map[string]interface{}
}

func NewGateway(provs []Provider, memory ContextSource) *Gateway {
	return &Gateway{
		providers: provs,
		memory:    memory,
		options: map[string]interface{}{
			"temperature": 0.7,
			"max_tokens":  4096,
		},
	}
}

// Providers returns the configured provider names, for diagnostics.
func (g *Gateway) Providers() []string {
	names := make([]string, len(g.providers))
	for i, p := range g.providers {
		names[i] = p.Name()
	}
	return names
}

// Ask requests a solution for an unknown task. The returned text is
// unstructured and may embed a fenced code fragment; interpreting it is the
// extractor's problem, not the gateway's.
func (g *Gateway) Ask(ctx context.Context, task string) (string, error) {
	prompt := fmt.Sprintf(`I need to learn how to handle this command in a desktop assistant: %q

Give me the exact steps or automation calls that perform it. Keep the answer concise and focused on what to execute.`, task)

	return g.Query(ctx, prompt)
}

// Query sends an arbitrary prompt through the fallback chain, prefixed with
// the system message and recent history.
func (g *Gateway) Query(ctx context.Context, prompt string) (string, error) {
	if len(g.providers) == 0 {
		return "", ErrSolverUnavailable
	}

	messages := []Message{{Role: "system", Content: systemMessage}}
	if g.memory != nil {
		if recent := g.memory(); recent != "" {
			messages = append(messages, Message{
				Role:    "system",
				Content: "Recent history:\n" + recent,
			})
		}
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	for _, p := range g.providers {
		resp, err := p.Chat(ctx, messages, "", g.options)
		if err != nil {
			logger.WarnCF("gateway", "Provider failed, trying next", map[string]interface{}{
				"provider": p.Name(),
				"error":    err.Error(),
			})
			continue
		}
		answer := strings.TrimSpace(resp.Content)
		if answer == "" {
			logger.WarnCF("gateway", "Provider returned empty answer", map[string]interface{}{
				"provider": p.Name(),
			})
			continue
		}
		logger.DebugCF("gateway", "Provider answered", map[string]interface{}{
			"provider": p.Name(),
			"chars":    len(answer),
		})
		return answer, nil
	}

	return "", ErrSolverUnavailable
}
