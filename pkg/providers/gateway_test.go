package providers

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubProvider struct {
	name   string
	answer string
	err    error
	calls  int
	seen   []Message
}

func (s *stubProvider) Name() string            { return s.name }
func (s *stubProvider) GetDefaultModel() string { return "stub-model" }

func (s *stubProvider) Chat(_ context.Context, messages []Message, _ string, _ map[string]interface{}) (*LLMResponse, error) {
	s.calls++
	s.seen = messages
	if s.err != nil {
		return nil, s.err
	}
	return &LLMResponse{Content: s.answer, FinishReason: "stop"}, nil
}

func TestGatewayFallbackChain(t *testing.T) {
	failing := &stubProvider{name: "groq", err: errors.New("rate limited")}
	empty := &stubProvider{name: "gemini", answer: "   "}
	good := &stubProvider{name: "openai", answer: "press('enter')"}
	spare := &stubProvider{name: "anthropic", answer: "never reached"}

	g := NewGateway([]Provider{failing, empty, good, spare}, nil)

	answer, err := g.Ask(context.Background(), "confirm the dialog")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "press('enter')" {
		t.Errorf("answer = %q, want press('enter')", answer)
	}
	if failing.calls != 1 || empty.calls != 1 || good.calls != 1 {
		t.Errorf("each provider should be tried once: %d %d %d", failing.calls, empty.calls, good.calls)
	}
	if spare.calls != 0 {
		t.Errorf("providers after the first success must not be called, got %d", spare.calls)
	}
}

func TestGatewayAllProvidersFail(t *testing.T) {
	a := &stubProvider{name: "groq", err: errors.New("down")}
	b := &stubProvider{name: "gemini", err: errors.New("down")}

	g := NewGateway([]Provider{a, b}, nil)

	_, err := g.Ask(context.Background(), "anything")
	if !errors.Is(err, ErrSolverUnavailable) {
		t.Fatalf("err = %v, want ErrSolverUnavailable", err)
	}
}

func TestGatewayNoProviders(t *testing.T) {
	g := NewGateway(nil, nil)
	_, err := g.Query(context.Background(), "hello")
	if !errors.Is(err, ErrSolverUnavailable) {
		t.Fatalf("err = %v, want ErrSolverUnavailable", err)
	}
}

func TestGatewayIncludesMemoryContext(t *testing.T) {
	p := &stubProvider{name: "groq", answer: "ok"}
	g := NewGateway([]Provider{p}, func() string {
		return "[2026-01-02 15:04:05] (USER_COMMAND) open notepad"
	})

	if _, err := g.Ask(context.Background(), "open notepad again"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	found := false
	for _, msg := range p.seen {
		if msg.Role == "system" && strings.Contains(msg.Content, "open notepad") {
			found = true
		}
	}
	if !found {
		t.Error("recent history was not included in the prompt")
	}
	last := p.seen[len(p.seen)-1]
	if last.Role != "user" || !strings.Contains(last.Content, "open notepad again") {
		t.Errorf("last message should carry the task, got %+v", last)
	}
}
