package providers

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type GeminiProvider struct {
	apiKey       string
	defaultModel string

	// client is created lazily so constructing the provider never needs a
	// network-capable context.
	client *genai.Client
}

func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiProvider{
		apiKey:       apiKey,
		defaultModel: model,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) GetDefaultModel() string { return p.defaultModel }

func (p *GeminiProvider) ensureClient(ctx context.Context) error {
	if p.client != nil {
		return nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("creating gemini client: %w", err)
	}
	p.client = client
	return nil
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message, model string, options map[string]interface{}) (*LLMResponse, error) {
	if err := p.ensureClient(ctx); err != nil {
		return nil, err
	}
	if model == "" {
		model = p.defaultModel
	}

	var cfg *genai.GenerateContentConfig
	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if cfg == nil {
				cfg = &genai.GenerateContentConfig{}
			}
			cfg.SystemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if temp, ok := options["temperature"].(float64); ok {
		if cfg == nil {
			cfg = &genai.GenerateContentConfig{}
		}
		t := float32(temp)
		cfg.Temperature = &t
	}

	result, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini API call: %w", err)
	}

	return &LLMResponse{
		Content:      result.Text(),
		FinishReason: "stop",
	}, nil
}
