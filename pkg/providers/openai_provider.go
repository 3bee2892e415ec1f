package providers

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
// Groq is configured as this provider with its api_base pointed at
// https://api.groq.com/openai/v1.
type OpenAIProvider struct {
	client       openai.Client
	name         string
	defaultModel string
}

func NewOpenAIProvider(name, apiKey, apiBase, model string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if apiBase != "" {
		opts = append(opts, option.WithBaseURL(apiBase))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		client:       openai.NewClient(opts...),
		name:         name,
		defaultModel: model,
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) GetDefaultModel() string { return p.defaultModel }

func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, model string, options map[string]interface{}) (*LLMResponse, error) {
	if model == "" {
		model = p.defaultModel
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	if temp, ok := options["temperature"].(float64); ok {
		params.Temperature = openai.Float(temp)
	}
	if mt, ok := options["max_tokens"].(int); ok {
		params.MaxCompletionTokens = openai.Int(int64(mt))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s API call: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return &LLMResponse{FinishReason: "stop"}, nil
	}

	choice := resp.Choices[0]
	return &LLMResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: &UsageInfo{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}
