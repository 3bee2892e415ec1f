// Package providers implements the text-generation capability behind the
// External Solver Gateway. Each provider wraps one backing API; the Gateway
// fans a query out across them in configured order until one answers.
package providers

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type LLMResponse struct {
	Content      string
	FinishReason string
	Usage        *UsageInfo
}

// Provider is one backing text-generation service.
type Provider interface {
	Name() string
	Chat(ctx context.Context, messages []Message, model string, options map[string]interface{}) (*LLMResponse, error)
	GetDefaultModel() string
}
