package provider

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/finprompt/refinery/pkg/models"
)

// OpenAI adapts the OpenAI chat-completions API. It also serves the
// single-provider workflow steps (clarifier generation, finalization).
type OpenAI struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewOpenAI creates the adapter. An empty key is allowed; calls then fail
// with a not-configured error instead of crashing startup.
func NewOpenAI(apiKey, model string) *OpenAI {
	p := &OpenAI{apiKey: apiKey, model: model}
	if apiKey != "" {
		p.client = openai.NewClient(apiKey)
	}
	return p
}

func (p *OpenAI) Name() string { return models.ProviderOpenAI }

// Complete runs one chat completion, single attempt.
func (p *OpenAI) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if p.client == nil {
		return "", notConfigured(p.Name())
	}
	opts = opts.withDefaults()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", newError(p.Name(), "Failed to call OpenAI API", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
