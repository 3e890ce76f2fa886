package provider

import (
	"context"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/finprompt/refinery/pkg/models"
)

// Google adapts the Gemini API via the official SDK. The client is created
// per call; the SDK's transport setup is cheap relative to generation.
type Google struct {
	apiKey string
	model  string
}

// NewGoogle creates the adapter. An empty key degrades calls to a
// not-configured error.
func NewGoogle(apiKey, model string) *Google {
	return &Google{apiKey: apiKey, model: model}
}

func (p *Google) Name() string { return models.ProviderGoogle }

// Complete runs one generateContent call, single attempt.
func (p *Google) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if p.apiKey == "" {
		return "", notConfigured(p.Name())
	}
	opts = opts.withDefaults()

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", newError(p.Name(), "Failed to call Google API", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	model.SetTemperature(opts.Temperature)
	model.SetMaxOutputTokens(int32(opts.MaxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", newError(p.Name(), "Failed to call Google API", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			return string(text), nil
		}
	}
	return "", nil
}
