package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/finprompt/refinery/pkg/models"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// Anthropic adapts the Anthropic messages API over raw HTTP; there is no
// vendor SDK in use here.
type Anthropic struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewAnthropic creates the adapter. An empty key degrades calls to a
// not-configured error.
func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{
		apiKey:  apiKey,
		model:   model,
		baseURL: anthropicBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *Anthropic) Name() string { return models.ProviderAnthropic }

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends one messages request, single attempt.
func (p *Anthropic) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if p.apiKey == "" {
		return "", notConfigured(p.Name())
	}
	opts = opts.withDefaults()

	body, err := json.Marshal(anthropicRequest{
		Model:       p.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", newError(p.Name(), "Failed to call Anthropic API", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", newError(p.Name(), "Failed to call Anthropic API", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", p.apiKey)
	req.Header.Set("Anthropic-Version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", newError(p.Name(), "Failed to call Anthropic API", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Status only; the response body stays out of client-visible errors.
		return "", newError(p.Name(),
			fmt.Sprintf("Anthropic API returned status %d", resp.StatusCode),
			fmt.Errorf("anthropic status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newError(p.Name(), "Failed to read Anthropic response", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", newError(p.Name(), "Malformed Anthropic response", err)
	}

	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}
