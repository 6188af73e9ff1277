package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nsedesk/signalengine/internal/apperr"
)

// LLMClient is the minimal capability SentimentEnricher needs from a
// language-model backend: send a prompt, get text back. Two concrete
// backends satisfy it; SentimentEnricher talks to whichever NewLLMClient
// selected and never branches on provider itself.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const llmRequestTimeout = 30 * time.Second

// NewLLMClient builds the configured provider, or auto-detects by
// preferring OpenAI when both credentials are set (matching the config
// layer's documented auto-detect order). Returns an error if provider
// requests a specific backend whose key is absent.
func NewLLMClient(provider, openAIKey, anthropicKey, model string) (LLMClient, error) {
	switch provider {
	case "openai":
		if openAIKey == "" {
			return nil, apperr.New(apperr.InvariantViolation, "sentiment", "llm provider openai requires LLM_OPENAI_API_KEY", nil)
		}
		return newOpenAIClient(openAIKey, model), nil
	case "anthropic":
		if anthropicKey == "" {
			return nil, apperr.New(apperr.InvariantViolation, "sentiment", "llm provider anthropic requires LLM_ANTHROPIC_API_KEY", nil)
		}
		return newAnthropicClient(anthropicKey, model), nil
	case "auto", "":
		if openAIKey != "" {
			return newOpenAIClient(openAIKey, model), nil
		}
		if anthropicKey != "" {
			return newAnthropicClient(anthropicKey, model), nil
		}
		return nil, apperr.New(apperr.InvariantViolation, "sentiment", "no LLM provider configured: set LLM_OPENAI_API_KEY or LLM_ANTHROPIC_API_KEY", nil)
	default:
		return nil, apperr.New(apperr.InvariantViolation, "sentiment", fmt.Sprintf("unknown llm provider %q", provider), nil)
	}
}

func doLLMRequest(ctx context.Context, httpClient *http.Client, req *http.Request) ([]byte, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.VendorNetwork, "sentiment", "llm request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.New(apperr.VendorNetwork, "sentiment", "read llm response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperr.New(apperr.VendorRateLimited, "sentiment", "llm rate limited", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 300 {
		return nil, apperr.New(apperr.VendorMalformed, "sentiment", fmt.Sprintf("llm returned status %d", resp.StatusCode), fmt.Errorf("%s", body))
	}
	return body, nil
}

// openAIClient talks to OpenAI's chat-completions endpoint.
type openAIClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
}

func newOpenAIClient(apiKey, model string) *openAIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &openAIClient{httpClient: &http.Client{Timeout: llmRequestTimeout}, apiKey: apiKey, model: model}
}

type openAIRequest struct {
	Model    string              `json:"model"`
	Messages []openAIChatMessage `json:"messages"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
}

func (c *openAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(openAIRequest{
		Model:    c.model,
		Messages: []openAIChatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", apperr.New(apperr.InvariantViolation, "sentiment", "encode openai request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", apperr.New(apperr.InvariantViolation, "sentiment", "build openai request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	body, err := doLLMRequest(ctx, c.httpClient, req)
	if err != nil {
		return "", err
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperr.New(apperr.InvariantViolation, "sentiment", "decode openai response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", apperr.New(apperr.InvariantViolation, "sentiment", "openai response had no choices", nil)
	}
	return parsed.Choices[0].Message.Content, nil
}

// anthropicClient talks to Anthropic's messages endpoint.
type anthropicClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
}

func newAnthropicClient(apiKey, model string) *anthropicClient {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &anthropicClient{httpClient: &http.Client{Timeout: llmRequestTimeout}, apiKey: apiKey, model: model}
}

const anthropicMaxTokens = 1024

type anthropicRequest struct {
	Model     string                 `json:"model"`
	MaxTokens int                    `json:"max_tokens"`
	Messages  []anthropicChatMessage `json:"messages"`
}

type anthropicChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *anthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: anthropicMaxTokens,
		Messages:  []anthropicChatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", apperr.New(apperr.InvariantViolation, "sentiment", "encode anthropic request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", apperr.New(apperr.InvariantViolation, "sentiment", "build anthropic request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	body, err := doLLMRequest(ctx, c.httpClient, req)
	if err != nil {
		return "", err
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperr.New(apperr.InvariantViolation, "sentiment", "decode anthropic response", err)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", apperr.New(apperr.InvariantViolation, "sentiment", "anthropic response had no text block", nil)
}
