// Package openaicompat talks to chat-completion services that speak the
// OpenAI wire format. OpenRouter and Groq both use it.
package openaicompat

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cpsu-health/clinicai/internal/adapter/outbound/llm/transport"
	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenRouterModel   = "meta-llama/llama-3.2-3b-instruct:free"
	OpenRouterReferer = "https://cpsu-health-assistant.edu.ph"
	OpenRouterTitle   = "CPSU Virtual Health Assistant"

	GroqBaseURL = "https://api.groq.com/openai/v1"
	GroqModel   = "llama-3.1-8b-instant"
	GroqTopP    = 0.95
)

// Config holds configuration for one OpenAI-compatible provider.
type Config struct {
	Provider model.ProviderID
	BaseURL  string
	APIKey   string
	Model    string

	// Headers are sent with every request in addition to auth.
	Headers map[string]string
	TopP    float64

	// MaxCompletionTokens sends the token cap as max_completion_tokens
	// instead of max_tokens.
	MaxCompletionTokens bool
}

// OpenRouterConfig returns the OpenRouter defaults for apiKey.
func OpenRouterConfig(apiKey string) Config {
	return Config{
		Provider: model.ProviderOpenRouter,
		BaseURL:  OpenRouterBaseURL,
		APIKey:   apiKey,
		Model:    OpenRouterModel,
		Headers: map[string]string{
			"HTTP-Referer": OpenRouterReferer,
			"X-Title":      OpenRouterTitle,
		},
	}
}

// GroqConfig returns the Groq defaults for apiKey.
func GroqConfig(apiKey string) Config {
	return Config{
		Provider:            model.ProviderGroq,
		BaseURL:             GroqBaseURL,
		APIKey:              apiKey,
		Model:               GroqModel,
		TopP:                GroqTopP,
		MaxCompletionTokens: true,
	}
}

// Client implements outbound.CompletionClient.
type Client struct {
	config Config
	http   *transport.Client
	header http.Header
}

var _ outbound.CompletionClient = (*Client)(nil)

// NewClient creates a Client. A nil httpClient gets the instrumented default.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	switch {
	case !cfg.Provider.Known():
		return nil, errors.New("openaicompat: unknown provider")
	case cfg.APIKey == "":
		return nil, errors.New("openaicompat: api key is required")
	case cfg.BaseURL == "" || cfg.Model == "":
		return nil, errors.New("openaicompat: base url and model are required")
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	header := transport.BearerHeader(cfg.APIKey)
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}
	return &Client{
		config: cfg,
		http:   transport.New(cfg.Provider, httpClient),
		header: header,
	}, nil
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	Temperature         float64       `json:"temperature"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	TopP                float64       `json:"top_p,omitempty"`
	Stream              bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) ID() model.ProviderID { return c.config.Provider }

func (c *Client) Model() string { return c.config.Model }

// Complete sends a single system+user exchange and returns the first choice.
func (c *Client) Complete(ctx context.Context, req outbound.CompletionRequest) (string, error) {
	body := chatRequest{
		Model:       c.config.Model,
		Temperature: req.Temperature,
		TopP:        c.config.TopP,
	}
	if c.config.MaxCompletionTokens {
		body.MaxCompletionTokens = req.MaxTokens
	} else {
		body.MaxTokens = req.MaxTokens
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.User})

	var resp chatResponse
	if err := c.http.PostJSON(ctx, c.config.BaseURL+"/chat/completions", c.header, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &outbound.CompletionError{
			Provider: c.config.Provider,
			Reason:   outbound.ReasonEmpty,
			Err:      errors.New("no choices in response"),
		}
	}
	return resp.Choices[0].Message.Content, nil
}
