package cohere

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
	DefaultBaseURL = "https://api.cohere.com"
	DefaultModel   = "command-r-08-2024"
)

// Config holds configuration for the Cohere client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client implements outbound.CompletionClient using the Cohere v1 chat API.
type Client struct {
	config Config
	http   *transport.Client
}

var _ outbound.CompletionClient = (*Client)(nil)

func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("cohere: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{config: cfg, http: transport.New(model.ProviderCohere, httpClient)}, nil
}

type chatRequest struct {
	Message     string  `json:"message"`
	Preamble    string  `json:"preamble,omitempty"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

func (c *Client) ID() model.ProviderID { return model.ProviderCohere }

func (c *Client) Model() string { return c.config.Model }

// Complete sends the user prompt as the message with the system prompt as
// its preamble.
func (c *Client) Complete(ctx context.Context, req outbound.CompletionRequest) (string, error) {
	body := chatRequest{
		Message:     req.User,
		Preamble:    req.System,
		Model:       c.config.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var resp chatResponse
	if err := c.http.PostJSON(ctx, c.config.BaseURL+"/v1/chat", transport.BearerHeader(c.config.APIKey), body, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}
