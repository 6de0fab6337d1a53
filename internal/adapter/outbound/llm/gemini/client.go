package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/cpsu-health/clinicai/internal/adapter/outbound/llm/transport"
	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash-lite"

	apiKeyHeader = "x-goog-api-key"
)

// Config holds configuration for the Gemini client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client implements outbound.CompletionClient using generateContent.
type Client struct {
	config Config
	http   *transport.Client
}

var _ outbound.CompletionClient = (*Client)(nil)

func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		config: cfg,
		http:   transport.New(model.ProviderGemini, httpClient, transport.WithClassifier(classify)),
	}, nil
}

// classify reports regional refusals as geo_restricted so the orchestrator
// can disable the provider.
func classify(status int, body []byte) outbound.FailureReason {
	text := strings.ToLower(string(body))
	if strings.Contains(text, "failed_precondition") || strings.Contains(text, "location is not supported") {
		return outbound.ReasonGeoRestricted
	}
	return transport.ClassifyStatus(status, body)
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

func (c *Client) ID() model.ProviderID { return model.ProviderGemini }

func (c *Client) Model() string { return c.config.Model }

// Complete runs a one-shot generation with the system prompt folded into
// the user content.
func (c *Client) Complete(ctx context.Context, req outbound.CompletionRequest) (string, error) {
	prompt := req.User
	if req.System != "" {
		prompt = req.System + "\n\n" + req.User
	}
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}

	// The key travels in a header so it never appears in URLs recorded by
	// HTTP spans or logs.
	endpoint := c.config.BaseURL + "/v1beta/models/" + url.PathEscape(c.config.Model) + ":generateContent"
	header := http.Header{}
	header.Set(apiKeyHeader, c.config.APIKey)

	var resp generateResponse
	if err := c.http.PostJSON(ctx, endpoint, header, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", &outbound.CompletionError{
			Provider: model.ProviderGemini,
			Reason:   outbound.ReasonEmpty,
			Err:      errors.New("no candidates in response"),
		}
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
