// Package transport is the HTTP plumbing shared by the provider adapters:
// an instrumented client, JSON POST helper and failure classification.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

const (
	DefaultTimeout = 30 * time.Second
	maxErrorBody   = 512
	maxBody        = 4 << 20
)

// NewHTTPClient returns an http.Client with the given timeout whose
// transport records an OpenTelemetry span per request.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Classifier maps a non-2xx response onto a failure reason.
type Classifier func(status int, body []byte) outbound.FailureReason

// ClassifyStatus is the default Classifier.
func ClassifyStatus(status int, _ []byte) outbound.FailureReason {
	switch status {
	case http.StatusUnauthorized:
		return outbound.ReasonAuth
	case http.StatusForbidden:
		return outbound.ReasonForbidden
	case http.StatusTooManyRequests:
		return outbound.ReasonRateLimited
	default:
		return outbound.ReasonStatus
	}
}

// StatusError carries a trimmed copy of a failed response body.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// Client posts JSON to one provider and classifies every failure as an
// *outbound.CompletionError.
type Client struct {
	provider model.ProviderID
	http     *http.Client
	classify Classifier
}

type Option func(*Client)

// WithClassifier overrides how non-2xx responses are classified.
func WithClassifier(c Classifier) Option {
	return func(cl *Client) {
		cl.classify = c
	}
}

func New(provider model.ProviderID, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}
	c := &Client{provider: provider, http: httpClient, classify: ClassifyStatus}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON encodes in, posts it to endpoint and decodes a 2xx reply into out.
func (c *Client) PostJSON(ctx context.Context, endpoint string, header http.Header, in, out any) error {
	encoded, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", c.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", c.provider, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return c.transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return &outbound.CompletionError{
			Provider: c.provider,
			Reason:   c.classify(resp.StatusCode, body),
			Status:   resp.StatusCode,
			Err:      &StatusError{Status: resp.StatusCode, Body: string(snippet)},
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &outbound.CompletionError{
			Provider: c.provider,
			Reason:   outbound.ReasonMalformed,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("decoding response: %w", err),
		}
	}
	return nil
}

// transportError classifies a failure that produced no response. The URL is
// dropped from the message because some providers carry the API key in it.
func (c *Client) transportError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	reason := outbound.ReasonNetwork
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		reason = outbound.ReasonTimeout
	}
	return &outbound.CompletionError{Provider: c.provider, Reason: reason, Err: err}
}

// BearerHeader returns an Authorization header for apiKey.
func BearerHeader(apiKey string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+apiKey)
	return h
}
