package outbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cpsu-health/clinicai/internal/domain/model"
)

// CompletionRequest is the provider-neutral input for one chat completion.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// FailureReason classifies why a provider call produced no usable text.
type FailureReason string

const (
	ReasonNetwork       FailureReason = "network"
	ReasonTimeout       FailureReason = "timeout"
	ReasonEmpty         FailureReason = "empty"
	ReasonStatus        FailureReason = "status"
	ReasonRateLimited   FailureReason = "rate_limited"
	ReasonAuth          FailureReason = "auth"
	ReasonForbidden     FailureReason = "forbidden"
	ReasonGeoRestricted FailureReason = "geo_restricted"
	ReasonMalformed     FailureReason = "malformed"
)

// CompletionError is returned by CompletionClient implementations for every
// failed call.
type CompletionError struct {
	Provider model.ProviderID
	Reason   FailureReason
	Status   int
	Err      error
}

func (e *CompletionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Reason)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CompletionError) Unwrap() error { return e.Err }

// ReasonOf extracts the failure reason from err, or ReasonNetwork when err is
// not a CompletionError.
func ReasonOf(err error) FailureReason {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ReasonNetwork
}

// CompletionClient is one third-party chat-completion service.
type CompletionClient interface {
	ID() model.ProviderID
	Model() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
