package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

type echo struct {
	Value string `json:"value"`
}

func TestPostJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request: %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer header")
		}
		w.Write([]byte(`{"value": "ok"}`))
	}))
	defer srv.Close()

	c := New(model.ProviderGroq, srv.Client())
	var out echo
	if err := c.PostJSON(context.Background(), srv.URL, BearerHeader("secret"), echo{Value: "in"}, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if out.Value != "ok" {
		t.Errorf("Value = %q", out.Value)
	}
}

func TestPostJSON_ClassifiesStatus(t *testing.T) {
	cases := []struct {
		status int
		want   outbound.FailureReason
	}{
		{http.StatusUnauthorized, outbound.ReasonAuth},
		{http.StatusForbidden, outbound.ReasonForbidden},
		{http.StatusTooManyRequests, outbound.ReasonRateLimited},
		{http.StatusInternalServerError, outbound.ReasonStatus},
		{http.StatusBadRequest, outbound.ReasonStatus},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error": "nope"}`, tc.status)
			}))
			defer srv.Close()

			err := New(model.ProviderGroq, srv.Client()).PostJSON(context.Background(), srv.URL, nil, echo{}, &echo{})
			var ce *outbound.CompletionError
			if !errors.As(err, &ce) {
				t.Fatalf("expected CompletionError, got %v", err)
			}
			if ce.Reason != tc.want || ce.Status != tc.status || ce.Provider != model.ProviderGroq {
				t.Errorf("got %+v, want reason %s", ce, tc.want)
			}
			var se *StatusError
			if !errors.As(err, &se) || !strings.Contains(se.Body, "nope") {
				t.Errorf("expected status error with body, got %v", err)
			}
		})
	}
}

func TestPostJSON_CustomClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"status": "FAILED_PRECONDITION"}}`))
	}))
	defer srv.Close()

	classify := func(status int, body []byte) outbound.FailureReason {
		if strings.Contains(string(body), "FAILED_PRECONDITION") {
			return outbound.ReasonGeoRestricted
		}
		return ClassifyStatus(status, body)
	}
	err := New(model.ProviderGemini, srv.Client(), WithClassifier(classify)).
		PostJSON(context.Background(), srv.URL, nil, echo{}, &echo{})
	if outbound.ReasonOf(err) != outbound.ReasonGeoRestricted {
		t.Errorf("got %v", err)
	}
}

func TestPostJSON_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	err := New(model.ProviderCohere, srv.Client()).PostJSON(context.Background(), srv.URL, nil, echo{}, &echo{})
	if outbound.ReasonOf(err) != outbound.ReasonMalformed {
		t.Errorf("got %v", err)
	}
}

func TestPostJSON_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := New(model.ProviderOpenRouter, srv.Client()).PostJSON(ctx, srv.URL+"?key=secret", nil, echo{}, &echo{})
	if outbound.ReasonOf(err) != outbound.ReasonTimeout {
		t.Errorf("expected timeout, got %v", err)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("error leaks the URL: %v", err)
	}
}

func TestPostJSON_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(model.ProviderCohere, nil).PostJSON(context.Background(), url, nil, echo{}, &echo{})
	if outbound.ReasonOf(err) != outbound.ReasonNetwork {
		t.Errorf("expected network failure, got %v", err)
	}
}

func TestNewHTTPClient_DefaultTimeout(t *testing.T) {
	if c := NewHTTPClient(0); c.Timeout != DefaultTimeout || c.Transport == nil {
		t.Errorf("unexpected client: %+v", c)
	}
}
