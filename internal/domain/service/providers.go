package service

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/inbound"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// ProviderHandle wraps one completion client with a process-wide disable
// flag. Disablement is best-effort: a concurrent reader may still see the
// handle as available once, which costs a single wasted attempt.
type ProviderHandle struct {
	client   outbound.CompletionClient
	disabled atomic.Bool

	mu     sync.Mutex
	reason string
}

func NewProviderHandle(client outbound.CompletionClient) *ProviderHandle {
	return &ProviderHandle{client: client}
}

func (h *ProviderHandle) ID() model.ProviderID { return h.client.ID() }

func (h *ProviderHandle) Model() string { return h.client.Model() }

// Available reports whether the handle may be called.
func (h *ProviderHandle) Available() bool { return !h.disabled.Load() }

// Disable takes the handle out of every operation for the rest of the process.
func (h *ProviderHandle) Disable(reason string) {
	h.mu.Lock()
	if h.reason == "" {
		h.reason = reason
	}
	h.mu.Unlock()
	h.disabled.Store(true)
}

// DisabledReason returns the reason recorded by the first Disable call.
func (h *ProviderHandle) DisabledReason() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reason
}

// Providers is the registry of configured provider handles.
type Providers struct {
	handles map[model.ProviderID]*ProviderHandle
}

// NewProviders registers one handle per client. A provider registered twice
// is a wiring mistake and is rejected.
func NewProviders(clients ...outbound.CompletionClient) (*Providers, error) {
	p := &Providers{handles: make(map[model.ProviderID]*ProviderHandle, len(clients))}
	for _, c := range clients {
		id := c.ID()
		if !id.Known() {
			return nil, fmt.Errorf("unknown provider %q", id)
		}
		if _, dup := p.handles[id]; dup {
			return nil, fmt.Errorf("provider %q registered twice", id)
		}
		p.handles[id] = NewProviderHandle(c)
	}
	return p, nil
}

// Get returns the handle for id, if that provider is configured.
func (p *Providers) Get(id model.ProviderID) (*ProviderHandle, bool) {
	h, ok := p.handles[id]
	return h, ok
}

// Len returns the number of registered providers.
func (p *Providers) Len() int { return len(p.handles) }

// Status lists every known provider, registered or not.
func (p *Providers) Status() []inbound.ProviderStatus {
	out := make([]inbound.ProviderStatus, 0, len(model.AllProviders))
	for _, id := range model.AllProviders {
		h, ok := p.handles[id]
		if !ok {
			out = append(out, inbound.ProviderStatus{Provider: id, Reason: "not configured"})
			continue
		}
		out = append(out, inbound.ProviderStatus{
			Provider:  id,
			Model:     h.Model(),
			Available: h.Available(),
			Reason:    h.DisabledReason(),
		})
	}
	return out
}

// Priority maps each operation to the order its providers are tried in.
type Priority map[model.Operation][]model.ProviderID

// DefaultPriority returns the built-in provider order for every operation.
func DefaultPriority() Priority {
	chatOrder := []model.ProviderID{model.ProviderCohere, model.ProviderOpenRouter, model.ProviderGroq, model.ProviderGemini}
	checkOrder := []model.ProviderID{model.ProviderCohere, model.ProviderGroq, model.ProviderOpenRouter, model.ProviderGemini}
	return Priority{
		model.OperationChat:           chatOrder,
		model.OperationInsights:       chatOrder,
		model.OperationDiagnosisReply: chatOrder,
		model.OperationValidate:       checkOrder,
		model.OperationExtract:        checkOrder,
		model.OperationFollowUp:       checkOrder,
	}
}

// Merge returns a copy of p with the operations set in overrides replaced.
func (p Priority) Merge(overrides Priority) Priority {
	out := make(Priority, len(p))
	for op, order := range p {
		out[op] = append([]model.ProviderID(nil), order...)
	}
	for op, order := range overrides {
		if len(order) > 0 {
			out[op] = append([]model.ProviderID(nil), order...)
		}
	}
	return out
}

// ValidateOrder checks that order names only known providers, each at most once.
func ValidateOrder(order []model.ProviderID) error {
	seen := make(map[model.ProviderID]bool, len(order))
	for _, id := range order {
		if !id.Known() {
			return fmt.Errorf("unknown provider %q", id)
		}
		if seen[id] {
			return fmt.Errorf("provider %q listed twice", id)
		}
		seen[id] = true
	}
	return nil
}
