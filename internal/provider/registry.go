package provider

import (
	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
)

// Registry holds the configured strategies, selected by provider enum at
// the orchestration boundary.
type Registry struct {
	strategies map[payment.Provider]Strategy
}

// NewRegistry creates a registry from the given strategies.
func NewRegistry(strategies ...Strategy) *Registry {
	m := make(map[payment.Provider]Strategy, len(strategies))
	for _, s := range strategies {
		m[s.Name()] = s
	}

	return &Registry{strategies: m}
}

// Get returns the strategy for the provider or a Validation error when
// the provider is unsupported or not configured.
func (r *Registry) Get(p payment.Provider) (Strategy, error) {
	s, ok := r.strategies[p]
	if !ok {
		return nil, apperr.Validation("unsupported payment provider: %s", p)
	}

	return s, nil
}
