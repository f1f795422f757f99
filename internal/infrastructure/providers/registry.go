package providers

import (
	"fmt"
	"sort"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/supplier"
)

// Registry holds one adapter per integration kind. It is assembled once at
// startup and read-only afterwards.
type Registry struct {
	adapters map[supplier.IntegrationKind]integration.ProviderAdapter
}

// NewRegistry builds a registry from the given adapters. A second adapter
// for the same kind is a wiring mistake and fails construction.
func NewRegistry(adapters ...integration.ProviderAdapter) (*Registry, error) {
	byKind := make(map[supplier.IntegrationKind]integration.ProviderAdapter, len(adapters))
	for _, adapter := range adapters {
		if _, exists := byKind[adapter.Kind()]; exists {
			return nil, fmt.Errorf("duplicate adapter for kind %q", adapter.Kind())
		}
		byKind[adapter.Kind()] = adapter
	}
	return &Registry{adapters: byKind}, nil
}

// AdapterFor returns the adapter registered for the kind
func (r *Registry) AdapterFor(kind supplier.IntegrationKind) (integration.ProviderAdapter, error) {
	adapter, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter registered for kind %q", integration.ErrCapabilityNotSupported, kind)
	}
	return adapter, nil
}

// All returns every registered adapter, ordered by kind for stable iteration
func (r *Registry) All() []integration.ProviderAdapter {
	all := make([]integration.ProviderAdapter, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		all = append(all, adapter)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Kind() < all[j].Kind()
	})
	return all
}

var _ integration.AdapterRegistry = (*Registry)(nil)
