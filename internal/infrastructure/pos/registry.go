package pos

import (
	"fmt"
	"sort"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/pos"
)

// Registry holds one adapter per POS system, assembled at startup
type Registry struct {
	adapters map[string]pos.Adapter
}

// NewRegistry builds a registry from the given adapters
func NewRegistry(adapters ...pos.Adapter) (*Registry, error) {
	bySystem := make(map[string]pos.Adapter, len(adapters))
	for _, adapter := range adapters {
		if _, exists := bySystem[adapter.SystemID()]; exists {
			return nil, fmt.Errorf("duplicate adapter for POS system %q", adapter.SystemID())
		}
		bySystem[adapter.SystemID()] = adapter
	}
	return &Registry{adapters: bySystem}, nil
}

// AdapterFor returns the adapter registered for a POS system ID
func (r *Registry) AdapterFor(systemID string) (pos.Adapter, error) {
	adapter, ok := r.adapters[systemID]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter registered for POS system %q", integration.ErrCapabilityNotSupported, systemID)
	}
	return adapter, nil
}

// All returns every registered adapter, ordered by system ID
func (r *Registry) All() []pos.Adapter {
	all := make([]pos.Adapter, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		all = append(all, adapter)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].SystemID() < all[j].SystemID()
	})
	return all
}

var _ pos.AdapterRegistry = (*Registry)(nil)
