package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/supplier"
)

func TestRegistry(t *testing.T) {
	client := NewClient(ClientConfig{})
	registry, err := NewRegistry(
		NewOAuth2Adapter(client, zap.NewNop()),
		NewAPIKeyAdapter(client, zap.NewNop()),
		NewEmailAdapter(&captureTransport{}, zap.NewNop()),
		NewManualAdapter(zap.NewNop()),
	)
	require.NoError(t, err)

	t.Run("adapter for kind", func(t *testing.T) {
		adapter, err := registry.AdapterFor(supplier.KindAPIKey)
		require.NoError(t, err)
		assert.Equal(t, supplier.KindAPIKey, adapter.Kind())
	})

	t.Run("unregistered kind", func(t *testing.T) {
		_, err := registry.AdapterFor(supplier.KindWebScrape)
		assert.ErrorIs(t, err, integration.ErrCapabilityNotSupported)
	})

	t.Run("all ordered by kind", func(t *testing.T) {
		all := registry.All()
		require.Len(t, all, 4)
		kinds := make([]supplier.IntegrationKind, 0, len(all))
		for _, adapter := range all {
			kinds = append(kinds, adapter.Kind())
		}
		assert.Equal(t, []supplier.IntegrationKind{
			supplier.KindAPIKey,
			supplier.KindAPIOAuth2,
			supplier.KindEmail,
			supplier.KindManual,
		}, kinds)
	})
}

func TestRegistry_DuplicateKind(t *testing.T) {
	client := NewClient(ClientConfig{})
	_, err := NewRegistry(
		NewAPIKeyAdapter(client, zap.NewNop()),
		NewAPIKeyAdapter(client, zap.NewNop()),
	)
	assert.ErrorContains(t, err, "duplicate adapter")
}
