package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/integration"
)

func TestRegistry(t *testing.T) {
	registry, err := NewRegistry(NewCloudPOSAdapter(zap.NewNop()))
	require.NoError(t, err)

	t.Run("known system", func(t *testing.T) {
		adapter, err := registry.AdapterFor(CloudPOSSystemID)
		require.NoError(t, err)
		assert.Equal(t, CloudPOSSystemID, adapter.SystemID())
	})

	t.Run("unknown system", func(t *testing.T) {
		_, err := registry.AdapterFor("tillpoint")
		assert.ErrorIs(t, err, integration.ErrCapabilityNotSupported)
	})

	t.Run("all", func(t *testing.T) {
		assert.Len(t, registry.All(), 1)
	})
}

func TestRegistry_DuplicateSystem(t *testing.T) {
	_, err := NewRegistry(NewCloudPOSAdapter(zap.NewNop()), NewCloudPOSAdapter(zap.NewNop()))
	assert.ErrorContains(t, err, "duplicate adapter")
}
