package integration

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/supplier"
	"github.com/restohub/backend/internal/domain/vault"
	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{ErrNotConfigured, CodeConfigurationError},
		{ErrConnectionFailed, CodeConnectionError},
		{ErrFetchFailed, CodeFetchError},
		{ErrSchemaChanged, CodeSchemaChanged},
		{ErrOrderRejected, CodeOrderRejected},
		{ErrOrderUnreachable, CodeOrderUnreachable},
		{ErrSyncConflict, CodeSyncConflict},
		{ErrCapabilityNotSupported, CodeCapabilityNotSupported},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, CodeOf(tt.err))
	}

	t.Run("wrapped errors keep their code", func(t *testing.T) {
		wrapped := fmt.Errorf("bidfood: status 502: %w", ErrOrderUnreachable)
		assert.Equal(t, CodeOrderUnreachable, CodeOf(wrapped))
	})

	t.Run("unknown errors map to empty", func(t *testing.T) {
		assert.Equal(t, "", CodeOf(errors.New("something else")))
		assert.Equal(t, "", CodeOf(nil))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrConnectionFailed))
	assert.True(t, IsRetryable(ErrFetchFailed))
	assert.True(t, IsRetryable(ErrOrderUnreachable))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrOrderUnreachable)))

	assert.False(t, IsRetryable(ErrOrderRejected), "a definitive rejection never retries")
	assert.False(t, IsRetryable(ErrNotConfigured))
	assert.False(t, IsRetryable(ErrSchemaChanged))
	assert.False(t, IsRetryable(ErrCapabilityNotSupported))
}

func TestCapabilitySet(t *testing.T) {
	set := NewCapabilitySet(CapabilityCatalogFetch, CapabilityOrderSubmit)

	assert.True(t, set.Has(CapabilityCatalogFetch))
	assert.True(t, set.Has(CapabilityOrderSubmit))
	assert.False(t, set.Has(CapabilityStatusCheck))
	assert.False(t, set.Has(CapabilityDocumentDelivery))
}

func TestConnectionContext_Validate(t *testing.T) {
	def := &supplier.SupplierDefinition{
		ID:             "pfd",
		Name:           "PFD Food Services",
		Kind:           supplier.KindAPIKey,
		RequiredConfig: []string{"api_key", "account_number"},
	}

	t.Run("accepts complete credentials", func(t *testing.T) {
		conn := &ConnectionContext{
			TenantID:    uuid.New(),
			Definition:  def,
			Credentials: vault.Credentials{"api_key": "k-123", "account_number": "AC-9"},
		}
		assert.NoError(t, conn.Validate())
	})

	t.Run("rejects missing definition", func(t *testing.T) {
		conn := &ConnectionContext{TenantID: uuid.New()}
		assert.ErrorIs(t, conn.Validate(), ErrNotConfigured)
	})

	t.Run("rejects incomplete credentials", func(t *testing.T) {
		conn := &ConnectionContext{
			TenantID:    uuid.New(),
			Definition:  def,
			Credentials: vault.Credentials{"api_key": "k-123"},
		}
		assert.ErrorIs(t, conn.Validate(), ErrNotConfigured)
	})
}

func TestChannelForKind(t *testing.T) {
	assert.Equal(t, order.ChannelAPI, ChannelForKind(supplier.KindAPIOAuth2))
	assert.Equal(t, order.ChannelAPI, ChannelForKind(supplier.KindAPIKey))
	assert.Equal(t, order.ChannelAPI, ChannelForKind(supplier.KindWebScrape))
	assert.Equal(t, order.ChannelEmail, ChannelForKind(supplier.KindEmail))
	assert.Equal(t, order.ChannelPDF, ChannelForKind(supplier.KindManual))
}
