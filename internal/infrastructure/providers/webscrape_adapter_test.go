package providers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/supplier"
	"github.com/restohub/backend/internal/domain/vault"
)

func TestWebScrapeAdapter_Capabilities(t *testing.T) {
	adapter, err := NewWebScrapeAdapter(nil, zap.NewNop())
	require.NoError(t, err)
	defer adapter.Close()

	assert.Equal(t, supplier.KindWebScrape, adapter.Kind())

	caps := adapter.Capabilities()
	assert.True(t, caps.Has(integration.CapabilityCatalogFetch))
	assert.True(t, caps.Has(integration.CapabilityOrderSubmit))
	assert.False(t, caps.Has(integration.CapabilityStatusCheck))
	assert.False(t, caps.Has(integration.CapabilityDocumentDelivery))
}

func TestWebScrapeAdapter_Defaults(t *testing.T) {
	adapter, err := NewWebScrapeAdapter(&WebScrapeConfig{}, nil)
	require.NoError(t, err)
	defer adapter.Close()

	assert.Equal(t, defaultScrapeTimeout, adapter.config.Timeout)
}

func TestWebScrapeAdapter_UnsupportedOperations(t *testing.T) {
	adapter, err := NewWebScrapeAdapter(nil, zap.NewNop())
	require.NoError(t, err)
	defer adapter.Close()

	conn := scrapeTestConn()

	_, err = adapter.CheckOrderStatus(context.Background(), conn, "REF-1")
	assert.ErrorIs(t, err, integration.ErrCapabilityNotSupported)

	err = adapter.DeliverDocument(context.Background(), conn, testOrderRequest(), &integration.Document{})
	assert.ErrorIs(t, err, integration.ErrCapabilityNotSupported)
}

func TestWebScrapeAdapter_MissingCredentials(t *testing.T) {
	adapter, err := NewWebScrapeAdapter(nil, zap.NewNop())
	require.NoError(t, err)
	defer adapter.Close()

	conn := scrapeTestConn()
	delete(conn.Credentials, "password")

	assert.ErrorIs(t, adapter.TestConnection(context.Background(), conn), integration.ErrNotConfigured)

	_, err = adapter.FetchCatalog(context.Background(), conn)
	assert.ErrorIs(t, err, integration.ErrNotConfigured)

	_, err = adapter.SubmitOrder(context.Background(), conn, testOrderRequest())
	assert.ErrorIs(t, err, integration.ErrNotConfigured)
}

func TestParseScrapedCatalog(t *testing.T) {
	t.Run("valid rows", func(t *testing.T) {
		raw := scrapedRowsJSON(t, []map[string]any{
			{
				"sku": "CW-101", "name": "  Free Range Eggs ", "price": "$8.90",
				"unit": "Dozen", "category": "dairy & eggs", "availability": "In Stock",
			},
			{
				"sku": "CW-102", "name": "Whole Milk 2L", "price": "1,280.00",
				"unit": "each", "category": nil, "availability": "Out of Stock",
			},
		})

		products, err := parseScrapedCatalog(raw)
		require.NoError(t, err)
		require.Len(t, products, 2)

		assert.Equal(t, "CW-101", products[0].ProductID)
		assert.Equal(t, "Free Range Eggs", products[0].Name)
		assert.True(t, products[0].Price.Equal(decimal.NewFromFloat(8.90)))
		assert.Equal(t, "dozen", products[0].Unit)
		assert.Equal(t, "Dairy & Eggs", products[0].Category)
		assert.True(t, products[0].InStock)

		assert.True(t, products[1].Price.Equal(decimal.NewFromFloat(1280.00)))
		assert.Empty(t, products[1].Category)
		assert.False(t, products[1].InStock)
	})

	t.Run("missing required cell", func(t *testing.T) {
		raw := scrapedRowsJSON(t, []map[string]any{
			{"sku": "CW-101", "name": "Eggs", "price": nil, "unit": "dozen", "availability": "In Stock"},
		})

		_, err := parseScrapedCatalog(raw)
		assert.ErrorIs(t, err, integration.ErrSchemaChanged)
	})

	t.Run("unparsable price", func(t *testing.T) {
		raw := scrapedRowsJSON(t, []map[string]any{
			{"sku": "CW-101", "name": "Eggs", "price": "call for pricing", "unit": "dozen", "availability": "In Stock"},
		})

		_, err := parseScrapedCatalog(raw)
		assert.ErrorIs(t, err, integration.ErrSchemaChanged)
	})

	t.Run("unknown availability label", func(t *testing.T) {
		raw := scrapedRowsJSON(t, []map[string]any{
			{"sku": "CW-101", "name": "Eggs", "price": "$8.90", "unit": "dozen", "availability": "maybe"},
		})

		_, err := parseScrapedCatalog(raw)
		assert.ErrorIs(t, err, integration.ErrSchemaChanged)
	})

	t.Run("unreadable payload", func(t *testing.T) {
		_, err := parseScrapedCatalog([]byte("<html>not json</html>"))
		assert.ErrorIs(t, err, integration.ErrSchemaChanged)
	})

	t.Run("empty table", func(t *testing.T) {
		products, err := parseScrapedCatalog([]byte("[]"))
		require.NoError(t, err)
		assert.Empty(t, products)
	})
}

func TestParseScrapedPrice(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"$8.90", "8.9"},
		{"A$12.00", "12"},
		{"1,280.50", "1280.5"},
		{" 15 ", "15"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			price, err := parseScrapedPrice(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, price.String())
		})
	}

	t.Run("not a price", func(t *testing.T) {
		_, err := parseScrapedPrice("POA")
		assert.Error(t, err)
	})
}

func TestParseAvailability(t *testing.T) {
	for _, label := range []string{"In Stock", "available", "yes"} {
		inStock, err := parseAvailability(label)
		require.NoError(t, err)
		assert.True(t, inStock, label)
	}
	for _, label := range []string{"Out of Stock", "unavailable", "no", "backorder"} {
		inStock, err := parseAvailability(label)
		require.NoError(t, err)
		assert.False(t, inStock, label)
	}

	_, err := parseAvailability("ring the warehouse")
	assert.Error(t, err)
}

func TestOrderLinesText(t *testing.T) {
	req := testOrderRequest()
	req.Items = append(req.Items, req.Items[0])
	req.Items[1].ProductID = "CW-102"
	req.Items[1].Quantity = decimal.NewFromFloat(1.5)

	assert.Equal(t, "BF-TOM-01,3\nCW-102,1.5", orderLinesText(req))
}

// scrapedRowsJSON marshals row maps the way the extraction script would
func scrapedRowsJSON(t *testing.T, rows []map[string]any) []byte {
	raw, err := json.Marshal(rows)
	require.NoError(t, err)
	return raw
}

// scrapeTestConn builds a connection context for a scraped portal supplier
func scrapeTestConn() *integration.ConnectionContext {
	return &integration.ConnectionContext{
		TenantID: uuid.New(),
		Definition: &supplier.SupplierDefinition{
			ID:             "countrywide",
			Name:           "Countrywide Food Service",
			Kind:           supplier.KindWebScrape,
			RequiredConfig: []string{"portal_url", "username", "password"},
		},
		Credentials: vault.Credentials{
			"portal_url": "https://portal.countrywide.example",
			"username":   "resto-user",
			"password":   "resto-pass",
		},
	}
}
