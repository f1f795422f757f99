package suppliers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restohub/backend/internal/domain/shared"
	"github.com/restohub/backend/internal/domain/supplier"
)

const validDefinitions = `
suppliers:
  - id: bidfood
    name: Bidfood
    kind: api_oauth2
    required_config: [client_id, client_secret, location_id]
    min_order_amount: "200"
    lead_time_days: 2
    categories: [meat, poultry, dry_goods]
  - id: pfd
    name: PFD Food Services
    kind: api_key
    required_config: [api_key, account_number]
    min_order_amount: "150"
    lead_time_days: 1
  - id: localharvest
    name: Local Harvest Co-op
    kind: email
    required_config: [supplier_name, supplier_email]
    min_order_amount: "0"
    lead_time_days: 5
`

func TestParseCatalog(t *testing.T) {
	t.Run("parses a well-formed document", func(t *testing.T) {
		catalog, err := ParseCatalog([]byte(validDefinitions))
		require.NoError(t, err)

		def, err := catalog.Get("bidfood")
		require.NoError(t, err)
		assert.Equal(t, "Bidfood", def.Name)
		assert.Equal(t, supplier.KindAPIOAuth2, def.Kind)
		assert.Equal(t, []string{"client_id", "client_secret", "location_id"}, def.RequiredConfig)
		assert.Equal(t, "200", def.MinOrderAmount.String())
		assert.Equal(t, 2, def.LeadTimeDays)
	})

	t.Run("returns definitions ordered by id", func(t *testing.T) {
		catalog, err := ParseCatalog([]byte(validDefinitions))
		require.NoError(t, err)

		all := catalog.All()
		require.Len(t, all, 3)
		assert.Equal(t, "bidfood", all[0].ID)
		assert.Equal(t, "localharvest", all[1].ID)
		assert.Equal(t, "pfd", all[2].ID)
	})

	t.Run("unknown id wraps not found", func(t *testing.T) {
		catalog, err := ParseCatalog([]byte(validDefinitions))
		require.NoError(t, err)

		_, err = catalog.Get("nonexistent")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("rejects empty document", func(t *testing.T) {
		_, err := ParseCatalog([]byte("suppliers: []"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no suppliers")
	})

	t.Run("rejects unknown integration kind", func(t *testing.T) {
		doc := `
suppliers:
  - id: broken
    name: Broken Supplier
    kind: carrier_pigeon
`
		_, err := ParseCatalog([]byte(doc))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `definition "broken"`)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		doc := `
suppliers:
  - id: bidfood
    name: Bidfood
    kind: api_oauth2
  - id: bidfood
    name: Bidfood Again
    kind: api_key
`
		_, err := ParseCatalog([]byte(doc))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate definition id")
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		_, err := ParseCatalog([]byte("suppliers: [unterminated"))
		require.Error(t, err)
	})

	t.Run("rejects negative minimum order amount", func(t *testing.T) {
		doc := `
suppliers:
  - id: broken
    name: Broken Supplier
    kind: api_key
    min_order_amount: "-10"
`
		_, err := ParseCatalog([]byte(doc))
		require.Error(t, err)
	})
}
