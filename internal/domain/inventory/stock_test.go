package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewStockLevel(t *testing.T) {
	level, err := NewStockLevel(uuid.New(), "tomatoes-roma", "Roma tomatoes", "kg", decimal.NewFromInt(20))

	assert.NoError(t, err)
	assert.Equal(t, "tomatoes-roma", level.ProductRef)
	assert.True(t, level.CurrentQty.IsZero())
	assert.True(t, level.ReorderLevel.Equal(decimal.NewFromInt(20)))

	_, err = NewStockLevel(uuid.New(), "", "No ref", "kg", decimal.Zero)
	assert.Error(t, err)

	_, err = NewStockLevel(uuid.New(), "x", "Negative reorder", "kg", decimal.NewFromInt(-1))
	assert.Error(t, err)
}

func TestStockLevel_Apply(t *testing.T) {
	t.Run("delta mutation shifts the quantity", func(t *testing.T) {
		level := createTestLevel(t, 20)

		err := level.Apply(testMutation(level, decimal.NewFromInt(50), nil))

		assert.NoError(t, err)
		assert.True(t, level.CurrentQty.Equal(decimal.NewFromInt(50)))
		assert.NotNil(t, level.LastMovementAt)
	})

	t.Run("negative delta may drive quantity below zero", func(t *testing.T) {
		level := createTestLevel(t, 0)

		err := level.Apply(testMutation(level, decimal.NewFromInt(-3), nil))

		assert.NoError(t, err)
		assert.True(t, level.CurrentQty.Equal(decimal.NewFromInt(-3)))
	})

	t.Run("absolute mutation replaces the quantity", func(t *testing.T) {
		level := createTestLevel(t, 20)
		assert.NoError(t, level.Apply(testMutation(level, decimal.NewFromInt(80), nil)))

		counted := decimal.NewFromInt(62)
		err := level.Apply(testMutation(level, decimal.Zero, &counted))

		assert.NoError(t, err)
		assert.True(t, level.CurrentQty.Equal(counted))
	})

	t.Run("rejects invalid mutation", func(t *testing.T) {
		level := createTestLevel(t, 20)
		m := testMutation(level, decimal.NewFromInt(5), nil)
		m.IdempotencyKey = ""

		assert.Error(t, level.Apply(m))
		assert.True(t, level.CurrentQty.IsZero())
	})

	t.Run("raises low stock event when crossing the reorder level", func(t *testing.T) {
		level := createTestLevel(t, 20)
		assert.NoError(t, level.Apply(testMutation(level, decimal.NewFromInt(100), nil)))
		level.ClearDomainEvents()

		assert.NoError(t, level.Apply(testMutation(level, decimal.NewFromInt(-85), nil)))

		events := level.GetDomainEvents()
		assert.Len(t, events, 1)
		low, ok := events[0].(*StockLevelLowEvent)
		assert.True(t, ok)
		assert.Equal(t, "tomatoes-roma", low.ProductRef)
	})

	t.Run("no event while above the reorder level", func(t *testing.T) {
		level := createTestLevel(t, 20)

		assert.NoError(t, level.Apply(testMutation(level, decimal.NewFromInt(100), nil)))

		assert.Empty(t, level.GetDomainEvents())
	})
}

func TestStockLevel_IsLow(t *testing.T) {
	t.Run("at the reorder level counts as low", func(t *testing.T) {
		level := createTestLevel(t, 20)
		assert.NoError(t, level.Apply(testMutation(level, decimal.NewFromInt(20), nil)))

		assert.True(t, level.IsLow())
	})

	t.Run("zero reorder level never reports low", func(t *testing.T) {
		level := createTestLevel(t, 0)
		assert.NoError(t, level.Apply(testMutation(level, decimal.NewFromInt(-10), nil)))

		assert.False(t, level.IsLow())
	})
}

func TestStockLevel_RestockUrgency(t *testing.T) {
	tests := []struct {
		name     string
		qty      int64
		expected Urgency
	}{
		{"negative quantity is critical", -5, UrgencyCritical},
		{"at quarter of reorder level is critical", 5, UrgencyCritical},
		{"at half of reorder level is high", 10, UrgencyHigh},
		{"at three quarters is medium", 15, UrgencyMedium},
		{"just below reorder level is low", 19, UrgencyLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level := createTestLevel(t, 20)
			assert.NoError(t, level.Apply(testMutation(level, decimal.NewFromInt(tt.qty), nil)))

			assert.Equal(t, tt.expected, level.RestockUrgency())
		})
	}
}

func TestMutation_Validate(t *testing.T) {
	base := func() *Mutation {
		return &Mutation{
			TenantID:       uuid.New(),
			ProductRef:     "tomatoes-roma",
			Delta:          decimal.NewFromInt(1),
			IdempotencyKey: "pos|conn|sales|evt-1|tomatoes-roma",
			Source:         "cloudpos/sales",
			OccurredAt:     time.Now(),
		}
	}

	assert.NoError(t, base().Validate())

	m := base()
	m.TenantID = uuid.Nil
	assert.Error(t, m.Validate())

	m = base()
	m.ProductRef = " "
	assert.Error(t, m.Validate())

	m = base()
	m.IdempotencyKey = ""
	assert.Error(t, m.Validate())

	m = base()
	neg := decimal.NewFromInt(-1)
	m.Absolute = &neg
	assert.Error(t, m.Validate())

	m = base()
	m.OccurredAt = time.Time{}
	assert.Error(t, m.Validate())
}

// Helper functions

func createTestLevel(t *testing.T, reorder int64) *StockLevel {
	level, err := NewStockLevel(uuid.New(), "tomatoes-roma", "Roma tomatoes", "kg", decimal.NewFromInt(reorder))
	if err != nil {
		t.Fatalf("failed to create test level: %v", err)
	}
	return level
}

func testMutation(level *StockLevel, delta decimal.Decimal, absolute *decimal.Decimal) *Mutation {
	return &Mutation{
		TenantID:       level.TenantID,
		ProductRef:     level.ProductRef,
		Delta:          delta,
		Absolute:       absolute,
		IdempotencyKey: "test-key-" + uuid.NewString(),
		Source:         "test",
		OccurredAt:     time.Now(),
	}
}
