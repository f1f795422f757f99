package order

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewRecord(t *testing.T) {
	t.Run("creates record in created state with computed total", func(t *testing.T) {
		req := createTestRequest()

		record, err := NewRecord(req, ChannelAPI)

		assert.NoError(t, err)
		assert.Equal(t, StatusCreated, record.Status)
		assert.Equal(t, req.ID, record.OrderID)
		assert.Equal(t, req.SupplierID, record.SupplierID)
		assert.Equal(t, req.TenantID, record.TenantID)
		assert.Equal(t, ChannelAPI, record.Channel)
		// 10 * 12.50 + 2 * 45.00 = 215.00
		assert.True(t, record.TotalAmount.Equal(decimal.NewFromFloat(215.00)),
			"expected 215.00, got %s", record.TotalAmount)
		assert.Nil(t, record.ExternalRef)
		assert.Zero(t, record.Attempts)
	})

	t.Run("rejects invalid request", func(t *testing.T) {
		req := createTestRequest()
		req.Items = nil

		record, err := NewRecord(req, ChannelAPI)

		assert.Error(t, err)
		assert.Nil(t, record)
	})

	t.Run("rejects unknown channel", func(t *testing.T) {
		record, err := NewRecord(createTestRequest(), Channel("carrier-pigeon"))

		assert.Error(t, err)
		assert.Nil(t, record)
	})
}

func TestRecord_MarkSubmitted(t *testing.T) {
	t.Run("moves created record to submitted with external ref", func(t *testing.T) {
		record := createTestRecord(t)
		ref := "BF-20260815-042"
		at := time.Now()

		err := record.MarkSubmitted(&ref, at)

		assert.NoError(t, err)
		assert.Equal(t, StatusSubmitted, record.Status)
		assert.Equal(t, &ref, record.ExternalRef)
		assert.Equal(t, at, *record.SubmittedAt)
		assert.Len(t, record.GetDomainEvents(), 1)
	})

	t.Run("accepts nil ref for document channels", func(t *testing.T) {
		record := createTestRecordOnChannel(t, ChannelEmail)

		err := record.MarkSubmitted(nil, time.Now())

		assert.NoError(t, err)
		assert.Equal(t, StatusSubmitted, record.Status)
		assert.Nil(t, record.ExternalRef)
	})

	t.Run("rejects double submission", func(t *testing.T) {
		record := createTestRecord(t)
		assert.NoError(t, record.MarkSubmitted(nil, time.Now()))

		err := record.MarkSubmitted(nil, time.Now())

		assert.Error(t, err)
		assert.Equal(t, StatusSubmitted, record.Status)
	})
}

func TestRecord_MarkFailed(t *testing.T) {
	t.Run("fails from created", func(t *testing.T) {
		record := createTestRecord(t)

		err := record.MarkFailed("supplier rejected: account suspended", time.Now())

		assert.NoError(t, err)
		assert.Equal(t, StatusFailed, record.Status)
		assert.Equal(t, "supplier rejected: account suspended", record.FailureReason)
		assert.NotNil(t, record.FailedAt)
	})

	t.Run("fails from submitted", func(t *testing.T) {
		record := createTestRecord(t)
		assert.NoError(t, record.MarkSubmitted(nil, time.Now()))

		err := record.MarkFailed("supplier voided the order", time.Now())

		assert.NoError(t, err)
		assert.Equal(t, StatusFailed, record.Status)
	})

	t.Run("cannot fail a delivered order", func(t *testing.T) {
		record := createDeliveredRecord(t)

		err := record.MarkFailed("too late", time.Now())

		assert.Error(t, err)
		assert.Equal(t, StatusDelivered, record.Status)
	})
}

func TestRecord_Cancel(t *testing.T) {
	t.Run("cancels a created order", func(t *testing.T) {
		record := createTestRecord(t)

		err := record.Cancel("ordered the wrong week", time.Now())

		assert.NoError(t, err)
		assert.Equal(t, StatusCancelled, record.Status)
		assert.NotNil(t, record.CancelledAt)
	})

	t.Run("cannot cancel twice", func(t *testing.T) {
		record := createTestRecord(t)
		assert.NoError(t, record.Cancel("first", time.Now()))

		err := record.Cancel("second", time.Now())

		assert.Error(t, err)
	})
}

func TestRecord_AdvanceTo(t *testing.T) {
	t.Run("walks the full lifecycle with evidence", func(t *testing.T) {
		record := createTestRecord(t)
		assert.NoError(t, record.MarkSubmitted(nil, time.Now()))

		assert.NoError(t, record.AdvanceTo(StatusConfirmed, pollEvidence("BF-1")))
		assert.Equal(t, StatusConfirmed, record.Status)
		assert.NotNil(t, record.ConfirmedAt)

		assert.NoError(t, record.AdvanceTo(StatusShipped, pollEvidence("BF-1")))
		assert.Equal(t, StatusShipped, record.Status)
		assert.NotNil(t, record.ShippedAt)

		assert.NoError(t, record.AdvanceTo(StatusDelivered, pollEvidence("BF-1")))
		assert.Equal(t, StatusDelivered, record.Status)
		assert.NotNil(t, record.DeliveredAt)
		assert.True(t, record.IsTerminal())
	})

	t.Run("rejects skipping a step", func(t *testing.T) {
		record := createTestRecord(t)
		assert.NoError(t, record.MarkSubmitted(nil, time.Now()))

		err := record.AdvanceTo(StatusShipped, pollEvidence("BF-1"))

		assert.Error(t, err)
		assert.Equal(t, StatusSubmitted, record.Status)
		assert.Nil(t, record.ShippedAt)
	})

	t.Run("rejects advancing before submission", func(t *testing.T) {
		record := createTestRecord(t)

		err := record.AdvanceTo(StatusConfirmed, pollEvidence("BF-1"))

		assert.Error(t, err)
		assert.Equal(t, StatusCreated, record.Status)
	})

	t.Run("rejects terminal targets", func(t *testing.T) {
		record := createTestRecord(t)
		assert.NoError(t, record.MarkSubmitted(nil, time.Now()))

		assert.Error(t, record.AdvanceTo(StatusFailed, pollEvidence("BF-1")))
		assert.Error(t, record.AdvanceTo(StatusCancelled, pollEvidence("BF-1")))
	})

	t.Run("rejects invalid evidence", func(t *testing.T) {
		record := createTestRecord(t)
		assert.NoError(t, record.MarkSubmitted(nil, time.Now()))

		err := record.AdvanceTo(StatusConfirmed, StatusEvidence{
			Source:     EvidenceSourceManual,
			ObservedAt: time.Now(),
		})

		assert.Error(t, err, "manual evidence without actor must be rejected")
		assert.Equal(t, StatusSubmitted, record.Status)
	})

	t.Run("adopts evidence reference when no external ref is known", func(t *testing.T) {
		record := createTestRecordOnChannel(t, ChannelEmail)
		assert.NoError(t, record.MarkSubmitted(nil, time.Now()))

		evidence := StatusEvidence{
			Source:     EvidenceSourceEmail,
			Reference:  "msg-4412",
			Actor:      "jordan@thebistro.example",
			ObservedAt: time.Now(),
		}
		assert.NoError(t, record.AdvanceTo(StatusConfirmed, evidence))

		assert.NotNil(t, record.ExternalRef)
		assert.Equal(t, "msg-4412", *record.ExternalRef)
	})
}

func TestRecord_RecordAttempt(t *testing.T) {
	record := createTestRecord(t)

	record.RecordAttempt(time.Now())
	record.RecordAttempt(time.Now())

	assert.Equal(t, 2, record.Attempts)
	assert.NotNil(t, record.LastAttemptAt)
}

// Helper functions

func createTestRequest() *Request {
	return &Request{
		ID:         "ord-7f3a",
		TenantID:   uuid.New(),
		SupplierID: "bidfood",
		Items: []Item{
			{ProductID: "BF-1001", Name: "Chicken breast 1kg", Quantity: decimal.NewFromInt(10), Unit: "kg", UnitPrice: decimal.NewFromFloat(12.50)},
			{ProductID: "BF-2230", Name: "Olive oil 5L", Quantity: decimal.NewFromInt(2), Unit: "tin", UnitPrice: decimal.NewFromFloat(45.00)},
		},
		DeliveryAddress: "12 Harbour St, Sydney",
		Contact:         Contact{Name: "Jordan Lee", Email: "jordan@thebistro.example", Phone: "+61 2 9000 0000"},
	}
}

func createTestRecord(t *testing.T) *Record {
	return createTestRecordOnChannel(t, ChannelAPI)
}

func createTestRecordOnChannel(t *testing.T, channel Channel) *Record {
	record, err := NewRecord(createTestRequest(), channel)
	if err != nil {
		t.Fatalf("failed to create test record: %v", err)
	}
	return record
}

func createDeliveredRecord(t *testing.T) *Record {
	record := createTestRecord(t)
	if err := record.MarkSubmitted(nil, time.Now()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	for _, s := range []Status{StatusConfirmed, StatusShipped, StatusDelivered} {
		if err := record.AdvanceTo(s, pollEvidence("BF-1")); err != nil {
			t.Fatalf("advance to %s: %v", s, err)
		}
	}
	return record
}

func pollEvidence(ref string) StatusEvidence {
	return StatusEvidence{
		Source:     EvidenceSourceAPIPoll,
		Reference:  ref,
		ObservedAt: time.Now(),
	}
}
