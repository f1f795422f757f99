package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/shared"
)

func TestOrderMetricsHandler_CountsSubmission(t *testing.T) {
	recorder := &recordingMetrics{}
	handler := NewOrderMetricsHandler(zaptest.NewLogger(t)).WithRecorder(recorder)

	record := submittedRecordForMetrics(t, "po-3001", "bidfood")
	err := handler.Handle(context.Background(), order.NewSubmittedEvent(record))
	require.NoError(t, err)

	assert.Equal(t, 1, recorder.submittedCount())
	assert.Equal(t, "bidfood", recorder.lastSupplier)
	assert.Equal(t, "api", recorder.lastChannel)
}

func TestOrderMetricsHandler_CountsFailure(t *testing.T) {
	recorder := &recordingMetrics{}
	handler := NewOrderMetricsHandler(zaptest.NewLogger(t)).WithRecorder(recorder)

	record := createdRecordForMetrics(t, "po-3002", "pfd")
	err := handler.Handle(context.Background(), order.NewFailedEvent(record, "supplier unreachable"))
	require.NoError(t, err)

	assert.Equal(t, 1, recorder.failedCount())
	assert.Equal(t, "pfd", recorder.lastSupplier)
}

func TestOrderMetricsHandler_NoRecorderOnlyLogs(t *testing.T) {
	handler := NewOrderMetricsHandler(zaptest.NewLogger(t))

	record := submittedRecordForMetrics(t, "po-3003", "bidfood")
	assert.NoError(t, handler.Handle(context.Background(), order.NewSubmittedEvent(record)))
}

func TestOrderMetricsHandler_RejectsWrongEventType(t *testing.T) {
	handler := NewOrderMetricsHandler(zaptest.NewLogger(t))

	wrong := shared.NewBaseDomainEvent("inventory.stock_level_low", "StockLevel", uuid.New(), uuid.New())
	err := handler.Handle(context.Background(), &wrong)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected event type")
}

func TestOrderMetricsHandler_EventTypes(t *testing.T) {
	handler := NewOrderMetricsHandler(zaptest.NewLogger(t))

	assert.ElementsMatch(t,
		[]string{order.EventOrderSubmitted, order.EventOrderFailed},
		handler.EventTypes())
}

func createdRecordForMetrics(t *testing.T, orderID, supplierID string) *order.Record {
	t.Helper()

	input := submitRequest(orderID, supplierID)
	req := input.toDomainRequest(uuid.New())
	record, err := order.NewRecord(req, order.ChannelAPI)
	require.NoError(t, err)
	return record
}

func submittedRecordForMetrics(t *testing.T, orderID, supplierID string) *order.Record {
	t.Helper()

	record := createdRecordForMetrics(t, orderID, supplierID)
	record.RecordAttempt(time.Now())
	ref := "EXT-" + orderID
	require.NoError(t, record.MarkSubmitted(&ref, time.Now()))
	record.ClearDomainEvents()
	return record
}

type recordingMetrics struct {
	mu           sync.Mutex
	submitted    int
	failed       int
	lastSupplier string
	lastChannel  string
}

func (m *recordingMetrics) RecordOrderSubmitted(_ context.Context, _ uuid.UUID, supplierID, channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted++
	m.lastSupplier = supplierID
	m.lastChannel = channel
}

func (m *recordingMetrics) RecordOrderFailed(_ context.Context, _ uuid.UUID, supplierID, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
	m.lastSupplier = supplierID
}

func (m *recordingMetrics) submittedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitted
}

func (m *recordingMetrics) failedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}
