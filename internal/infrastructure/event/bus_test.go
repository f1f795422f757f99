package event

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/shared"
)

func TestPublish_DeliversToSubscribedHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newRecordingHandler("order.submitted")
	bus.Subscribe(handler)

	evt := testEvent("order.submitted")
	require.NoError(t, bus.Publish(context.Background(), evt))

	received := handler.received()
	require.Len(t, received, 1)
	assert.Equal(t, evt.EventID(), received[0].EventID())
}

func TestBus_SatisfiesEventBusPort(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	var port shared.EventBus = bus

	handler := newRecordingHandler("order.submitted")
	require.NoError(t, port.Subscribe(handler))
	require.NoError(t, port.Publish(context.Background(), testEvent("order.submitted")))
	require.NoError(t, port.Unsubscribe(handler))
	require.NoError(t, port.Publish(context.Background(), testEvent("order.submitted")))

	assert.Len(t, handler.received(), 1, "unsubscribed handler sees nothing further")
}

func TestPublish_SkipsUnrelatedHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newRecordingHandler("order.failed")
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), testEvent("order.submitted")))
	assert.Empty(t, handler.received())
}

func TestPublish_WildcardHandlerSeesEverything(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newRecordingHandler()
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(),
		testEvent("order.submitted"),
		testEvent("inventory.stock_level_low")))

	assert.Len(t, handler.received(), 2)
}

func TestPublish_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newRecordingHandler("order.submitted")
	failing.err = assert.AnError
	healthy := newRecordingHandler("order.submitted")
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), testEvent("order.submitted")))
	assert.Len(t, healthy.received(), 1)
}

func TestPublish_HandlerPanicIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	panicking := newRecordingHandler("order.submitted")
	panicking.panics = true
	healthy := newRecordingHandler("order.submitted")
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), testEvent("order.submitted")))
	assert.Len(t, healthy.received(), 1)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newRecordingHandler("order.submitted")
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), testEvent("order.submitted")))
	assert.Empty(t, handler.received())
}

func TestSubscribe_ExplicitTypesOverrideHandlerTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newRecordingHandler("order.submitted")
	bus.Subscribe(handler, "order.failed")

	require.NoError(t, bus.Publish(context.Background(), testEvent("order.submitted")))
	assert.Empty(t, handler.received())

	require.NoError(t, bus.Publish(context.Background(), testEvent("order.failed")))
	assert.Len(t, handler.received(), 1)
}

func testEvent(eventType string) shared.DomainEvent {
	evt := shared.NewBaseDomainEvent(eventType, "OrderRecord", uuid.New(), uuid.New())
	return &evt
}

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
	panics bool
}

func newRecordingHandler(types ...string) *recordingHandler {
	return &recordingHandler{types: types}
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	if h.err != nil {
		return h.err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) received() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.events...)
}
