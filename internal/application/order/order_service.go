// Package order coordinates order placement and lifecycle tracking across
// supplier channels. API-channel orders go straight to the provider adapter;
// document-channel orders are rendered into an order sheet, archived, and
// handed over by email or staged for manual download. The caller-supplied
// order id is the idempotency key throughout: concurrent and repeated
// submissions of the same id collapse into a single record and at most one
// adapter call.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/shared"
	"github.com/restohub/backend/internal/domain/supplier"
)

// ConnectionResolver yields the live connection context and adapter for a
// tenant's supplier, and supplier definitions independent of any connection
type ConnectionResolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID, supplierID string) (*integration.ConnectionContext, integration.ProviderAdapter, error)
	Definition(supplierID string) (*supplier.SupplierDefinition, error)
}

// SheetRenderer turns an order request into a deliverable order sheet
type SheetRenderer interface {
	RenderOrderSheet(ctx context.Context, req *order.Request, def *supplier.SupplierDefinition) (*integration.Document, error)
}

// DocumentArchive stores rendered order sheets and serves download links
type DocumentArchive interface {
	Archive(ctx context.Context, tenantID uuid.UUID, orderID string, doc *integration.Document) (string, error)
	Fetch(ctx context.Context, storageKey string) (*integration.Document, error)
	DownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// Config tunes submission retries and the maintenance duties
type Config struct {
	// Retry bounds the in-band attempts when the supplier is unreachable
	Retry shared.RetryPolicy
	// StuckAfter is how long a created record may sit before requeue
	StuckAfter time.Duration
	// RequeueBatch caps how many stuck orders one requeue pass re-drives
	RequeueBatch int
	// MaxTotalAttempts fails an order for good once its accumulated
	// attempts reach this count
	MaxTotalAttempts int
	// DocumentLinkTTL is the lifetime of generated download links
	DocumentLinkTTL time.Duration
}

// DefaultConfig returns the submission defaults
func DefaultConfig() Config {
	return Config{
		Retry:            shared.DefaultRetryPolicy(),
		StuckAfter:       5 * time.Minute,
		RequeueBatch:     25,
		MaxTotalAttempts: 10,
		DocumentLinkTTL:  15 * time.Minute,
	}
}

// OrderService handles order submission, tracking, and documents
type OrderService struct {
	records        order.Repository
	resolver       ConnectionResolver
	renderer       SheetRenderer
	archive        DocumentArchive
	config         Config
	logger         *zap.Logger
	eventPublisher shared.EventPublisher

	flights singleflight.Group
}

// NewOrderService creates a new OrderService
func NewOrderService(
	records order.Repository,
	resolver ConnectionResolver,
	renderer SheetRenderer,
	archive DocumentArchive,
	config Config,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		records:  records,
		resolver: resolver,
		renderer: renderer,
		archive:  archive,
		config:   config,
		logger:   logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Submit places an order with a supplier. A record is created before the
// first attempt and survives whatever happens next; the returned view's
// status carries the outcome. Submitting an id that already has a record
// returns that record untouched.
func (s *OrderService) Submit(ctx context.Context, tenantID uuid.UUID, req SubmitOrderRequest) (*OrderView, error) {
	domainReq := req.toDomainRequest(tenantID)
	if err := domainReq.Validate(); err != nil {
		return nil, err
	}

	key := tenantID.String() + "|" + domainReq.ID
	result, err, _ := s.flights.Do(key, func() (interface{}, error) {
		return s.submitOnce(ctx, domainReq)
	})
	if err != nil {
		return nil, err
	}

	view := result.(OrderView)
	return &view, nil
}

func (s *OrderService) submitOnce(ctx context.Context, req *order.Request) (OrderView, error) {
	existing, err := s.records.FindByOrderID(ctx, req.TenantID, req.ID)
	if err == nil {
		return toOrderView(existing), nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return OrderView{}, err
	}

	// An unconnected supplier rejects the request outright, before any
	// record exists.
	connCtx, adapter, err := s.resolver.Resolve(ctx, req.TenantID, req.SupplierID)
	if err != nil {
		return OrderView{}, err
	}

	// A total under the supplier's minimum is rejected here, before any
	// record exists and before the adapter is touched.
	if err := req.CheckMinimum(connCtx.Definition.MinOrderAmount); err != nil {
		return OrderView{}, err
	}

	channel := integration.ChannelForKind(connCtx.Definition.Kind)
	record, err := order.NewRecord(req, channel)
	if err != nil {
		return OrderView{}, err
	}
	if err := s.records.Save(ctx, record); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// lost a cross-instance race; the winner's record stands
			winner, ferr := s.records.FindByOrderID(ctx, req.TenantID, req.ID)
			if ferr != nil {
				return OrderView{}, ferr
			}
			return toOrderView(winner), nil
		}
		return OrderView{}, err
	}

	s.attemptSubmission(ctx, record, req, connCtx, adapter)

	if err := s.records.Save(ctx, record); err != nil {
		return OrderView{}, err
	}
	s.publishDomainEvents(ctx, record)

	return toOrderView(record), nil
}

// attemptSubmission drives one submission pass. The record is mutated in
// place and always survives; only its status changes.
func (s *OrderService) attemptSubmission(ctx context.Context, record *order.Record, req *order.Request, connCtx *integration.ConnectionContext, adapter integration.ProviderAdapter) {
	switch record.Channel {
	case order.ChannelAPI:
		s.submitViaAPI(ctx, record, req, connCtx, adapter)
	default:
		s.submitViaDocument(ctx, record, req, connCtx, adapter)
	}
}

// submitViaAPI pushes the order through the adapter. Only unreachable
// errors retry: the adapter guarantees the request never reached the
// supplier, so a second attempt cannot double the order. Everything else
// is definitive.
func (s *OrderService) submitViaAPI(ctx context.Context, record *order.Record, req *order.Request, connCtx *integration.ConnectionContext, adapter integration.ProviderAdapter) {
	for {
		record.RecordAttempt(time.Now())

		ack, err := adapter.SubmitOrder(ctx, connCtx, req)
		if err == nil {
			acceptedAt := ack.AcceptedAt
			if acceptedAt.IsZero() {
				acceptedAt = time.Now()
			}
			var ref *string
			if ack.ExternalRef != "" {
				r := ack.ExternalRef
				ref = &r
			}
			if merr := record.MarkSubmitted(ref, acceptedAt); merr != nil {
				s.logger.Error("order cannot move to submitted",
					zap.String("order_id", record.OrderID),
					zap.Error(merr))
				return
			}
			s.logger.Info("order submitted",
				zap.String("order_id", record.OrderID),
				zap.String("supplier_id", record.SupplierID),
				zap.String("external_ref", ack.ExternalRef),
				zap.Int("attempts", record.Attempts))
			return
		}

		if errors.Is(err, integration.ErrOrderUnreachable) {
			if s.config.Retry.ShouldRetry(record.Attempts) {
				delay := s.config.Retry.Delay(record.Attempts)
				s.logger.Warn("supplier unreachable, retrying",
					zap.String("order_id", record.OrderID),
					zap.String("supplier_id", record.SupplierID),
					zap.Int("attempts", record.Attempts),
					zap.Duration("delay", delay))
				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return
				}
			}
			// stays in created; the requeue duty picks it up later
			s.logger.Warn("supplier unreachable, deferring order",
				zap.String("order_id", record.OrderID),
				zap.String("supplier_id", record.SupplierID),
				zap.Int("attempts", record.Attempts))
			return
		}

		s.failRecord(record, err)
		return
	}
}

// submitViaDocument renders the order sheet once, archives it, then hands
// it to the adapter for delivery. Delivery retries follow the same
// unreachable-only rule as the API path so an ambiguous send never turns
// into a duplicate email.
func (s *OrderService) submitViaDocument(ctx context.Context, record *order.Record, req *order.Request, connCtx *integration.ConnectionContext, adapter integration.ProviderAdapter) {
	doc, err := s.renderer.RenderOrderSheet(ctx, req, connCtx.Definition)
	if err != nil {
		record.RecordAttempt(time.Now())
		s.failRecord(record, err)
		return
	}

	if key, err := s.archive.Archive(ctx, req.TenantID, req.ID, doc); err != nil {
		// delivery goes ahead; the download endpoint re-renders on demand
		s.logger.Warn("order sheet archive failed",
			zap.String("order_id", record.OrderID),
			zap.Error(err))
	} else {
		record.SetDocumentKey(key)
	}

	for {
		record.RecordAttempt(time.Now())

		err := adapter.DeliverDocument(ctx, connCtx, req, doc)
		if err == nil {
			if merr := record.MarkSubmitted(nil, time.Now()); merr != nil {
				s.logger.Error("order cannot move to submitted",
					zap.String("order_id", record.OrderID),
					zap.Error(merr))
				return
			}
			s.logger.Info("order sheet delivered",
				zap.String("order_id", record.OrderID),
				zap.String("supplier_id", record.SupplierID),
				zap.String("channel", record.Channel.String()),
				zap.Int("attempts", record.Attempts))
			return
		}

		if errors.Is(err, integration.ErrOrderUnreachable) {
			if s.config.Retry.ShouldRetry(record.Attempts) {
				delay := s.config.Retry.Delay(record.Attempts)
				s.logger.Warn("document delivery unreachable, retrying",
					zap.String("order_id", record.OrderID),
					zap.Duration("delay", delay))
				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return
				}
			}
			s.logger.Warn("document delivery unreachable, deferring order",
				zap.String("order_id", record.OrderID),
				zap.Int("attempts", record.Attempts))
			return
		}

		s.failRecord(record, err)
		return
	}
}

func (s *OrderService) failRecord(record *order.Record, cause error) {
	if err := record.MarkFailed(cause.Error(), time.Now()); err != nil {
		s.logger.Error("order cannot move to failed",
			zap.String("order_id", record.OrderID),
			zap.Error(err))
		return
	}
	s.logger.Warn("order failed",
		zap.String("order_id", record.OrderID),
		zap.String("supplier_id", record.SupplierID),
		zap.String("code", integration.CodeOf(cause)),
		zap.Error(cause))
}

// Get returns one order
func (s *OrderService) Get(ctx context.Context, tenantID uuid.UUID, orderID string) (*OrderView, error) {
	record, err := s.records.FindByOrderID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	view := toOrderView(record)
	return &view, nil
}

// List returns orders for a tenant, newest first
func (s *OrderService) List(ctx context.Context, tenantID uuid.UUID, supplierID, status string, limit, offset int) (*OrderListResult, error) {
	if status != "" && !order.Status(status).IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown order status "+status)
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	records, total, err := s.records.FindAllForTenant(ctx, tenantID, order.ListFilter{
		SupplierID: supplierID,
		Status:     order.Status(status),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}

	views := make([]OrderView, 0, len(records))
	for _, record := range records {
		views = append(views, toOrderView(record))
	}
	return &OrderListResult{Orders: views, Total: total, Limit: limit, Offset: offset}, nil
}

// Advance applies an externally evidenced status change to an order
func (s *OrderService) Advance(ctx context.Context, tenantID uuid.UUID, orderID string, req AdvanceOrderRequest) (*OrderView, error) {
	record, err := s.records.FindByOrderID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	if err := record.AdvanceTo(order.Status(req.Target), req.toEvidence()); err != nil {
		return nil, err
	}
	if err := s.records.Save(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("order advanced",
		zap.String("order_id", record.OrderID),
		zap.String("status", record.Status.String()),
		zap.String("source", req.Source))

	view := toOrderView(record)
	return &view, nil
}

// Cancel withdraws an order that has not reached a terminal state
func (s *OrderService) Cancel(ctx context.Context, tenantID uuid.UUID, orderID string, req CancelOrderRequest) (*OrderView, error) {
	record, err := s.records.FindByOrderID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	if err := record.Cancel(req.Reason, time.Now()); err != nil {
		return nil, err
	}
	if err := s.records.Save(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled",
		zap.String("order_id", record.OrderID),
		zap.String("reason", req.Reason))

	view := toOrderView(record)
	return &view, nil
}

// Document returns a short-lived download link for the archived order
// sheet. A sheet lost to an archive failure at submission time is rendered
// again here.
func (s *OrderService) Document(ctx context.Context, tenantID uuid.UUID, orderID string) (*DocumentLink, error) {
	record, err := s.records.FindByOrderID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if record.Channel == order.ChannelAPI {
		return nil, shared.NewDomainError("NO_DOCUMENT", "API channel orders have no order sheet")
	}

	if record.DocumentKey == "" {
		if err := s.rearchiveDocument(ctx, record); err != nil {
			return nil, err
		}
	}

	url, expiresAt, err := s.archive.DownloadURL(ctx, record.DocumentKey, s.config.DocumentLinkTTL)
	if err != nil {
		return nil, err
	}
	return &DocumentLink{
		URL:       url,
		Filename:  "order-" + record.OrderID + ".pdf",
		ExpiresAt: expiresAt,
	}, nil
}

func (s *OrderService) rearchiveDocument(ctx context.Context, record *order.Record) error {
	def, err := s.resolver.Definition(record.SupplierID)
	if err != nil {
		return err
	}

	doc, err := s.renderer.RenderOrderSheet(ctx, rebuildRequest(record), def)
	if err != nil {
		return err
	}
	key, err := s.archive.Archive(ctx, record.TenantID, record.OrderID, doc)
	if err != nil {
		return err
	}

	record.SetDocumentKey(key)
	if err := s.records.Save(ctx, record); err != nil {
		return err
	}

	s.logger.Info("order sheet re-archived",
		zap.String("order_id", record.OrderID),
		zap.String("document_key", key))
	return nil
}

// RequeueStuck re-drives records stuck in created, typically because the
// process died mid-submission or the supplier was unreachable past the
// in-band retry budget. Runs from the maintenance scheduler, which
// serializes passes; a record whose accumulated attempts hit the total cap
// fails for good instead.
func (s *OrderService) RequeueStuck(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.config.StuckAfter)
	stuck, err := s.records.FindPendingSubmission(ctx, cutoff, s.config.RequeueBatch)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, record := range stuck {
		if record.Attempts >= s.config.MaxTotalAttempts {
			s.failRecord(record, errors.New("submission attempts exhausted"))
			s.saveAndPublish(ctx, record)
			continue
		}

		connCtx, adapter, err := s.resolver.Resolve(ctx, record.TenantID, record.SupplierID)
		if err != nil {
			if errors.Is(err, integration.ErrNotConfigured) {
				// the connection went away while the order waited
				s.failRecord(record, err)
				s.saveAndPublish(ctx, record)
			} else {
				s.logger.Warn("requeue resolve failed",
					zap.String("order_id", record.OrderID),
					zap.Error(err))
			}
			continue
		}

		s.attemptSubmission(ctx, record, rebuildRequest(record), connCtx, adapter)
		s.saveAndPublish(ctx, record)

		if record.Status == order.StatusSubmitted {
			requeued++
		}
	}
	return requeued, nil
}

// PollSubmitted asks suppliers for the current state of active API-channel
// orders and advances records when the report moved forward. Runs from the
// maintenance scheduler.
func (s *OrderService) PollSubmitted(ctx context.Context, limit int) (int, error) {
	active, err := s.records.FindActiveByChannel(ctx, order.ChannelAPI, limit)
	if err != nil {
		return 0, err
	}

	polled := 0
	for _, record := range active {
		if record.ExternalRef == nil {
			continue
		}

		connCtx, adapter, err := s.resolver.Resolve(ctx, record.TenantID, record.SupplierID)
		if err != nil {
			s.logger.Debug("status poll resolve failed",
				zap.String("order_id", record.OrderID),
				zap.Error(err))
			continue
		}

		report, err := adapter.CheckOrderStatus(ctx, connCtx, *record.ExternalRef)
		if err != nil {
			s.logger.Debug("status poll failed",
				zap.String("order_id", record.OrderID),
				zap.String("code", integration.CodeOf(err)),
				zap.Error(err))
			continue
		}
		polled++

		if s.applyReport(record, report) {
			s.saveAndPublish(ctx, record)
		}
	}
	return polled, nil
}

var statusRank = map[order.Status]int{
	order.StatusCreated:   0,
	order.StatusSubmitted: 1,
	order.StatusConfirmed: 2,
	order.StatusShipped:   3,
	order.StatusDelivered: 4,
}

// applyReport walks the record toward the reported status one step at a
// time, reusing the report's evidence for each hop. A report at or behind
// the current status is old news and changes nothing.
func (s *OrderService) applyReport(record *order.Record, report *integration.StatusReport) bool {
	if report.Status == order.StatusFailed || report.Status == order.StatusCancelled {
		reason := "supplier reported " + report.Status.String()
		if report.Evidence.Note != "" {
			reason = report.Evidence.Note
		}
		if err := record.MarkFailed(reason, time.Now()); err != nil {
			return false
		}
		s.logger.Warn("order failed per supplier report",
			zap.String("order_id", record.OrderID),
			zap.String("reason", reason))
		return true
	}

	targetRank, ok := statusRank[report.Status]
	if !ok {
		return false
	}

	advanced := false
	for statusRank[record.Status] < targetRank {
		next := nextStatus(record.Status)
		if err := record.AdvanceTo(next, report.Evidence); err != nil {
			s.logger.Warn("status poll advance rejected",
				zap.String("order_id", record.OrderID),
				zap.String("target", next.String()),
				zap.Error(err))
			break
		}
		advanced = true
	}
	if advanced {
		s.logger.Info("order advanced from status poll",
			zap.String("order_id", record.OrderID),
			zap.String("status", record.Status.String()))
	}
	return advanced
}

func nextStatus(s order.Status) order.Status {
	switch s {
	case order.StatusCreated:
		return order.StatusSubmitted
	case order.StatusSubmitted:
		return order.StatusConfirmed
	case order.StatusConfirmed:
		return order.StatusShipped
	default:
		return order.StatusDelivered
	}
}

func (s *OrderService) saveAndPublish(ctx context.Context, record *order.Record) {
	if err := s.records.Save(ctx, record); err != nil {
		s.logger.Error("order save failed",
			zap.String("order_id", record.OrderID),
			zap.Error(err))
		return
	}
	s.publishDomainEvents(ctx, record)
}

func (s *OrderService) publishDomainEvents(ctx context.Context, record *order.Record) {
	if s.eventPublisher == nil {
		record.ClearDomainEvents()
		return
	}
	events := record.GetDomainEvents()
	if len(events) > 0 {
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("domain event publish failed",
				zap.String("order_id", record.OrderID),
				zap.Error(err))
		}
	}
	record.ClearDomainEvents()
}

func rebuildRequest(record *order.Record) *order.Request {
	return &order.Request{
		ID:              record.OrderID,
		TenantID:        record.TenantID,
		SupplierID:      record.SupplierID,
		Items:           record.Items,
		DeliveryAddress: record.DeliveryAddress,
		RequestedDate:   record.RequestedDate,
		Contact: order.Contact{
			Name:  record.ContactName,
			Email: record.ContactEmail,
			Phone: record.ContactPhone,
		},
		Notes:  record.Notes,
		Urgent: record.Urgent,
	}
}
