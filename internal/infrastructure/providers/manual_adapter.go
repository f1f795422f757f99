package providers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/supplier"
)

// ManualAdapter covers suppliers with no electronic channel at all. Orders
// become rendered sheets that staff download and hand over themselves, by
// phone, fax, or in person.
type ManualAdapter struct {
	logger *zap.Logger
}

// NewManualAdapter creates the adapter for manual suppliers
func NewManualAdapter(logger *zap.Logger) *ManualAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManualAdapter{logger: logger}
}

// Kind returns the integration kind this adapter handles
func (a *ManualAdapter) Kind() supplier.IntegrationKind {
	return supplier.KindManual
}

// Capabilities returns the operations this adapter supports
func (a *ManualAdapter) Capabilities() integration.CapabilitySet {
	return integration.NewCapabilitySet(integration.CapabilityDocumentDelivery)
}

// TestConnection only checks configuration; there is nothing to reach
func (a *ManualAdapter) TestConnection(ctx context.Context, conn *integration.ConnectionContext) error {
	return conn.Validate()
}

// FetchCatalog is unsupported; manual suppliers publish no catalog
func (a *ManualAdapter) FetchCatalog(ctx context.Context, conn *integration.ConnectionContext) ([]integration.Product, error) {
	return nil, fmt.Errorf("%w: manual suppliers publish no catalog", integration.ErrCapabilityNotSupported)
}

// SubmitOrder is unsupported; manual orders travel as documents
func (a *ManualAdapter) SubmitOrder(ctx context.Context, conn *integration.ConnectionContext, req *order.Request) (*integration.OrderAck, error) {
	return nil, fmt.Errorf("%w: manual orders are delivered as documents", integration.ErrCapabilityNotSupported)
}

// CheckOrderStatus is unsupported; manual order states advance on manual evidence
func (a *ManualAdapter) CheckOrderStatus(ctx context.Context, conn *integration.ConnectionContext, externalRef string) (*integration.StatusReport, error) {
	return nil, fmt.Errorf("%w: manual has no status feed", integration.ErrCapabilityNotSupported)
}

// DeliverDocument marks the sheet ready for handover. The rendered document
// is already archived by the caller; delivery here means staff can download
// it, so there is nothing left to fail.
func (a *ManualAdapter) DeliverDocument(ctx context.Context, conn *integration.ConnectionContext, req *order.Request, doc *integration.Document) error {
	if err := conn.Validate(); err != nil {
		return err
	}
	if doc == nil || len(doc.Content) == 0 {
		return fmt.Errorf("order %s has no document to deliver", req.ID)
	}

	a.logger.Info("order sheet staged for manual handover",
		zap.String("order_id", req.ID),
		zap.String("supplier_id", conn.Definition.ID),
		zap.String("filename", doc.Filename))

	return nil
}

var _ integration.ProviderAdapter = (*ManualAdapter)(nil)
