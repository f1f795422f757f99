package providers

import (
	"context"
	"fmt"
	netmail "net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/supplier"
	"github.com/restohub/backend/internal/infrastructure/mail"
)

// EmailAdapter delivers rendered order sheets to suppliers over email.
// There is no catalog to fetch and no status feed; orders advance on manual
// evidence once the supplier replies.
type EmailAdapter struct {
	transport mail.Transport
	logger    *zap.Logger
}

// NewEmailAdapter creates the adapter for email suppliers
func NewEmailAdapter(transport mail.Transport, logger *zap.Logger) *EmailAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailAdapter{transport: transport, logger: logger}
}

// Kind returns the integration kind this adapter handles
func (a *EmailAdapter) Kind() supplier.IntegrationKind {
	return supplier.KindEmail
}

// Capabilities returns the operations this adapter supports
func (a *EmailAdapter) Capabilities() integration.CapabilitySet {
	return integration.NewCapabilitySet(integration.CapabilityDocumentDelivery)
}

// TestConnection checks the configured recipient parses as an address.
// Deliverability cannot be probed without sending mail, so this is as far
// as verification goes.
func (a *EmailAdapter) TestConnection(ctx context.Context, conn *integration.ConnectionContext) error {
	if err := conn.Validate(); err != nil {
		return err
	}
	if _, err := recipientAddress(conn); err != nil {
		return err
	}
	return nil
}

// FetchCatalog is unsupported; email suppliers publish no machine-readable catalog
func (a *EmailAdapter) FetchCatalog(ctx context.Context, conn *integration.ConnectionContext) ([]integration.Product, error) {
	return nil, fmt.Errorf("%w: email suppliers publish no catalog", integration.ErrCapabilityNotSupported)
}

// SubmitOrder is unsupported; email orders travel as documents
func (a *EmailAdapter) SubmitOrder(ctx context.Context, conn *integration.ConnectionContext, req *order.Request) (*integration.OrderAck, error) {
	return nil, fmt.Errorf("%w: email orders are delivered as documents", integration.ErrCapabilityNotSupported)
}

// CheckOrderStatus is unsupported; email order states advance on manual evidence
func (a *EmailAdapter) CheckOrderStatus(ctx context.Context, conn *integration.ConnectionContext, externalRef string) (*integration.StatusReport, error) {
	return nil, fmt.Errorf("%w: email has no status feed", integration.ErrCapabilityNotSupported)
}

// DeliverDocument mails the rendered order sheet to the supplier
func (a *EmailAdapter) DeliverDocument(ctx context.Context, conn *integration.ConnectionContext, req *order.Request, doc *integration.Document) error {
	if err := conn.Validate(); err != nil {
		return err
	}
	if doc == nil || len(doc.Content) == 0 {
		return fmt.Errorf("order %s has no document to deliver", req.ID)
	}

	recipient, err := recipientAddress(conn)
	if err != nil {
		return err
	}
	supplierName := displayName(conn)

	msg := &mail.Message{
		To:       []string{recipient},
		Subject:  fmt.Sprintf("Order Request - %s - %s", req.ID, supplierName),
		TextBody: orderEmailBody(supplierName, req),
		Attachments: []mail.Attachment{{
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			Content:     doc.Content,
		}},
	}

	// A relay refusal happens before the supplier sees anything, so retrying
	// cannot double an order the way a portal resubmit could.
	if err := a.transport.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrOrderUnreachable, err)
	}

	a.logger.Info("order email dispatched",
		zap.String("order_id", req.ID),
		zap.String("supplier_id", conn.Definition.ID))

	return nil
}

// recipientAddress resolves and validates the configured supplier address
func recipientAddress(conn *integration.ConnectionContext) (string, error) {
	raw := conn.Credentials.Get("supplier_email")
	addr, err := netmail.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("%w: supplier_email is not a valid address", integration.ErrNotConfigured)
	}
	return addr.Address, nil
}

// displayName prefers the configured supplier name over the definition name
func displayName(conn *integration.ConnectionContext) string {
	if name := strings.TrimSpace(conn.Credentials.Get("supplier_name")); name != "" {
		return name
	}
	return conn.Definition.Name
}

// orderEmailBody writes the plain-text cover note for an order email
func orderEmailBody(supplierName string, req *order.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s Team,\n\n", supplierName)
	fmt.Fprintf(&b, "Please find attached our purchase order %s.\n\n", req.ID)

	if req.DeliveryAddress != "" {
		fmt.Fprintf(&b, "Delivery address: %s\n", req.DeliveryAddress)
	}
	if req.RequestedDate != nil {
		fmt.Fprintf(&b, "Requested delivery date: %s\n", req.RequestedDate.Format("Monday, 2 January 2006"))
	}
	if req.Urgent {
		b.WriteString("This order is urgent; please prioritize it.\n")
	}
	b.WriteString("\nOrder summary:\n")
	for i := range req.Items {
		item := &req.Items[i]
		fmt.Fprintf(&b, "  - %s %s x %s (%s)\n", item.Quantity.String(), item.Unit, item.Name, item.ProductID)
	}
	if req.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", req.Notes)
	}

	b.WriteString("\nPlease confirm receipt of this order by replying to this email.\n\n")
	b.WriteString("Kind regards,\n")
	if req.Contact.Name != "" {
		b.WriteString(req.Contact.Name + "\n")
	}
	if req.Contact.Email != "" {
		b.WriteString(req.Contact.Email + "\n")
	}
	if req.Contact.Phone != "" {
		b.WriteString(req.Contact.Phone + "\n")
	}
	return b.String()
}

var _ integration.ProviderAdapter = (*EmailAdapter)(nil)
