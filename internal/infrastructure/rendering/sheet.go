package rendering

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/supplier"
)

// SheetRenderer turns an order request into a PDF order sheet. It is the
// document source for email and manual suppliers, where the sheet itself is
// the order.
type SheetRenderer struct {
	tmpl   *template.Template
	pdf    PDFRenderer
	logger *zap.Logger
}

// NewSheetRenderer parses the built-in order sheet template and wires it to
// the given PDF renderer
func NewSheetRenderer(pdf PDFRenderer, logger *zap.Logger) (*SheetRenderer, error) {
	if pdf == nil {
		return nil, fmt.Errorf("sheet renderer requires a PDF renderer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl, err := template.New("order-sheet").Funcs(sheetFuncMap()).Parse(orderSheetTemplate)
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateFailed, "failed to parse order sheet template", err)
	}

	return &SheetRenderer{
		tmpl:   tmpl,
		pdf:    pdf,
		logger: logger,
	}, nil
}

// RenderOrderSheet renders the purchase order document for a request. The
// supplier definition supplies the display name; credentials never reach the
// template.
func (s *SheetRenderer) RenderOrderSheet(ctx context.Context, req *order.Request, def *supplier.SupplierDefinition) (*integration.Document, error) {
	if req == nil {
		return nil, NewRenderError(ErrCodeInvalidRequest, "order request is nil", nil)
	}
	if def == nil {
		return nil, NewRenderError(ErrCodeInvalidRequest, "supplier definition is nil", nil)
	}
	if err := req.Validate(); err != nil {
		return nil, NewRenderError(ErrCodeInvalidRequest, "order request is invalid", err)
	}

	data := buildSheetData(req, def)

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return nil, NewRenderError(ErrCodeTemplateFailed, "failed to execute order sheet template", err)
	}

	result, err := s.pdf.Render(ctx, &RenderRequest{
		HTML:  buf.String(),
		Title: "Purchase Order " + req.ID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("order sheet rendered",
		zap.String("order_id", req.ID),
		zap.String("supplier_id", def.ID),
		zap.Int("pages", result.PageCount))

	return &integration.Document{
		Filename:    "order-" + req.ID + ".pdf",
		ContentType: "application/pdf",
		Content:     result.PDFData,
	}, nil
}

// sheetLine is one rendered item row
type sheetLine struct {
	ProductID string
	Name      string
	Quantity  decimal.Decimal
	Unit      string
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// sheetData is the template binding for the order sheet
type sheetData struct {
	OrderID         string
	SupplierName    string
	GeneratedAt     time.Time
	RequestedDate   *time.Time
	Urgent          bool
	DeliveryAddress string
	ContactName     string
	ContactEmail    string
	ContactPhone    string
	Notes           string
	Lines           []sheetLine
	Total           decimal.Decimal
}

func buildSheetData(req *order.Request, def *supplier.SupplierDefinition) *sheetData {
	lines := make([]sheetLine, 0, len(req.Items))
	for idx := range req.Items {
		item := &req.Items[idx]
		lines = append(lines, sheetLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Unit:      item.Unit,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		})
	}

	return &sheetData{
		OrderID:         req.ID,
		SupplierName:    def.Name,
		GeneratedAt:     time.Now(),
		RequestedDate:   req.RequestedDate,
		Urgent:          req.Urgent,
		DeliveryAddress: req.DeliveryAddress,
		ContactName:     req.Contact.Name,
		ContactEmail:    req.Contact.Email,
		ContactPhone:    req.Contact.Phone,
		Notes:           req.Notes,
		Lines:           lines,
		Total:           req.Total(),
	}
}

// sheetFuncMap returns the template functions the order sheet uses
func sheetFuncMap() template.FuncMap {
	return template.FuncMap{
		"formatMoney": formatMoney,
		"formatDate":  formatDate,
		"formatQty":   formatQty,
		"upper":       strings.ToUpper,
		"default":     defaultString,
	}
}

// formatMoney formats a decimal as currency with thousand separators.
// Example: 1234.5 -> "$1,234.50"
func formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	parts := strings.Split(d.StringFixed(2), ".")
	intPart := parts[0]
	decPart := "00"
	if len(parts) > 1 {
		decPart = parts[1]
	}

	var result strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}

	return sign + "$" + result.String() + "." + decPart
}

// formatDate formats a date for the order sheet.
// Example: "Fri, 7 Nov 2025"
func formatDate(v interface{}) string {
	var t time.Time
	switch val := v.(type) {
	case time.Time:
		t = val
	case *time.Time:
		if val == nil {
			return ""
		}
		t = *val
	default:
		return ""
	}
	if t.IsZero() {
		return ""
	}
	return t.Format("Mon, 2 Jan 2006")
}

// formatQty renders a quantity without trailing zeros.
// Example: 3.000 -> "3", 1.50 -> "1.5"
func formatQty(d decimal.Decimal) string {
	return d.String()
}

func defaultString(val, def string) string {
	if strings.TrimSpace(val) == "" {
		return def
	}
	return val
}
