// Package inventory exposes the stock levels the ledger maintains: current
// quantities, low-stock warnings, manual restocks and usage reporting.
// Restocks go through the same ledger path as POS sync events, so every
// movement lands in one audit trail with one idempotency contract.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/inventory"
	"github.com/restohub/backend/internal/domain/shared"
)

// InventoryService handles stock reads and manual stock movements
type InventoryService struct {
	levels  inventory.StockRepository
	entries inventory.LedgerRepository
	ledger  inventory.Ledger
	logger  *zap.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	levels inventory.StockRepository,
	entries inventory.LedgerRepository,
	ledger inventory.Ledger,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		levels:  levels,
		entries: entries,
		ledger:  ledger,
		logger:  logger,
	}
}

// ListStock returns every tracked product for the tenant
func (s *InventoryService) ListStock(ctx context.Context, tenantID uuid.UUID) ([]StockLevelView, error) {
	levels, err := s.levels.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	views := make([]StockLevelView, len(levels))
	for i, level := range levels {
		views[i] = toStockView(level)
	}
	return views, nil
}

// GetStock returns the level for one product
func (s *InventoryService) GetStock(ctx context.Context, tenantID uuid.UUID, productRef string) (*StockLevelView, error) {
	level, err := s.levels.FindByProduct(ctx, tenantID, productRef)
	if err != nil {
		return nil, err
	}

	view := toStockView(level)
	return &view, nil
}

// Warnings returns the products at or below their reorder level, graded by
// how far below they sit
func (s *InventoryService) Warnings(ctx context.Context, tenantID uuid.UUID) ([]inventory.LowStockWarning, error) {
	levels, err := s.levels.FindBelowReorder(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	warnings := make([]inventory.LowStockWarning, 0, len(levels))
	for _, level := range levels {
		if !level.IsLow() {
			continue
		}
		warnings = append(warnings, inventory.WarningFor(level))
	}
	return warnings, nil
}

// Restock applies a manual receipt as a positive adjustment through the
// ledger. Replaying the same idempotency key changes nothing and returns the
// current level. Name, unit and reorder level ride along so a restock can
// declare product metadata without a separate call.
func (s *InventoryService) Restock(ctx context.Context, tenantID uuid.UUID, req *RestockRequest) (*StockLevelView, error) {
	if !req.Quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
	}

	key := req.IdempotencyKey
	if key == "" {
		key = "restock-" + uuid.New().String()
	}

	mutation := &inventory.Mutation{
		TenantID:       tenantID,
		ProductRef:     req.ProductRef,
		Delta:          req.Quantity,
		IdempotencyKey: key,
		Source:         "manual:restock",
		OccurredAt:     time.Now(),
	}

	err := s.ledger.Apply(ctx, mutation)
	switch {
	case errors.Is(err, inventory.ErrAlreadyApplied):
		s.logger.Debug("restock replayed",
			zap.String("product_ref", req.ProductRef),
			zap.String("idempotency_key", key))
	case err != nil:
		return nil, fmt.Errorf("apply restock: %w", err)
	default:
		s.logger.Info("stock restocked",
			zap.String("tenant_id", tenantID.String()),
			zap.String("product_ref", req.ProductRef),
			zap.String("quantity", req.Quantity.String()))
	}

	level, err := s.levels.FindByProduct(ctx, tenantID, req.ProductRef)
	if err != nil {
		return nil, err
	}

	if updated, uerr := s.applyMetadata(level, req); uerr != nil {
		return nil, uerr
	} else if updated {
		if err := s.levels.Save(ctx, level); err != nil {
			return nil, err
		}
	}

	view := toStockView(level)
	return &view, nil
}

// applyMetadata folds the request's optional product metadata into the level
func (s *InventoryService) applyMetadata(level *inventory.StockLevel, req *RestockRequest) (bool, error) {
	updated := false
	if req.Name != "" && req.Name != level.Name {
		level.Name = req.Name
		updated = true
	}
	if req.Unit != "" && req.Unit != level.Unit {
		level.Unit = req.Unit
		updated = true
	}
	if req.ReorderLevel != nil && !req.ReorderLevel.Equal(level.ReorderLevel) {
		if err := level.SetReorderLevel(*req.ReorderLevel); err != nil {
			return false, err
		}
		updated = true
	}
	return updated, nil
}

// Usage reports ledger movement per product over [from, to) together with
// average daily consumption and a days-until-stockout projection
func (s *InventoryService) Usage(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*UsageReportView, error) {
	if !to.After(from) {
		return nil, shared.NewDomainError("INVALID_RANGE", "Report period must end after it starts")
	}

	rows, err := s.entries.UsageBetween(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}

	days := int64(to.Sub(from).Hours() / 24)
	if days < 1 {
		days = 1
	}

	report := &UsageReportView{
		From: from,
		To:   to,
		Days: days,
		Rows: make([]UsageRowView, len(rows)),
	}
	for i, row := range rows {
		report.Rows[i] = s.projectUsage(ctx, tenantID, row, days)
	}
	return report, nil
}

func (s *InventoryService) projectUsage(ctx context.Context, tenantID uuid.UUID, row inventory.UsageRow, days int64) UsageRowView {
	view := UsageRowView{
		ProductRef: row.ProductRef,
		Consumed:   row.Consumed,
		Received:   row.Received,
		NetChange:  row.NetChange,
	}

	if row.Consumed.IsPositive() {
		view.AvgDailyUsage = row.Consumed.DivRound(decimal.NewFromInt(days), 4)
	}
	if !view.AvgDailyUsage.IsPositive() {
		return view
	}

	level, err := s.levels.FindByProduct(ctx, tenantID, row.ProductRef)
	if err != nil {
		// usage rows can outlive their stock row; the projection is all
		// that goes missing
		s.logger.Debug("no stock level for usage row",
			zap.String("product_ref", row.ProductRef), zap.Error(err))
		return view
	}

	projected := int64(0)
	if level.CurrentQty.IsPositive() {
		projected = level.CurrentQty.DivRound(view.AvgDailyUsage, 4).IntPart()
	}
	view.DaysUntilStockout = &projected
	return view
}
