package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodcost/internal/uom"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StockLevel is a read view derived from the inventory ledger and spoilages.
// Nothing here is stored; every call aggregates the ledger.
type StockLevel struct {
	ItemID         int                 `json:"item_id"`
	ItemName       string              `json:"item_name"`
	UOMAbbrev      string              `json:"uom_abbrev"`
	OnHand         decimal.Decimal     `json:"on_hand"`
	AvgUnitCostNet decimal.NullDecimal `json:"avg_unit_cost_net"` // weighted average over add-stock rows
}

// AddStockInput records a stock purchase. UnitCost is gross per base unit of
// the item; it is split into net and tax using the rate of TaxID.
type AddStockInput struct {
	ItemID   int
	Qty      decimal.Decimal
	Unit     string // empty means the item's base unit
	UnitCost decimal.Decimal
	TaxID    *int
	Date     time.Time
	Remarks  string
}

// RemoveStockInput records a manual stock removal, costed at the item's unit cost.
type RemoveStockInput struct {
	ItemID  int
	Qty     decimal.Decimal
	Unit    string
	Date    time.Time
	Remarks string
}

// InventoryService owns the append-only inventory ledger.
type InventoryService interface {
	AddStock(ctx context.Context, input AddStockInput) (*InventoryLogEntry, error)
	RemoveStock(ctx context.Context, input RemoveStockInput) (*InventoryLogEntry, error)
	// VoidInventoryLog soft-deletes a ledger row. Rows are never hard-deleted.
	// Rows written by a sale can only be voided through their invoice.
	VoidInventoryLog(ctx context.Context, logID int) error
	ListInventoryLogs(ctx context.Context, itemID int, window DateWindow) ([]InventoryLogEntry, error)
	GetStockLevels(ctx context.Context) ([]StockLevel, error)
	GetStockLevel(ctx context.Context, itemID int) (*StockLevel, error)
	// GetAverageUnitCostNet returns the weighted-average net unit cost of the
	// item over every non-voided add-stock row dated on or before asOf.
	GetAverageUnitCostNet(ctx context.Context, itemID int, asOf time.Time) (decimal.NullDecimal, error)
}

type inventoryService struct {
	pool  *pgxpool.Pool
	guard WriteGuard
}

func NewInventoryService(pool *pgxpool.Pool, guard WriteGuard) InventoryService {
	if guard == nil {
		guard = AllowWrites{}
	}
	return &inventoryService{pool: pool, guard: guard}
}

const inventoryLogColumns = `id, operation_id, item_id, adjustment_qty, adjustment_unit_cost, adjustment_unit_cost_net,
	adjustment_unit_cost_tax, adjustment_tax_rate_percentage, adjustment_date, invoice_id, remarks, voided, created_at`

func scanInventoryLog(row pgx.Row, e *InventoryLogEntry) error {
	return row.Scan(&e.ID, &e.OperationID, &e.ItemID, &e.AdjustmentQty, &e.AdjustmentUnitCost,
		&e.AdjustmentUnitCostNet, &e.AdjustmentUnitCostTax, &e.AdjustmentTaxRatePercentage,
		&e.AdjustmentDate, &e.InvoiceID, &e.Remarks, &e.Voided, &e.CreatedAt)
}

// insertInventoryLogTx appends one ledger row within the caller's TX. The
// unit cost fields are written exactly as computed, without rounding.
func insertInventoryLogTx(ctx context.Context, tx pgx.Tx, e *InventoryLogEntry) error {
	return scanInventoryLog(tx.QueryRow(ctx, `
		INSERT INTO inventory_logs (operation_id, item_id, adjustment_qty, adjustment_unit_cost, adjustment_unit_cost_net,
		                            adjustment_unit_cost_tax, adjustment_tax_rate_percentage, adjustment_date, invoice_id, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+inventoryLogColumns,
		int(e.OperationID), e.ItemID, e.AdjustmentQty, e.AdjustmentUnitCost, e.AdjustmentUnitCostNet,
		e.AdjustmentUnitCostTax, e.AdjustmentTaxRatePercentage, e.AdjustmentDate, e.InvoiceID, e.Remarks,
	), e)
}

// averageCostSums returns the cumulative net cost and quantity of the item's
// non-voided add-stock rows up to and including asOf.
func averageCostSums(ctx context.Context, q pgxQuerier, itemID int, asOf time.Time) (costSum, qtySum decimal.Decimal, err error) {
	err = q.QueryRow(ctx, `
		SELECT COALESCE(SUM(adjustment_unit_cost_net * adjustment_qty), 0),
		       COALESCE(SUM(adjustment_qty), 0)
		FROM inventory_logs
		WHERE item_id = $1
		  AND operation_id = $2
		  AND voided = false
		  AND adjustment_date <= $3
	`, itemID, int(OperationAddStock), asOf).Scan(&costSum, &qtySum)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to aggregate add-stock ledger for item %d: %w", itemID, err)
	}
	return costSum, qtySum, nil
}

func (s *inventoryService) AddStock(ctx context.Context, input AddStockInput) (*InventoryLogEntry, error) {
	if err := s.guard.CheckWritable(ctx); err != nil {
		return nil, err
	}
	if !input.Qty.IsPositive() {
		return nil, validationf("qty", "quantity must be positive, got %s", input.Qty)
	}
	if input.UnitCost.IsNegative() {
		return nil, validationf("unit_cost", "unit cost cannot be negative, got %s", input.UnitCost)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	item, err := loadItem(ctx, tx, input.ItemID)
	if err != nil {
		return nil, err
	}
	qty, err := uom.NormalizeToItem(item.Units(), input.Qty, input.Unit)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize quantity for item %d: %w", item.ID, err)
	}
	rate, err := loadTaxRate(ctx, tx, input.TaxID)
	if err != nil {
		return nil, err
	}

	cost := SplitGross(input.UnitCost, rate)
	entry := &InventoryLogEntry{
		OperationID:                 OperationAddStock,
		ItemID:                      item.ID,
		AdjustmentQty:               qty,
		AdjustmentUnitCost:          cost.Gross,
		AdjustmentUnitCostNet:       cost.Net,
		AdjustmentUnitCostTax:       cost.Tax,
		AdjustmentTaxRatePercentage: rate,
		AdjustmentDate:              dateOrToday(input.Date),
		Remarks:                     input.Remarks,
	}
	if err := insertInventoryLogTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert add-stock ledger row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit add stock: %w", err)
	}
	return entry, nil
}

func (s *inventoryService) RemoveStock(ctx context.Context, input RemoveStockInput) (*InventoryLogEntry, error) {
	if err := s.guard.CheckWritable(ctx); err != nil {
		return nil, err
	}
	if !input.Qty.IsPositive() {
		return nil, validationf("qty", "quantity must be positive, got %s", input.Qty)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	item, err := loadItem(ctx, tx, input.ItemID)
	if err != nil {
		return nil, err
	}
	qty, err := uom.NormalizeToItem(item.Units(), input.Qty, input.Unit)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize quantity for item %d: %w", item.ID, err)
	}
	rate, err := loadTaxRate(ctx, tx, item.TaxID)
	if err != nil {
		return nil, err
	}

	cost := SplitGross(item.UnitCost, rate)
	entry := &InventoryLogEntry{
		OperationID:                 OperationRemoveStock,
		ItemID:                      item.ID,
		AdjustmentQty:               qty,
		AdjustmentUnitCost:          cost.Gross,
		AdjustmentUnitCostNet:       cost.Net,
		AdjustmentUnitCostTax:       cost.Tax,
		AdjustmentTaxRatePercentage: rate,
		AdjustmentDate:              dateOrToday(input.Date),
		Remarks:                     input.Remarks,
	}
	if err := insertInventoryLogTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert remove-stock ledger row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit remove stock: %w", err)
	}
	return entry, nil
}

func (s *inventoryService) VoidInventoryLog(ctx context.Context, logID int) error {
	if err := s.guard.CheckWritable(ctx); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var invoiceID *int
	var voided bool
	err = tx.QueryRow(ctx,
		"SELECT invoice_id, voided FROM inventory_logs WHERE id = $1 FOR UPDATE", logID,
	).Scan(&invoiceID, &voided)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFoundf("inventory log %d", logID)
	}
	if err != nil {
		return fmt.Errorf("failed to load inventory log %d: %w", logID, err)
	}
	if voided {
		return notFoundf("inventory log %d", logID)
	}
	// Stock-usage rows move with their invoice's sale logs and payments.
	if invoiceID != nil {
		return validationf("inventory_log_id",
			"inventory log %d belongs to invoice %d; void the invoice instead", logID, *invoiceID)
	}

	if _, err := tx.Exec(ctx, "UPDATE inventory_logs SET voided = true WHERE id = $1", logID); err != nil {
		return fmt.Errorf("failed to void inventory log %d: %w", logID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit inventory log void: %w", err)
	}
	return nil
}

func (s *inventoryService) ListInventoryLogs(ctx context.Context, itemID int, window DateWindow) ([]InventoryLogEntry, error) {
	from, to := window.bounds()
	rows, err := s.pool.Query(ctx, `
		SELECT `+inventoryLogColumns+`
		FROM inventory_logs
		WHERE item_id = $1
		  AND adjustment_date BETWEEN $2 AND $3
		ORDER BY adjustment_date, id
	`, itemID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory logs: %w", err)
	}
	defer rows.Close()

	var entries []InventoryLogEntry
	for rows.Next() {
		var e InventoryLogEntry
		if err := scanInventoryLog(rows, &e); err != nil {
			return nil, fmt.Errorf("failed to scan inventory log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const stockLevelQuery = `
	SELECT i.id, i.name, i.uom_abbrev,
	       COALESCE((SELECT SUM(l.adjustment_qty * o.direction)
	                 FROM inventory_logs l
	                 JOIN inventory_operations o ON o.id = l.operation_id
	                 WHERE l.item_id = i.id AND l.voided = false), 0)
	     - COALESCE((SELECT SUM(sp.in_spoilage_qty_based_on_item_uom)
	                 FROM spoilages sp
	                 WHERE sp.item_id = i.id AND sp.voided = false), 0) AS on_hand,
	       COALESCE((SELECT SUM(l.adjustment_unit_cost_net * l.adjustment_qty)
	                 FROM inventory_logs l
	                 WHERE l.item_id = i.id AND l.operation_id = 1 AND l.voided = false), 0) AS cost_sum,
	       COALESCE((SELECT SUM(l.adjustment_qty)
	                 FROM inventory_logs l
	                 WHERE l.item_id = i.id AND l.operation_id = 1 AND l.voided = false), 0) AS qty_sum
	FROM items i
	WHERE i.is_active = true`

func (s *inventoryService) GetStockLevels(ctx context.Context) ([]StockLevel, error) {
	rows, err := s.pool.Query(ctx, stockLevelQuery+" ORDER BY i.name")
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var sl StockLevel
		var costSum, qtySum decimal.Decimal
		if err := rows.Scan(&sl.ItemID, &sl.ItemName, &sl.UOMAbbrev, &sl.OnHand, &costSum, &qtySum); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		sl.AvgUnitCostNet = WeightedAverage(costSum, qtySum)
		levels = append(levels, sl)
	}
	return levels, rows.Err()
}

func (s *inventoryService) GetStockLevel(ctx context.Context, itemID int) (*StockLevel, error) {
	var sl StockLevel
	var costSum, qtySum decimal.Decimal
	err := s.pool.QueryRow(ctx, stockLevelQuery+" AND i.id = $1", itemID).
		Scan(&sl.ItemID, &sl.ItemName, &sl.UOMAbbrev, &sl.OnHand, &costSum, &qtySum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("item %d", itemID)
		}
		return nil, fmt.Errorf("failed to fetch stock level for item %d: %w", itemID, err)
	}
	sl.AvgUnitCostNet = WeightedAverage(costSum, qtySum)
	return &sl, nil
}

func (s *inventoryService) GetAverageUnitCostNet(ctx context.Context, itemID int, asOf time.Time) (decimal.NullDecimal, error) {
	costSum, qtySum, err := averageCostSums(ctx, s.pool, itemID, asOf)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return WeightedAverage(costSum, qtySum), nil
}

// dateOrToday truncates t to a calendar date, defaulting to today.
func dateOrToday(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var (
	minDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// bounds returns inclusive date bounds, substituting open ends.
func (w DateWindow) bounds() (time.Time, time.Time) {
	from, to := minDate, maxDate
	if !w.From.IsZero() {
		from = dateOrToday(w.From)
	}
	if !w.To.IsZero() {
		to = dateOrToday(w.To)
	}
	return from, to
}
