package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodcost/internal/uom"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// salesLockName is the Locker key shared by every sale-confirmation entry point.
const salesLockName = "foodcost:sales-confirmation"

// SaleService is the sale confirmation engine. Every mutating method:
//   - returns (nil, nil) for an empty cart,
//   - asks the WriteGuard first and returns an error wrapping ErrLimitReached
//     before any write when writes are disabled,
//   - holds the Locker for its whole duration,
//   - writes all of its rows in one database transaction.
type SaleService interface {
	// ConfirmSaleEntries books a finalized sale: one invoice, one sale log and
	// one stock-usage inventory log per cart line, and the payment rows.
	ConfirmSaleEntries(ctx context.Context, input SaleInput) (*SaleResult, error)
	// AddSaleEntriesToSalesOrders books intent only: one sales order group and
	// one sales order per line with nothing fulfilled.
	AddSaleEntriesToSalesOrders(ctx context.Context, input SalesOrderInput) (*SalesOrderGroupResult, error)
	// ConfirmFulfillingSalesOrders confirms delivered quantities against an
	// existing group. It writes the same rows as ConfirmSaleEntries and adds
	// each delivered quantity to the order's fulfilled_order_qty.
	ConfirmFulfillingSalesOrders(ctx context.Context, input FulfillmentInput) (*SaleResult, error)

	// VoidInvoice soft-voids an invoice and every row referencing it.
	// Invoices created by fulfillment cannot be voided since fulfilled
	// quantities never decrease.
	VoidInvoice(ctx context.Context, invoiceID int) error

	GetInvoice(ctx context.Context, invoiceID int) (*InvoiceDetail, error)
	ListInvoices(ctx context.Context, window DateWindow, paging Paging) ([]Invoice, error)
	GetSalesOrderGroup(ctx context.Context, groupID int) (*SalesOrderGroupResult, error)
}

type saleService struct {
	pool   *pgxpool.Pool
	guard  WriteGuard
	locker Locker
	log    logrus.FieldLogger
}

// NewSaleService wires the engine. A nil guard allows all writes; a nil
// locker falls back to an in-process LocalLocker.
func NewSaleService(pool *pgxpool.Pool, guard WriteGuard, locker Locker, log logrus.FieldLogger) SaleService {
	if guard == nil {
		guard = AllowWrites{}
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &saleService{pool: pool, guard: guard, locker: locker, log: log.WithField("module", "sales")}
}

// ── Entry points ─────────────────────────────────────────────────────────────

func (s *saleService) ConfirmSaleEntries(ctx context.Context, input SaleInput) (*SaleResult, error) {
	if len(input.Lines) == 0 {
		return nil, nil
	}
	if err := validateCart(input.Lines); err != nil {
		return nil, err
	}
	if err := s.guard.CheckWritable(ctx); err != nil {
		return nil, err
	}

	ctx, unlock, err := s.locker.Lock(ctx, salesLockName)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sales lock: %w", err)
	}
	defer unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, s.fail(ctx, "ConfirmSaleEntries", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := checkCustomer(ctx, tx, input.CustomerID); err != nil {
		return nil, err
	}

	lines := make([]resolvedLine, 0, len(input.Lines))
	for i, cl := range input.Lines {
		rl, err := resolveCartLine(ctx, tx, cl)
		if err != nil {
			return nil, s.fail(ctx, "ConfirmSaleEntries", fmt.Errorf("line %d: %w", i+1, err))
		}
		lines = append(lines, rl)
	}

	result, err := s.writeSaleTx(ctx, tx, invoiceHeader{
		date:             dateOrToday(input.SaleDate),
		soldByAccountUID: input.SoldByAccountUID,
		customerID:       input.CustomerID,
	}, lines, input.Payments)
	if err != nil {
		return nil, s.fail(ctx, "ConfirmSaleEntries", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, s.fail(ctx, "ConfirmSaleEntries", fmt.Errorf("failed to commit sale: %w", err))
	}

	s.log.WithFields(logrus.Fields{
		"invoice_id":     result.Invoice.ID,
		"invoice_number": result.Invoice.InvoiceNumber,
		"lines":          len(lines),
	}).Info("sale confirmed")
	return result, nil
}

func (s *saleService) AddSaleEntriesToSalesOrders(ctx context.Context, input SalesOrderInput) (*SalesOrderGroupResult, error) {
	if len(input.Lines) == 0 {
		return nil, nil
	}
	if err := validateCart(input.Lines); err != nil {
		return nil, err
	}
	if err := s.guard.CheckWritable(ctx); err != nil {
		return nil, err
	}

	ctx, unlock, err := s.locker.Lock(ctx, salesLockName)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sales lock: %w", err)
	}
	defer unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, s.fail(ctx, "AddSaleEntriesToSalesOrders", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := checkCustomer(ctx, tx, input.CustomerID); err != nil {
		return nil, err
	}

	// Resolving normalizes quantities, so an unconvertible unit is rejected
	// when the order is booked rather than at fulfillment.
	lines := make([]resolvedLine, 0, len(input.Lines))
	for i, cl := range input.Lines {
		rl, err := resolveCartLine(ctx, tx, cl)
		if err != nil {
			return nil, s.fail(ctx, "AddSaleEntriesToSalesOrders", fmt.Errorf("line %d: %w", i+1, err))
		}
		lines = append(lines, rl)
	}

	orderNumber, err := nextDocumentNumberTx(ctx, tx, DocTypeSalesOrder)
	if err != nil {
		return nil, s.fail(ctx, "AddSaleEntriesToSalesOrders", err)
	}

	var result SalesOrderGroupResult
	g := &result.Group
	err = tx.QueryRow(ctx, `
		INSERT INTO sales_order_groups (order_number, order_date, ordered_by_account_uid, customer_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, order_number, order_date, ordered_by_account_uid, customer_id, voided, created_at
	`, orderNumber, dateOrToday(input.OrderDate), input.OrderedByAccountUID, input.CustomerID).Scan(
		&g.ID, &g.OrderNumber, &g.OrderDate, &g.OrderedByAccountUID, &g.CustomerID, &g.Voided, &g.CreatedAt,
	)
	if err != nil {
		return nil, s.fail(ctx, "AddSaleEntriesToSalesOrders", fmt.Errorf("failed to insert sales order group: %w", err))
	}

	for i, rl := range lines {
		o := SalesOrder{ItemName: rl.item.Name}
		err = tx.QueryRow(ctx, `
			INSERT INTO sales_orders (sales_order_group_id, item_id, order_qty, order_qty_uom_abbrev,
			                          fulfilled_order_qty, unit_selling_price, tax_id)
			VALUES ($1, $2, $3, $4, 0, $5, $6)
			RETURNING id, sales_order_group_id, item_id, order_qty, order_qty_uom_abbrev,
			          fulfilled_order_qty, unit_selling_price, tax_id, created_at
		`, g.ID, rl.item.ID, rl.qty, rl.unit, rl.price.Gross, rl.taxID).Scan(
			&o.ID, &o.SalesOrderGroupID, &o.ItemID, &o.OrderQty, &o.OrderQtyUOMAbbrev,
			&o.FulfilledOrderQty, &o.UnitSellingPrice, &o.TaxID, &o.CreatedAt,
		)
		if err != nil {
			return nil, s.fail(ctx, "AddSaleEntriesToSalesOrders", fmt.Errorf("failed to insert sales order line %d: %w", i+1, err))
		}
		result.Orders = append(result.Orders, o)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, s.fail(ctx, "AddSaleEntriesToSalesOrders", fmt.Errorf("failed to commit sales order: %w", err))
	}

	s.log.WithFields(logrus.Fields{
		"sales_order_group_id": g.ID,
		"order_number":         g.OrderNumber,
		"lines":                len(result.Orders),
	}).Info("sales order booked")
	return &result, nil
}

func (s *saleService) ConfirmFulfillingSalesOrders(ctx context.Context, input FulfillmentInput) (*SaleResult, error) {
	if len(input.Lines) == 0 {
		return nil, nil
	}
	for i, fl := range input.Lines {
		if fl.SalesOrderID <= 0 {
			return nil, validationf("lines", "line %d: sales order id is required", i+1)
		}
		if !fl.Qty.IsPositive() {
			return nil, validationf("lines", "line %d: fulfilled quantity must be positive, got %s", i+1, fl.Qty)
		}
	}
	if err := s.guard.CheckWritable(ctx); err != nil {
		return nil, err
	}

	ctx, unlock, err := s.locker.Lock(ctx, salesLockName)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sales lock: %w", err)
	}
	defer unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, s.fail(ctx, "ConfirmFulfillingSalesOrders", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	// Lock the group and its orders so fulfilled quantities are read and
	// incremented without interleaving.
	var customerID *int
	var voided bool
	err = tx.QueryRow(ctx,
		"SELECT customer_id, voided FROM sales_order_groups WHERE id = $1 FOR UPDATE",
		input.SalesOrderGroupID,
	).Scan(&customerID, &voided)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("sales order group %d", input.SalesOrderGroupID)
		}
		return nil, s.fail(ctx, "ConfirmFulfillingSalesOrders", fmt.Errorf("failed to lock sales order group %d: %w", input.SalesOrderGroupID, err))
	}
	if voided {
		return nil, validationf("sales_order_group_id", "sales order group %d is voided", input.SalesOrderGroupID)
	}

	orders, err := loadSalesOrdersTx(ctx, tx, input.SalesOrderGroupID, true)
	if err != nil {
		return nil, s.fail(ctx, "ConfirmFulfillingSalesOrders", err)
	}
	byID := make(map[int]SalesOrder, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}

	pending := make(map[int]decimal.Decimal)
	lines := make([]resolvedLine, 0, len(input.Lines))
	for i, fl := range input.Lines {
		order, ok := byID[fl.SalesOrderID]
		if !ok {
			return nil, validationf("lines", "line %d: sales order %d does not belong to group %d",
				i+1, fl.SalesOrderID, input.SalesOrderGroupID)
		}

		pending[order.ID] = pending[order.ID].Add(fl.Qty)
		if after := order.FulfilledOrderQty.Add(pending[order.ID]); after.GreaterThan(order.OrderQty) {
			s.log.WithFields(logrus.Fields{
				"sales_order_id": order.ID,
				"order_qty":      order.OrderQty.String(),
				"fulfilled_qty":  after.String(),
			}).Warn("sales order over-fulfilled")
		}

		orderID := order.ID
		rl, err := resolveCartLine(ctx, tx, CartLine{
			ItemID:           order.ItemID,
			Qty:              fl.Qty,
			Unit:             order.OrderQtyUOMAbbrev,
			UnitSellingPrice: decimal.NewNullDecimal(order.UnitSellingPrice),
			TaxID:            order.TaxID,
		})
		if err != nil {
			return nil, s.fail(ctx, "ConfirmFulfillingSalesOrders", fmt.Errorf("line %d: %w", i+1, err))
		}
		if order.TaxID == nil {
			// The order was booked without tax; do not fall back to the item's current tax.
			rl.taxID, rl.taxRate = nil, decimal.Zero
			rl.price = SplitGross(order.UnitSellingPrice, decimal.Zero)
		}
		rl.salesOrderID = &orderID
		lines = append(lines, rl)
	}

	groupID := input.SalesOrderGroupID
	result, err := s.writeSaleTx(ctx, tx, invoiceHeader{
		date:              dateOrToday(input.SaleDate),
		soldByAccountUID:  input.SoldByAccountUID,
		customerID:        customerID,
		salesOrderGroupID: &groupID,
	}, lines, input.Payments)
	if err != nil {
		return nil, s.fail(ctx, "ConfirmFulfillingSalesOrders", err)
	}

	for _, fl := range input.Lines {
		if _, err := tx.Exec(ctx, `
			UPDATE sales_orders
			SET fulfilled_order_qty = fulfilled_order_qty + $1
			WHERE id = $2
		`, fl.Qty, fl.SalesOrderID); err != nil {
			return nil, s.fail(ctx, "ConfirmFulfillingSalesOrders", fmt.Errorf("failed to update fulfilled qty of sales order %d: %w", fl.SalesOrderID, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, s.fail(ctx, "ConfirmFulfillingSalesOrders", fmt.Errorf("failed to commit fulfillment: %w", err))
	}

	s.log.WithFields(logrus.Fields{
		"invoice_id":           result.Invoice.ID,
		"sales_order_group_id": groupID,
		"lines":                len(lines),
	}).Info("sales orders fulfilled")
	return result, nil
}

func (s *saleService) VoidInvoice(ctx context.Context, invoiceID int) error {
	if err := s.guard.CheckWritable(ctx); err != nil {
		return err
	}

	ctx, unlock, err := s.locker.Lock(ctx, salesLockName)
	if err != nil {
		return fmt.Errorf("failed to acquire sales lock: %w", err)
	}
	defer unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return s.fail(ctx, "VoidInvoice", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	var voided bool
	var groupID *int
	err = tx.QueryRow(ctx,
		"SELECT voided, sales_order_group_id FROM invoices WHERE id = $1 FOR UPDATE", invoiceID,
	).Scan(&voided, &groupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFoundf("invoice %d", invoiceID)
		}
		return s.fail(ctx, "VoidInvoice", fmt.Errorf("failed to lock invoice %d: %w", invoiceID, err))
	}
	if voided {
		return validationf("invoice_id", "invoice %d is already voided", invoiceID)
	}
	if groupID != nil {
		return validationf("invoice_id", "invoice %d fulfills sales order group %d and cannot be voided", invoiceID, *groupID)
	}

	for _, stmt := range []string{
		"UPDATE invoices SET voided = true WHERE id = $1",
		"UPDATE sale_logs SET voided = true WHERE invoice_id = $1",
		"UPDATE inventory_logs SET voided = true WHERE invoice_id = $1",
		"UPDATE payments SET voided = true WHERE invoice_id = $1",
	} {
		if _, err := tx.Exec(ctx, stmt, invoiceID); err != nil {
			return s.fail(ctx, "VoidInvoice", fmt.Errorf("failed to void invoice %d: %w", invoiceID, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return s.fail(ctx, "VoidInvoice", fmt.Errorf("failed to commit void of invoice %d: %w", invoiceID, err))
	}
	s.log.WithField("invoice_id", invoiceID).Info("invoice voided")
	return nil
}

// ── Shared write path ────────────────────────────────────────────────────────

type invoiceHeader struct {
	date              time.Time
	soldByAccountUID  string
	customerID        *int
	salesOrderGroupID *int
}

// writeSaleTx writes the invoice, sale logs, stock-usage logs and payments for
// already-resolved lines inside the caller's TX.
func (s *saleService) writeSaleTx(ctx context.Context, tx pgx.Tx, h invoiceHeader, lines []resolvedLine, tendered []PaymentLine) (*SaleResult, error) {
	total, totalNet, totalTax := decimal.Zero, decimal.Zero, decimal.Zero
	for _, rl := range lines {
		total = total.Add(rl.lineGross())
		totalNet = totalNet.Add(rl.lineNet())
		totalTax = totalTax.Add(rl.lineTax())
	}

	payments, err := AllocatePayments(total, tendered)
	if err != nil {
		return nil, err
	}

	number, err := nextDocumentNumberTx(ctx, tx, DocTypeInvoice)
	if err != nil {
		return nil, err
	}

	var result SaleResult
	inv := &result.Invoice
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (invoice_number, invoice_date, sold_by_account_uid, customer_id, sales_order_group_id,
		                      total_amount, total_amount_net, total_amount_tax)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+invoiceColumns,
		number, h.date, h.soldByAccountUID, h.customerID, h.salesOrderGroupID, total, totalNet, totalTax,
	).Scan(invoiceScanDest(inv)...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert invoice: %w", err)
	}

	for i, rl := range lines {
		sl := SaleLogEntry{}
		err = tx.QueryRow(ctx, `
			INSERT INTO sale_logs (item_id, sales_order_id, tax_id, tax_rate_percentage, sale_unit_selling_price,
			                       sale_unit_selling_price_net, sale_unit_selling_price_tax, sale_qty,
			                       sale_qty_uom_abbrev, sale_date, invoice_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING `+saleLogColumns,
			rl.item.ID, rl.salesOrderID, rl.taxID, rl.taxRate, rl.price.Gross, rl.price.Net, rl.price.Tax,
			rl.qty, rl.unit, inv.InvoiceDate, inv.ID,
		).Scan(saleLogScanDest(&sl)...)
		if err != nil {
			return nil, fmt.Errorf("failed to insert sale log for line %d: %w", i+1, err)
		}
		result.SaleLogs = append(result.SaleLogs, sl)

		invoiceID := inv.ID
		il := InventoryLogEntry{
			OperationID:                 OperationStockUsage,
			ItemID:                      rl.item.ID,
			AdjustmentQty:               rl.baseQty,
			AdjustmentUnitCost:          rl.cost.Gross,
			AdjustmentUnitCostNet:       rl.cost.Net,
			AdjustmentUnitCostTax:       rl.cost.Tax,
			AdjustmentTaxRatePercentage: rl.taxRate,
			AdjustmentDate:              inv.InvoiceDate,
			InvoiceID:                   &invoiceID,
			Remarks:                     "sale " + inv.InvoiceNumber,
		}
		if err := insertInventoryLogTx(ctx, tx, &il); err != nil {
			return nil, fmt.Errorf("failed to insert stock-usage log for line %d: %w", i+1, err)
		}
		result.InventoryLogs = append(result.InventoryLogs, il)
	}

	for i := range payments {
		p := &payments[i]
		err = tx.QueryRow(ctx, `
			INSERT INTO payments (invoice_id, payment_method, payment_amount, change_amount)
			VALUES ($1, $2, $3, $4)
			RETURNING id, invoice_id, payment_method, payment_amount, change_amount, voided, created_at
		`, inv.ID, p.PaymentMethod, p.PaymentAmount, p.ChangeAmount).Scan(
			&p.ID, &p.InvoiceID, &p.PaymentMethod, &p.PaymentAmount, &p.ChangeAmount, &p.Voided, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert payment %d: %w", i+1, err)
		}
	}
	result.Payments = payments

	return &result, nil
}

// ── Line resolution ──────────────────────────────────────────────────────────

func validateCart(lines []CartLine) error {
	for i, cl := range lines {
		if cl.ItemID <= 0 {
			return validationf("lines", "line %d: item id is required", i+1)
		}
		if !cl.Qty.IsPositive() {
			return validationf("lines", "line %d: quantity must be positive, got %s", i+1, cl.Qty)
		}
		if cl.UnitSellingPrice.Valid && cl.UnitSellingPrice.Decimal.IsNegative() {
			return validationf("lines", "line %d: unit selling price cannot be negative", i+1)
		}
	}
	return nil
}

// resolveCartLine loads the item and tax through q and normalizes the quantity.
// Unit conversion errors are returned as is so callers can match
// ErrUnitConversion.
func resolveCartLine(ctx context.Context, q pgxQuerier, cl CartLine) (resolvedLine, error) {
	item, err := loadItem(ctx, q, cl.ItemID)
	if err != nil {
		return resolvedLine{}, err
	}

	unit := strings.TrimSpace(cl.Unit)
	if unit == "" {
		unit = item.UOMAbbrev
	}
	baseQty, err := uom.NormalizeToItem(item.Units(), cl.Qty, unit)
	if err != nil {
		return resolvedLine{}, fmt.Errorf("item %d (%s): %w", item.ID, item.Name, err)
	}

	taxID := cl.TaxID
	if taxID == nil {
		taxID = item.TaxID
	}
	rate, err := loadTaxRate(ctx, q, taxID)
	if err != nil {
		return resolvedLine{}, err
	}

	// Price per sold unit; the item price is per base unit.
	grossPrice := item.UnitSellingPrice.Mul(baseQty).Div(cl.Qty)
	if cl.UnitSellingPrice.Valid {
		grossPrice = cl.UnitSellingPrice.Decimal
	}

	return resolvedLine{
		item:    item,
		qty:     cl.Qty,
		unit:    unit,
		baseQty: baseQty,
		taxID:   taxID,
		taxRate: rate,
		price:   SplitGross(grossPrice, rate),
		cost:    SplitGross(item.UnitCost, rate),
	}, nil
}

func checkCustomer(ctx context.Context, q pgxQuerier, customerID *int) error {
	if customerID == nil {
		return nil
	}
	var id int
	if err := q.QueryRow(ctx, "SELECT id FROM customers WHERE id = $1", *customerID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return validationf("customer_id", "customer %d not found", *customerID)
		}
		return fmt.Errorf("failed to resolve customer %d: %w", *customerID, err)
	}
	return nil
}

// fail logs unexpected storage errors. Validation, conversion, not-found and
// limit errors are expected outcomes and pass through unlogged. A transaction
// cut short by a lost sales lock reports ErrLockLost.
func (s *saleService) fail(ctx context.Context, funcName string, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrLockLost) && !errors.Is(err, ErrLockLost) {
		err = fmt.Errorf("%w: %w", cause, err)
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrUnitConversion) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrLimitReached) {
		return err
	}
	s.log.WithField("func", funcName).WithError(err).Error("sale transaction failed")
	return err
}

// ── Queries ──────────────────────────────────────────────────────────────────

const invoiceColumns = `id, invoice_number, invoice_date, sold_by_account_uid, customer_id, sales_order_group_id,
	total_amount, total_amount_net, total_amount_tax, voided, created_at`

func invoiceScanDest(inv *Invoice) []any {
	return []any{&inv.ID, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.SoldByAccountUID, &inv.CustomerID,
		&inv.SalesOrderGroupID, &inv.TotalAmount, &inv.TotalAmountNet, &inv.TotalAmountTax, &inv.Voided, &inv.CreatedAt}
}

const saleLogColumns = `id, item_id, sales_order_id, tax_id, tax_rate_percentage, sale_unit_selling_price,
	sale_unit_selling_price_net, sale_unit_selling_price_tax, sale_qty, sale_qty_uom_abbrev, sale_date,
	invoice_id, voided, created_at`

func saleLogScanDest(sl *SaleLogEntry) []any {
	return []any{&sl.ID, &sl.ItemID, &sl.SalesOrderID, &sl.TaxID, &sl.TaxRatePercentage, &sl.SaleUnitSellingPrice,
		&sl.SaleUnitSellingPriceNet, &sl.SaleUnitSellingPriceTax, &sl.SaleQty, &sl.SaleQtyUOMAbbrev, &sl.SaleDate,
		&sl.InvoiceID, &sl.Voided, &sl.CreatedAt}
}

func (s *saleService) GetInvoice(ctx context.Context, invoiceID int) (*InvoiceDetail, error) {
	var d InvoiceDetail
	err := s.pool.QueryRow(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = $1", invoiceID).
		Scan(invoiceScanDest(&d.Invoice)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("invoice %d", invoiceID)
		}
		return nil, fmt.Errorf("failed to fetch invoice %d: %w", invoiceID, err)
	}

	rows, err := s.pool.Query(ctx, "SELECT "+saleLogColumns+" FROM sale_logs WHERE invoice_id = $1 ORDER BY id", invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale logs for invoice %d: %w", invoiceID, err)
	}
	for rows.Next() {
		var sl SaleLogEntry
		if err := rows.Scan(saleLogScanDest(&sl)...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sale log: %w", err)
		}
		d.SaleLogs = append(d.SaleLogs, sl)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale logs: %w", err)
	}

	rows, err = s.pool.Query(ctx, "SELECT "+inventoryLogColumns+" FROM inventory_logs WHERE invoice_id = $1 ORDER BY id", invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory logs for invoice %d: %w", invoiceID, err)
	}
	for rows.Next() {
		var il InventoryLogEntry
		if err := scanInventoryLog(rows, &il); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan inventory log: %w", err)
		}
		d.InventoryLogs = append(d.InventoryLogs, il)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory logs: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id, invoice_id, payment_method, payment_amount, change_amount, voided, created_at
		FROM payments WHERE invoice_id = $1 ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments for invoice %d: %w", invoiceID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.PaymentMethod, &p.PaymentAmount, &p.ChangeAmount, &p.Voided, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		d.Payments = append(d.Payments, p)
	}
	return &d, rows.Err()
}

func (s *saleService) ListInvoices(ctx context.Context, window DateWindow, paging Paging) ([]Invoice, error) {
	from, to := window.bounds()
	rows, err := s.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE invoice_date BETWEEN $1 AND $2
		ORDER BY invoice_date DESC, id DESC
		LIMIT $3 OFFSET $4
	`, from, to, paging.limitArg(), paging.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(invoiceScanDest(&inv)...); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (s *saleService) GetSalesOrderGroup(ctx context.Context, groupID int) (*SalesOrderGroupResult, error) {
	var result SalesOrderGroupResult
	g := &result.Group
	err := s.pool.QueryRow(ctx, `
		SELECT id, order_number, order_date, ordered_by_account_uid, customer_id, voided, created_at
		FROM sales_order_groups WHERE id = $1
	`, groupID).Scan(&g.ID, &g.OrderNumber, &g.OrderDate, &g.OrderedByAccountUID, &g.CustomerID, &g.Voided, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("sales order group %d", groupID)
		}
		return nil, fmt.Errorf("failed to fetch sales order group %d: %w", groupID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result.Orders, err = loadSalesOrdersTx(ctx, tx, groupID, false)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// loadSalesOrdersTx reads the orders of a group, locking them when forUpdate is set.
func loadSalesOrdersTx(ctx context.Context, tx pgx.Tx, groupID int, forUpdate bool) ([]SalesOrder, error) {
	query := `
		SELECT so.id, so.sales_order_group_id, so.item_id, i.name, so.order_qty, so.order_qty_uom_abbrev,
		       so.fulfilled_order_qty, so.unit_selling_price, so.tax_id, so.created_at
		FROM sales_orders so
		JOIN items i ON i.id = so.item_id
		WHERE so.sales_order_group_id = $1
		ORDER BY so.id`
	if forUpdate {
		query += " FOR UPDATE OF so"
	}

	rows, err := tx.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales orders for group %d: %w", groupID, err)
	}
	defer rows.Close()

	var orders []SalesOrder
	for rows.Next() {
		var o SalesOrder
		if err := rows.Scan(&o.ID, &o.SalesOrderGroupID, &o.ItemID, &o.ItemName, &o.OrderQty, &o.OrderQtyUOMAbbrev,
			&o.FulfilledOrderQty, &o.UnitSellingPrice, &o.TaxID, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sales order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// limitArg maps a zero Limit to NULL, which Postgres treats as LIMIT ALL.
func (p Paging) limitArg() *int {
	if p.Limit <= 0 {
		return nil
	}
	l := p.Limit
	return &l
}
