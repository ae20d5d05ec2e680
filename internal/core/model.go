package core

import (
	"time"

	"foodcost/internal/uom"

	"github.com/shopspring/decimal"
)

// Operation identifies a row in the fixed inventory_operations taxonomy.
type Operation int

const (
	OperationAddStock    Operation = 1
	OperationRemoveStock Operation = 2
	OperationStockUsage  Operation = 3
)

func (o Operation) String() string {
	switch o {
	case OperationAddStock:
		return "add-stock"
	case OperationRemoveStock:
		return "remove-stock"
	case OperationStockUsage:
		return "stock-usage"
	default:
		return "unknown"
	}
}

// Tax is a named tax rate. Rates are percentages, 12 means 12%.
type Tax struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	RatePercentage decimal.Decimal `json:"rate_percentage"`
	CreatedAt      time.Time       `json:"created_at"`
}

type Category struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Customer struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is a stock-keeping item. UnitCost and UnitSellingPrice are gross
// (tax-inclusive) amounts per base unit.
type Item struct {
	ID                     int                 `json:"id"`
	Name                   string              `json:"name"`
	CategoryID             *int                `json:"category_id,omitempty"`
	UOMAbbrev              string              `json:"uom_abbrev"`
	UseMeasurementPerPiece bool                `json:"use_measurement_per_piece"`
	UOMAbbrevPerPiece      *string             `json:"uom_abbrev_per_piece,omitempty"`
	QtyPerPiece            decimal.NullDecimal `json:"qty_per_piece"`
	UnitCost               decimal.Decimal     `json:"unit_cost"`
	UnitSellingPrice       decimal.Decimal     `json:"unit_selling_price"`
	TaxID                  *int                `json:"tax_id,omitempty"`
	IsActive               bool                `json:"is_active"`
	CreatedAt              time.Time           `json:"created_at"`
}

// Units returns the item's unit configuration for quantity normalization.
func (i Item) Units() uom.ItemUnits {
	u := uom.ItemUnits{BaseAbbrev: i.UOMAbbrev, PerPiece: i.UseMeasurementPerPiece}
	if i.UOMAbbrevPerPiece != nil {
		u.PerPieceAbbrev = *i.UOMAbbrevPerPiece
	}
	if i.QtyPerPiece.Valid {
		u.QtyPerPiece = i.QtyPerPiece.Decimal
	}
	return u
}

// InventoryLogEntry is one append-only row of the inventory ledger.
// AdjustmentQty is always non-negative and expressed in the item's base unit;
// the sign comes from the operation.
type InventoryLogEntry struct {
	ID                          int             `json:"id"`
	OperationID                 Operation       `json:"operation_id"`
	ItemID                      int             `json:"item_id"`
	AdjustmentQty               decimal.Decimal `json:"adjustment_qty"`
	AdjustmentUnitCost          decimal.Decimal `json:"adjustment_unit_cost"`
	AdjustmentUnitCostNet       decimal.Decimal `json:"adjustment_unit_cost_net"`
	AdjustmentUnitCostTax       decimal.Decimal `json:"adjustment_unit_cost_tax"`
	AdjustmentTaxRatePercentage decimal.Decimal `json:"adjustment_tax_rate_percentage"`
	AdjustmentDate              time.Time       `json:"adjustment_date"`
	InvoiceID                   *int            `json:"invoice_id,omitempty"`
	Remarks                     string          `json:"remarks"`
	Voided                      bool            `json:"voided"`
	CreatedAt                   time.Time       `json:"created_at"`
}

// SaleLogEntry is one confirmed cart line. Tax rate and price split are
// captured at sale time.
type SaleLogEntry struct {
	ID                      int             `json:"id"`
	ItemID                  int             `json:"item_id"`
	SalesOrderID            *int            `json:"sales_order_id,omitempty"`
	TaxID                   *int            `json:"tax_id,omitempty"`
	TaxRatePercentage       decimal.Decimal `json:"tax_rate_percentage"`
	SaleUnitSellingPrice    decimal.Decimal `json:"sale_unit_selling_price"`
	SaleUnitSellingPriceNet decimal.Decimal `json:"sale_unit_selling_price_net"`
	SaleUnitSellingPriceTax decimal.Decimal `json:"sale_unit_selling_price_tax"`
	SaleQty                 decimal.Decimal `json:"sale_qty"`
	SaleQtyUOMAbbrev        string          `json:"sale_qty_uom_abbrev"`
	SaleDate                time.Time       `json:"sale_date"`
	InvoiceID               int             `json:"invoice_id"`
	Voided                  bool            `json:"voided"`
	CreatedAt               time.Time       `json:"created_at"`
}

type Invoice struct {
	ID                int             `json:"id"`
	InvoiceNumber     string          `json:"invoice_number"`
	InvoiceDate       time.Time       `json:"invoice_date"`
	SoldByAccountUID  string          `json:"sold_by_account_uid"`
	CustomerID        *int            `json:"customer_id,omitempty"`
	SalesOrderGroupID *int            `json:"sales_order_group_id,omitempty"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	TotalAmountNet    decimal.Decimal `json:"total_amount_net"`
	TotalAmountTax    decimal.Decimal `json:"total_amount_tax"`
	Voided            bool            `json:"voided"`
	CreatedAt         time.Time       `json:"created_at"`
}

type Payment struct {
	ID            int             `json:"id"`
	InvoiceID     int             `json:"invoice_id"`
	PaymentMethod string          `json:"payment_method"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	ChangeAmount  decimal.Decimal `json:"change_amount"`
	Voided        bool            `json:"voided"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SalesOrderGroup is a booked, not yet fulfilled sale.
type SalesOrderGroup struct {
	ID                  int       `json:"id"`
	OrderNumber         string    `json:"order_number"`
	OrderDate           time.Time `json:"order_date"`
	OrderedByAccountUID string    `json:"ordered_by_account_uid"`
	CustomerID          *int      `json:"customer_id,omitempty"`
	Voided              bool      `json:"voided"`
	CreatedAt           time.Time `json:"created_at"`
}

// SalesOrder is one line of a SalesOrderGroup. FulfilledOrderQty only grows.
type SalesOrder struct {
	ID                int             `json:"id"`
	SalesOrderGroupID int             `json:"sales_order_group_id"`
	ItemID            int             `json:"item_id"`
	ItemName          string          `json:"item_name"` // joined from items
	OrderQty          decimal.Decimal `json:"order_qty"`
	OrderQtyUOMAbbrev string          `json:"order_qty_uom_abbrev"`
	FulfilledOrderQty decimal.Decimal `json:"fulfilled_order_qty"`
	UnitSellingPrice  decimal.Decimal `json:"unit_selling_price"`
	TaxID             *int            `json:"tax_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// RemainingQty is OrderQty minus FulfilledOrderQty, floored at zero.
func (o SalesOrder) RemainingQty() decimal.Decimal {
	r := o.OrderQty.Sub(o.FulfilledOrderQty)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

func (o SalesOrder) IsFullyFulfilled() bool {
	return o.FulfilledOrderQty.GreaterThanOrEqual(o.OrderQty)
}

// Spoilage records wasted stock. InSpoilageQtyBasedOnItemUOM is the quantity
// normalized to the item's base unit when the row was created.
type Spoilage struct {
	ID                          int             `json:"id"`
	ItemID                      int             `json:"item_id"`
	InSpoilageQty               decimal.Decimal `json:"in_spoilage_qty"`
	InSpoilageUOMAbbrev         string          `json:"in_spoilage_uom_abbrev"`
	InSpoilageQtyBasedOnItemUOM decimal.Decimal `json:"in_spoilage_qty_based_on_item_uom"`
	InSpoilageDate              time.Time       `json:"in_spoilage_date"`
	Remarks                     string          `json:"remarks"`
	Voided                      bool            `json:"voided"`
	CreatedAt                   time.Time       `json:"created_at"`
}

// DateWindow is an inclusive range of calendar dates. A zero From means
// "since the beginning".
type DateWindow struct {
	From time.Time
	To   time.Time
}

// Paging limits list queries. A zero Limit means no limit.
type Paging struct {
	Limit  int
	Offset int
}
