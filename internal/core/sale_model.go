package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one line of a cart as assembled by the caller.
type CartLine struct {
	ItemID int
	Qty    decimal.Decimal
	// Unit is the unit or size the line is sold in; empty means the item's base unit.
	Unit string
	// UnitSellingPrice overrides the gross price per sold unit. When null the
	// item's price per base unit is scaled to the sold unit.
	UnitSellingPrice decimal.NullDecimal
	// TaxID overrides the item's tax.
	TaxID *int
}

// PaymentLine is one tendered amount. Several lines make a split payment.
type PaymentLine struct {
	Method string
	Amount decimal.Decimal
}

type SaleInput struct {
	SaleDate         time.Time
	SoldByAccountUID string
	CustomerID       *int
	Lines            []CartLine
	Payments         []PaymentLine
}

// SaleResult holds every row written by one confirmation.
type SaleResult struct {
	Invoice       Invoice             `json:"invoice"`
	SaleLogs      []SaleLogEntry      `json:"sale_logs"`
	InventoryLogs []InventoryLogEntry `json:"inventory_logs"`
	Payments      []Payment           `json:"payments"`
}

type SalesOrderInput struct {
	OrderDate           time.Time
	OrderedByAccountUID string
	CustomerID          *int
	Lines               []CartLine
}

type SalesOrderGroupResult struct {
	Group  SalesOrderGroup `json:"group"`
	Orders []SalesOrder    `json:"orders"`
}

// FulfillmentLine is the quantity delivered against one sales order, in the
// order's unit.
type FulfillmentLine struct {
	SalesOrderID int
	Qty          decimal.Decimal
}

type FulfillmentInput struct {
	SaleDate          time.Time
	SalesOrderGroupID int
	SoldByAccountUID  string
	Lines             []FulfillmentLine
	Payments          []PaymentLine
}

// InvoiceDetail is an invoice with all rows that reference it.
type InvoiceDetail struct {
	SaleResult
}

// resolvedLine is a cart line with the item loaded, tax captured and the
// quantity normalized. Nothing has been written yet.
type resolvedLine struct {
	item         *Item
	salesOrderID *int
	qty          decimal.Decimal // as sold, in unit
	unit         string
	baseQty      decimal.Decimal // in the item's base unit
	taxID        *int
	taxRate      decimal.Decimal
	price        TaxSplit // per sold unit
	cost         TaxSplit // per base unit
}

func (l resolvedLine) lineGross() decimal.Decimal { return LineTotal(l.price.Gross, l.qty) }
func (l resolvedLine) lineNet() decimal.Decimal   { return LineTotal(l.price.Net, l.qty) }
func (l resolvedLine) lineTax() decimal.Decimal   { return LineTotal(l.price.Tax, l.qty) }
