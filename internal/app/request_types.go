package app

import (
	"github.com/shopspring/decimal"
)

// Dates are YYYY-MM-DD strings; empty means today for writes and an open
// bound for queries.

// CartLineRequest is one cart line. Unit defaults to the item's base unit.
type CartLineRequest struct {
	ItemID           int              `json:"item_id" validate:"required,gt=0"`
	Qty              decimal.Decimal  `json:"qty" validate:"gt=0"`
	Unit             string           `json:"unit,omitempty" validate:"omitempty,max=16"`
	UnitSellingPrice *decimal.Decimal `json:"unit_selling_price,omitempty" validate:"omitempty,gte=0"`
	TaxID            *int             `json:"tax_id,omitempty" validate:"omitempty,gt=0"`
}

// PaymentRequest is one tendered amount. A single zero amount means exact payment.
type PaymentRequest struct {
	Method string          `json:"method" validate:"required,max=32"`
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

// ConfirmSaleRequest is the input of ConfirmSaleEntries. An empty Lines is a no-op.
type ConfirmSaleRequest struct {
	SaleDate         string            `json:"sale_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	SoldByAccountUID string            `json:"sold_by_account_uid" validate:"max=128"`
	CustomerID       *int              `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	Lines            []CartLineRequest `json:"lines" validate:"dive"`
	Payments         []PaymentRequest  `json:"payments" validate:"dive"`
}

// AddSalesOrderRequest books a sales order group from a cart.
type AddSalesOrderRequest struct {
	OrderDate           string            `json:"order_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	OrderedByAccountUID string            `json:"ordered_by_account_uid" validate:"max=128"`
	CustomerID          *int              `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	Lines               []CartLineRequest `json:"lines" validate:"dive"`
}

// FulfillmentLineRequest is a delivered quantity in the order's unit.
type FulfillmentLineRequest struct {
	SalesOrderID int             `json:"sales_order_id" validate:"required,gt=0"`
	Qty          decimal.Decimal `json:"qty" validate:"gt=0"`
}

// FulfillSalesOrderRequest confirms delivered quantities against a group.
type FulfillSalesOrderRequest struct {
	SaleDate          string                   `json:"sale_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	SalesOrderGroupID int                      `json:"sales_order_group_id" validate:"required,gt=0"`
	SoldByAccountUID  string                   `json:"sold_by_account_uid" validate:"max=128"`
	Lines             []FulfillmentLineRequest `json:"lines" validate:"dive"`
	Payments          []PaymentRequest         `json:"payments" validate:"dive"`
}

type AddSpoilageRequest struct {
	ItemID  int             `json:"item_id" validate:"required,gt=0"`
	Qty     decimal.Decimal `json:"qty" validate:"gt=0"`
	Unit    string          `json:"unit,omitempty" validate:"omitempty,max=16"`
	Date    string          `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Remarks string          `json:"remarks,omitempty" validate:"max=500"`
}

// AddStockRequest records a purchase. UnitCost is gross per base unit.
type AddStockRequest struct {
	ItemID   int             `json:"item_id" validate:"required,gt=0"`
	Qty      decimal.Decimal `json:"qty" validate:"gt=0"`
	Unit     string          `json:"unit,omitempty" validate:"omitempty,max=16"`
	UnitCost decimal.Decimal `json:"unit_cost" validate:"gte=0"`
	TaxID    *int            `json:"tax_id,omitempty" validate:"omitempty,gt=0"`
	Date     string          `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Remarks  string          `json:"remarks,omitempty" validate:"max=500"`
}

type RemoveStockRequest struct {
	ItemID  int             `json:"item_id" validate:"required,gt=0"`
	Qty     decimal.Decimal `json:"qty" validate:"gt=0"`
	Unit    string          `json:"unit,omitempty" validate:"omitempty,max=16"`
	Date    string          `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Remarks string          `json:"remarks,omitempty" validate:"max=500"`
}

// CreateAccountRequest registers a staff account.
type CreateAccountRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=cashier manager"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type CreateTaxRequest struct {
	Name           string          `json:"name" validate:"required,max=100"`
	RatePercentage decimal.Decimal `json:"rate_percentage" validate:"gte=0,lte=100"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone,omitempty" validate:"max=32"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// CreateItemRequest defines a stock item. Prices are gross per base unit
// unless PricesExcludeTax is set, in which case they are grossed up with the
// item's tax rate before storing.
type CreateItemRequest struct {
	Name                   string          `json:"name" validate:"required,max=200"`
	CategoryID             *int            `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	UOMAbbrev              string          `json:"uom_abbrev" validate:"required,max=16"`
	UseMeasurementPerPiece bool            `json:"use_measurement_per_piece"`
	UOMAbbrevPerPiece      string          `json:"uom_abbrev_per_piece,omitempty" validate:"required_if=UseMeasurementPerPiece true,max=16"`
	QtyPerPiece            decimal.Decimal `json:"qty_per_piece" validate:"gte=0"`
	UnitCost               decimal.Decimal `json:"unit_cost" validate:"gte=0"`
	UnitSellingPrice       decimal.Decimal `json:"unit_selling_price" validate:"gte=0"`
	PricesExcludeTax       bool            `json:"prices_exclude_tax"`
	TaxID                  *int            `json:"tax_id,omitempty" validate:"omitempty,gt=0"`
}

// DateRange is an inclusive YYYY-MM-DD range; empty ends are open.
type DateRange struct {
	From string `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// PageRequest limits list queries. A zero Limit means no limit.
type PageRequest struct {
	Limit  int `json:"limit,omitempty" validate:"gte=0,lte=1000"`
	Offset int `json:"offset,omitempty" validate:"gte=0"`
}

// SpoilageQuery selects spoilages by date range and item, category or name.
type SpoilageQuery struct {
	DateRange
	PageRequest
	ItemID     *int   `json:"item_id,omitempty" validate:"omitempty,gt=0"`
	CategoryID *int   `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Search     string `json:"search,omitempty" validate:"max=100"`
}
