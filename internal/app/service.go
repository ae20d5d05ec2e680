package app

import (
	"context"

	"foodcost/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
//
// Requests are validated before reaching core; failures are returned as
// *core.ValidationError. Engine mutations accept optional Callbacks.
type ApplicationService interface {
	// ── Accounts ─────────────────────────────────────────────────────────────
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*core.Account, error)
	// Login returns core.ErrInvalidCredentials for any failed attempt.
	Login(ctx context.Context, req LoginRequest) (*core.Account, error)

	// ── Catalog ──────────────────────────────────────────────────────────────
	CreateTax(ctx context.Context, req CreateTaxRequest) (*core.Tax, error)
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*core.Category, error)
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*core.Customer, error)
	GetCustomer(ctx context.Context, customerID int) (*core.Customer, error)
	CreateItem(ctx context.Context, req CreateItemRequest) (*core.Item, error)
	GetItem(ctx context.Context, itemID int) (*core.Item, error)
	// ListCatalog returns taxes, categories and active items, optionally
	// narrowed to one category.
	ListCatalog(ctx context.Context, categoryID *int) (*CatalogResult, error)

	// ── Inventory ────────────────────────────────────────────────────────────
	AddStock(ctx context.Context, req AddStockRequest) (*core.InventoryLogEntry, error)
	RemoveStock(ctx context.Context, req RemoveStockRequest) (*core.InventoryLogEntry, error)
	VoidInventoryLog(ctx context.Context, logID int) error
	ListInventoryLogs(ctx context.Context, itemID int, r DateRange) ([]core.InventoryLogEntry, error)
	GetStockLevels(ctx context.Context) (*StockResult, error)
	GetStockLevel(ctx context.Context, itemID int) (*core.StockLevel, error)

	// ── Sale confirmation ────────────────────────────────────────────────────
	ConfirmSaleEntries(ctx context.Context, req ConfirmSaleRequest, cbs ...Callbacks[*core.SaleResult]) (*core.SaleResult, error)
	AddSaleEntriesToSalesOrders(ctx context.Context, req AddSalesOrderRequest, cbs ...Callbacks[*core.SalesOrderGroupResult]) (*core.SalesOrderGroupResult, error)
	ConfirmFulfillingSalesOrders(ctx context.Context, req FulfillSalesOrderRequest, cbs ...Callbacks[*core.SaleResult]) (*core.SaleResult, error)
	VoidInvoice(ctx context.Context, invoiceID int, cbs ...Callbacks[int]) error
	GetInvoice(ctx context.Context, invoiceID int) (*core.InvoiceDetail, error)
	ListInvoices(ctx context.Context, r DateRange, page PageRequest) (*InvoiceListResult, error)
	GetSalesOrderGroup(ctx context.Context, groupID int) (*core.SalesOrderGroupResult, error)

	// ── Spoilage ─────────────────────────────────────────────────────────────
	AddSpoilage(ctx context.Context, req AddSpoilageRequest, cbs ...Callbacks[*core.Spoilage]) (*core.Spoilage, error)
	VoidSpoilage(ctx context.Context, spoilageID int, cbs ...Callbacks[int]) error
	// GetSpoilages returns one page of costed rows plus the total over all
	// matching rows.
	GetSpoilages(ctx context.Context, q SpoilageQuery) (*SpoilageReportResult, error)
	GetSpoilagesTotal(ctx context.Context, q SpoilageQuery) (*core.SpoilageTotal, error)

	// ── Reporting ────────────────────────────────────────────────────────────
	GetSalesSummary(ctx context.Context, r DateRange) (*core.SalesSummary, error)
}
