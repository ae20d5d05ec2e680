package app

import (
	"context"

	"foodcost/internal/core"

	"github.com/shopspring/decimal"
)

type appService struct {
	accounts  core.AccountService
	catalog   core.CatalogService
	inventory core.InventoryService
	sales     core.SaleService
	spoilage  core.SpoilageService
	reporting core.ReportingService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	accounts core.AccountService,
	catalog core.CatalogService,
	inventory core.InventoryService,
	sales core.SaleService,
	spoilage core.SpoilageService,
	reporting core.ReportingService,
) ApplicationService {
	return &appService{
		accounts:  accounts,
		catalog:   catalog,
		inventory: inventory,
		sales:     sales,
		spoilage:  spoilage,
		reporting: reporting,
	}
}

// ── Accounts ─────────────────────────────────────────────────────────────────

func (s *appService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*core.Account, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.accounts.CreateAccount(ctx, req.Username, req.Password, req.Role)
}

func (s *appService) Login(ctx context.Context, req LoginRequest) (*core.Account, error) {
	if err := validateRequest(req); err != nil {
		return nil, core.ErrInvalidCredentials
	}
	return s.accounts.Authenticate(ctx, req.Username, req.Password)
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (s *appService) CreateTax(ctx context.Context, req CreateTaxRequest) (*core.Tax, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.catalog.CreateTax(ctx, req.Name, req.RatePercentage)
}

func (s *appService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*core.Category, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.catalog.CreateCategory(ctx, req.Name)
}

func (s *appService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*core.Customer, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.catalog.CreateCustomer(ctx, req.Name, req.Phone, req.Email)
}

func (s *appService) GetCustomer(ctx context.Context, customerID int) (*core.Customer, error) {
	return s.catalog.GetCustomer(ctx, customerID)
}

// CreateItem grosses up tax-exclusive prices with the item's tax rate so
// items always store gross prices.
func (s *appService) CreateItem(ctx context.Context, req CreateItemRequest) (*core.Item, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	cost, price := req.UnitCost, req.UnitSellingPrice
	if req.PricesExcludeTax && req.TaxID != nil {
		tax, err := s.catalog.GetTax(ctx, *req.TaxID)
		if err != nil {
			return nil, err
		}
		cost = core.GrossFromNet(cost, tax.RatePercentage)
		price = core.GrossFromNet(price, tax.RatePercentage)
	}

	return s.catalog.CreateItem(ctx, core.ItemInput{
		Name:                   req.Name,
		CategoryID:             req.CategoryID,
		UOMAbbrev:              req.UOMAbbrev,
		UseMeasurementPerPiece: req.UseMeasurementPerPiece,
		UOMAbbrevPerPiece:      req.UOMAbbrevPerPiece,
		QtyPerPiece:            req.QtyPerPiece,
		UnitCost:               cost,
		UnitSellingPrice:       price,
		TaxID:                  req.TaxID,
	})
}

func (s *appService) GetItem(ctx context.Context, itemID int) (*core.Item, error) {
	return s.catalog.GetItem(ctx, itemID)
}

func (s *appService) ListCatalog(ctx context.Context, categoryID *int) (*CatalogResult, error) {
	taxes, err := s.catalog.ListTaxes(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.catalog.ListItems(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return &CatalogResult{Taxes: taxes, Categories: categories, Items: items}, nil
}

// ── Inventory ────────────────────────────────────────────────────────────────

func (s *appService) AddStock(ctx context.Context, req AddStockRequest) (*core.InventoryLogEntry, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.inventory.AddStock(ctx, core.AddStockInput{
		ItemID:   req.ItemID,
		Qty:      req.Qty,
		Unit:     req.Unit,
		UnitCost: req.UnitCost,
		TaxID:    req.TaxID,
		Date:     parseDate(req.Date),
		Remarks:  req.Remarks,
	})
}

func (s *appService) RemoveStock(ctx context.Context, req RemoveStockRequest) (*core.InventoryLogEntry, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.inventory.RemoveStock(ctx, core.RemoveStockInput{
		ItemID:  req.ItemID,
		Qty:     req.Qty,
		Unit:    req.Unit,
		Date:    parseDate(req.Date),
		Remarks: req.Remarks,
	})
}

func (s *appService) VoidInventoryLog(ctx context.Context, logID int) error {
	return s.inventory.VoidInventoryLog(ctx, logID)
}

func (s *appService) ListInventoryLogs(ctx context.Context, itemID int, r DateRange) ([]core.InventoryLogEntry, error) {
	if err := validateRequest(r); err != nil {
		return nil, err
	}
	return s.inventory.ListInventoryLogs(ctx, itemID, r.window())
}

func (s *appService) GetStockLevels(ctx context.Context) (*StockResult, error) {
	levels, err := s.inventory.GetStockLevels(ctx)
	if err != nil {
		return nil, err
	}
	return &StockResult{Levels: levels}, nil
}

func (s *appService) GetStockLevel(ctx context.Context, itemID int) (*core.StockLevel, error) {
	return s.inventory.GetStockLevel(ctx, itemID)
}

// ── Sale confirmation ────────────────────────────────────────────────────────

func (s *appService) ConfirmSaleEntries(ctx context.Context, req ConfirmSaleRequest, cbs ...Callbacks[*core.SaleResult]) (*core.SaleResult, error) {
	if err := validateRequest(req); err != nil {
		return settle[*core.SaleResult](nil, err, cbs)
	}
	result, err := s.sales.ConfirmSaleEntries(ctx, core.SaleInput{
		SaleDate:         parseDate(req.SaleDate),
		SoldByAccountUID: req.SoldByAccountUID,
		CustomerID:       req.CustomerID,
		Lines:            cartLines(req.Lines),
		Payments:         paymentLines(req.Payments),
	})
	return settle(result, err, cbs)
}

func (s *appService) AddSaleEntriesToSalesOrders(ctx context.Context, req AddSalesOrderRequest, cbs ...Callbacks[*core.SalesOrderGroupResult]) (*core.SalesOrderGroupResult, error) {
	if err := validateRequest(req); err != nil {
		return settle[*core.SalesOrderGroupResult](nil, err, cbs)
	}
	result, err := s.sales.AddSaleEntriesToSalesOrders(ctx, core.SalesOrderInput{
		OrderDate:           parseDate(req.OrderDate),
		OrderedByAccountUID: req.OrderedByAccountUID,
		CustomerID:          req.CustomerID,
		Lines:               cartLines(req.Lines),
	})
	return settle(result, err, cbs)
}

func (s *appService) ConfirmFulfillingSalesOrders(ctx context.Context, req FulfillSalesOrderRequest, cbs ...Callbacks[*core.SaleResult]) (*core.SaleResult, error) {
	if err := validateRequest(req); err != nil {
		return settle[*core.SaleResult](nil, err, cbs)
	}
	lines := make([]core.FulfillmentLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = core.FulfillmentLine{SalesOrderID: l.SalesOrderID, Qty: l.Qty}
	}
	result, err := s.sales.ConfirmFulfillingSalesOrders(ctx, core.FulfillmentInput{
		SaleDate:          parseDate(req.SaleDate),
		SalesOrderGroupID: req.SalesOrderGroupID,
		SoldByAccountUID:  req.SoldByAccountUID,
		Lines:             lines,
		Payments:          paymentLines(req.Payments),
	})
	return settle(result, err, cbs)
}

func (s *appService) VoidInvoice(ctx context.Context, invoiceID int, cbs ...Callbacks[int]) error {
	_, err := settle(invoiceID, s.sales.VoidInvoice(ctx, invoiceID), cbs)
	return err
}

func (s *appService) GetInvoice(ctx context.Context, invoiceID int) (*core.InvoiceDetail, error) {
	return s.sales.GetInvoice(ctx, invoiceID)
}

func (s *appService) ListInvoices(ctx context.Context, r DateRange, page PageRequest) (*InvoiceListResult, error) {
	if err := validateRequest(r); err != nil {
		return nil, err
	}
	if err := validateRequest(page); err != nil {
		return nil, err
	}
	invoices, err := s.sales.ListInvoices(ctx, r.window(), page.paging())
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices}, nil
}

func (s *appService) GetSalesOrderGroup(ctx context.Context, groupID int) (*core.SalesOrderGroupResult, error) {
	return s.sales.GetSalesOrderGroup(ctx, groupID)
}

func cartLines(reqs []CartLineRequest) []core.CartLine {
	lines := make([]core.CartLine, len(reqs))
	for i, r := range reqs {
		lines[i] = core.CartLine{ItemID: r.ItemID, Qty: r.Qty, Unit: r.Unit, TaxID: r.TaxID}
		if r.UnitSellingPrice != nil {
			lines[i].UnitSellingPrice = decimal.NewNullDecimal(*r.UnitSellingPrice)
		}
	}
	return lines
}

func paymentLines(reqs []PaymentRequest) []core.PaymentLine {
	lines := make([]core.PaymentLine, len(reqs))
	for i, r := range reqs {
		lines[i] = core.PaymentLine{Method: r.Method, Amount: r.Amount}
	}
	return lines
}

// ── Spoilage ─────────────────────────────────────────────────────────────────

func (s *appService) AddSpoilage(ctx context.Context, req AddSpoilageRequest, cbs ...Callbacks[*core.Spoilage]) (*core.Spoilage, error) {
	if err := validateRequest(req); err != nil {
		return settle[*core.Spoilage](nil, err, cbs)
	}
	sp, err := s.spoilage.AddSpoilage(ctx, core.SpoilageInput{
		ItemID:  req.ItemID,
		Qty:     req.Qty,
		Unit:    req.Unit,
		Date:    parseDate(req.Date),
		Remarks: req.Remarks,
	})
	return settle(sp, err, cbs)
}

func (s *appService) VoidSpoilage(ctx context.Context, spoilageID int, cbs ...Callbacks[int]) error {
	_, err := settle(spoilageID, s.spoilage.VoidSpoilage(ctx, spoilageID), cbs)
	return err
}

func (s *appService) GetSpoilages(ctx context.Context, q SpoilageQuery) (*SpoilageReportResult, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	filter := q.filter()
	rows, err := s.spoilage.GetSpoilages(ctx, q.window(), filter, q.paging())
	if err != nil {
		return nil, err
	}
	total, err := s.spoilage.GetSpoilagesTotal(ctx, q.window(), filter)
	if err != nil {
		return nil, err
	}
	return &SpoilageReportResult{Rows: rows, Total: total}, nil
}

func (s *appService) GetSpoilagesTotal(ctx context.Context, q SpoilageQuery) (*core.SpoilageTotal, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	return s.spoilage.GetSpoilagesTotal(ctx, q.window(), q.filter())
}

func (q SpoilageQuery) filter() core.SpoilageFilter {
	return core.SpoilageFilter{ItemID: q.ItemID, CategoryID: q.CategoryID, Search: q.Search}
}

// ── Reporting ────────────────────────────────────────────────────────────────

func (s *appService) GetSalesSummary(ctx context.Context, r DateRange) (*core.SalesSummary, error) {
	if err := validateRequest(r); err != nil {
		return nil, err
	}
	return s.reporting.GetSalesSummary(ctx, r.window())
}
