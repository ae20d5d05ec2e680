package app

import "foodcost/internal/core"

// StockResult is returned by GetStockLevels.
type StockResult struct {
	Levels []core.StockLevel `json:"levels"`
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Invoices []core.Invoice `json:"invoices"`
}

// SpoilageReportResult is returned by GetSpoilages. Total covers every row
// matching the query, not only the returned page.
type SpoilageReportResult struct {
	Rows  []core.SpoilageRow  `json:"rows"`
	Total *core.SpoilageTotal `json:"total"`
}

// CatalogResult is returned by ListCatalog.
type CatalogResult struct {
	Taxes      []core.Tax      `json:"taxes"`
	Categories []core.Category `json:"categories"`
	Items      []core.Item     `json:"items"`
}
