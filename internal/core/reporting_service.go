package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// ItemSalesLine is one item's share of a SalesSummary. Qty is summed in the
// item's base unit so lines sold in different units add up.
type ItemSalesLine struct {
	ItemID    int             `json:"item_id"`
	ItemName  string          `json:"item_name"`
	UOMAbbrev string          `json:"uom_abbrev"`
	Qty       decimal.Decimal `json:"qty"`
	Gross     decimal.Decimal `json:"gross"`
	Net       decimal.Decimal `json:"net"`
	Tax       decimal.Decimal `json:"tax"`
	CostNet   decimal.Decimal `json:"cost_net"` // from the stock-usage rows booked at sale time
}

// SalesSummary totals non-voided sales over a date window.
type SalesSummary struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	InvoiceCount int             `json:"invoice_count"`
	Gross        decimal.Decimal `json:"gross"`
	Net          decimal.Decimal `json:"net"`
	Tax          decimal.Decimal `json:"tax"`
	CostNet      decimal.Decimal `json:"cost_net"`
	Items        []ItemSalesLine `json:"items"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only reporting queries over the sale and
// inventory logs.
type ReportingService interface {
	// GetSalesSummary aggregates sale_logs joined to their stock-usage rows.
	// Voided invoices are excluded.
	GetSalesSummary(ctx context.Context, window DateWindow) (*SalesSummary, error)
}

// ── Implementation ────────────────────────────────────────────────────────────

type reportingService struct {
	pool *pgxpool.Pool
}

// NewReportingService constructs a ReportingService backed by the given pool.
func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

func (s *reportingService) GetSalesSummary(ctx context.Context, window DateWindow) (*SalesSummary, error) {
	from, to := window.bounds()
	report := &SalesSummary{From: from.Format("2006-01-02"), To: to.Format("2006-01-02")}

	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM invoices
		WHERE voided = false AND invoice_date BETWEEN $1 AND $2
	`, from, to).Scan(&report.InvoiceCount); err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	// Sales and cost are aggregated separately per item then joined, so an
	// invoice with several lines of one item is not multiplied.
	const q = `
		WITH sales AS (
		    SELECT sl.item_id,
		           SUM(sl.sale_unit_selling_price     * sl.sale_qty) AS gross,
		           SUM(sl.sale_unit_selling_price_net * sl.sale_qty) AS net,
		           SUM(sl.sale_unit_selling_price_tax * sl.sale_qty) AS tax
		    FROM sale_logs sl
		    WHERE sl.voided = false AND sl.sale_date BETWEEN $1 AND $2
		    GROUP BY sl.item_id
		), usage AS (
		    SELECT l.item_id,
		           SUM(l.adjustment_qty)                           AS qty,
		           SUM(l.adjustment_unit_cost_net * l.adjustment_qty) AS cost_net
		    FROM inventory_logs l
		    WHERE l.voided = false AND l.operation_id = $3 AND l.invoice_id IS NOT NULL
		      AND l.adjustment_date BETWEEN $1 AND $2
		    GROUP BY l.item_id
		)
		SELECT i.id, i.name, i.uom_abbrev,
		       COALESCE(u.qty, 0), s.gross, s.net, s.tax, COALESCE(u.cost_net, 0)
		FROM sales s
		JOIN items i ON i.id = s.item_id
		LEFT JOIN usage u ON u.item_id = s.item_id
		ORDER BY s.gross DESC, i.name`

	rows, err := s.pool.Query(ctx, q, from, to, int(OperationStockUsage))
	if err != nil {
		return nil, fmt.Errorf("failed to query sales summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l ItemSalesLine
		if err := rows.Scan(&l.ItemID, &l.ItemName, &l.UOMAbbrev, &l.Qty, &l.Gross, &l.Net, &l.Tax, &l.CostNet); err != nil {
			return nil, fmt.Errorf("failed to scan sales summary row: %w", err)
		}
		report.Gross = report.Gross.Add(l.Gross)
		report.Net = report.Net.Add(l.Net)
		report.Tax = report.Tax.Add(l.Tax)
		report.CostNet = report.CostNet.Add(l.CostNet)
		report.Items = append(report.Items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales summary: %w", err)
	}
	return report, nil
}
