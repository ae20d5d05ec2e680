// Package report renders read models as spreadsheets.
package report

import (
	"fmt"
	"io"

	"foodcost/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

var spoilageHeaders = []string{
	"Date", "Item", "Qty", "Unit", "Qty (item unit)", "Item Unit", "Avg Unit Cost (net)", "Total Cost (net)", "Remarks",
}

// WriteSpoilagesXLSX writes one row per spoilage followed by a totals row.
// Uncosted amounts are left blank.
func WriteSpoilagesXLSX(w io.Writer, rows []core.SpoilageRow, total *core.SpoilageTotal) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeHeader(f, spoilageHeaders); err != nil {
		return err
	}
	for i, r := range rows {
		values := []any{
			r.InSpoilageDate.Format("2006-01-02"),
			r.ItemName,
			number(r.InSpoilageQty),
			r.InSpoilageUOMAbbrev,
			number(r.InSpoilageQtyBasedOnItemUOM),
			r.ItemUOMAbbrev,
			nullNumber(r.AvgUnitCostNet),
			nullNumber(r.TotalCostNet),
			r.Remarks,
		}
		if err := writeRow(f, i+2, values); err != nil {
			return err
		}
	}

	if total != nil {
		totalRow := len(rows) + 3
		if err := writeRow(f, totalRow, []any{"Total", fmt.Sprintf("%d rows", total.Count), "", "", "", "", "", nullNumber(total.TotalCostNet)}); err != nil {
			return err
		}
		if total.RowsWithoutCost > 0 {
			note := fmt.Sprintf("%d rows have no stock history and are not costed", total.RowsWithoutCost)
			if err := writeRow(f, totalRow+1, []any{note}); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spoilage workbook: %w", err)
	}
	return nil
}

var salesHeaders = []string{"Item", "Qty", "Unit", "Gross", "Net", "Tax", "Cost (net)"}

// WriteSalesSummaryXLSX writes the per-item breakdown and a totals row.
func WriteSalesSummaryXLSX(w io.Writer, s *core.SalesSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeHeader(f, salesHeaders); err != nil {
		return err
	}
	for i, l := range s.Items {
		values := []any{l.ItemName, number(l.Qty), l.UOMAbbrev, number(l.Gross), number(l.Net), number(l.Tax), number(l.CostNet)}
		if err := writeRow(f, i+2, values); err != nil {
			return err
		}
	}
	totals := []any{fmt.Sprintf("Total (%d invoices, %s to %s)", s.InvoiceCount, s.From, s.To), "", "",
		number(s.Gross), number(s.Net), number(s.Tax), number(s.CostNet)}
	if err := writeRow(f, len(s.Items)+3, totals); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write sales workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, headers []string) error {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := writeRow(f, 1, values); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheetName, "A1", last, style)
}

func writeRow(f *excelize.File, rowNo int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

// Cells hold floats so spreadsheets can sum them; the ledger keeps exact decimals.
func number(d decimal.Decimal) float64 { return d.InexactFloat64() }

func nullNumber(d decimal.NullDecimal) any {
	if !d.Valid {
		return ""
	}
	return number(d.Decimal)
}
