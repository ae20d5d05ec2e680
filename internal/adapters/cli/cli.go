package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"foodcost/internal/adapters/web"
	"foodcost/internal/app"
	"foodcost/internal/core"
	"foodcost/internal/report"

	"github.com/shopspring/decimal"
)

// ErrUsage is returned for unknown commands or missing arguments.
var ErrUsage = errors.New("usage")

const usage = `Available commands:
  stock                                      print stock levels
  spoil <item_id> <qty> [unit] [remarks]     record a spoilage
  spoilage-report [from] [to] [file.xlsx]    spoilage costs for a date range
  sales-summary [from] [to] [file.xlsx]      sales totals for a date range
  create-account <username> <password> [role]  register a staff account
  issue-token <account_uid> [role] [ttl]     sign an API token`

// Runner executes one-shot CLI commands against the ApplicationService.
type Runner struct {
	Svc       app.ApplicationService
	JWTSecret string
	Out       io.Writer
}

// Run executes a one-shot CLI command.
// args is os.Args[1:]; the first element is the subcommand name.
func (c *Runner) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w\n%s", ErrUsage, usage)
	}

	switch args[0] {
	case "stock":
		result, err := c.Svc.GetStockLevels(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stock levels: %w", err)
		}
		c.printStock(result.Levels)
		return nil

	case "spoil":
		return c.spoil(ctx, args[1:])

	case "spoilage-report", "spoilages":
		r, file := rangeArgs(args[1:])
		result, err := c.Svc.GetSpoilages(ctx, app.SpoilageQuery{DateRange: r})
		if err != nil {
			return fmt.Errorf("failed to get spoilages: %w", err)
		}
		if file != "" {
			return writeFile(file, func(w io.Writer) error {
				return report.WriteSpoilagesXLSX(w, result.Rows, result.Total)
			})
		}
		c.printSpoilages(result)
		return nil

	case "sales-summary", "sales":
		r, file := rangeArgs(args[1:])
		summary, err := c.Svc.GetSalesSummary(ctx, r)
		if err != nil {
			return fmt.Errorf("failed to get sales summary: %w", err)
		}
		if file != "" {
			return writeFile(file, func(w io.Writer) error {
				return report.WriteSalesSummaryXLSX(w, summary)
			})
		}
		c.printSalesSummary(summary)
		return nil

	case "create-account":
		if len(args) < 3 {
			return fmt.Errorf("%w: create-account <username> <password> [role]", ErrUsage)
		}
		req := app.CreateAccountRequest{Username: args[1], Password: args[2], Role: core.RoleCashier}
		if len(args) > 3 {
			req.Role = args[3]
		}
		acc, err := c.Svc.CreateAccount(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		fmt.Fprintf(c.Out, "Account %s created (%s), uid %s\n", acc.Username, acc.Role, acc.UID)
		return nil

	case "issue-token":
		return c.issueToken(args[1:])

	default:
		return fmt.Errorf("%w: unknown command %s\n%s", ErrUsage, args[0], usage)
	}
}

func (c *Runner) spoil(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: spoil <item_id> <qty> [unit] [remarks]", ErrUsage)
	}
	var itemID int
	if _, err := fmt.Sscanf(args[0], "%d", &itemID); err != nil {
		return fmt.Errorf("invalid item id %q: %w", args[0], err)
	}
	qty, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid qty %q: %w", args[1], err)
	}
	req := app.AddSpoilageRequest{ItemID: itemID, Qty: qty}
	if len(args) > 2 {
		req.Unit = args[2]
	}
	if len(args) > 3 {
		req.Remarks = strings.Join(args[3:], " ")
	}

	_, err = c.Svc.AddSpoilage(ctx, req, app.Callbacks[*core.Spoilage]{
		OnSuccess: func(sp *core.Spoilage) {
			fmt.Fprintf(c.Out, "Spoilage #%d recorded: %s %s (%s in item unit).\n",
				sp.ID, sp.InSpoilageQty, sp.InSpoilageUOMAbbrev, sp.InSpoilageQtyBasedOnItemUOM)
		},
		OnLimitReached: func() {
			fmt.Fprintln(c.Out, "Writes are disabled: the system is read-only or the license has expired.")
		},
	})
	return err
}

func (c *Runner) issueToken(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: issue-token <account_uid> [role] [ttl]", ErrUsage)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	role, ttl := web.RoleCashier, 12*time.Hour
	if len(args) > 1 {
		role = args[1]
	}
	if len(args) > 2 {
		d, err := time.ParseDuration(args[2])
		if err != nil {
			return fmt.Errorf("invalid ttl %q: %w", args[2], err)
		}
		ttl = d
	}
	tok, err := web.SignToken(c.JWTSecret, args[0], role, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Out, tok)
	return nil
}

// rangeArgs reads [from] [to] [file.xlsx]. A trailing .xlsx argument may
// appear in any position.
func rangeArgs(args []string) (app.DateRange, string) {
	var r app.DateRange
	var file string
	var dates []string
	for _, a := range args {
		if strings.HasSuffix(strings.ToLower(a), ".xlsx") {
			file = a
			continue
		}
		dates = append(dates, a)
	}
	if len(dates) > 0 {
		r.From = dates[0]
	}
	if len(dates) > 1 {
		r.To = dates[1]
	}
	return r, file
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}

func (c *Runner) printStock(levels []core.StockLevel) {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, strings.Repeat("=", 72))
	fmt.Fprintf(c.Out, "  %-6s %-30s %-6s %12s %12s\n", "ID", "ITEM", "UNIT", "ON HAND", "AVG COST")
	fmt.Fprintln(c.Out, strings.Repeat("-", 72))
	for _, l := range levels {
		fmt.Fprintf(c.Out, "  %-6d %-30s %-6s %12s %12s\n", l.ItemID, l.ItemName, l.UOMAbbrev, l.OnHand.StringFixed(3), nullString(l.AvgUnitCostNet))
	}
	fmt.Fprintln(c.Out, strings.Repeat("=", 72))
}

func (c *Runner) printSpoilages(result *app.SpoilageReportResult) {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, strings.Repeat("=", 84))
	fmt.Fprintf(c.Out, "  %-10s %-28s %14s %12s %12s\n", "DATE", "ITEM", "QTY", "AVG COST", "COST")
	fmt.Fprintln(c.Out, strings.Repeat("-", 84))
	for _, r := range result.Rows {
		qty := r.InSpoilageQtyBasedOnItemUOM.StringFixed(3) + " " + r.ItemUOMAbbrev
		fmt.Fprintf(c.Out, "  %-10s %-28s %14s %12s %12s\n", r.InSpoilageDate.Format("2006-01-02"), r.ItemName, qty, nullString(r.AvgUnitCostNet), nullString(r.TotalCostNet))
	}
	fmt.Fprintln(c.Out, strings.Repeat("-", 84))
	if t := result.Total; t != nil {
		fmt.Fprintf(c.Out, "  %d rows, total cost %s", t.Count, nullString(t.TotalCostNet))
		if t.RowsWithoutCost > 0 {
			fmt.Fprintf(c.Out, " (%d without stock history)", t.RowsWithoutCost)
		}
		fmt.Fprintln(c.Out)
	}
	fmt.Fprintln(c.Out, strings.Repeat("=", 84))
}

func (c *Runner) printSalesSummary(s *core.SalesSummary) {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, strings.Repeat("=", 84))
	fmt.Fprintf(c.Out, "  SALES SUMMARY  %s .. %s  (%d invoices)\n", orDash(s.From), orDash(s.To), s.InvoiceCount)
	fmt.Fprintln(c.Out, strings.Repeat("=", 84))
	fmt.Fprintf(c.Out, "  %-28s %12s %12s %12s %12s\n", "ITEM", "QTY", "GROSS", "NET", "COST")
	fmt.Fprintln(c.Out, strings.Repeat("-", 84))
	for _, l := range s.Items {
		fmt.Fprintf(c.Out, "  %-28s %12s %12s %12s %12s\n", l.ItemName, l.Qty.StringFixed(3)+" "+l.UOMAbbrev, l.Gross.StringFixed(2), l.Net.StringFixed(2), l.CostNet.StringFixed(2))
	}
	fmt.Fprintln(c.Out, strings.Repeat("-", 84))
	fmt.Fprintf(c.Out, "  %-28s %12s %12s %12s %12s\n", "TOTAL", "", s.Gross.StringFixed(2), s.Net.StringFixed(2), s.CostNet.StringFixed(2))
	fmt.Fprintln(c.Out, strings.Repeat("=", 84))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
