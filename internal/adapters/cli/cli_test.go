package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"foodcost/internal/app"
	"foodcost/internal/core"

	"github.com/shopspring/decimal"
)

type fakeApp struct {
	app.ApplicationService
	gotSpoilage app.AddSpoilageRequest
	gotRange    app.DateRange
	err         error
}

func (f *fakeApp) GetStockLevels(context.Context) (*app.StockResult, error) {
	return &app.StockResult{Levels: []core.StockLevel{
		{ItemID: 1, ItemName: "Beef Brisket", UOMAbbrev: "kg", OnHand: decimal.NewFromInt(14), AvgUnitCostNet: decimal.NewNullDecimal(decimal.NewFromInt(5))},
		{ItemID: 2, ItemName: "Napkin", UOMAbbrev: "ea"},
	}}, nil
}

func (f *fakeApp) AddSpoilage(_ context.Context, req app.AddSpoilageRequest, cbs ...app.Callbacks[*core.Spoilage]) (*core.Spoilage, error) {
	f.gotSpoilage = req
	if errors.Is(f.err, core.ErrLimitReached) {
		cbs[0].OnLimitReached()
		return nil, f.err
	}
	sp := &core.Spoilage{ID: 3, InSpoilageQty: req.Qty, InSpoilageUOMAbbrev: req.Unit, InSpoilageQtyBasedOnItemUOM: req.Qty.Div(decimal.NewFromInt(1000))}
	cbs[0].OnSuccess(sp)
	return sp, nil
}

func (f *fakeApp) CreateAccount(_ context.Context, req app.CreateAccountRequest) (*core.Account, error) {
	return &core.Account{UID: "uid-1", Username: req.Username, Role: req.Role}, nil
}

func (f *fakeApp) GetSalesSummary(_ context.Context, r app.DateRange) (*core.SalesSummary, error) {
	f.gotRange = r
	return &core.SalesSummary{From: r.From, To: r.To, InvoiceCount: 2, Gross: decimal.NewFromInt(224)}, nil
}

func TestRun_Stock(t *testing.T) {
	var out bytes.Buffer
	c := &Runner{Svc: &fakeApp{}, Out: &out}
	if err := c.Run(context.Background(), []string{"stock"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Beef Brisket") || !strings.Contains(got, "14.000") || !strings.Contains(got, "5.00") {
		t.Errorf("Unexpected stock output:\n%s", got)
	}
}

func TestRun_Spoil(t *testing.T) {
	var out bytes.Buffer
	f := &fakeApp{}
	c := &Runner{Svc: f, Out: &out}
	if err := c.Run(context.Background(), []string{"spoil", "1", "1500", "g", "freezer", "failure"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.gotSpoilage.ItemID != 1 || f.gotSpoilage.Unit != "g" || f.gotSpoilage.Remarks != "freezer failure" {
		t.Errorf("Unexpected request %+v", f.gotSpoilage)
	}
	if !strings.Contains(out.String(), "Spoilage #3 recorded") {
		t.Errorf("Unexpected output %q", out.String())
	}

	out.Reset()
	f.err = fmt.Errorf("expired: %w", core.ErrLimitReached)
	if err := c.Run(context.Background(), []string{"spoil", "1", "2"}); !errors.Is(err, core.ErrLimitReached) {
		t.Errorf("Expected ErrLimitReached, got %v", err)
	}
	if !strings.Contains(out.String(), "Writes are disabled") {
		t.Errorf("Expected limit message, got %q", out.String())
	}

	if err := c.Run(context.Background(), []string{"spoil", "x", "2"}); err == nil {
		t.Error("Expected error for bad item id")
	}
}

func TestRun_SalesSummaryArgs(t *testing.T) {
	var out bytes.Buffer
	f := &fakeApp{}
	c := &Runner{Svc: f, Out: &out}
	if err := c.Run(context.Background(), []string{"sales-summary", "2026-02-01", "2026-02-28"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.gotRange.From != "2026-02-01" || f.gotRange.To != "2026-02-28" {
		t.Errorf("Unexpected range %+v", f.gotRange)
	}
	if !strings.Contains(out.String(), "224.00") {
		t.Errorf("Expected gross in output:\n%s", out.String())
	}
}

func TestRangeArgs(t *testing.T) {
	r, file := rangeArgs([]string{"2026-01-01", "out.XLSX"})
	if r.From != "2026-01-01" || r.To != "" || file != "out.XLSX" {
		t.Errorf("Unexpected parse %+v %q", r, file)
	}
}

func TestRun_IssueTokenAndUsage(t *testing.T) {
	var out bytes.Buffer
	c := &Runner{Svc: &fakeApp{}, JWTSecret: "s", Out: &out}
	if err := c.Run(context.Background(), []string{"issue-token", "u1", "manager", "1h"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if parts := strings.Split(strings.TrimSpace(out.String()), "."); len(parts) != 3 {
		t.Errorf("Expected a JWT, got %q", out.String())
	}

	c.JWTSecret = ""
	if err := c.Run(context.Background(), []string{"issue-token", "u1"}); err == nil {
		t.Error("Expected error without secret")
	}
	if err := c.Run(context.Background(), []string{"frobnicate"}); !errors.Is(err, ErrUsage) {
		t.Errorf("Expected ErrUsage, got %v", err)
	}
	if err := c.Run(context.Background(), nil); !errors.Is(err, ErrUsage) {
		t.Errorf("Expected ErrUsage for no args, got %v", err)
	}
}

func TestRun_CreateAccountDefaultsToCashier(t *testing.T) {
	var out bytes.Buffer
	c := &Runner{Svc: &fakeApp{}, Out: &out}
	if err := c.Run(context.Background(), []string{"create-account", "joe", "long-enough"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "joe created (cashier)") {
		t.Errorf("Unexpected output %q", out.String())
	}
}
