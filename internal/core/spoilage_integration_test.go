package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"foodcost/internal/core"
)

func day(d int) time.Time {
	return time.Date(2026, 2, d, 0, 0, 0, 0, time.UTC)
}

func TestSpoilageService_WeightedAverageCost(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// 10 kg @ 5 net, then 10 kg @ 7 net. No tax on the purchase.
	for i, cost := range []string{"5", "7"} {
		if _, err := f.inventory.AddStock(ctx, core.AddStockInput{
			ItemID: f.beef.ID, Qty: dec("10"), UnitCost: dec(cost), Date: day(1 + i*9),
		}); err != nil {
			t.Fatalf("AddStock failed: %v", err)
		}
	}

	sp, err := f.spoilage.AddSpoilage(ctx, core.SpoilageInput{
		ItemID: f.beef.ID, Qty: dec("1500"), Unit: "g", Date: day(12), Remarks: "freezer failure",
	})
	if err != nil {
		t.Fatalf("AddSpoilage failed: %v", err)
	}
	if !sp.InSpoilageQtyBasedOnItemUOM.Equal(dec("1.5")) {
		t.Errorf("Expected 1.5 kg normalized, got %s", sp.InSpoilageQtyBasedOnItemUOM)
	}
	if sp.InSpoilageUOMAbbrev != "g" || !sp.InSpoilageQty.Equal(dec("1500")) {
		t.Errorf("Expected entered qty 1500 g kept, got %s %s", sp.InSpoilageQty, sp.InSpoilageUOMAbbrev)
	}

	window := core.DateWindow{From: day(1), To: day(28)}
	rows, err := f.spoilage.GetSpoilages(ctx, window, core.SpoilageFilter{}, core.Paging{})
	if err != nil {
		t.Fatalf("GetSpoilages failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 spoilage, got %d", len(rows))
	}
	if !rows[0].AvgUnitCostNet.Valid || !rows[0].AvgUnitCostNet.Decimal.Equal(dec("6")) {
		t.Errorf("Expected average 6.00, got %v", rows[0].AvgUnitCostNet)
	}
	if !rows[0].TotalCostNet.Valid || !rows[0].TotalCostNet.Decimal.Equal(dec("9")) {
		t.Errorf("Expected cost 9 (1.5 kg @ 6), got %v", rows[0].TotalCostNet)
	}

	// Before the second purchase only the first counts.
	avg, err := f.inventory.GetAverageUnitCostNet(ctx, f.beef.ID, day(5))
	if err != nil {
		t.Fatalf("GetAverageUnitCostNet failed: %v", err)
	}
	if !avg.Valid || !avg.Decimal.Equal(dec("5")) {
		t.Errorf("Expected average 5 on day 5, got %v", avg)
	}

	total, err := f.spoilage.GetSpoilagesTotal(ctx, window, core.SpoilageFilter{})
	if err != nil {
		t.Fatalf("GetSpoilagesTotal failed: %v", err)
	}
	if total.Count != 1 || total.RowsWithoutCost != 0 {
		t.Errorf("Expected 1 costed row, got %+v", total)
	}
	if !total.TotalCostNet.Valid || !total.TotalCostNet.Decimal.Equal(dec("9")) {
		t.Errorf("Expected total 9, got %v", total.TotalCostNet)
	}
}

func TestSpoilageService_OpenWindowCostsAsOfToday(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	purchases := []struct {
		cost string
		date time.Time
	}{
		{"5", today.AddDate(0, 0, -10)},
		{"9", today.AddDate(0, 0, 30)}, // booked ahead
	}
	for _, p := range purchases {
		if _, err := f.inventory.AddStock(ctx, core.AddStockInput{
			ItemID: f.beef.ID, Qty: dec("10"), UnitCost: dec(p.cost), Date: p.date,
		}); err != nil {
			t.Fatalf("AddStock failed: %v", err)
		}
	}
	if _, err := f.spoilage.AddSpoilage(ctx, core.SpoilageInput{
		ItemID: f.beef.ID, Qty: dec("2"), Date: today.AddDate(0, 0, -1),
	}); err != nil {
		t.Fatalf("AddSpoilage failed: %v", err)
	}

	rows, err := f.spoilage.GetSpoilages(ctx, core.DateWindow{}, core.SpoilageFilter{}, core.Paging{})
	if err != nil {
		t.Fatalf("GetSpoilages failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 spoilage, got %d", len(rows))
	}
	if !rows[0].AvgUnitCostNet.Valid || !rows[0].AvgUnitCostNet.Decimal.Equal(dec("5")) {
		t.Errorf("Expected average 5 ignoring the future purchase, got %v", rows[0].AvgUnitCostNet)
	}
	if !rows[0].TotalCostNet.Valid || !rows[0].TotalCostNet.Decimal.Equal(dec("10")) {
		t.Errorf("Expected cost 10 (2 kg @ 5), got %v", rows[0].TotalCostNet)
	}

	// An explicit end date past the future purchase includes it.
	window := core.DateWindow{To: today.AddDate(0, 0, 60)}
	rows, err = f.spoilage.GetSpoilages(ctx, window, core.SpoilageFilter{}, core.Paging{})
	if err != nil {
		t.Fatalf("GetSpoilages failed: %v", err)
	}
	if len(rows) != 1 || !rows[0].AvgUnitCostNet.Decimal.Equal(dec("7")) {
		t.Errorf("Expected average 7 with the window ending after both purchases, got %+v", rows)
	}
}

func TestSpoilageService_NoStockHistoryGivesNullCost(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.spoilage.AddSpoilage(ctx, core.SpoilageInput{ItemID: f.napkin.ID, Qty: dec("4")}); err != nil {
		t.Fatalf("AddSpoilage failed: %v", err)
	}

	filter := core.SpoilageFilter{ItemID: &f.napkin.ID}
	total, err := f.spoilage.GetSpoilagesTotal(ctx, core.DateWindow{}, filter)
	if err != nil {
		t.Fatalf("GetSpoilagesTotal failed: %v", err)
	}
	if total.TotalCostNet.Valid {
		t.Errorf("Expected null cost, got %s", total.TotalCostNet.Decimal)
	}
	if total.Count != 1 || total.RowsWithoutCost != 1 {
		t.Errorf("Expected 1 uncosted row, got %+v", total)
	}

	rows, err := f.spoilage.GetSpoilages(ctx, core.DateWindow{}, filter, core.Paging{})
	if err != nil {
		t.Fatalf("GetSpoilages failed: %v", err)
	}
	if len(rows) != 1 || rows[0].AvgUnitCostNet.Valid || rows[0].TotalCostNet.Valid {
		t.Errorf("Expected one row with null costs, got %+v", rows)
	}
}

func TestSpoilageService_FiltersAndVoid(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	beefSp, err := f.spoilage.AddSpoilage(ctx, core.SpoilageInput{ItemID: f.beef.ID, Qty: dec("1"), Date: day(3)})
	if err != nil {
		t.Fatalf("AddSpoilage failed: %v", err)
	}
	if _, err := f.spoilage.AddSpoilage(ctx, core.SpoilageInput{ItemID: f.wine.ID, Qty: dec("1.5"), Unit: "l", Date: day(4)}); err != nil {
		t.Fatalf("AddSpoilage failed: %v", err)
	}

	all, err := f.spoilage.GetSpoilages(ctx, core.DateWindow{}, core.SpoilageFilter{}, core.Paging{})
	if err != nil {
		t.Fatalf("GetSpoilages failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 spoilages, got %d", len(all))
	}
	if all[0].ItemID != f.wine.ID || !all[0].InSpoilageQtyBasedOnItemUOM.Equal(dec("2")) {
		t.Errorf("Expected newest first with 2 bottles, got %+v", all[0])
	}

	bySearch, err := f.spoilage.GetSpoilages(ctx, core.DateWindow{}, core.SpoilageFilter{Search: "brisk"}, core.Paging{})
	if err != nil {
		t.Fatalf("GetSpoilages failed: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].ItemID != f.beef.ID {
		t.Errorf("Expected brisket only, got %+v", bySearch)
	}

	byCategory, err := f.spoilage.GetSpoilages(ctx, core.DateWindow{}, core.SpoilageFilter{CategoryID: f.beef.CategoryID}, core.Paging{})
	if err != nil {
		t.Fatalf("GetSpoilages failed: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].ItemID != f.beef.ID {
		t.Errorf("Expected meat category only, got %+v", byCategory)
	}

	paged, err := f.spoilage.GetSpoilages(ctx, core.DateWindow{}, core.SpoilageFilter{}, core.Paging{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("GetSpoilages failed: %v", err)
	}
	if len(paged) != 1 || paged[0].ID != beefSp.ID {
		t.Errorf("Expected second page to hold the brisket spoilage, got %+v", paged)
	}

	if err := f.spoilage.VoidSpoilage(ctx, beefSp.ID); err != nil {
		t.Fatalf("VoidSpoilage failed: %v", err)
	}
	if err := f.spoilage.VoidSpoilage(ctx, beefSp.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound voiding twice, got %v", err)
	}
	all, err = f.spoilage.GetSpoilages(ctx, core.DateWindow{}, core.SpoilageFilter{}, core.Paging{})
	if err != nil {
		t.Fatalf("GetSpoilages failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected voided spoilage to be excluded, got %d rows", len(all))
	}
}

func TestSpoilageService_RejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.spoilage.AddSpoilage(ctx, core.SpoilageInput{ItemID: f.beef.ID, Qty: dec("0")}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected ErrValidation for zero qty, got %v", err)
	}
	if _, err := f.spoilage.AddSpoilage(ctx, core.SpoilageInput{ItemID: f.beef.ID, Qty: dec("1"), Unit: "cup"}); !errors.Is(err, core.ErrUnitConversion) {
		t.Errorf("Expected ErrUnitConversion, got %v", err)
	}
	if _, err := f.spoilage.AddSpoilage(ctx, core.SpoilageInput{ItemID: 9999, Qty: dec("1")}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if n := countRows(t, f.pool, "spoilages"); n != 0 {
		t.Errorf("Expected no spoilage rows, got %d", n)
	}
}
