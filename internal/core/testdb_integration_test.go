package core_test

import (
	"context"
	"io"
	"os"
	"testing"

	"foodcost/internal/core"
	"foodcost/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// setupTestDB connects to TEST_DATABASE_URL, applies the schema and wipes all
// data. Tests are skipped when the variable is unset so the live database is
// never touched.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE payments, sale_logs, inventory_logs, invoices, sales_orders, sales_order_groups,
		               spoilages, items, customers, categories, taxes, document_sequences, accounts
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}
	return pool
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fixture holds the services and catalog rows shared by integration tests.
type fixture struct {
	pool      *pgxpool.Pool
	catalog   core.CatalogService
	inventory core.InventoryService
	sales     core.SaleService
	spoilage  core.SpoilageService
	reporting core.ReportingService

	vat12  *core.Tax
	beef   *core.Item // base unit kg, 12% tax
	wine   *core.Item // counted in pieces of 750 ml
	napkin *core.Item // base unit ea, no tax
}

func newFixture(t *testing.T, guard core.WriteGuard) *fixture {
	t.Helper()
	pool := setupTestDB(t)
	ctx := context.Background()
	log := quietLogger()

	f := &fixture{
		pool:      pool,
		catalog:   core.NewCatalogService(pool, nil),
		inventory: core.NewInventoryService(pool, nil),
		sales:     core.NewSaleService(pool, guard, core.NewLocalLocker(), log),
		spoilage:  core.NewSpoilageService(pool, guard, log),
		reporting: core.NewReportingService(pool),
	}

	var err error
	f.vat12, err = f.catalog.CreateTax(ctx, "VAT 12%", decimal.NewFromInt(12))
	if err != nil {
		t.Fatalf("CreateTax failed: %v", err)
	}
	meat, err := f.catalog.CreateCategory(ctx, "Meat")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}

	f.beef, err = f.catalog.CreateItem(ctx, core.ItemInput{
		Name:       "Beef Brisket",
		CategoryID: &meat.ID,
		UOMAbbrev:  "kg",
		// 100 net per kg at 12%.
		UnitSellingPrice: core.GrossFromNet(decimal.NewFromInt(100), decimal.NewFromInt(12)),
		UnitCost:         decimal.NewFromInt(56),
		TaxID:            &f.vat12.ID,
	})
	if err != nil {
		t.Fatalf("CreateItem beef failed: %v", err)
	}

	f.wine, err = f.catalog.CreateItem(ctx, core.ItemInput{
		Name:                   "House Red",
		UOMAbbrev:              "pc",
		UseMeasurementPerPiece: true,
		UOMAbbrevPerPiece:      "ml",
		QtyPerPiece:            decimal.NewFromInt(750),
		UnitSellingPrice:       decimal.NewFromInt(30),
		UnitCost:               decimal.NewFromInt(12),
	})
	if err != nil {
		t.Fatalf("CreateItem wine failed: %v", err)
	}

	f.napkin, err = f.catalog.CreateItem(ctx, core.ItemInput{
		Name:             "Napkin",
		UOMAbbrev:        "ea",
		UnitSellingPrice: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("CreateItem napkin failed: %v", err)
	}
	return f
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cash() []core.PaymentLine {
	return []core.PaymentLine{{Method: "cash"}}
}
