package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"foodcost/internal/uom"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CatalogService manages the reference rows the ledgers point at: taxes,
// categories, customers and items.
type CatalogService interface {
	CreateTax(ctx context.Context, name string, ratePercentage decimal.Decimal) (*Tax, error)
	GetTax(ctx context.Context, taxID int) (*Tax, error)
	ListTaxes(ctx context.Context) ([]Tax, error)
	CreateCategory(ctx context.Context, name string) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCustomer(ctx context.Context, name, phone, email string) (*Customer, error)
	GetCustomer(ctx context.Context, customerID int) (*Customer, error)
	CreateItem(ctx context.Context, input ItemInput) (*Item, error)
	GetItem(ctx context.Context, itemID int) (*Item, error)
	// ListItems returns active items, optionally restricted to one category.
	ListItems(ctx context.Context, categoryID *int) ([]Item, error)
}

// ItemInput is used when creating an item. Prices are gross per base unit.
type ItemInput struct {
	Name                   string
	CategoryID             *int
	UOMAbbrev              string
	UseMeasurementPerPiece bool
	UOMAbbrevPerPiece      string
	QtyPerPiece            decimal.Decimal
	UnitCost               decimal.Decimal
	UnitSellingPrice       decimal.Decimal
	TaxID                  *int
}

type catalogService struct {
	pool  *pgxpool.Pool
	guard WriteGuard
}

func NewCatalogService(pool *pgxpool.Pool, guard WriteGuard) CatalogService {
	if guard == nil {
		guard = AllowWrites{}
	}
	return &catalogService{pool: pool, guard: guard}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const itemColumns = `id, name, category_id, uom_abbrev, use_measurement_per_piece, uom_abbrev_per_piece,
	qty_per_piece, unit_cost, unit_selling_price, tax_id, is_active, created_at`

func scanItem(row pgx.Row, it *Item) error {
	return row.Scan(&it.ID, &it.Name, &it.CategoryID, &it.UOMAbbrev, &it.UseMeasurementPerPiece,
		&it.UOMAbbrevPerPiece, &it.QtyPerPiece, &it.UnitCost, &it.UnitSellingPrice, &it.TaxID,
		&it.IsActive, &it.CreatedAt)
}

// loadItem reads an active item through q, which may be a pool or a transaction.
func loadItem(ctx context.Context, q pgxQuerier, itemID int) (*Item, error) {
	var it Item
	err := scanItem(q.QueryRow(ctx, "SELECT "+itemColumns+" FROM items WHERE id = $1 AND is_active = true", itemID), &it)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("item %d", itemID)
		}
		return nil, fmt.Errorf("failed to load item %d: %w", itemID, err)
	}
	return &it, nil
}

// loadTaxRate returns the rate of taxID, or zero when taxID is nil.
func loadTaxRate(ctx context.Context, q pgxQuerier, taxID *int) (decimal.Decimal, error) {
	if taxID == nil {
		return decimal.Zero, nil
	}
	var rate decimal.Decimal
	if err := q.QueryRow(ctx, "SELECT rate_percentage FROM taxes WHERE id = $1", *taxID).Scan(&rate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, notFoundf("tax %d", *taxID)
		}
		return decimal.Zero, fmt.Errorf("failed to load tax %d: %w", *taxID, err)
	}
	return rate, nil
}

func (s *catalogService) CreateTax(ctx context.Context, name string, ratePercentage decimal.Decimal) (*Tax, error) {
	if err := s.guard.CheckWritable(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, validationf("name", "tax name is required")
	}
	if ratePercentage.IsNegative() {
		return nil, validationf("rate_percentage", "tax rate cannot be negative, got %s", ratePercentage)
	}

	var t Tax
	err := s.pool.QueryRow(ctx, `
		INSERT INTO taxes (name, rate_percentage)
		VALUES ($1, $2)
		RETURNING id, name, rate_percentage, created_at
	`, name, ratePercentage).Scan(&t.ID, &t.Name, &t.RatePercentage, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create tax: %w", err)
	}
	return &t, nil
}

func (s *catalogService) GetTax(ctx context.Context, taxID int) (*Tax, error) {
	var t Tax
	err := s.pool.QueryRow(ctx,
		"SELECT id, name, rate_percentage, created_at FROM taxes WHERE id = $1", taxID,
	).Scan(&t.ID, &t.Name, &t.RatePercentage, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("tax %d", taxID)
		}
		return nil, fmt.Errorf("failed to fetch tax %d: %w", taxID, err)
	}
	return &t, nil
}

func (s *catalogService) ListTaxes(ctx context.Context) ([]Tax, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, rate_percentage, created_at FROM taxes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query taxes: %w", err)
	}
	defer rows.Close()

	var taxes []Tax
	for rows.Next() {
		var t Tax
		if err := rows.Scan(&t.ID, &t.Name, &t.RatePercentage, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tax: %w", err)
		}
		taxes = append(taxes, t)
	}
	return taxes, rows.Err()
}

func (s *catalogService) CreateCategory(ctx context.Context, name string) (*Category, error) {
	if err := s.guard.CheckWritable(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, validationf("name", "category name is required")
	}

	var c Category
	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name) VALUES ($1)
		RETURNING id, name, created_at
	`, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &c, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *catalogService) CreateCustomer(ctx context.Context, name, phone, email string) (*Customer, error) {
	if err := s.guard.CheckWritable(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, validationf("name", "customer name is required")
	}

	var c Customer
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (name, phone, email)
		VALUES ($1, $2, $3)
		RETURNING id, name, phone, email, created_at
	`, name, phone, email).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return &c, nil
}

func (s *catalogService) GetCustomer(ctx context.Context, customerID int) (*Customer, error) {
	var c Customer
	err := s.pool.QueryRow(ctx,
		"SELECT id, name, phone, email, created_at FROM customers WHERE id = $1", customerID,
	).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("customer %d", customerID)
		}
		return nil, fmt.Errorf("failed to fetch customer %d: %w", customerID, err)
	}
	return &c, nil
}

// CreateItem validates the unit configuration before inserting: the base unit
// must be known and, for per-piece items, the per-piece unit must be known and
// the qty per piece positive.
func (s *catalogService) CreateItem(ctx context.Context, input ItemInput) (*Item, error) {
	if err := s.guard.CheckWritable(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, validationf("name", "item name is required")
	}
	if _, ok := uom.Lookup(input.UOMAbbrev); !ok {
		return nil, validationf("uom_abbrev", "unknown unit %q", input.UOMAbbrev)
	}
	if input.UnitCost.IsNegative() || input.UnitSellingPrice.IsNegative() {
		return nil, validationf("unit_cost", "prices cannot be negative")
	}

	var perPieceAbbrev *string
	var qtyPerPiece decimal.NullDecimal
	if input.UseMeasurementPerPiece {
		if _, ok := uom.Lookup(input.UOMAbbrevPerPiece); !ok {
			return nil, validationf("uom_abbrev_per_piece", "unknown unit %q", input.UOMAbbrevPerPiece)
		}
		if !input.QtyPerPiece.IsPositive() {
			return nil, validationf("qty_per_piece", "qty per piece must be positive, got %s", input.QtyPerPiece)
		}
		perPieceAbbrev = &input.UOMAbbrevPerPiece
		qtyPerPiece = decimal.NewNullDecimal(input.QtyPerPiece)
	}

	if input.TaxID != nil {
		if _, err := loadTaxRate(ctx, s.pool, input.TaxID); err != nil {
			return nil, err
		}
	}

	var it Item
	err := scanItem(s.pool.QueryRow(ctx, `
		INSERT INTO items (name, category_id, uom_abbrev, use_measurement_per_piece, uom_abbrev_per_piece,
		                   qty_per_piece, unit_cost, unit_selling_price, tax_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+itemColumns,
		input.Name, input.CategoryID, input.UOMAbbrev, input.UseMeasurementPerPiece, perPieceAbbrev,
		qtyPerPiece, input.UnitCost, input.UnitSellingPrice, input.TaxID,
	), &it)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return &it, nil
}

func (s *catalogService) GetItem(ctx context.Context, itemID int) (*Item, error) {
	return loadItem(ctx, s.pool, itemID)
}

func (s *catalogService) ListItems(ctx context.Context, categoryID *int) ([]Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE is_active = true
		  AND ($1::int IS NULL OR category_id = $1)
		ORDER BY name
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := scanItem(rows, &it); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
