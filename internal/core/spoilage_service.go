package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"foodcost/internal/uom"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SpoilageInput records wasted stock in any unit convertible to the item's.
type SpoilageInput struct {
	ItemID  int
	Qty     decimal.Decimal
	Unit    string // empty means the item's base unit
	Date    time.Time
	Remarks string
}

// SpoilageFilter narrows spoilage queries. Zero values match everything.
type SpoilageFilter struct {
	ItemID     *int
	CategoryID *int
	Search     string // case-insensitive substring of the item name
}

// SpoilageRow is a spoilage costed at the item's weighted-average net unit
// cost as of the end of the queried window. Both cost fields are null when
// the item has no eligible add-stock rows.
type SpoilageRow struct {
	Spoilage
	ItemName       string              `json:"item_name"`
	ItemUOMAbbrev  string              `json:"item_uom_abbrev"`
	AvgUnitCostNet decimal.NullDecimal `json:"avg_unit_cost_net"`
	TotalCostNet   decimal.NullDecimal `json:"total_cost_net"`
}

// SpoilageTotal aggregates every spoilage matching a window and filter.
// TotalCostNet sums only rows that have a cost; it is null when rows exist but
// none of them could be costed. RowsWithoutCost counts the uncosted rows.
type SpoilageTotal struct {
	Count           int                 `json:"count"`
	TotalCostNet    decimal.NullDecimal `json:"total_cost_net"`
	RowsWithoutCost int                 `json:"rows_without_cost"`
}

// SpoilageService is the spoilage costing engine.
type SpoilageService interface {
	AddSpoilage(ctx context.Context, input SpoilageInput) (*Spoilage, error)
	GetSpoilagesTotal(ctx context.Context, window DateWindow, filter SpoilageFilter) (*SpoilageTotal, error)
	GetSpoilages(ctx context.Context, window DateWindow, filter SpoilageFilter, paging Paging) ([]SpoilageRow, error)
	VoidSpoilage(ctx context.Context, spoilageID int) error
}

type spoilageService struct {
	pool  *pgxpool.Pool
	guard WriteGuard
	log   logrus.FieldLogger
}

func NewSpoilageService(pool *pgxpool.Pool, guard WriteGuard, log logrus.FieldLogger) SpoilageService {
	if guard == nil {
		guard = AllowWrites{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &spoilageService{pool: pool, guard: guard, log: log.WithField("module", "spoilage")}
}

func (s *spoilageService) AddSpoilage(ctx context.Context, input SpoilageInput) (*Spoilage, error) {
	if !input.Qty.IsPositive() {
		return nil, validationf("qty", "quantity must be positive, got %s", input.Qty)
	}
	if err := s.guard.CheckWritable(ctx); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	item, err := loadItem(ctx, tx, input.ItemID)
	if err != nil {
		return nil, err
	}
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = item.UOMAbbrev
	}
	baseQty, err := uom.NormalizeToItem(item.Units(), input.Qty, unit)
	if err != nil {
		return nil, fmt.Errorf("item %d (%s): %w", item.ID, item.Name, err)
	}

	var sp Spoilage
	err = tx.QueryRow(ctx, `
		INSERT INTO spoilages (item_id, in_spoilage_qty, in_spoilage_uom_abbrev, in_spoilage_qty_based_on_item_uom,
		                       in_spoilage_date, remarks)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+spoilageColumns,
		item.ID, input.Qty, unit, baseQty, dateOrToday(input.Date), input.Remarks,
	).Scan(spoilageScanDest(&sp)...)
	if err != nil {
		s.log.WithField("func", "AddSpoilage").WithError(err).Error("failed to insert spoilage")
		return nil, fmt.Errorf("failed to insert spoilage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit spoilage: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"spoilage_id": sp.ID,
		"item_id":     sp.ItemID,
		"base_qty":    sp.InSpoilageQtyBasedOnItemUOM.String(),
	}).Info("spoilage recorded")
	return &sp, nil
}

func (s *spoilageService) VoidSpoilage(ctx context.Context, spoilageID int) error {
	if err := s.guard.CheckWritable(ctx); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, "UPDATE spoilages SET voided = true WHERE id = $1 AND voided = false", spoilageID)
	if err != nil {
		return fmt.Errorf("failed to void spoilage %d: %w", spoilageID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("spoilage %d (or already voided)", spoilageID)
	}
	return nil
}

func (s *spoilageService) GetSpoilages(ctx context.Context, window DateWindow, filter SpoilageFilter, paging Paging) ([]SpoilageRow, error) {
	rows, err := s.querySpoilages(ctx, window, filter, paging)
	if err != nil {
		return nil, err
	}
	if err := s.costRows(ctx, window, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *spoilageService) GetSpoilagesTotal(ctx context.Context, window DateWindow, filter SpoilageFilter) (*SpoilageTotal, error) {
	rows, err := s.querySpoilages(ctx, window, filter, Paging{})
	if err != nil {
		return nil, err
	}
	if err := s.costRows(ctx, window, rows); err != nil {
		return nil, err
	}
	return SumSpoilages(rows), nil
}

// SumSpoilages folds costed rows into a SpoilageTotal.
func SumSpoilages(rows []SpoilageRow) *SpoilageTotal {
	total := &SpoilageTotal{Count: len(rows)}
	sum := decimal.Zero
	for _, r := range rows {
		if !r.TotalCostNet.Valid {
			total.RowsWithoutCost++
			continue
		}
		sum = sum.Add(r.TotalCostNet.Decimal)
	}
	if total.Count == 0 || total.RowsWithoutCost < total.Count {
		total.TotalCostNet = decimal.NewNullDecimal(sum)
	}
	return total
}

// costRows fills the cost fields. The average is computed once per item as of
// the window's end date, or today for an open window.
func (s *spoilageService) costRows(ctx context.Context, window DateWindow, rows []SpoilageRow) error {
	asOf := dateOrToday(window.To)
	averages := make(map[int]decimal.NullDecimal)
	for i := range rows {
		r := &rows[i]
		avg, ok := averages[r.ItemID]
		if !ok {
			costSum, qtySum, err := averageCostSums(ctx, s.pool, r.ItemID, asOf)
			if err != nil {
				return err
			}
			avg = WeightedAverage(costSum, qtySum)
			averages[r.ItemID] = avg
		}
		r.AvgUnitCostNet = avg
		r.TotalCostNet = decimal.NullDecimal{}
		if avg.Valid {
			r.TotalCostNet = decimal.NewNullDecimal(LineTotal(avg.Decimal, r.InSpoilageQtyBasedOnItemUOM))
		}
	}
	return nil
}

const spoilageColumns = `id, item_id, in_spoilage_qty, in_spoilage_uom_abbrev, in_spoilage_qty_based_on_item_uom,
	in_spoilage_date, remarks, voided, created_at`

func spoilageScanDest(sp *Spoilage) []any {
	return []any{&sp.ID, &sp.ItemID, &sp.InSpoilageQty, &sp.InSpoilageUOMAbbrev, &sp.InSpoilageQtyBasedOnItemUOM,
		&sp.InSpoilageDate, &sp.Remarks, &sp.Voided, &sp.CreatedAt}
}

func (s *spoilageService) querySpoilages(ctx context.Context, window DateWindow, filter SpoilageFilter, paging Paging) ([]SpoilageRow, error) {
	from, to := window.bounds()
	q := `
		SELECT sp.id, sp.item_id, sp.in_spoilage_qty, sp.in_spoilage_uom_abbrev, sp.in_spoilage_qty_based_on_item_uom,
		       sp.in_spoilage_date, sp.remarks, sp.voided, sp.created_at,
		       i.name, i.uom_abbrev
		FROM spoilages sp
		JOIN items i ON i.id = sp.item_id
		WHERE sp.voided = false
		  AND sp.in_spoilage_date BETWEEN $1 AND $2`

	args := []any{from, to}
	if filter.ItemID != nil {
		args = append(args, *filter.ItemID)
		q += fmt.Sprintf(" AND sp.item_id = $%d", len(args))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		q += fmt.Sprintf(" AND i.category_id = $%d", len(args))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		q += fmt.Sprintf(" AND i.name ILIKE $%d", len(args))
	}
	q += " ORDER BY sp.in_spoilage_date DESC, sp.id DESC"
	if paging.Limit > 0 {
		args = append(args, paging.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if paging.Offset > 0 {
		args = append(args, paging.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query spoilages: %w", err)
	}
	defer rows.Close()

	var result []SpoilageRow
	for rows.Next() {
		var r SpoilageRow
		dest := append(spoilageScanDest(&r.Spoilage), &r.ItemName, &r.ItemUOMAbbrev)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan spoilage: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
