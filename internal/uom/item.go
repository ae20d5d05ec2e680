package uom

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemUnits is the unit configuration of a stock item.
//
// When PerPiece is set, the item is stocked in pieces (BaseAbbrev, usually
// "pc") and each piece holds QtyPerPiece of PerPieceAbbrev, e.g. a bottle of
// 750 ml.
type ItemUnits struct {
	BaseAbbrev     string
	PerPiece       bool
	PerPieceAbbrev string
	QtyPerPiece    decimal.Decimal
}

// NormalizeToItem expresses qty of unit in the item's base unit.
//
// For per-piece items a quantity given in the base unit is returned as is;
// any other unit is first converted to the per-piece unit and then divided by
// the quantity per piece, giving a piece count.
func NormalizeToItem(item ItemUnits, qty decimal.Decimal, unit string) (decimal.Decimal, error) {
	if unit == "" || unit == item.BaseAbbrev {
		return qty, nil
	}
	if !item.PerPiece {
		return Convert(qty, unit, item.BaseAbbrev)
	}

	if !item.QtyPerPiece.IsPositive() {
		return decimal.Zero, &ConversionError{Qty: qty, From: unit, To: item.BaseAbbrev,
			Msg: fmt.Sprintf("qty per piece must be positive, got %s", item.QtyPerPiece.String())}
	}
	inPieceUnit, err := Convert(qty, unit, item.PerPieceAbbrev)
	if err != nil {
		return decimal.Zero, err
	}
	return inPieceUnit.Div(item.QtyPerPiece), nil
}
