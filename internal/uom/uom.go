// Package uom converts quantities between units of measure.
//
// Units are grouped by dimension. Each unit carries a factor to the dimension's
// anchor unit (g for mass, ml for volume, ea for count, mm for length), so a
// conversion is qty * from.factor / to.factor. Abbreviations are case-sensitive
// ("Tbs" and "tsp" differ) and match the abbreviations stored on items.
package uom

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Dimension is the physical quantity a unit measures.
type Dimension string

const (
	Mass   Dimension = "mass"
	Volume Dimension = "volume"
	Count  Dimension = "each"
	Length Dimension = "length"
)

// Unit is one entry in the conversion table.
type Unit struct {
	Abbrev    string
	Singular  string
	Plural    string
	Dimension Dimension
	// toAnchor converts one of this unit to the dimension's anchor unit.
	toAnchor decimal.Decimal
}

// ErrIncompatibleUnits is returned when source and target belong to different
// dimensions, or when either abbreviation is unknown.
var ErrIncompatibleUnits = errors.New("incompatible units")

// ConversionError describes a failed conversion. It unwraps to ErrIncompatibleUnits.
type ConversionError struct {
	Qty  decimal.Decimal
	From string
	To   string
	Msg  string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s %s to %s: %s", e.Qty.String(), e.From, e.To, e.Msg)
}

func (e *ConversionError) Unwrap() error {
	return ErrIncompatibleUnits
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var table = map[string]Unit{
	// mass, anchor g
	"mcg": {Abbrev: "mcg", Singular: "Microgram", Plural: "Micrograms", Dimension: Mass, toAnchor: d("0.000001")},
	"mg":  {Abbrev: "mg", Singular: "Milligram", Plural: "Milligrams", Dimension: Mass, toAnchor: d("0.001")},
	"g":   {Abbrev: "g", Singular: "Gram", Plural: "Grams", Dimension: Mass, toAnchor: d("1")},
	"kg":  {Abbrev: "kg", Singular: "Kilogram", Plural: "Kilograms", Dimension: Mass, toAnchor: d("1000")},
	"mt":  {Abbrev: "mt", Singular: "Metric Tonne", Plural: "Metric Tonnes", Dimension: Mass, toAnchor: d("1000000")},
	"oz":  {Abbrev: "oz", Singular: "Ounce", Plural: "Ounces", Dimension: Mass, toAnchor: d("28.349523125")},
	"lb":  {Abbrev: "lb", Singular: "Pound", Plural: "Pounds", Dimension: Mass, toAnchor: d("453.59237")},

	// volume, anchor ml
	"ml":    {Abbrev: "ml", Singular: "Millilitre", Plural: "Millilitres", Dimension: Volume, toAnchor: d("1")},
	"cl":    {Abbrev: "cl", Singular: "Centilitre", Plural: "Centilitres", Dimension: Volume, toAnchor: d("10")},
	"dl":    {Abbrev: "dl", Singular: "Decilitre", Plural: "Decilitres", Dimension: Volume, toAnchor: d("100")},
	"l":     {Abbrev: "l", Singular: "Litre", Plural: "Litres", Dimension: Volume, toAnchor: d("1000")},
	"kl":    {Abbrev: "kl", Singular: "Kilolitre", Plural: "Kilolitres", Dimension: Volume, toAnchor: d("1000000")},
	"tsp":   {Abbrev: "tsp", Singular: "Teaspoon", Plural: "Teaspoons", Dimension: Volume, toAnchor: d("4.92892159375")},
	"Tbs":   {Abbrev: "Tbs", Singular: "Tablespoon", Plural: "Tablespoons", Dimension: Volume, toAnchor: d("14.78676478125")},
	"fl-oz": {Abbrev: "fl-oz", Singular: "Fluid Ounce", Plural: "Fluid Ounces", Dimension: Volume, toAnchor: d("29.5735295625")},
	"cup":   {Abbrev: "cup", Singular: "Cup", Plural: "Cups", Dimension: Volume, toAnchor: d("236.5882365")},
	"pnt":   {Abbrev: "pnt", Singular: "Pint", Plural: "Pints", Dimension: Volume, toAnchor: d("473.176473")},
	"qt":    {Abbrev: "qt", Singular: "Quart", Plural: "Quarts", Dimension: Volume, toAnchor: d("946.352946")},
	"gal":   {Abbrev: "gal", Singular: "Gallon", Plural: "Gallons", Dimension: Volume, toAnchor: d("3785.411784")},

	// count, anchor ea
	"ea": {Abbrev: "ea", Singular: "Each", Plural: "Each", Dimension: Count, toAnchor: d("1")},
	"pc": {Abbrev: "pc", Singular: "Piece", Plural: "Pieces", Dimension: Count, toAnchor: d("1")},
	"dz": {Abbrev: "dz", Singular: "Dozen", Plural: "Dozens", Dimension: Count, toAnchor: d("12")},

	// length, anchor mm
	"mm": {Abbrev: "mm", Singular: "Millimeter", Plural: "Millimeters", Dimension: Length, toAnchor: d("1")},
	"cm": {Abbrev: "cm", Singular: "Centimeter", Plural: "Centimeters", Dimension: Length, toAnchor: d("10")},
	"m":  {Abbrev: "m", Singular: "Meter", Plural: "Meters", Dimension: Length, toAnchor: d("1000")},
	"in": {Abbrev: "in", Singular: "Inch", Plural: "Inches", Dimension: Length, toAnchor: d("25.4")},
	"ft": {Abbrev: "ft", Singular: "Foot", Plural: "Feet", Dimension: Length, toAnchor: d("304.8")},
}

// Lookup returns the unit registered under abbrev.
func Lookup(abbrev string) (Unit, bool) {
	u, ok := table[abbrev]
	return u, ok
}

// Possibilities lists the abbreviations of every unit in a dimension, sorted.
// An empty dimension lists all units.
func Possibilities(dim Dimension) []string {
	var out []string
	for abbrev, u := range table {
		if dim == "" || u.Dimension == dim {
			out = append(out, abbrev)
		}
	}
	sort.Strings(out)
	return out
}

// Convert returns qty expressed in the target unit.
func Convert(qty decimal.Decimal, from, to string) (decimal.Decimal, error) {
	src, ok := table[from]
	if !ok {
		return decimal.Zero, &ConversionError{Qty: qty, From: from, To: to, Msg: fmt.Sprintf("unknown unit %q", from)}
	}
	dst, ok := table[to]
	if !ok {
		return decimal.Zero, &ConversionError{Qty: qty, From: from, To: to, Msg: fmt.Sprintf("unknown unit %q", to)}
	}
	if src.Dimension != dst.Dimension {
		return decimal.Zero, &ConversionError{Qty: qty, From: from, To: to,
			Msg: fmt.Sprintf("%s is %s, %s is %s", from, src.Dimension, to, dst.Dimension)}
	}
	if from == to {
		return qty, nil
	}
	return qty.Mul(src.toAnchor).Div(dst.toAnchor), nil
}
