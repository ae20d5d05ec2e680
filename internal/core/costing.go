package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// TaxSplit is a gross amount broken into its tax-exclusive and tax parts.
// Gross == Net + Tax holds exactly.
type TaxSplit struct {
	Gross decimal.Decimal `json:"gross"`
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`
}

// SplitGross derives net and tax from a tax-inclusive amount:
//
//	net = gross / (1 + rate/100)
//	tax = gross - net
//
// Results are not rounded; round at presentation time only.
func SplitGross(gross, ratePercentage decimal.Decimal) TaxSplit {
	if ratePercentage.IsZero() {
		return TaxSplit{Gross: gross, Net: gross, Tax: decimal.Zero}
	}
	net := gross.Div(decimal.NewFromInt(1).Add(ratePercentage.Div(hundred)))
	return TaxSplit{Gross: gross, Net: net, Tax: gross.Sub(net)}
}

// GrossFromNet is the inverse of SplitGross for forms that enter prices tax-exclusive.
func GrossFromNet(net, ratePercentage decimal.Decimal) decimal.Decimal {
	return net.Mul(decimal.NewFromInt(1).Add(ratePercentage.Div(hundred)))
}

// WeightedAverage divides a cumulative cost by a cumulative quantity.
// A zero quantity yields an invalid (null) result rather than a division by zero.
func WeightedAverage(costSum, qtySum decimal.Decimal) decimal.NullDecimal {
	if qtySum.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(costSum.Div(qtySum))
}

// LineTotal multiplies a unit amount by a quantity.
func LineTotal(unitAmount, qty decimal.Decimal) decimal.Decimal {
	return unitAmount.Mul(qty)
}
