package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currencyPlaces is the precision at which a due amount is settled.
const currencyPlaces = 2

// AllocatePayments applies tendered amounts, in order, to totalDue rounded to
// currency precision. Per-piece prices sold in other units can carry more
// places than a customer can tender.
//
// Each row's PaymentAmount is the part of the due amount it settles; the
// over-tender is returned as ChangeAmount on the last row. A single line with
// a zero amount is taken as exact payment. Tendering less than totalDue is a
// validation error; on-account sales are not supported.
func AllocatePayments(totalDue decimal.Decimal, tendered []PaymentLine) ([]Payment, error) {
	due := totalDue.Round(currencyPlaces)
	if len(tendered) == 0 {
		return nil, validationf("payments", "at least one payment is required")
	}
	if len(tendered) == 1 && tendered[0].Amount.IsZero() {
		tendered = []PaymentLine{{Method: tendered[0].Method, Amount: due}}
	}

	total := decimal.Zero
	for i, p := range tendered {
		if strings.TrimSpace(p.Method) == "" {
			return nil, validationf("payments", "payment %d: method is required", i+1)
		}
		if p.Amount.IsNegative() {
			return nil, validationf("payments", "payment %d: amount cannot be negative, got %s", i+1, p.Amount)
		}
		total = total.Add(p.Amount)
	}
	if total.LessThan(due) {
		return nil, validationf("payments", "insufficient payment: tendered %s, due %s",
			total.StringFixed(currencyPlaces), due.StringFixed(currencyPlaces))
	}

	payments := make([]Payment, len(tendered))
	remaining := due
	for i, p := range tendered {
		applied := decimal.Min(p.Amount, remaining)
		remaining = remaining.Sub(applied)
		payments[i] = Payment{PaymentMethod: p.Method, PaymentAmount: applied, ChangeAmount: decimal.Zero}
	}
	payments[len(payments)-1].ChangeAmount = total.Sub(due)
	return payments, nil
}
