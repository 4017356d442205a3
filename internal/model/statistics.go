package model

import (
	"github.com/shopspring/decimal"
)

// ConstructorReceipts aggregates payments scoped to one constructor.
// ConstructorID is nil for payments with no constructor scope.
type ConstructorReceipts struct {
	ConstructorID *uint
	Received      decimal.Decimal
	Allocated     decimal.Decimal
}

// Unallocated is the part of the received money not applied to any order
func (r ConstructorReceipts) Unallocated() decimal.Decimal {
	return r.Received.Sub(r.Allocated)
}

// FineTotals sums deductions by paid status
type FineTotals struct {
	Unpaid decimal.Decimal
	Total  decimal.Decimal
}
