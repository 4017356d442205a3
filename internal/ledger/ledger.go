package ledger

import (
	"time"

	"techpay/internal/model"

	"github.com/shopspring/decimal"
)

// Payment status values derived for an order
const (
	StatusNew           = "new"
	StatusInProgress    = "in_progress"
	StatusPartiallyPaid = "partially_paid"
	StatusPaid          = "paid"
)

// Facts are the stored inputs the ledger derives an order summary from
type Facts struct {
	OrderID          uint
	Price            decimal.Decimal
	MaterialCost     decimal.Decimal
	Terms            Terms
	DateToWork       *time.Time
	DateAdvancePaid  *time.Time
	DateInstallation *time.Time
	DateFinalPaid    *time.Time
	AdvancePaid      decimal.Decimal // sum of advance allocations
	FinalPaid        decimal.Decimal // sum of final allocations
	UnpaidFines      decimal.Decimal // deductions with is_paid = false
}

// FactsFor gathers Facts for an order. c is the assigned constructor or nil.
func FactsFor(o *model.Order, c *model.Constructor, paid model.StagePaid, unpaidFines decimal.Decimal) (Facts, error) {
	terms, err := ResolveTerms(o, c)
	if err != nil {
		return Facts{}, err
	}
	return Facts{
		OrderID:          o.ID,
		Price:            o.Price,
		MaterialCost:     o.MaterialCost,
		Terms:            terms,
		DateToWork:       o.DateToWork,
		DateAdvancePaid:  o.DateAdvancePaid,
		DateInstallation: o.DateInstallation,
		DateFinalPaid:    o.DateFinalPaid,
		AdvancePaid:      paid.Advance,
		FinalPaid:        paid.Final,
		UnpaidFines:      unpaidFines,
	}, nil
}

// Summary is the derived financial view of one order
type Summary struct {
	OrderID            uint
	Bonus              decimal.Decimal
	AdvanceAmount      decimal.Decimal
	FinalAmount        decimal.Decimal
	AdvancePaid        decimal.Decimal
	FinalPaid          decimal.Decimal
	AdvanceOutstanding decimal.Decimal
	FinalOutstanding   decimal.Decimal
	RemainderAmount    decimal.Decimal
	CurrentDebt        decimal.Decimal
	IsCriticalDebt     bool
	UnpaidFines        decimal.Decimal
	AdjustedDebt       decimal.Decimal // CurrentDebt minus unpaid fines, may be negative
	EffectivelyPaid    bool
	PaymentStatus      string
}

// Summarize derives the order summary. It has no side effects and gives the
// same result for the same facts.
func Summarize(f Facts) (Summary, error) {
	if err := f.Terms.Validate(); err != nil {
		return Summary{}, err
	}

	bonus := f.Terms.Bonus(f.Price, f.MaterialCost)
	advance, final := f.Terms.StageAmounts(bonus)

	s := Summary{
		OrderID:            f.OrderID,
		Bonus:              bonus,
		AdvanceAmount:      advance,
		FinalAmount:        final,
		AdvancePaid:        f.AdvancePaid,
		FinalPaid:          f.FinalPaid,
		AdvanceOutstanding: Outstanding(advance, f.AdvancePaid),
		FinalOutstanding:   Outstanding(final, f.FinalPaid),
		UnpaidFines:        f.UnpaidFines,
	}
	s.RemainderAmount = s.AdvanceOutstanding.Add(s.FinalOutstanding)

	// Installed but final stage not fully received
	s.IsCriticalDebt = f.DateInstallation != nil && s.FinalOutstanding.IsPositive()
	if s.IsCriticalDebt {
		s.CurrentDebt = s.FinalOutstanding
	} else {
		s.CurrentDebt = s.RemainderAmount
	}

	s.AdjustedDebt = s.CurrentDebt.Sub(f.UnpaidFines)
	s.EffectivelyPaid = s.AdjustedDebt.LessThanOrEqual(Epsilon)
	s.PaymentStatus = paymentStatus(f, s)
	return s, nil
}

func paymentStatus(f Facts, s Summary) string {
	switch {
	case f.DateFinalPaid != nil:
		return StatusPaid
	case s.RemainderAmount.IsZero() && s.AdvancePaid.Add(s.FinalPaid).IsPositive():
		return StatusPaid
	case f.DateAdvancePaid != nil || s.AdvancePaid.IsPositive():
		return StatusPartiallyPaid
	case f.DateToWork != nil:
		return StatusInProgress
	default:
		return StatusNew
	}
}

// Totals are dashboard-level aggregates over many order summaries
type Totals struct {
	PositiveDebt          decimal.Decimal
	NegativeDebt          decimal.Decimal
	NetDebt               decimal.Decimal
	CustomerCreditBalance decimal.Decimal
}

// Aggregate nets adjusted debts. NetDebt and CustomerCreditBalance are never
// both positive.
func Aggregate(summaries []Summary) Totals {
	var t Totals
	for _, s := range summaries {
		switch {
		case s.AdjustedDebt.IsPositive():
			t.PositiveDebt = t.PositiveDebt.Add(s.AdjustedDebt)
		case s.AdjustedDebt.IsNegative():
			t.NegativeDebt = t.NegativeDebt.Add(s.AdjustedDebt.Abs())
		}
	}
	t.NetDebt = decimal.Max(decimal.Zero, t.PositiveDebt.Sub(t.NegativeDebt))
	t.CustomerCreditBalance = decimal.Max(decimal.Zero, t.NegativeDebt.Sub(t.PositiveDebt))
	return t
}
