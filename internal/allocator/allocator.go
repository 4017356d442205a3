// Package allocator plans how an incoming payment is spread over the
// outstanding advance and final stages of orders. It performs no I/O; the
// payment service persists the resulting plan inside one transaction.
package allocator

import (
	"sort"
	"time"

	"techpay/internal/apperr"
	"techpay/internal/ledger"
	"techpay/internal/model"

	"github.com/shopspring/decimal"
)

// Target is an order that may receive money, with what is still owed per stage
type Target struct {
	OrderID            uint
	OrderName          string
	AdvanceOutstanding decimal.Decimal
	FinalOutstanding   decimal.Decimal
	AdvanceDue         *time.Time // date_to_work
	FinalDue           *time.Time // date_installation
}

// TargetFor builds a Target from an order and its current ledger summary
func TargetFor(o *model.Order, s ledger.Summary) Target {
	return Target{
		OrderID:            o.ID,
		OrderName:          o.Name,
		AdvanceOutstanding: s.AdvanceOutstanding,
		FinalOutstanding:   s.FinalOutstanding,
		AdvanceDue:         o.DateToWork,
		FinalDue:           o.DateInstallation,
	}
}

// Outstanding is the total still owed on both stages
func (t Target) Outstanding() decimal.Decimal {
	return t.AdvanceOutstanding.Add(t.FinalOutstanding)
}

// DueDate is the due date of the stage currently outstanding
func (t Target) DueDate() *time.Time {
	if t.AdvanceOutstanding.IsPositive() {
		return t.AdvanceDue
	}
	return t.FinalDue
}

// Line is one planned allocation of a payment to an order stage
type Line struct {
	OrderID   uint
	OrderName string
	Stage     string
	Amount    decimal.Decimal
}

// Plan is the full outcome of allocating one payment.
// Allocated + Remaining always equals the payment amount.
type Plan struct {
	Lines     []Line
	Allocated decimal.Decimal
	Remaining decimal.Decimal
}

// FullyAllocated reports whether nothing is left over
func (p Plan) FullyAllocated() bool {
	return p.Remaining.IsZero()
}

// Manual applies amount to a single order, advance first then final.
// Whatever does not fit is left as Remaining.
func Manual(amount decimal.Decimal, target Target) (Plan, error) {
	if err := checkAmount(amount); err != nil {
		return Plan{}, err
	}
	p := newPlan(amount)
	p.apply(target)
	return p.Plan, nil
}

// Auto spreads amount across targets ordered by the due date of their
// outstanding stage. Targets without a due date go last; ties are broken by
// order id. No targets is not an error: the whole amount stays Remaining.
func Auto(amount decimal.Decimal, targets []Target) (Plan, error) {
	if err := checkAmount(amount); err != nil {
		return Plan{}, err
	}
	p := newPlan(amount)
	for _, t := range SortByDue(targets) {
		if p.Remaining.IsZero() {
			break
		}
		p.apply(t)
	}
	return p.Plan, nil
}

// SortByDue returns a sorted copy of targets in allocation order
func SortByDue(targets []Target) []Target {
	sorted := make([]Target, len(targets))
	copy(sorted, targets)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := sorted[i].DueDate(), sorted[j].DueDate()
		switch {
		case di != nil && dj != nil:
			if !di.Equal(*dj) {
				return di.Before(*dj)
			}
		case di != nil:
			return true
		case dj != nil:
			return false
		}
		return sorted[i].OrderID < sorted[j].OrderID
	})
	return sorted
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.Validation("INVALID_AMOUNT", "payment amount must be positive, got %s", amount)
	}
	return nil
}

type planner struct {
	Plan
}

func newPlan(amount decimal.Decimal) *planner {
	return &planner{Plan: Plan{
		Lines:     make([]Line, 0),
		Allocated: decimal.Zero,
		Remaining: amount,
	}}
}

func (p *planner) apply(t Target) {
	p.take(t, model.StageAdvance, t.AdvanceOutstanding)
	p.take(t, model.StageFinal, t.FinalOutstanding)
}

// take clamps to both the remaining payment and the stage's outstanding balance
func (p *planner) take(t Target, stage string, outstanding decimal.Decimal) {
	if !p.Remaining.IsPositive() || !outstanding.IsPositive() {
		return
	}
	amount := decimal.Min(p.Remaining, outstanding)
	p.Lines = append(p.Lines, Line{
		OrderID:   t.OrderID,
		OrderName: t.OrderName,
		Stage:     stage,
		Amount:    amount,
	})
	p.Allocated = p.Allocated.Add(amount)
	p.Remaining = p.Remaining.Sub(amount)
}
