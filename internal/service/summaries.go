package service

import (
	"context"
	"fmt"
	"time"

	"techpay/internal/apperr"
	"techpay/internal/ledger"
	"techpay/internal/model"
	"techpay/internal/repository"

	"github.com/shopspring/decimal"
)

// ledgerReader loads the stored facts of orders and derives their summaries.
// Inside a transaction it reads through the transaction.
type ledgerReader struct {
	orders       repository.OrderRepository
	constructors repository.ConstructorRepository
	allocations  repository.AllocationRepository
	deductions   repository.DeductionRepository
}

func (l ledgerReader) summaries(ctx context.Context, orders []model.Order) ([]ledger.Summary, error) {
	if len(orders) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(orders))
	var constructorIDs []uint
	for i := range orders {
		ids[i] = orders[i].ID
		if orders[i].ConstructorID != nil && orders[i].Constructor == nil {
			constructorIDs = append(constructorIDs, *orders[i].ConstructorID)
		}
	}

	constructors, err := l.constructors.FindByIDs(ctx, constructorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load constructors: %w", err)
	}
	paid, err := l.allocations.PaidByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to sum allocations: %w", err)
	}
	fines, err := l.deductions.UnpaidByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to sum deductions: %w", err)
	}

	out := make([]ledger.Summary, len(orders))
	for i := range orders {
		o := &orders[i]
		c := o.Constructor
		if c == nil && o.ConstructorID != nil {
			c = constructors[*o.ConstructorID]
		}
		facts, err := ledger.FactsFor(o, c, paid[o.ID], fines[o.ID])
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", o.ID, err)
		}
		s, err := ledger.Summarize(facts)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", o.ID, err)
		}
		out[i] = s
	}
	return out, nil
}

func (l ledgerReader) summary(ctx context.Context, o *model.Order) (ledger.Summary, error) {
	out, err := l.summaries(ctx, []model.Order{*o})
	if err != nil {
		return ledger.Summary{}, err
	}
	return out[0], nil
}

// reconcile re-reads the touched orders after their allocations changed.
// It fails with a consistency error when a stage received more than its
// amount, stamps stages that just filled with paidOn (when given) and, when
// clearUnfilled is set, clears paid dates of stages that are no longer full.
func (l ledgerReader) reconcile(ctx context.Context, orderIDs []uint, paidOn *time.Time, clearUnfilled bool) error {
	orders, err := l.orders.FindByIDs(ctx, orderIDs)
	if err != nil {
		return fmt.Errorf("failed to reload orders: %w", err)
	}
	summaries, err := l.summaries(ctx, orders)
	if err != nil {
		return err
	}

	for i, s := range summaries {
		o := &orders[i]
		if s.AdvancePaid.Sub(s.AdvanceAmount).GreaterThan(decimal.Zero) ||
			s.FinalPaid.Sub(s.FinalAmount).GreaterThan(decimal.Zero) {
			return apperr.Consistency("order %d received more than its stage amounts (advance %s/%s, final %s/%s)",
				o.ID, money(s.AdvancePaid), money(s.AdvanceAmount), money(s.FinalPaid), money(s.FinalAmount))
		}

		advance := stageDate(o.DateAdvancePaid, s.AdvanceAmount, s.AdvanceOutstanding, paidOn, clearUnfilled)
		final := stageDate(o.DateFinalPaid, s.FinalAmount, s.FinalOutstanding, paidOn, clearUnfilled)
		if sameDate(advance, o.DateAdvancePaid) && sameDate(final, o.DateFinalPaid) {
			continue
		}
		if err := l.orders.SetStageDates(ctx, o.ID, advance, final); err != nil {
			return fmt.Errorf("failed to update paid dates of order %d: %w", o.ID, err)
		}
	}
	return nil
}

func stageDate(current *time.Time, amount, outstanding decimal.Decimal, paidOn *time.Time, clearUnfilled bool) *time.Time {
	full := amount.IsPositive() && outstanding.IsZero()
	switch {
	case full && current == nil && paidOn != nil:
		return paidOn
	case !full && current != nil && clearUnfilled:
		return nil
	}
	return current
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
