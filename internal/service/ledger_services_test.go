package service

import (
	"context"
	"testing"
	"time"

	"techpay/internal/apperr"
	"techpay/internal/model"
	"techpay/internal/repository"
	ws "techpay/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeductions_FinesTurnIntoCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.constructor(t, "Ivan", "10")
	// bonus 400, 50/50; 200 paid leaves current debt 200
	o := env.order(t, "Kitchen", c.ID, "4000")
	env.pay(t, "200", uintPtr(o.ID), nil)

	d, err := env.deductions.CreateDeduction(ctx, CreateDeductionRequest{
		OrderID:     o.ID,
		Amount:      "250",
		Description: "damaged facade",
		DateCreated: "2024-03-05",
	})
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", d.OrderName)
	assert.False(t, d.IsPaid)
	assert.Nil(t, d.DatePaid)

	s := env.summary(t, o.ID)
	assert.Equal(t, "200.00", s.CurrentDebt)
	assert.Equal(t, "250.00", s.UnpaidFines)
	assert.Equal(t, "-50.00", s.AdjustedDebt)
	assert.True(t, s.EffectivelyPaid)

	stats, err := env.statistics.GetFinancialStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.00", stats.PositiveDebt)
	assert.Equal(t, "50.00", stats.NegativeDebt)
	assert.Equal(t, "0.00", stats.NetDebt)
	assert.Equal(t, "50.00", stats.CustomerCreditBalance)
	assert.Equal(t, "250.00", stats.TotalFinesUnpaid)
	assert.Equal(t, "250.00", stats.TotalFinesAll)
	require.Len(t, stats.PerConstructor, 1)
	assert.Equal(t, "0.00", stats.PerConstructor[0].Debt)
	assert.Equal(t, "50.00", stats.PerConstructor[0].Credit)

	t.Run("paying the fine restores the debt", func(t *testing.T) {
		updated, err := env.deductions.UpdateDeduction(ctx, d.ID, UpdateDeductionRequest{IsPaid: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, updated.IsPaid)
		require.NotNil(t, updated.DatePaid, "paid fines get a date")

		s := env.summary(t, o.ID)
		assert.Equal(t, "0.00", s.UnpaidFines)
		assert.Equal(t, "200.00", s.AdjustedDebt)

		stats, err := env.statistics.GetFinancialStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, "200.00", stats.NetDebt)
		assert.Equal(t, "0.00", stats.TotalFinesUnpaid)
		assert.Equal(t, "250.00", stats.TotalFinesAll)
	})

	t.Run("unpaying clears the date", func(t *testing.T) {
		updated, err := env.deductions.UpdateDeduction(ctx, d.ID, UpdateDeductionRequest{IsPaid: boolPtr(false)})
		require.NoError(t, err)
		assert.Nil(t, updated.DatePaid)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, env.deductions.DeleteDeduction(ctx, d.ID))
		assert.True(t, apperr.IsNotFound(env.deductions.DeleteDeduction(ctx, d.ID)))
		assert.Contains(t, env.hub.names(), ws.EventDeductionChanged)
	})
}

func TestDeductions_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.constructor(t, "Ivan", "10")
	o := env.order(t, "Kitchen", c.ID, "4000")

	_, err := env.deductions.CreateDeduction(ctx, CreateDeductionRequest{OrderID: o.ID, Amount: "-1", Description: "x"})
	assert.Equal(t, "INVALID_AMOUNT", apperr.CodeOf(err))

	_, err = env.deductions.CreateDeduction(ctx, CreateDeductionRequest{OrderID: 999, Amount: "1", Description: "x"})
	assert.True(t, apperr.IsNotFound(err))

	_, err = env.deductions.CreateDeduction(ctx, CreateDeductionRequest{OrderID: o.ID, Amount: "1", Description: "  "})
	assert.Equal(t, "DESCRIPTION_REQUIRED", apperr.CodeOf(err))
}

func TestDeductions_DefaultDates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.constructor(t, "Ivan", "10")
	o := env.order(t, "Kitchen", c.ID, "4000")

	svc := env.deductions.(*deductionService)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC) }

	d, err := env.deductions.CreateDeduction(ctx, CreateDeductionRequest{OrderID: o.ID, Amount: "20", Description: "late", IsPaid: true})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15", d.DateCreated)
	require.NotNil(t, d.DatePaid)
	assert.Equal(t, "2024-06-15", *d.DatePaid)
}

func TestFinancialStats_Unallocated(t *testing.T) {
	ctx := context.Background()

	setup := func(env *testEnv) {
		c := env.constructor(t, "Ivan", "10")
		o := env.order(t, "Kitchen", c.ID, "4000")
		// 500 received, 400 fits the order
		env.pay(t, "500", uintPtr(o.ID), nil)
		// fine of 100 on a paid-up order is pure credit
		_, err := env.deductions.CreateDeduction(ctx, CreateDeductionRequest{OrderID: o.ID, Amount: "100", Description: "fine"})
		require.NoError(t, err)
	}

	t.Run("credit reported separately by default", func(t *testing.T) {
		env := newTestEnv(t)
		setup(env)
		stats, err := env.statistics.GetFinancialStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, "500.00", stats.TotalReceived)
		assert.Equal(t, "400.00", stats.TotalAllocated)
		assert.Equal(t, "100.00", stats.UnallocatedTotal)
		assert.Equal(t, "100.00", stats.CustomerCreditBalance)
		require.Len(t, stats.PerConstructor, 1)
		assert.Equal(t, "100.00", stats.PerConstructor[0].Unallocated)
	})

	t.Run("credit folded in when configured", func(t *testing.T) {
		env := newTestEnv(t, func(_ *PaymentOptions, s *StatisticsOptions) { s.UnallocatedIncludesCredit = true })
		setup(env)
		stats, err := env.statistics.GetFinancialStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, "200.00", stats.UnallocatedTotal)
	})

	t.Run("served from cache until invalidated", func(t *testing.T) {
		env := newTestEnv(t)
		setup(env)
		_, err := env.statistics.GetFinancialStats(ctx)
		require.NoError(t, err)
		_, ok, err := env.stats.Get(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		env.constructor(t, "Olena", "5")
		_, ok, _ = env.stats.Get(ctx)
		assert.True(t, ok, "constructor creation changes no money figures")

		_, err = env.deductions.CreateDeduction(ctx, CreateDeductionRequest{OrderID: 1, Amount: "1", Description: "x"})
		require.NoError(t, err)
		_, ok, _ = env.stats.Get(ctx)
		assert.False(t, ok)
	})
}

func TestConstructors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.constructors.CreateConstructor(ctx, ConstructorRequest{FullName: strPtr("Ivan")})
	require.NoError(t, err)
	assert.True(t, c.IsActive)
	assert.Equal(t, model.BonusModeSalesPercent, c.BonusMode)
	assert.Equal(t, "50", c.Stage1Percent)
	assert.Equal(t, "50", c.Stage2Percent)
	assert.Equal(t, "0", c.SalaryPercent)

	t.Run("one stage percent implies the other", func(t *testing.T) {
		got, err := env.constructors.UpdateConstructor(ctx, c.ID, ConstructorRequest{Stage1Percent: strPtr("40")})
		require.NoError(t, err)
		assert.Equal(t, "40", got.Stage1Percent)
		assert.Equal(t, "60", got.Stage2Percent)
	})

	t.Run("rejects a split not summing to 100", func(t *testing.T) {
		_, err := env.constructors.UpdateConstructor(ctx, c.ID, ConstructorRequest{
			Stage1Percent: strPtr("40"),
			Stage2Percent: strPtr("40"),
		})
		assert.Equal(t, "INVALID_STAGE_SPLIT", apperr.CodeOf(err))
	})

	t.Run("inactive constructors drop out of the active list", func(t *testing.T) {
		_, err := env.constructors.UpdateConstructor(ctx, c.ID, ConstructorRequest{IsActive: boolPtr(false)})
		require.NoError(t, err)
		env.constructor(t, "Olena", "5")

		active, err := env.constructors.ListConstructors(ctx, true)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "Olena", active[0].FullName)

		all, err := env.constructors.ListConstructors(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("fixed_amount mode uses the constructor amount", func(t *testing.T) {
		got, err := env.constructors.UpdateConstructor(ctx, c.ID, ConstructorRequest{
			BonusMode:   strPtr(model.BonusModeFixedAmount),
			FixedAmount: strPtr("300"),
		})
		require.NoError(t, err)
		require.NotNil(t, got.FixedAmount)

		o := env.order(t, "Hall", c.ID, "10000")
		assert.Equal(t, "300.00", o.Summary.Bonus)
		assert.Equal(t, "120.00", o.Summary.AdvanceAmount)
	})

	t.Run("rejects terms that undercut paid stages", func(t *testing.T) {
		got, err := env.constructors.UpdateConstructor(ctx, c.ID, ConstructorRequest{Stage1Percent: strPtr("50")})
		require.NoError(t, err)
		orders, _, err := env.orders.ListOrders(ctx, repository.OrderFilter{ConstructorID: uintPtr(got.ID)}, 1, 10)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		env.pay(t, "150", uintPtr(orders[0].ID), nil)

		_, err = env.constructors.UpdateConstructor(ctx, c.ID, ConstructorRequest{Stage1Percent: strPtr("10")})
		assert.Equal(t, "STAGE_OVERPAID", apperr.CodeOf(err))
	})

	_, err = env.constructors.GetConstructor(ctx, 999)
	assert.True(t, apperr.IsNotFound(err))
}
