package service

import (
	"context"
	"testing"

	"techpay/internal/apperr"
	"techpay/internal/ledger"
	"techpay/internal/model"
	"techpay/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder_Terms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.constructor(t, "Ivan", "10")

	t.Run("inherits constructor defaults", func(t *testing.T) {
		o := env.order(t, "Kitchen", c.ID, "10000")
		assert.Equal(t, model.BonusModeSalesPercent, o.Summary.BonusMode)
		assert.Equal(t, "500.00", o.Summary.AdvanceAmount)
		assert.Equal(t, "500.00", o.Summary.FinalAmount)
		assert.Equal(t, ledger.StatusNew, o.Summary.PaymentStatus)
		require.NotNil(t, o.ConstructorName)
		assert.Equal(t, "Ivan", *o.ConstructorName)
	})

	t.Run("order overrides win", func(t *testing.T) {
		o, err := env.orders.CreateOrder(ctx, OrderRequest{
			Name:          strPtr("Bathroom"),
			Price:         strPtr("10000"),
			MaterialCost:  strPtr("4000"),
			ConstructorID: uintPtr(c.ID),
			BonusMode:     strPtr(model.BonusModeMaterialsPercent),
			Stage1Percent: strPtr("30"),
		})
		require.NoError(t, err)
		assert.Equal(t, "400.00", o.Summary.Bonus)
		assert.Equal(t, "120.00", o.Summary.AdvanceAmount)
		assert.Equal(t, "280.00", o.Summary.FinalAmount)
	})

	t.Run("fixed bonus beats every mode", func(t *testing.T) {
		o, err := env.orders.CreateOrder(ctx, OrderRequest{
			Name:          strPtr("Hall"),
			Price:         strPtr("10000"),
			ConstructorID: uintPtr(c.ID),
			FixedBonus:    strPtr("777"),
		})
		require.NoError(t, err)
		assert.Equal(t, "777.00", o.Summary.Bonus)
	})

	t.Run("unassigned order earns nothing", func(t *testing.T) {
		o := env.order(t, "Spare", 0, "5000")
		assert.Nil(t, o.ConstructorID)
		assert.Equal(t, "0.00", o.Summary.Bonus)
	})

	t.Run("rejects bad configuration", func(t *testing.T) {
		tests := []struct {
			name string
			req  OrderRequest
			code string
		}{
			{"missing name", OrderRequest{Price: strPtr("1")}, "NAME_REQUIRED"},
			{"negative price", OrderRequest{Name: strPtr("x"), Price: strPtr("-1")}, "INVALID_AMOUNT"},
			{"sub-cent price", OrderRequest{Name: strPtr("x"), Price: strPtr("999.999")}, "INVALID_AMOUNT"},
			{"sub-cent fixed bonus", OrderRequest{Name: strPtr("x"), FixedBonus: strPtr("10.001")}, "INVALID_AMOUNT"},
			{"split not 100", OrderRequest{Name: strPtr("x"), Stage1Percent: strPtr("60"), Stage2Percent: strPtr("60")}, "INVALID_STAGE_SPLIT"},
			{"unknown mode", OrderRequest{Name: strPtr("x"), BonusMode: strPtr("hourly")}, "INVALID_BONUS_MODE"},
			{"bad date", OrderRequest{Name: strPtr("x"), DateToWork: strPtr("tomorrow")}, "INVALID_DATE"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.orders.CreateOrder(ctx, tt.req)
				require.Error(t, err)
				assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
				assert.Equal(t, tt.code, apperr.CodeOf(err))
			})
		}

		_, err := env.orders.CreateOrder(ctx, OrderRequest{Name: strPtr("x"), ConstructorID: uintPtr(999)})
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestUpdateOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.constructor(t, "Ivan", "10")
	o := env.order(t, "Kitchen", c.ID, "10000")
	env.pay(t, "600", uintPtr(o.ID), nil)

	t.Run("patches only given fields", func(t *testing.T) {
		got, err := env.orders.UpdateOrder(ctx, o.ID, OrderRequest{DateInstallation: strPtr("2024-05-10")})
		require.NoError(t, err)
		assert.Equal(t, "Kitchen", got.Name)
		require.NotNil(t, got.DateInstallation)
		assert.True(t, got.Summary.IsCriticalDebt)
		assert.Equal(t, "400.00", got.Summary.CurrentDebt)
	})

	t.Run("rejects shrinking stages below what was paid", func(t *testing.T) {
		_, err := env.orders.UpdateOrder(ctx, o.ID, OrderRequest{Price: strPtr("1000")})
		require.Error(t, err)
		assert.Equal(t, "STAGE_OVERPAID", apperr.CodeOf(err))
	})

	t.Run("re-keys the order with its allocations and deductions", func(t *testing.T) {
		_, err := env.deductions.CreateDeduction(ctx, CreateDeductionRequest{OrderID: o.ID, Amount: "10", Description: "late"})
		require.NoError(t, err)

		got, err := env.orders.UpdateOrder(ctx, o.ID, OrderRequest{ID: uintPtr(500)})
		require.NoError(t, err)
		assert.Equal(t, uint(500), got.ID)
		assert.Equal(t, "500.00", got.Summary.AdvancePaidAmount)
		assert.Equal(t, "100.00", got.Summary.FinalPaidAmount)
		assert.Equal(t, "10.00", got.Summary.UnpaidFines)

		_, err = env.orders.GetOrder(ctx, o.ID)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("rejects an id already in use", func(t *testing.T) {
		other := env.order(t, "Other", c.ID, "100")
		_, err := env.orders.UpdateOrder(ctx, other.ID, OrderRequest{ID: uintPtr(500)})
		assert.Equal(t, "ORDER_ID_TAKEN", apperr.CodeOf(err))
	})

	t.Run("clears a nullable override with an empty string", func(t *testing.T) {
		got, err := env.orders.UpdateOrder(ctx, 500, OrderRequest{FixedBonus: strPtr("2000")})
		require.NoError(t, err)
		assert.Equal(t, "2000.00", got.Summary.Bonus)

		got, err = env.orders.UpdateOrder(ctx, 500, OrderRequest{FixedBonus: strPtr("")})
		require.NoError(t, err)
		assert.Nil(t, got.FixedBonus)
		assert.Equal(t, "1000.00", got.Summary.Bonus)
	})
}

func TestEditsReopenPaidStages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("raising the price clears paid dates", func(t *testing.T) {
		c := env.constructor(t, "Ivan", "10")
		o := env.order(t, "Kitchen", c.ID, "10000")
		env.pay(t, "1000", uintPtr(o.ID), nil)

		paid, err := env.orders.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		require.NotNil(t, paid.DateFinalPaid)
		require.Equal(t, ledger.StatusPaid, paid.Summary.PaymentStatus)

		got, err := env.orders.UpdateOrder(ctx, o.ID, OrderRequest{
			Price:            strPtr("20000"),
			DateInstallation: strPtr("2024-05-10"),
		})
		require.NoError(t, err)
		assert.Nil(t, got.DateAdvancePaid)
		assert.Nil(t, got.DateFinalPaid)
		assert.Equal(t, "500.00", got.Summary.FinalOutstanding)
		assert.True(t, got.Summary.IsCriticalDebt)
		assert.NotEqual(t, ledger.StatusPaid, got.Summary.PaymentStatus)
	})

	t.Run("raising the constructor salary clears paid dates", func(t *testing.T) {
		c := env.constructor(t, "Olena", "10")
		o := env.order(t, "Hall", c.ID, "10000")
		env.pay(t, "1000", uintPtr(o.ID), nil)

		_, err := env.constructors.UpdateConstructor(ctx, c.ID, ConstructorRequest{SalaryPercent: strPtr("20")})
		require.NoError(t, err)

		got, err := env.orders.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "2000.00", got.Summary.Bonus)
		assert.Nil(t, got.DateAdvancePaid)
		assert.Nil(t, got.DateFinalPaid)
		assert.Equal(t, ledger.StatusPartiallyPaid, got.Summary.PaymentStatus)
	})
}

func TestDeleteOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.constructor(t, "Ivan", "10")
	paid := env.order(t, "Paid", c.ID, "10000")
	env.pay(t, "100", uintPtr(paid.ID), nil)

	err := env.orders.DeleteOrder(ctx, paid.ID)
	assert.Equal(t, "ORDER_HAS_ALLOCATIONS", apperr.CodeOf(err))

	fined := env.order(t, "Fined", c.ID, "10000")
	_, err = env.deductions.CreateDeduction(ctx, CreateDeductionRequest{OrderID: fined.ID, Amount: "50", Description: "scratch"})
	require.NoError(t, err)

	require.NoError(t, env.orders.DeleteOrder(ctx, fined.ID))
	list, err := env.deductions.ListDeductions(ctx, uintPtr(fined.ID))
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.True(t, apperr.IsNotFound(env.orders.DeleteOrder(ctx, fined.ID)))
}

func TestListOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.constructor(t, "Anna", "10")
	b := env.constructor(t, "Bohdan", "5")
	env.order(t, "Kitchen A", a.ID, "10000")
	env.order(t, "Bedroom A", a.ID, "10000")
	env.order(t, "Kitchen B", b.ID, "10000")

	all, total, err := env.orders.ListOrders(ctx, repository.OrderFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	mine, total, err := env.orders.ListOrders(ctx, repository.OrderFilter{ConstructorID: uintPtr(b.ID)}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, mine, 1)
	assert.Equal(t, "500.00", mine[0].Summary.Bonus)

	found, _, err := env.orders.ListOrders(ctx, repository.OrderFilter{Search: "kitchen"}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}
