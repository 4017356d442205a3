package service

import (
	"context"
	"testing"

	"techpay/internal/apperr"
	"techpay/internal/ledger"
	"techpay/internal/model"
	ws "techpay/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePayment_Manual(t *testing.T) {
	env := newTestEnv(t)
	c := env.constructor(t, "Ivan", "10")
	o := env.order(t, "Kitchen", c.ID, "10000")
	require.Equal(t, "1000.00", o.Summary.Bonus)

	t.Run("300 goes to the advance stage", func(t *testing.T) {
		res := env.pay(t, "300", uintPtr(o.ID), nil)

		require.Len(t, res.Allocations, 1)
		assert.Equal(t, model.StageAdvance, res.Allocations[0].Stage)
		assert.Equal(t, "300.00", res.Allocations[0].Amount)
		assert.Equal(t, "0.00", res.RemainingAmount)

		s := env.summary(t, o.ID)
		assert.Equal(t, "300.00", s.AdvancePaidAmount)
		assert.Equal(t, "0.00", s.FinalPaidAmount)
		assert.Equal(t, ledger.StatusPartiallyPaid, s.PaymentStatus)
	})

	t.Run("400 caps the advance and spills into final", func(t *testing.T) {
		res := env.pay(t, "400", uintPtr(o.ID), nil)

		require.Len(t, res.Allocations, 2)
		assert.Equal(t, model.StageAdvance, res.Allocations[0].Stage)
		assert.Equal(t, "200.00", res.Allocations[0].Amount)
		assert.Equal(t, model.StageFinal, res.Allocations[1].Stage)
		assert.Equal(t, "200.00", res.Allocations[1].Amount)
		assert.Equal(t, "0.00", res.RemainingAmount)

		s := env.summary(t, o.ID)
		assert.Equal(t, "500.00", s.AdvancePaidAmount)
		assert.Equal(t, "200.00", s.FinalPaidAmount)
	})

	t.Run("stage paid date is stamped when the advance fills", func(t *testing.T) {
		got, err := env.orders.GetOrder(context.Background(), o.ID)
		require.NoError(t, err)
		require.NotNil(t, got.DateAdvancePaid)
		assert.Equal(t, "2024-03-01", *got.DateAdvancePaid)
		assert.Nil(t, got.DateFinalPaid)
	})

	t.Run("overpayment is left unallocated", func(t *testing.T) {
		res := env.pay(t, "500", uintPtr(o.ID), nil)

		require.Len(t, res.Allocations, 1)
		assert.Equal(t, "300.00", res.Allocations[0].Amount)
		assert.Equal(t, "200.00", res.RemainingAmount)

		s := env.summary(t, o.ID)
		assert.Equal(t, "0.00", s.RemainderAmount)
		assert.Equal(t, ledger.StatusPaid, s.PaymentStatus)
	})

	assert.Contains(t, env.hub.names(), ws.EventPaymentCreated)
}

func TestCreatePayment_ManualTakesOrderScope(t *testing.T) {
	env := newTestEnv(t)
	a := env.constructor(t, "Anna", "10")
	b := env.constructor(t, "Bohdan", "10")
	o := env.order(t, "Wardrobe", a.ID, "10000")

	res := env.pay(t, "100", uintPtr(o.ID), nil)
	payments, _, err := env.payments.ListPayments(context.Background(), uintPtr(a.ID), 1, 10)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, res.PaymentID, payments[0].ID)
	assert.False(t, payments[0].AllocatedAutomatically)
	assert.Equal(t, "100.00", payments[0].AllocatedAmount)
	assert.Equal(t, "0.00", payments[0].UnallocatedAmount)

	_, err = env.payments.CreatePayment(context.Background(), CreatePaymentRequest{
		Amount:        "100",
		DateReceived:  "2024-03-01",
		ManualOrderID: uintPtr(o.ID),
		ConstructorID: uintPtr(b.ID),
	})
	assert.Equal(t, "SCOPE_MISMATCH", apperr.CodeOf(err))
}

func TestCreatePayment_AutoRespectsConstructorScope(t *testing.T) {
	env := newTestEnv(t)
	a := env.constructor(t, "Anna", "10")
	b := env.constructor(t, "Bohdan", "10")
	late := env.order(t, "A late", a.ID, "10000", withToWork("2024-04-01"))
	early := env.order(t, "A early", a.ID, "10000", withToWork("2024-02-01"))
	other := env.order(t, "B order", b.ID, "10000", withToWork("2024-01-01"))

	res := env.pay(t, "700", nil, uintPtr(a.ID))

	require.Len(t, res.Allocations, 2)
	assert.Equal(t, early.ID, res.Allocations[0].OrderID, "earliest due order is paid first")
	assert.Equal(t, "500.00", res.Allocations[0].Amount)
	assert.Equal(t, late.ID, res.Allocations[1].OrderID)
	assert.Equal(t, "200.00", res.Allocations[1].Amount)

	s := env.summary(t, other.ID)
	assert.Equal(t, "0.00", s.AdvancePaidAmount, "another constructor's order is never touched")
}

func TestCreatePayment_NoEligibleOrders(t *testing.T) {
	env := newTestEnv(t)
	c := env.constructor(t, "Anna", "10")

	res := env.pay(t, "250", nil, uintPtr(c.ID))

	assert.Empty(t, res.Allocations)
	assert.Equal(t, "250.00", res.RemainingAmount)
}

func TestCreatePayment_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreatePaymentRequest
		kind apperr.Kind
		code string
	}{
		{"negative amount", CreatePaymentRequest{Amount: "-5", DateReceived: "2024-03-01"}, apperr.KindValidation, "INVALID_AMOUNT"},
		{"zero amount", CreatePaymentRequest{Amount: "0", DateReceived: "2024-03-01"}, apperr.KindValidation, "INVALID_AMOUNT"},
		{"sub-cent amount", CreatePaymentRequest{Amount: "0.004", DateReceived: "2024-03-01"}, apperr.KindValidation, "INVALID_AMOUNT"},
		{"fractional cent", CreatePaymentRequest{Amount: "100.005", DateReceived: "2024-03-01"}, apperr.KindValidation, "INVALID_AMOUNT"},
		{"bad date", CreatePaymentRequest{Amount: "10", DateReceived: "01.03.2024"}, apperr.KindValidation, "INVALID_DATE"},
		{"unknown order", CreatePaymentRequest{Amount: "10", DateReceived: "2024-03-01", ManualOrderID: uintPtr(999)}, apperr.KindNotFound, "NOT_FOUND"},
		{"unknown constructor", CreatePaymentRequest{Amount: "10", DateReceived: "2024-03-01", ConstructorID: uintPtr(999)}, apperr.KindNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.payments.CreatePayment(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}

	payments, total, err := env.payments.ListPayments(ctx, nil, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.Zero(t, total)
}

func TestCreatePayment_RetriesAfterConflict(t *testing.T) {
	env := newTestEnv(t)
	c := env.constructor(t, "Ivan", "10")
	o := env.order(t, "Kitchen", c.ID, "10000")
	env.pay(t, "300", uintPtr(o.ID), nil)

	// The first attempt plans against a stale view and overfills the advance
	env.allocations.stale = 1
	res := env.pay(t, "400", uintPtr(o.ID), nil)

	require.Len(t, res.Allocations, 2)
	assert.Equal(t, "200.00", res.Allocations[0].Amount)
	assert.Equal(t, "200.00", res.Allocations[1].Amount)

	s := env.summary(t, o.ID)
	assert.Equal(t, "500.00", s.AdvancePaidAmount)
	assert.Equal(t, "200.00", s.FinalPaidAmount)

	_, total, err := env.payments.ListPayments(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "the conflicting attempt was rolled back")
}

func TestCreatePayment_ConflictSurfacesWhenRetriesRunOut(t *testing.T) {
	env := newTestEnv(t, func(p *PaymentOptions, _ *StatisticsOptions) { p.RetryOnConflict = 0 })
	c := env.constructor(t, "Ivan", "10")
	o := env.order(t, "Kitchen", c.ID, "10000")
	env.pay(t, "300", uintPtr(o.ID), nil)

	env.allocations.stale = 1
	_, err := env.payments.CreatePayment(context.Background(), CreatePaymentRequest{
		Amount:        "400",
		DateReceived:  "2024-03-01",
		ManualOrderID: uintPtr(o.ID),
	})
	require.Error(t, err)
	assert.True(t, apperr.IsConsistency(err))

	s := env.summary(t, o.ID)
	assert.Equal(t, "300.00", s.AdvancePaidAmount)
}

func TestDeletePayment_ReversesOnlyItsAllocations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.constructor(t, "Ivan", "10")
	// A: bonus 1000, advance 500. B: bonus 100, advance 50 final 50.
	a := env.order(t, "A", c.ID, "10000", withToWork("2024-02-01"))
	b := env.order(t, "B", c.ID, "1000", withToWork("2023-12-01"), withInstallation("2024-01-01"))
	untouched := env.order(t, "C", 0, "500")
	_ = untouched

	env.pay(t, "50", uintPtr(b.ID), nil)

	res := env.pay(t, "200", nil, uintPtr(c.ID))
	require.Len(t, res.Allocations, 2)
	assert.Equal(t, b.ID, res.Allocations[0].OrderID)
	assert.Equal(t, model.StageFinal, res.Allocations[0].Stage)
	assert.Equal(t, "50.00", res.Allocations[0].Amount)
	assert.Equal(t, a.ID, res.Allocations[1].OrderID)
	assert.Equal(t, model.StageAdvance, res.Allocations[1].Stage)
	assert.Equal(t, "150.00", res.Allocations[1].Amount)

	gotB, err := env.orders.GetOrder(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, gotB.DateFinalPaid)

	require.NoError(t, env.payments.DeletePayment(ctx, res.PaymentID))

	sa := env.summary(t, a.ID)
	assert.Equal(t, "0.00", sa.AdvancePaidAmount)
	sb := env.summary(t, b.ID)
	assert.Equal(t, "50.00", sb.AdvancePaidAmount, "other payments keep their contribution")
	assert.Equal(t, "0.00", sb.FinalPaidAmount)
	assert.True(t, sb.IsCriticalDebt)
	assert.Equal(t, "50.00", sb.CurrentDebt)

	gotB, err = env.orders.GetOrder(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, gotB.DateFinalPaid, "final is no longer full")
	assert.NotNil(t, gotB.DateAdvancePaid)

	_, err = env.payments.GetPaymentAllocations(ctx, res.PaymentID)
	assert.True(t, apperr.IsNotFound(err))
	assert.True(t, apperr.IsNotFound(env.payments.DeletePayment(ctx, res.PaymentID)))
	assert.Contains(t, env.hub.names(), ws.EventPaymentDeleted)
}

func TestRedistributePayments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.constructor(t, "Ivan", "10")

	first := env.pay(t, "300", nil, uintPtr(c.ID))
	require.Equal(t, "300.00", first.RemainingAmount)

	o := env.order(t, "Kitchen", c.ID, "10000")

	res, err := env.payments.RedistributePayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.PaymentsProcessed)
	assert.Equal(t, "300.00", res.TotalAllocated)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, o.ID, res.Allocations[0].OrderID)

	allocs, err := env.payments.GetPaymentAllocations(ctx, first.PaymentID)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, "Kitchen", allocs[0].OrderName)

	again, err := env.payments.RedistributePayments(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.PaymentsProcessed)
	assert.Equal(t, "0.00", again.TotalAllocated)
}

func TestCreatePayment_InvalidatesStatsAndLogsActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := WithActor(context.Background(), Actor{Name: "42", RequestID: "req-1"})
	c := env.constructor(t, "Ivan", "10")
	o := env.order(t, "Kitchen", c.ID, "10000")

	before, err := env.statistics.GetFinancialStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", before.NetDebt)

	_, err = env.payments.CreatePayment(ctx, CreatePaymentRequest{Amount: "300", DateReceived: "2024-03-01", ManualOrderID: uintPtr(o.ID)})
	require.NoError(t, err)

	after, err := env.statistics.GetFinancialStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "700.00", after.NetDebt)
	assert.Equal(t, "300.00", after.TotalReceived)

	logs, _, err := env.activity.GetActivityLogs(ctx, model.ActionAddPayment, 1, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "42", logs[0].Actor)
	assert.Equal(t, "req-1", logs[0].RequestID)
}
