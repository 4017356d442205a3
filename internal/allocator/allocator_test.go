package allocator

import (
	"testing"
	"time"

	"techpay/internal/apperr"
	"techpay/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(n int) *time.Time {
	t := time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
	return &t
}

func assertConserved(t *testing.T, amount decimal.Decimal, p Plan) {
	t.Helper()
	sum := decimal.Zero
	for _, l := range p.Lines {
		assert.True(t, l.Amount.IsPositive(), "line %+v must be positive", l)
		sum = sum.Add(l.Amount)
	}
	assert.True(t, sum.Equal(p.Allocated), "lines %s allocated %s", sum, p.Allocated)
	assert.True(t, p.Allocated.Add(p.Remaining).Equal(amount), "allocated %s + remaining %s != %s", p.Allocated, p.Remaining, amount)
}

func assertLine(t *testing.T, l Line, orderID uint, stage, amount string) {
	t.Helper()
	assert.Equal(t, orderID, l.OrderID)
	assert.Equal(t, stage, l.Stage)
	assert.True(t, l.Amount.Equal(d(amount)), "amount %s want %s", l.Amount, amount)
}

func TestManual(t *testing.T) {
	t.Run("partial advance is fully absorbed", func(t *testing.T) {
		target := Target{OrderID: 1, OrderName: "Kitchen", AdvanceOutstanding: d("500"), FinalOutstanding: d("500")}

		p, err := Manual(d("300"), target)
		require.NoError(t, err)
		require.Len(t, p.Lines, 1)
		assert.Equal(t, model.StageAdvance, p.Lines[0].Stage)
		assert.True(t, p.Lines[0].Amount.Equal(d("300")))
		assert.True(t, p.Remaining.IsZero())
		assertConserved(t, d("300"), p)
	})

	t.Run("advance capped and rest goes to final", func(t *testing.T) {
		// after a first payment of 300 the advance has 200 outstanding
		target := Target{OrderID: 1, AdvanceOutstanding: d("200"), FinalOutstanding: d("500")}

		p, err := Manual(d("400"), target)
		require.NoError(t, err)
		require.Len(t, p.Lines, 2)
		assert.Equal(t, model.StageAdvance, p.Lines[0].Stage)
		assert.True(t, p.Lines[0].Amount.Equal(d("200")))
		assert.Equal(t, model.StageFinal, p.Lines[1].Stage)
		assert.True(t, p.Lines[1].Amount.Equal(d("200")))
		assert.True(t, p.Remaining.IsZero())
		assertConserved(t, d("400"), p)
	})

	t.Run("overpayment leaves a remainder", func(t *testing.T) {
		target := Target{OrderID: 1, AdvanceOutstanding: d("100"), FinalOutstanding: d("50.5")}

		p, err := Manual(d("200"), target)
		require.NoError(t, err)
		assert.True(t, p.Allocated.Equal(d("150.5")))
		assert.True(t, p.Remaining.Equal(d("49.5")))
		assert.False(t, p.FullyAllocated())
		assertConserved(t, d("200"), p)
	})

	t.Run("fully paid order takes nothing", func(t *testing.T) {
		p, err := Manual(d("10"), Target{OrderID: 1})
		require.NoError(t, err)
		assert.Empty(t, p.Lines)
		assert.True(t, p.Remaining.Equal(d("10")))
	})

	t.Run("non-positive amounts are rejected", func(t *testing.T) {
		for _, amount := range []string{"0", "-5"} {
			_, err := Manual(d(amount), Target{OrderID: 1, AdvanceOutstanding: d("10")})
			require.Error(t, err)
			assert.Equal(t, "INVALID_AMOUNT", apperr.CodeOf(err))
		}
	})
}

func TestAuto(t *testing.T) {
	t.Run("oldest due stage is paid first", func(t *testing.T) {
		targets := []Target{
			{OrderID: 1, AdvanceOutstanding: d("100"), AdvanceDue: day(20)},
			{OrderID: 2, AdvanceOutstanding: d("100"), AdvanceDue: day(5)},
			{OrderID: 3, FinalOutstanding: d("100"), FinalDue: day(10)},
		}

		p, err := Auto(d("250"), targets)
		require.NoError(t, err)
		require.Len(t, p.Lines, 3)
		assert.Equal(t, uint(2), p.Lines[0].OrderID)
		assert.Equal(t, uint(3), p.Lines[1].OrderID)
		assert.Equal(t, model.StageFinal, p.Lines[1].Stage)
		assert.Equal(t, uint(1), p.Lines[2].OrderID)
		assert.True(t, p.Lines[2].Amount.Equal(d("50")))
		assertConserved(t, d("250"), p)
	})

	t.Run("finishes one order before moving on", func(t *testing.T) {
		targets := []Target{
			{OrderID: 1, AdvanceOutstanding: d("50"), FinalOutstanding: d("50"), AdvanceDue: day(1)},
			{OrderID: 2, AdvanceOutstanding: d("50"), AdvanceDue: day(2)},
		}

		p, err := Auto(d("120"), targets)
		require.NoError(t, err)
		require.Len(t, p.Lines, 3)
		assertLine(t, p.Lines[0], 1, model.StageAdvance, "50")
		assertLine(t, p.Lines[1], 1, model.StageFinal, "50")
		assertLine(t, p.Lines[2], 2, model.StageAdvance, "20")
	})

	t.Run("missing due dates sort last with id tiebreak", func(t *testing.T) {
		targets := []Target{
			{OrderID: 9, AdvanceOutstanding: d("10")},
			{OrderID: 4, AdvanceOutstanding: d("10")},
			{OrderID: 7, AdvanceOutstanding: d("10"), AdvanceDue: day(3)},
			{OrderID: 5, AdvanceOutstanding: d("10"), AdvanceDue: day(3)},
		}

		sorted := SortByDue(targets)
		ids := make([]uint, 0, len(sorted))
		for _, s := range sorted {
			ids = append(ids, s.OrderID)
		}
		assert.Equal(t, []uint{5, 7, 4, 9}, ids)
		assert.Equal(t, uint(9), targets[0].OrderID, "input must not be reordered")
	})

	t.Run("no eligible orders leaves everything unallocated", func(t *testing.T) {
		p, err := Auto(d("75"), nil)
		require.NoError(t, err)
		assert.Empty(t, p.Lines)
		assert.True(t, p.Allocated.IsZero())
		assert.True(t, p.Remaining.Equal(d("75")))
	})

	t.Run("never exceeds any stage outstanding", func(t *testing.T) {
		targets := []Target{
			{OrderID: 1, AdvanceOutstanding: d("0.01"), FinalOutstanding: d("33.33")},
			{OrderID: 2, AdvanceOutstanding: d("0"), FinalOutstanding: d("12.5")},
		}
		p, err := Auto(d("1000"), targets)
		require.NoError(t, err)

		limits := map[uint]map[string]decimal.Decimal{
			1: {model.StageAdvance: d("0.01"), model.StageFinal: d("33.33")},
			2: {model.StageAdvance: d("0"), model.StageFinal: d("12.5")},
		}
		for _, l := range p.Lines {
			assert.True(t, l.Amount.LessThanOrEqual(limits[l.OrderID][l.Stage]), "line %+v", l)
		}
		assert.True(t, p.Remaining.Equal(d("954.16")))
		assertConserved(t, d("1000"), p)
	})
}

func TestDueDate(t *testing.T) {
	target := Target{AdvanceOutstanding: d("1"), AdvanceDue: day(1), FinalDue: day(9)}
	assert.Equal(t, day(1), target.DueDate())

	target.AdvanceOutstanding = decimal.Zero
	assert.Equal(t, day(9), target.DueDate())
}
