package ledger

import (
	"techpay/internal/apperr"
	"techpay/internal/model"

	"github.com/shopspring/decimal"
)

var defaultStagePercent = decimal.NewFromInt(50)

// Terms is the effective bonus configuration of one order after applying
// order overrides on top of the constructor's defaults.
type Terms struct {
	Mode          string
	SalaryPercent decimal.Decimal
	FixedBonus    decimal.NullDecimal
	FixedAmount   decimal.Decimal
	Stage1Percent decimal.Decimal
	Stage2Percent decimal.Decimal
}

// ResolveTerms merges order overrides over constructor defaults.
// c may be nil for an unassigned order. Genuinely unset values fall back to
// sales_percent, 0% salary and a 50/50 split; invalid values are rejected.
func ResolveTerms(o *model.Order, c *model.Constructor) (Terms, error) {
	t := Terms{
		Mode:          model.BonusModeSalesPercent,
		SalaryPercent: decimal.Zero,
		FixedAmount:   decimal.Zero,
		FixedBonus:    o.FixedBonus,
	}

	if c != nil {
		if c.BonusMode != "" {
			t.Mode = c.BonusMode
		}
		t.SalaryPercent = c.SalaryPercent
		if c.FixedAmount.Valid {
			t.FixedAmount = c.FixedAmount.Decimal
		}
	}
	if o.BonusMode != "" {
		t.Mode = o.BonusMode
	}
	if o.SalaryPercent.Valid {
		t.SalaryPercent = o.SalaryPercent.Decimal
	}
	if o.FixedAmount.Valid {
		t.FixedAmount = o.FixedAmount.Decimal
	}

	s1, s2 := resolveSplit(o, c)
	t.Stage1Percent, t.Stage2Percent = s1, s2

	if err := t.Validate(); err != nil {
		return Terms{}, err
	}
	return t, nil
}

func resolveSplit(o *model.Order, c *model.Constructor) (decimal.Decimal, decimal.Decimal) {
	switch {
	case o.Stage1Percent.Valid && o.Stage2Percent.Valid:
		return o.Stage1Percent.Decimal, o.Stage2Percent.Decimal
	case o.Stage1Percent.Valid:
		return o.Stage1Percent.Decimal, hundred.Sub(o.Stage1Percent.Decimal)
	case o.Stage2Percent.Valid:
		return hundred.Sub(o.Stage2Percent.Decimal), o.Stage2Percent.Decimal
	case c != nil && !(c.Stage1Percent.IsZero() && c.Stage2Percent.IsZero()):
		return c.Stage1Percent, c.Stage2Percent
	default:
		return defaultStagePercent, defaultStagePercent
	}
}

// Validate checks the mode, the percentage ranges and the stage split
func (t Terms) Validate() error {
	if !model.IsValidBonusMode(t.Mode) {
		return apperr.Validation("INVALID_BONUS_MODE", "unknown bonus mode %q", t.Mode)
	}
	if t.SalaryPercent.IsNegative() || t.SalaryPercent.GreaterThan(hundred) {
		return apperr.Validation("INVALID_SALARY_PERCENT", "salary_percent must be between 0 and 100, got %s", t.SalaryPercent)
	}
	if t.FixedAmount.IsNegative() {
		return apperr.Validation("INVALID_FIXED_AMOUNT", "fixed_amount must not be negative")
	}
	if t.FixedBonus.Valid && t.FixedBonus.Decimal.IsNegative() {
		return apperr.Validation("INVALID_FIXED_BONUS", "fixed_bonus must not be negative")
	}
	return ValidateSplit(t.Stage1Percent, t.Stage2Percent)
}

// ValidateSplit rejects stage percentages outside 0..100 or not summing to 100
func ValidateSplit(stage1, stage2 decimal.Decimal) error {
	for _, p := range []decimal.Decimal{stage1, stage2} {
		if p.IsNegative() || p.GreaterThan(hundred) {
			return apperr.Validation("INVALID_STAGE_SPLIT", "stage percentages must be between 0 and 100, got %s/%s", stage1, stage2)
		}
	}
	if !stage1.Add(stage2).Equal(hundred) {
		return apperr.Validation("INVALID_STAGE_SPLIT", "stage percentages must sum to 100, got %s + %s", stage1, stage2)
	}
	return nil
}

// Bonus computes the constructor's bonus for an order.
// fixed_bonus overrides every mode.
func (t Terms) Bonus(price, materialCost decimal.Decimal) decimal.Decimal {
	if t.FixedBonus.Valid {
		return RoundMoney(t.FixedBonus.Decimal)
	}
	switch t.Mode {
	case model.BonusModeMaterialsPercent:
		return PercentOf(materialCost, t.SalaryPercent)
	case model.BonusModeFixedAmount:
		return RoundMoney(t.FixedAmount)
	default:
		return PercentOf(price, t.SalaryPercent)
	}
}

// StageAmounts splits bonus into advance and final amounts.
// final is derived as bonus - advance so the two always sum to bonus.
func (t Terms) StageAmounts(bonus decimal.Decimal) (advance, final decimal.Decimal) {
	advance = PercentOf(bonus, t.Stage1Percent)
	return advance, bonus.Sub(advance)
}
