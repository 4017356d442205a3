package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BonusMode enum constants
const (
	BonusModeSalesPercent     = "sales_percent"
	BonusModeMaterialsPercent = "materials_percent"
	BonusModeFixedAmount      = "fixed_amount"
)

// IsValidBonusMode reports whether mode is one of the supported bonus modes
func IsValidBonusMode(mode string) bool {
	switch mode {
	case BonusModeSalesPercent, BonusModeMaterialsPercent, BonusModeFixedAmount:
		return true
	}
	return false
}

// Constructor is the designer/installer who earns a bonus on assigned orders.
// Its salary fields are defaults; an Order may override each of them.
type Constructor struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	FullName      string              `gorm:"type:varchar(255);not null" json:"full_name"`
	TelegramID    string              `gorm:"type:varchar(64)" json:"telegram_id"`
	CardNumber    string              `gorm:"type:varchar(32)" json:"card_number"`
	IsActive      bool                `gorm:"not null" json:"is_active"`
	BonusMode     string              `gorm:"type:varchar(30);not null;default:'sales_percent'" json:"bonus_mode"`
	SalaryPercent decimal.Decimal     `gorm:"type:decimal(7,4);not null" json:"salary_percent"`
	FixedAmount   decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"fixed_amount"` // bonus per order in fixed_amount mode
	Stage1Percent decimal.Decimal     `gorm:"type:decimal(7,4);not null" json:"stage1_percent"`
	Stage2Percent decimal.Decimal     `gorm:"type:decimal(7,4);not null" json:"stage2_percent"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
