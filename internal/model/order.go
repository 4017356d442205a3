package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a furniture/interior project. Financial summary fields (bonus,
// stage amounts, debt) are never stored; they are derived by the ledger.
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Price         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"price"`
	MaterialCost  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"material_cost"`
	ProductTypes  string          `gorm:"type:text" json:"product_types"`
	ConstructorID *uint           `gorm:"index" json:"constructor_id"`
	Constructor   *Constructor    `gorm:"foreignKey:ConstructorID" json:"constructor,omitempty"`

	// Per-order overrides; empty/null inherits from the constructor
	BonusMode     string              `gorm:"type:varchar(30)" json:"bonus_mode"`
	SalaryPercent decimal.NullDecimal `gorm:"type:decimal(7,4)" json:"salary_percent"`
	FixedBonus    decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"fixed_bonus"`  // manager override, beats every mode
	FixedAmount   decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"fixed_amount"` // used by fixed_amount mode
	Stage1Percent decimal.NullDecimal `gorm:"type:decimal(7,4)" json:"stage1_percent"`
	Stage2Percent decimal.NullDecimal `gorm:"type:decimal(7,4)" json:"stage2_percent"`

	DateReceived       *time.Time `gorm:"type:date" json:"date_received"`
	DateDesignDeadline *time.Time `gorm:"type:date" json:"date_design_deadline"`
	DateToWork         *time.Time `gorm:"type:date" json:"date_to_work"`
	DateAdvancePaid    *time.Time `gorm:"type:date" json:"date_advance_paid"`
	DateInstallation   *time.Time `gorm:"type:date" json:"date_installation"`
	DateFinalPaid      *time.Time `gorm:"type:date" json:"date_final_paid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
