package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deduction is a fine against an order. While unpaid it offsets the
// order's debt regardless of stage.
type Deduction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	Order       *Order          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE" json:"order,omitempty"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Description string          `gorm:"type:text;not null" json:"description"`
	DateCreated time.Time       `gorm:"type:date;not null" json:"date_created"`
	IsPaid      bool            `gorm:"default:false;index" json:"is_paid"`
	DatePaid    *time.Time      `gorm:"type:date" json:"date_paid"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
