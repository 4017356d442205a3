package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage enum constants
const (
	StageAdvance = "advance"
	StageFinal   = "final"
)

// Payment is an incoming amount of money. It is immutable once allocated;
// correcting it means deleting (reversing) and re-creating it.
type Payment struct {
	ID                     uint            `gorm:"primaryKey" json:"id"`
	Amount                 decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	DateReceived           time.Time       `gorm:"type:date;not null;index" json:"date_received"`
	Notes                  string          `gorm:"type:text" json:"notes"`
	ManualOrderID          *uint           `gorm:"index" json:"manual_order_id"`
	ConstructorID          *uint           `gorm:"index" json:"constructor_id"` // scope of the payment
	AllocatedAutomatically bool            `gorm:"not null" json:"allocated_automatically"`
	Allocations            []Allocation    `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE" json:"allocations,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
}

// Allocation records how much of one payment went to one order stage
type Allocation struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	PaymentID uint            `gorm:"not null;index" json:"payment_id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	Order     *Order          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"order,omitempty"`
	Stage     string          `gorm:"type:varchar(10);not null" json:"stage"` // advance, final
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// StagePaid holds allocation sums of one order, keyed by stage
type StagePaid struct {
	OrderID uint
	Advance decimal.Decimal
	Final   decimal.Decimal
}
