package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActionCreateOrder       = "CREATE_ORDER"
	ActionUpdateOrder       = "UPDATE_ORDER"
	ActionDeleteOrder       = "DELETE_ORDER"
	ActionCreateConstructor = "CREATE_CONSTRUCTOR"
	ActionUpdateConstructor = "UPDATE_CONSTRUCTOR"
	ActionAddPayment        = "ADD_PAYMENT"
	ActionDeletePayment     = "DELETE_PAYMENT"
	ActionRedistribute      = "REDISTRIBUTE"
	ActionAddDeduction      = "ADD_DEDUCTION"
	ActionUpdateDeduction   = "UPDATE_DEDUCTION"
	ActionDeleteDeduction   = "DELETE_DEDUCTION"
)

// ActivityLog tracks who changed what and when
type ActivityLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Actor      string         `gorm:"type:varchar(100)" json:"actor"` // JWT subject, "system" when absent
	RequestID  string         `gorm:"type:varchar(64)" json:"request_id"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
