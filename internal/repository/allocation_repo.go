package repository

import (
	"context"

	"techpay/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AllocationRepository interface {
	CreateBatch(ctx context.Context, allocations []model.Allocation) error
	ListByPayment(ctx context.Context, paymentID uint) ([]model.Allocation, error)
	DeleteByPayment(ctx context.Context, paymentID uint) error
	PaidByOrders(ctx context.Context, orderIDs []uint) (map[uint]model.StagePaid, error)
	CountByOrder(ctx context.Context, orderID uint) (int64, error)
}

// SQL sums over floating storage (SQLite) can drift past the cent
const moneyPlaces = 2

type stageSum struct {
	OrderID uint
	Stage   string
	Amount  decimal.Decimal
}

type allocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) AllocationRepository {
	return &allocationRepository{db: db}
}

func (r *allocationRepository) CreateBatch(ctx context.Context, allocations []model.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(&allocations).Error
}

func (r *allocationRepository) ListByPayment(ctx context.Context, paymentID uint) ([]model.Allocation, error) {
	var allocations []model.Allocation
	if err := GetDB(ctx, r.db).Preload("Order").
		Where("payment_id = ?", paymentID).Order("id").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *allocationRepository) DeleteByPayment(ctx context.Context, paymentID uint) error {
	return GetDB(ctx, r.db).Where("payment_id = ?", paymentID).Delete(&model.Allocation{}).Error
}

// PaidByOrders sums allocations per order and stage from the stored rows.
// A nil orderIDs sums every order. Orders without allocations are absent.
func (r *allocationRepository) PaidByOrders(ctx context.Context, orderIDs []uint) (map[uint]model.StagePaid, error) {
	var rows []stageSum

	db := GetDB(ctx, r.db).Model(&model.Allocation{}).
		Select("order_id, stage, COALESCE(SUM(amount), 0) AS amount")
	if orderIDs != nil {
		if len(orderIDs) == 0 {
			return map[uint]model.StagePaid{}, nil
		}
		db = db.Where("order_id IN ?", orderIDs)
	}
	if err := db.Group("order_id, stage").Scan(&rows).Error; err != nil {
		return nil, err
	}

	paid := make(map[uint]model.StagePaid)
	for _, row := range rows {
		p, ok := paid[row.OrderID]
		if !ok {
			p = model.StagePaid{OrderID: row.OrderID, Advance: decimal.Zero, Final: decimal.Zero}
		}
		switch row.Stage {
		case model.StageAdvance:
			p.Advance = p.Advance.Add(row.Amount.Round(moneyPlaces))
		case model.StageFinal:
			p.Final = p.Final.Add(row.Amount.Round(moneyPlaces))
		}
		paid[row.OrderID] = p
	}
	return paid, nil
}

func (r *allocationRepository) CountByOrder(ctx context.Context, orderID uint) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Allocation{}).Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}
