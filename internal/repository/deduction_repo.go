package repository

import (
	"context"

	"techpay/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeductionRepository interface {
	Create(ctx context.Context, d *model.Deduction) error
	Update(ctx context.Context, d *model.Deduction) error
	Delete(ctx context.Context, id uint) error
	DeleteByOrder(ctx context.Context, orderID uint) error
	FindByID(ctx context.Context, id uint) (*model.Deduction, error)
	List(ctx context.Context, orderID *uint) ([]model.Deduction, error)
	UnpaidByOrders(ctx context.Context, orderIDs []uint) (map[uint]decimal.Decimal, error)
	Totals(ctx context.Context) (model.FineTotals, error)
}

type deductionRepository struct {
	db *gorm.DB
}

func NewDeductionRepository(db *gorm.DB) DeductionRepository {
	return &deductionRepository{db: db}
}

func (r *deductionRepository) Create(ctx context.Context, d *model.Deduction) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(d).Error
}

func (r *deductionRepository) Update(ctx context.Context, d *model.Deduction) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(d).Error
}

func (r *deductionRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Deduction{}).Error
}

func (r *deductionRepository) DeleteByOrder(ctx context.Context, orderID uint) error {
	return GetDB(ctx, r.db).Where("order_id = ?", orderID).Delete(&model.Deduction{}).Error
}

func (r *deductionRepository) FindByID(ctx context.Context, id uint) (*model.Deduction, error) {
	var d model.Deduction
	if err := GetDB(ctx, r.db).Preload("Order").First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *deductionRepository) List(ctx context.Context, orderID *uint) ([]model.Deduction, error) {
	var list []model.Deduction
	db := GetDB(ctx, r.db).Preload("Order")
	if orderID != nil {
		db = db.Where("order_id = ?", *orderID)
	}
	if err := db.Order("date_created DESC").Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

type orderSum struct {
	OrderID uint
	Amount  decimal.Decimal
}

// UnpaidByOrders sums deductions with is_paid = false per order.
// A nil orderIDs covers every order.
func (r *deductionRepository) UnpaidByOrders(ctx context.Context, orderIDs []uint) (map[uint]decimal.Decimal, error) {
	var rows []orderSum
	db := GetDB(ctx, r.db).Model(&model.Deduction{}).
		Select("order_id, COALESCE(SUM(amount), 0) AS amount").
		Where("is_paid = ?", false)
	if orderIDs != nil {
		if len(orderIDs) == 0 {
			return map[uint]decimal.Decimal{}, nil
		}
		db = db.Where("order_id IN ?", orderIDs)
	}
	if err := db.Group("order_id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	fines := make(map[uint]decimal.Decimal, len(rows))
	for _, row := range rows {
		fines[row.OrderID] = row.Amount.Round(moneyPlaces)
	}
	return fines, nil
}

func (r *deductionRepository) Totals(ctx context.Context) (model.FineTotals, error) {
	var totals model.FineTotals
	err := GetDB(ctx, r.db).Model(&model.Deduction{}).
		Select("COALESCE(SUM(CASE WHEN is_paid = ? THEN 0 ELSE amount END), 0) AS unpaid, COALESCE(SUM(amount), 0) AS total", true).
		Scan(&totals).Error
	totals.Unpaid = totals.Unpaid.Round(moneyPlaces)
	totals.Total = totals.Total.Round(moneyPlaces)
	return totals, err
}
