package repository

import (
	"context"
	"time"

	"techpay/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderFilter narrows order listings. Zero values mean "no filter".
type OrderFilter struct {
	ConstructorID *uint
	Search        string
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	Update(ctx context.Context, order *model.Order) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Order, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Order, error)
	ListEligibleForUpdate(ctx context.Context, constructorID *uint) ([]model.Order, error)
	List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.Order, int64, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	ListByConstructor(ctx context.Context, constructorID uint) ([]model.Order, error)
	Exists(ctx context.Context, id uint) (bool, error)
	ChangeID(ctx context.Context, oldID, newID uint) error
	SetStageDates(ctx context.Context, id uint, advancePaid, finalPaid *time.Time) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(order).Error
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(order).Error
}

func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Order{}).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).Preload("Constructor").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row until the surrounding transaction ends
func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Order, error) {
	var orders []model.Order
	if len(ids) == 0 {
		return orders, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Order("id").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListEligibleForUpdate locks every order auto-distribution may touch.
// Without a constructor filter only orders with an assigned constructor
// qualify. Rows are locked in id order.
func (r *orderRepository) ListEligibleForUpdate(ctx context.Context, constructorID *uint) ([]model.Order, error) {
	var orders []model.Order
	db := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"})
	if constructorID != nil {
		db = db.Where("constructor_id = ?", *constructorID)
	} else {
		db = db.Where("constructor_id IS NOT NULL")
	}
	if err := db.Order("id").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Order{})
	if filter.ConstructorID != nil {
		db = db.Where("constructor_id = ?", *filter.ConstructorID)
	}
	if filter.Search != "" {
		db = db.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Constructor").
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) ListAll(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := GetDB(ctx, r.db).Preload("Constructor").Order("id").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) ListByConstructor(ctx context.Context, constructorID uint) ([]model.Order, error) {
	var orders []model.Order
	if err := GetDB(ctx, r.db).Where("constructor_id = ?", constructorID).Order("id").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ChangeID re-keys an order. Foreign keys cascade on databases that enforce
// them; the explicit child updates cover the ones that don't.
func (r *orderRepository) ChangeID(ctx context.Context, oldID, newID uint) error {
	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Order{}).Where("id = ?", oldID).Update("id", newID).Error; err != nil {
		return err
	}
	if err := db.Model(&model.Allocation{}).Where("order_id = ?", oldID).Update("order_id", newID).Error; err != nil {
		return err
	}
	if err := db.Model(&model.Deduction{}).Where("order_id = ?", oldID).Update("order_id", newID).Error; err != nil {
		return err
	}
	return db.Model(&model.Payment{}).Where("manual_order_id = ?", oldID).Update("manual_order_id", newID).Error
}

func (r *orderRepository) SetStageDates(ctx context.Context, id uint, advancePaid, finalPaid *time.Time) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"date_advance_paid": advancePaid,
			"date_final_paid":   finalPaid,
		}).Error
}
