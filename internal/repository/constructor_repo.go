package repository

import (
	"context"

	"techpay/internal/model"

	"gorm.io/gorm"
)

type ConstructorRepository interface {
	Create(ctx context.Context, c *model.Constructor) error
	Update(ctx context.Context, c *model.Constructor) error
	FindByID(ctx context.Context, id uint) (*model.Constructor, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]*model.Constructor, error)
	List(ctx context.Context, activeOnly bool) ([]model.Constructor, error)
}

type constructorRepository struct {
	db *gorm.DB
}

func NewConstructorRepository(db *gorm.DB) ConstructorRepository {
	return &constructorRepository{db: db}
}

func (r *constructorRepository) Create(ctx context.Context, c *model.Constructor) error {
	return GetDB(ctx, r.db).Create(c).Error
}

func (r *constructorRepository) Update(ctx context.Context, c *model.Constructor) error {
	return GetDB(ctx, r.db).Save(c).Error
}

func (r *constructorRepository) FindByID(ctx context.Context, id uint) (*model.Constructor, error) {
	var c model.Constructor
	if err := GetDB(ctx, r.db).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *constructorRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*model.Constructor, error) {
	result := make(map[uint]*model.Constructor, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var list []model.Constructor
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for i := range list {
		result[list[i].ID] = &list[i]
	}
	return result, nil
}

func (r *constructorRepository) List(ctx context.Context, activeOnly bool) ([]model.Constructor, error) {
	var list []model.Constructor
	db := GetDB(ctx, r.db)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	if err := db.Order("full_name").Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
