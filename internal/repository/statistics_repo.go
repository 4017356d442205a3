package repository

import (
	"context"
	"fmt"

	"techpay/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	ReceiptsByConstructor(ctx context.Context) ([]model.ConstructorReceipts, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

// ReceiptsByConstructor totals received and allocated money per payment
// scope. Payments without a constructor are grouped under a nil id.
func (r *statisticsRepository) ReceiptsByConstructor(ctx context.Context) ([]model.ConstructorReceipts, error) {
	var rows []model.ConstructorReceipts
	if err := GetDB(ctx, r.db).Table("payments").
		Select("payments.constructor_id AS constructor_id, COALESCE(SUM(payments.amount), 0) AS received, COALESCE(SUM(alloc.allocated), 0) AS allocated").
		Joins("LEFT JOIN (SELECT payment_id, SUM(amount) AS allocated FROM allocations GROUP BY payment_id) alloc ON alloc.payment_id = payments.id").
		Group("payments.constructor_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query receipts by constructor: %w", err)
	}
	for i := range rows {
		rows[i].Received = rows[i].Received.Round(moneyPlaces)
		rows[i].Allocated = rows[i].Allocated.Round(moneyPlaces)
	}
	return rows, nil
}
