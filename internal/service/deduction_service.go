package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"techpay/internal/apperr"
	"techpay/internal/cache"
	"techpay/internal/model"
	"techpay/internal/repository"
	ws "techpay/internal/websocket"

	"go.uber.org/zap"
)

// --- DTOs ---

type CreateDeductionRequest struct {
	OrderID     uint   `json:"order_id" binding:"required"`
	Amount      string `json:"amount" binding:"required,decimal_gt0"` // Decimal string
	Description string `json:"description" binding:"required"`
	DateCreated string `json:"date_created" binding:"omitempty,datetime=2006-01-02"` // defaults to today
	IsPaid      bool   `json:"is_paid"`
	DatePaid    string `json:"date_paid" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateDeductionRequest patches a deduction; nil fields are left unchanged.
// Marking it paid without a date stamps today.
type UpdateDeductionRequest struct {
	Amount      *string `json:"amount" binding:"omitempty,decimal_gt0"`
	Description *string `json:"description"`
	IsPaid      *bool   `json:"is_paid"`
	DatePaid    *string `json:"date_paid"`
}

type DeductionResponse struct {
	ID          uint    `json:"id"`
	OrderID     uint    `json:"order_id"`
	OrderName   string  `json:"order_name"`
	Amount      string  `json:"amount"`
	Description string  `json:"description"`
	DateCreated string  `json:"date_created"`
	IsPaid      bool    `json:"is_paid"`
	DatePaid    *string `json:"date_paid"`
}

// --- Interface ---

type DeductionService interface {
	CreateDeduction(ctx context.Context, req CreateDeductionRequest) (DeductionResponse, error)
	UpdateDeduction(ctx context.Context, id uint, req UpdateDeductionRequest) (DeductionResponse, error)
	DeleteDeduction(ctx context.Context, id uint) error
	ListDeductions(ctx context.Context, orderID *uint) ([]DeductionResponse, error)
}

type deductionService struct {
	deductionRepo repository.DeductionRepository
	orderRepo     repository.OrderRepository
	activity      activityLogger
	txManager     repository.TransactionManager
	stats         cache.StatsCache
	hub           EventPublisher
	log           *zap.Logger
	now           func() time.Time
}

func NewDeductionService(
	deductionRepo repository.DeductionRepository,
	orderRepo repository.OrderRepository,
	activityRepo repository.ActivityRepository,
	txManager repository.TransactionManager,
	stats cache.StatsCache,
	hub EventPublisher,
	log *zap.Logger,
) DeductionService {
	return &deductionService{
		deductionRepo: deductionRepo,
		orderRepo:     orderRepo,
		activity:      activityLogger{repo: activityRepo},
		txManager:     txManager,
		stats:         stats,
		hub:           hub,
		log:           log,
		now:           time.Now,
	}
}

// --- Implementation ---

func (s *deductionService) today() time.Time {
	t := s.now()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *deductionService) CreateDeduction(ctx context.Context, req CreateDeductionRequest) (DeductionResponse, error) {
	amount, err := parseAmount("amount", req.Amount, true)
	if err != nil {
		return DeductionResponse{}, err
	}
	if strings.TrimSpace(req.Description) == "" {
		return DeductionResponse{}, apperr.Validation("DESCRIPTION_REQUIRED", "description is required")
	}
	created := s.today()
	if req.DateCreated != "" {
		if created, err = parseDate("date_created", req.DateCreated); err != nil {
			return DeductionResponse{}, err
		}
	}
	datePaid, err := parseOptionalDate("date_paid", req.DatePaid)
	if err != nil {
		return DeductionResponse{}, err
	}

	d := model.Deduction{
		OrderID:     req.OrderID,
		Amount:      amount,
		Description: strings.TrimSpace(req.Description),
		DateCreated: created,
		IsPaid:      req.IsPaid,
		DatePaid:    datePaid,
	}
	s.settle(&d)

	var resp DeductionResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByID(txCtx, req.OrderID)
		if err != nil {
			return notFound(err, "order", req.OrderID)
		}
		if err := s.deductionRepo.Create(txCtx, &d); err != nil {
			return fmt.Errorf("failed to create deduction: %w", err)
		}
		d.Order = order
		resp = toDeductionResponse(&d)
		return s.activity.record(txCtx, model.ActionAddDeduction, d.ID, order.Name, resp)
	})
	if err != nil {
		return DeductionResponse{}, err
	}

	s.log.Info("deduction created", zap.Uint("deduction_id", d.ID), zap.Uint("order_id", d.OrderID))
	afterWrite(ctx, s.stats, s.hub, s.log, ws.EventDeductionChanged, resp)
	return resp, nil
}

func (s *deductionService) UpdateDeduction(ctx context.Context, id uint, req UpdateDeductionRequest) (DeductionResponse, error) {
	var resp DeductionResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		d, err := s.deductionRepo.FindByID(txCtx, id)
		if err != nil {
			return notFound(err, "deduction", id)
		}

		if req.Amount != nil {
			if d.Amount, err = parseAmount("amount", *req.Amount, true); err != nil {
				return err
			}
		}
		if req.Description != nil {
			if strings.TrimSpace(*req.Description) == "" {
				return apperr.Validation("DESCRIPTION_REQUIRED", "description must not be empty")
			}
			d.Description = strings.TrimSpace(*req.Description)
		}
		if req.DatePaid != nil {
			if d.DatePaid, err = parseOptionalDate("date_paid", *req.DatePaid); err != nil {
				return err
			}
		}
		if req.IsPaid != nil {
			d.IsPaid = *req.IsPaid
		}
		s.settle(d)

		if err := s.deductionRepo.Update(txCtx, d); err != nil {
			return fmt.Errorf("failed to update deduction: %w", err)
		}
		resp = toDeductionResponse(d)
		return s.activity.record(txCtx, model.ActionUpdateDeduction, d.ID, resp.OrderName, req)
	})
	if err != nil {
		return DeductionResponse{}, err
	}

	s.log.Info("deduction updated", zap.Uint("deduction_id", id))
	afterWrite(ctx, s.stats, s.hub, s.log, ws.EventDeductionChanged, resp)
	return resp, nil
}

func (s *deductionService) DeleteDeduction(ctx context.Context, id uint) error {
	var orderID uint
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		d, err := s.deductionRepo.FindByID(txCtx, id)
		if err != nil {
			return notFound(err, "deduction", id)
		}
		orderID = d.OrderID
		if err := s.deductionRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete deduction: %w", err)
		}
		return s.activity.record(txCtx, model.ActionDeleteDeduction, id, "", toDeductionResponse(d))
	})
	if err != nil {
		return err
	}

	s.log.Info("deduction deleted", zap.Uint("deduction_id", id))
	afterWrite(ctx, s.stats, s.hub, s.log, ws.EventDeductionChanged, map[string]interface{}{
		"id":       id,
		"order_id": orderID,
		"deleted":  true,
	})
	return nil
}

func (s *deductionService) ListDeductions(ctx context.Context, orderID *uint) ([]DeductionResponse, error) {
	list, err := s.deductionRepo.List(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deductions: %w", err)
	}
	out := make([]DeductionResponse, len(list))
	for i := range list {
		out[i] = toDeductionResponse(&list[i])
	}
	return out, nil
}

// settle keeps is_paid and date_paid in step: a paid fine always has a
// date and an unpaid one never does
func (s *deductionService) settle(d *model.Deduction) {
	if !d.IsPaid {
		d.DatePaid = nil
		return
	}
	if d.DatePaid == nil {
		today := s.today()
		d.DatePaid = &today
	}
}

func toDeductionResponse(d *model.Deduction) DeductionResponse {
	resp := DeductionResponse{
		ID:          d.ID,
		OrderID:     d.OrderID,
		Amount:      money(d.Amount),
		Description: d.Description,
		DateCreated: d.DateCreated.Format(DateLayout),
		IsPaid:      d.IsPaid,
		DatePaid:    formatDate(d.DatePaid),
	}
	if d.Order != nil {
		resp.OrderName = d.Order.Name
	}
	return resp
}
