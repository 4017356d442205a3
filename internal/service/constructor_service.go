package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"techpay/internal/apperr"
	"techpay/internal/cache"
	"techpay/internal/ledger"
	"techpay/internal/model"
	"techpay/internal/repository"
	ws "techpay/internal/websocket"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- DTOs ---

// ConstructorRequest creates or patches a constructor; nil fields are left
// unchanged on update. When only one stage percent is given the other one
// is its complement to 100.
type ConstructorRequest struct {
	FullName      *string `json:"full_name"`
	TelegramID    *string `json:"telegram_id"`
	CardNumber    *string `json:"card_number"`
	IsActive      *bool   `json:"is_active"`
	BonusMode     *string `json:"bonus_mode" binding:"omitempty,oneof=sales_percent materials_percent fixed_amount"`
	SalaryPercent *string `json:"salary_percent" binding:"omitempty,percent"`
	FixedAmount   *string `json:"fixed_amount" binding:"omitempty,decimal_gte0"` // "" clears
	Stage1Percent *string `json:"stage1_percent" binding:"omitempty,percent"`
	Stage2Percent *string `json:"stage2_percent" binding:"omitempty,percent"`
}

type ConstructorResponse struct {
	ID            uint    `json:"id"`
	FullName      string  `json:"full_name"`
	TelegramID    string  `json:"telegram_id"`
	CardNumber    string  `json:"card_number"`
	IsActive      bool    `json:"is_active"`
	BonusMode     string  `json:"bonus_mode"`
	SalaryPercent string  `json:"salary_percent"`
	FixedAmount   *string `json:"fixed_amount"`
	Stage1Percent string  `json:"stage1_percent"`
	Stage2Percent string  `json:"stage2_percent"`
	CreatedAt     string  `json:"created_at"`
}

// --- Interface ---

type ConstructorService interface {
	CreateConstructor(ctx context.Context, req ConstructorRequest) (ConstructorResponse, error)
	UpdateConstructor(ctx context.Context, id uint, req ConstructorRequest) (ConstructorResponse, error)
	GetConstructor(ctx context.Context, id uint) (ConstructorResponse, error)
	ListConstructors(ctx context.Context, activeOnly bool) ([]ConstructorResponse, error)
}

type constructorService struct {
	constructorRepo repository.ConstructorRepository
	orderRepo       repository.OrderRepository
	ledger          ledgerReader
	activity        activityLogger
	txManager       repository.TransactionManager
	stats           cache.StatsCache
	hub             EventPublisher
	log             *zap.Logger
}

func NewConstructorService(
	constructorRepo repository.ConstructorRepository,
	orderRepo repository.OrderRepository,
	allocationRepo repository.AllocationRepository,
	deductionRepo repository.DeductionRepository,
	activityRepo repository.ActivityRepository,
	txManager repository.TransactionManager,
	stats cache.StatsCache,
	hub EventPublisher,
	log *zap.Logger,
) ConstructorService {
	return &constructorService{
		constructorRepo: constructorRepo,
		orderRepo:       orderRepo,
		ledger: ledgerReader{
			orders:       orderRepo,
			constructors: constructorRepo,
			allocations:  allocationRepo,
			deductions:   deductionRepo,
		},
		activity:  activityLogger{repo: activityRepo},
		txManager: txManager,
		stats:     stats,
		hub:       hub,
		log:       log,
	}
}

// --- Implementation ---

func (s *constructorService) CreateConstructor(ctx context.Context, req ConstructorRequest) (ConstructorResponse, error) {
	if req.FullName == nil || strings.TrimSpace(*req.FullName) == "" {
		return ConstructorResponse{}, apperr.Validation("NAME_REQUIRED", "full_name is required")
	}

	c := model.Constructor{
		IsActive:      true,
		BonusMode:     model.BonusModeSalesPercent,
		SalaryPercent: decimal.Zero,
		Stage1Percent: decimal.NewFromInt(50),
		Stage2Percent: decimal.NewFromInt(50),
	}
	if err := applyConstructorRequest(&c, req); err != nil {
		return ConstructorResponse{}, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.constructorRepo.Create(txCtx, &c); err != nil {
			return fmt.Errorf("failed to create constructor: %w", err)
		}
		return s.activity.record(txCtx, model.ActionCreateConstructor, c.ID, c.FullName, req)
	})
	if err != nil {
		return ConstructorResponse{}, err
	}

	s.log.Info("constructor created", zap.Uint("constructor_id", c.ID))
	return toConstructorResponse(&c), nil
}

// UpdateConstructor changes a constructor's defaults. Orders inheriting them
// are re-derived, and the change is rejected when one of them would end up
// with a stage that already received more than its new amount.
func (s *constructorService) UpdateConstructor(ctx context.Context, id uint, req ConstructorRequest) (ConstructorResponse, error) {
	var c *model.Constructor
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		c, err = s.constructorRepo.FindByID(txCtx, id)
		if err != nil {
			return notFound(err, "constructor", id)
		}
		if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
			return apperr.Validation("NAME_REQUIRED", "full_name must not be empty")
		}
		if err := applyConstructorRequest(c, req); err != nil {
			return err
		}

		orders, err := s.orderRepo.ListByConstructor(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		for i := range orders {
			orders[i].Constructor = c
		}
		summaries, err := s.ledger.summaries(txCtx, orders)
		if err != nil {
			return err
		}
		for _, sum := range summaries {
			if sum.AdvancePaid.GreaterThan(sum.AdvanceAmount) || sum.FinalPaid.GreaterThan(sum.FinalAmount) {
				return apperr.Validation("STAGE_OVERPAID",
					"order %d would end up with stage amounts below what it already received", sum.OrderID)
			}
		}

		if err := s.constructorRepo.Update(txCtx, c); err != nil {
			return fmt.Errorf("failed to update constructor: %w", err)
		}
		if len(orders) > 0 {
			ids := make([]uint, len(orders))
			for i := range orders {
				ids[i] = orders[i].ID
			}
			if err := s.ledger.reconcile(txCtx, ids, nil, true); err != nil {
				return err
			}
		}
		return s.activity.record(txCtx, model.ActionUpdateConstructor, c.ID, c.FullName, req)
	})
	if err != nil {
		return ConstructorResponse{}, err
	}

	s.log.Info("constructor updated", zap.Uint("constructor_id", id))
	afterWrite(ctx, s.stats, s.hub, s.log, ws.EventOrderChanged, map[string]interface{}{"constructor_id": id, "action": "constructor_updated"})
	return toConstructorResponse(c), nil
}

func (s *constructorService) GetConstructor(ctx context.Context, id uint) (ConstructorResponse, error) {
	c, err := s.constructorRepo.FindByID(ctx, id)
	if err != nil {
		return ConstructorResponse{}, notFound(err, "constructor", id)
	}
	return toConstructorResponse(c), nil
}

func (s *constructorService) ListConstructors(ctx context.Context, activeOnly bool) ([]ConstructorResponse, error) {
	list, err := s.constructorRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list constructors: %w", err)
	}
	out := make([]ConstructorResponse, len(list))
	for i := range list {
		out[i] = toConstructorResponse(&list[i])
	}
	return out, nil
}

func applyConstructorRequest(c *model.Constructor, req ConstructorRequest) error {
	if req.FullName != nil {
		c.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.TelegramID != nil {
		c.TelegramID = *req.TelegramID
	}
	if req.CardNumber != nil {
		c.CardNumber = *req.CardNumber
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.BonusMode != nil {
		if !model.IsValidBonusMode(*req.BonusMode) {
			return apperr.Validation("INVALID_BONUS_MODE", "unknown bonus mode %q", *req.BonusMode)
		}
		c.BonusMode = *req.BonusMode
	}
	if req.SalaryPercent != nil {
		v, err := decimal.NewFromString(*req.SalaryPercent)
		if err != nil || v.IsNegative() || v.GreaterThan(decimal.NewFromInt(100)) {
			return apperr.Validation("INVALID_SALARY_PERCENT", "salary_percent must be between 0 and 100, got %q", *req.SalaryPercent)
		}
		c.SalaryPercent = v
	}
	if req.FixedAmount != nil {
		v, err := parseNullMoney("fixed_amount", *req.FixedAmount)
		if err != nil {
			return err
		}
		if v.Valid && v.Decimal.IsNegative() {
			return apperr.Validation("INVALID_FIXED_AMOUNT", "fixed_amount must not be negative")
		}
		c.FixedAmount = v
	}

	hundred := decimal.NewFromInt(100)
	switch {
	case req.Stage1Percent != nil && req.Stage2Percent != nil:
		s1, err1 := decimal.NewFromString(*req.Stage1Percent)
		s2, err2 := decimal.NewFromString(*req.Stage2Percent)
		if err1 != nil || err2 != nil {
			return apperr.Validation("INVALID_STAGE_SPLIT", "stage percentages must be decimal numbers")
		}
		c.Stage1Percent, c.Stage2Percent = s1, s2
	case req.Stage1Percent != nil:
		s1, err := decimal.NewFromString(*req.Stage1Percent)
		if err != nil {
			return apperr.Validation("INVALID_STAGE_SPLIT", "stage1_percent must be a decimal number")
		}
		c.Stage1Percent, c.Stage2Percent = s1, hundred.Sub(s1)
	case req.Stage2Percent != nil:
		s2, err := decimal.NewFromString(*req.Stage2Percent)
		if err != nil {
			return apperr.Validation("INVALID_STAGE_SPLIT", "stage2_percent must be a decimal number")
		}
		c.Stage1Percent, c.Stage2Percent = hundred.Sub(s2), s2
	}
	return ledger.ValidateSplit(c.Stage1Percent, c.Stage2Percent)
}

func toConstructorResponse(c *model.Constructor) ConstructorResponse {
	return ConstructorResponse{
		ID:            c.ID,
		FullName:      c.FullName,
		TelegramID:    c.TelegramID,
		CardNumber:    c.CardNumber,
		IsActive:      c.IsActive,
		BonusMode:     c.BonusMode,
		SalaryPercent: c.SalaryPercent.String(),
		FixedAmount:   formatNullDecimal(c.FixedAmount),
		Stage1Percent: c.Stage1Percent.String(),
		Stage2Percent: c.Stage2Percent.String(),
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
	}
}
