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

// OrderRequest creates or patches an order. A nil field is left unchanged.
// For nullable fields an empty string clears the stored value, and
// constructor_id 0 unassigns the constructor.
type OrderRequest struct {
	ID            *uint   `json:"id"` // explicit id on create, re-key on update
	Name          *string `json:"name"`
	Price         *string `json:"price" binding:"omitempty,decimal_gte0"`
	MaterialCost  *string `json:"material_cost" binding:"omitempty,decimal_gte0"`
	ProductTypes  *string `json:"product_types"`
	ConstructorID *uint   `json:"constructor_id"`

	BonusMode     *string `json:"bonus_mode"`
	SalaryPercent *string `json:"salary_percent" binding:"omitempty,percent"`
	FixedBonus    *string `json:"fixed_bonus" binding:"omitempty,decimal_gte0"`
	FixedAmount   *string `json:"fixed_amount" binding:"omitempty,decimal_gte0"`
	Stage1Percent *string `json:"stage1_percent" binding:"omitempty,percent"`
	Stage2Percent *string `json:"stage2_percent" binding:"omitempty,percent"`

	DateReceived       *string `json:"date_received"`
	DateDesignDeadline *string `json:"date_design_deadline"`
	DateToWork         *string `json:"date_to_work"`
	DateAdvancePaid    *string `json:"date_advance_paid"`
	DateInstallation   *string `json:"date_installation"`
	DateFinalPaid      *string `json:"date_final_paid"`
}

type OrderSummaryResponse struct {
	OrderID            uint   `json:"order_id"`
	BonusMode          string `json:"bonus_mode"`
	Stage1Percent      string `json:"stage1_percent"`
	Stage2Percent      string `json:"stage2_percent"`
	Bonus              string `json:"bonus"`
	AdvanceAmount      string `json:"advance_amount"`
	FinalAmount        string `json:"final_amount"`
	AdvancePaidAmount  string `json:"advance_paid_amount"`
	FinalPaidAmount    string `json:"final_paid_amount"`
	AdvanceOutstanding string `json:"advance_outstanding"`
	FinalOutstanding   string `json:"final_outstanding"`
	RemainderAmount    string `json:"remainder_amount"`
	CurrentDebt        string `json:"current_debt"`
	IsCriticalDebt     bool   `json:"is_critical_debt"`
	UnpaidFines        string `json:"unpaid_fines"`
	AdjustedDebt       string `json:"adjusted_debt"`
	EffectivelyPaid    bool   `json:"effectively_paid"`
	PaymentStatus      string `json:"payment_status"`
}

type OrderResponse struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Price           string  `json:"price"`
	MaterialCost    string  `json:"material_cost"`
	ProductTypes    string  `json:"product_types"`
	ConstructorID   *uint   `json:"constructor_id"`
	ConstructorName *string `json:"constructor_name"`

	BonusMode     *string `json:"bonus_mode"`
	SalaryPercent *string `json:"salary_percent"`
	FixedBonus    *string `json:"fixed_bonus"`
	FixedAmount   *string `json:"fixed_amount"`
	Stage1Percent *string `json:"stage1_percent"`
	Stage2Percent *string `json:"stage2_percent"`

	DateReceived       *string `json:"date_received"`
	DateDesignDeadline *string `json:"date_design_deadline"`
	DateToWork         *string `json:"date_to_work"`
	DateAdvancePaid    *string `json:"date_advance_paid"`
	DateInstallation   *string `json:"date_installation"`
	DateFinalPaid      *string `json:"date_final_paid"`

	Summary OrderSummaryResponse `json:"summary"`
}

// --- Interface ---

type OrderService interface {
	CreateOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	UpdateOrder(ctx context.Context, id uint, req OrderRequest) (OrderResponse, error)
	DeleteOrder(ctx context.Context, id uint) error
	GetOrder(ctx context.Context, id uint) (OrderResponse, error)
	GetOrderSummary(ctx context.Context, id uint) (OrderSummaryResponse, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter, page, limit int) ([]OrderResponse, int64, error)
}

type orderService struct {
	orderRepo       repository.OrderRepository
	constructorRepo repository.ConstructorRepository
	allocationRepo  repository.AllocationRepository
	deductionRepo   repository.DeductionRepository
	ledger          ledgerReader
	activity        activityLogger
	txManager       repository.TransactionManager
	stats           cache.StatsCache
	hub             EventPublisher
	log             *zap.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	constructorRepo repository.ConstructorRepository,
	allocationRepo repository.AllocationRepository,
	deductionRepo repository.DeductionRepository,
	activityRepo repository.ActivityRepository,
	txManager repository.TransactionManager,
	stats cache.StatsCache,
	hub EventPublisher,
	log *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:       orderRepo,
		constructorRepo: constructorRepo,
		allocationRepo:  allocationRepo,
		deductionRepo:   deductionRepo,
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

func (s *orderService) CreateOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return OrderResponse{}, apperr.Validation("NAME_REQUIRED", "order name is required")
	}

	order := model.Order{Price: decimal.Zero, MaterialCost: decimal.Zero}
	if req.ID != nil {
		order.ID = *req.ID
	}
	if err := applyOrderRequest(&order, req); err != nil {
		return OrderResponse{}, err
	}

	var resp OrderResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if order.ID != 0 {
			taken, err := s.orderRepo.Exists(txCtx, order.ID)
			if err != nil {
				return fmt.Errorf("failed to check order id: %w", err)
			}
			if taken {
				return apperr.Validation("ORDER_ID_TAKEN", "order id %d is already in use", order.ID)
			}
		}
		if err := s.checkTerms(txCtx, &order); err != nil {
			return err
		}

		if err := s.orderRepo.Create(txCtx, &order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		var err error
		resp, err = s.load(txCtx, order.ID)
		if err != nil {
			return err
		}
		return s.activity.record(txCtx, model.ActionCreateOrder, order.ID, order.Name, req)
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.log.Info("order created", zap.Uint("order_id", resp.ID))
	afterWrite(ctx, s.stats, s.hub, s.log, ws.EventOrderChanged, map[string]interface{}{"order_id": resp.ID, "action": "created"})
	return resp, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, id uint, req OrderRequest) (OrderResponse, error) {
	var resp OrderResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, "order", id)
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
			return apperr.Validation("NAME_REQUIRED", "order name must not be empty")
		}
		if err := applyOrderRequest(order, req); err != nil {
			return err
		}
		if err := s.checkTerms(txCtx, order); err != nil {
			return err
		}

		// Stage amounts may shrink; they must still cover what was paid
		summary, err := s.ledger.summary(txCtx, order)
		if err != nil {
			return err
		}
		if summary.AdvancePaid.GreaterThan(summary.AdvanceAmount) || summary.FinalPaid.GreaterThan(summary.FinalAmount) {
			return apperr.Validation("STAGE_OVERPAID",
				"order %d already received advance %s and final %s, more than the new stage amounts %s and %s",
				id, money(summary.AdvancePaid), money(summary.FinalPaid), money(summary.AdvanceAmount), money(summary.FinalAmount))
		}

		if err := s.orderRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		finalID := id
		if req.ID != nil && *req.ID != id {
			finalID = *req.ID
			taken, err := s.orderRepo.Exists(txCtx, finalID)
			if err != nil {
				return fmt.Errorf("failed to check order id: %w", err)
			}
			if taken {
				return apperr.Validation("ORDER_ID_TAKEN", "order id %d is already in use", finalID)
			}
			if err := s.orderRepo.ChangeID(txCtx, id, finalID); err != nil {
				return fmt.Errorf("failed to change order id: %w", err)
			}
		}

		// A larger bonus can reopen a stage that was paid in full
		if err := s.ledger.reconcile(txCtx, []uint{finalID}, nil, true); err != nil {
			return err
		}

		resp, err = s.load(txCtx, finalID)
		if err != nil {
			return err
		}
		return s.activity.record(txCtx, model.ActionUpdateOrder, finalID, order.Name, map[string]interface{}{
			"previous_id": id,
			"changes":     req,
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.log.Info("order updated", zap.Uint("order_id", resp.ID))
	afterWrite(ctx, s.stats, s.hub, s.log, ws.EventOrderChanged, map[string]interface{}{"order_id": resp.ID, "action": "updated"})
	return resp, nil
}

// DeleteOrder removes an order together with its deductions. Orders that
// received money must have their payments deleted first.
func (s *orderService) DeleteOrder(ctx context.Context, id uint) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, "order", id)
		}
		count, err := s.allocationRepo.CountByOrder(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to count allocations: %w", err)
		}
		if count > 0 {
			return apperr.Validation("ORDER_HAS_ALLOCATIONS",
				"order %d has %d payment allocations; delete those payments first", id, count)
		}

		if err := s.deductionRepo.DeleteByOrder(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete deductions: %w", err)
		}
		if err := s.orderRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		return s.activity.record(txCtx, model.ActionDeleteOrder, id, order.Name, map[string]interface{}{
			"price": money(order.Price),
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("order deleted", zap.Uint("order_id", id))
	afterWrite(ctx, s.stats, s.hub, s.log, ws.EventOrderChanged, map[string]interface{}{"order_id": id, "action": "deleted"})
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, id uint) (OrderResponse, error) {
	return s.load(ctx, id)
}

func (s *orderService) GetOrderSummary(ctx context.Context, id uint) (OrderSummaryResponse, error) {
	resp, err := s.load(ctx, id)
	if err != nil {
		return OrderSummaryResponse{}, err
	}
	return resp.Summary, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter, page, limit int) ([]OrderResponse, int64, error) {
	orders, total, err := s.orderRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	summaries, err := s.ledger.summaries(ctx, orders)
	if err != nil {
		return nil, 0, err
	}

	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i], summaries[i])
	}
	return out, total, nil
}

func (s *orderService) load(ctx context.Context, id uint) (OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return OrderResponse{}, notFound(err, "order", id)
	}
	summary, err := s.ledger.summary(ctx, order)
	if err != nil {
		return OrderResponse{}, err
	}
	return toOrderResponse(order, summary), nil
}

// checkTerms verifies the constructor exists and that the effective bonus
// terms of the order are valid
func (s *orderService) checkTerms(ctx context.Context, order *model.Order) error {
	var c *model.Constructor
	if order.ConstructorID != nil {
		found, err := s.constructorRepo.FindByID(ctx, *order.ConstructorID)
		if err != nil {
			return notFound(err, "constructor", *order.ConstructorID)
		}
		c = found
	}
	order.Constructor = c
	_, err := ledger.ResolveTerms(order, c)
	return err
}

func applyOrderRequest(o *model.Order, req OrderRequest) error {
	if req.Name != nil {
		o.Name = strings.TrimSpace(*req.Name)
	}
	if req.ProductTypes != nil {
		o.ProductTypes = *req.ProductTypes
	}
	if req.Price != nil {
		v, err := parseAmount("price", *req.Price, false)
		if err != nil {
			return err
		}
		o.Price = v
	}
	if req.MaterialCost != nil {
		v, err := parseAmount("material_cost", *req.MaterialCost, false)
		if err != nil {
			return err
		}
		o.MaterialCost = v
	}
	if req.ConstructorID != nil {
		if *req.ConstructorID == 0 {
			o.ConstructorID = nil
		} else {
			id := *req.ConstructorID
			o.ConstructorID = &id
		}
		o.Constructor = nil
	}
	if req.BonusMode != nil {
		if *req.BonusMode != "" && !model.IsValidBonusMode(*req.BonusMode) {
			return apperr.Validation("INVALID_BONUS_MODE", "unknown bonus mode %q", *req.BonusMode)
		}
		o.BonusMode = *req.BonusMode
	}

	nullable := []struct {
		field string
		value *string
		dst   *decimal.NullDecimal
		parse func(field, s string) (decimal.NullDecimal, error)
	}{
		{"salary_percent", req.SalaryPercent, &o.SalaryPercent, parseNullDecimal},
		{"fixed_bonus", req.FixedBonus, &o.FixedBonus, parseNullMoney},
		{"fixed_amount", req.FixedAmount, &o.FixedAmount, parseNullMoney},
		{"stage1_percent", req.Stage1Percent, &o.Stage1Percent, parseNullDecimal},
		{"stage2_percent", req.Stage2Percent, &o.Stage2Percent, parseNullDecimal},
	}
	for _, n := range nullable {
		if n.value == nil {
			continue
		}
		v, err := n.parse(n.field, *n.value)
		if err != nil {
			return err
		}
		*n.dst = v
	}

	dates := []struct {
		field string
		value *string
		dst   **time.Time
	}{
		{"date_received", req.DateReceived, &o.DateReceived},
		{"date_design_deadline", req.DateDesignDeadline, &o.DateDesignDeadline},
		{"date_to_work", req.DateToWork, &o.DateToWork},
		{"date_advance_paid", req.DateAdvancePaid, &o.DateAdvancePaid},
		{"date_installation", req.DateInstallation, &o.DateInstallation},
		{"date_final_paid", req.DateFinalPaid, &o.DateFinalPaid},
	}
	for _, d := range dates {
		if d.value == nil {
			continue
		}
		v, err := parseOptionalDate(d.field, *d.value)
		if err != nil {
			return err
		}
		*d.dst = v
	}
	return nil
}

func toOrderResponse(o *model.Order, s ledger.Summary) OrderResponse {
	resp := OrderResponse{
		ID:                 o.ID,
		Name:               o.Name,
		Price:              money(o.Price),
		MaterialCost:       money(o.MaterialCost),
		ProductTypes:       o.ProductTypes,
		ConstructorID:      o.ConstructorID,
		SalaryPercent:      formatNullDecimal(o.SalaryPercent),
		FixedBonus:         formatNullDecimal(o.FixedBonus),
		FixedAmount:        formatNullDecimal(o.FixedAmount),
		Stage1Percent:      formatNullDecimal(o.Stage1Percent),
		Stage2Percent:      formatNullDecimal(o.Stage2Percent),
		DateReceived:       formatDate(o.DateReceived),
		DateDesignDeadline: formatDate(o.DateDesignDeadline),
		DateToWork:         formatDate(o.DateToWork),
		DateAdvancePaid:    formatDate(o.DateAdvancePaid),
		DateInstallation:   formatDate(o.DateInstallation),
		DateFinalPaid:      formatDate(o.DateFinalPaid),
		Summary:            toSummaryResponse(o, s),
	}
	if o.BonusMode != "" {
		mode := o.BonusMode
		resp.BonusMode = &mode
	}
	if o.Constructor != nil {
		name := o.Constructor.FullName
		resp.ConstructorName = &name
	}
	return resp
}

func toSummaryResponse(o *model.Order, s ledger.Summary) OrderSummaryResponse {
	resp := OrderSummaryResponse{
		OrderID:            s.OrderID,
		Bonus:              money(s.Bonus),
		AdvanceAmount:      money(s.AdvanceAmount),
		FinalAmount:        money(s.FinalAmount),
		AdvancePaidAmount:  money(s.AdvancePaid),
		FinalPaidAmount:    money(s.FinalPaid),
		AdvanceOutstanding: money(s.AdvanceOutstanding),
		FinalOutstanding:   money(s.FinalOutstanding),
		RemainderAmount:    money(s.RemainderAmount),
		CurrentDebt:        money(s.CurrentDebt),
		IsCriticalDebt:     s.IsCriticalDebt,
		UnpaidFines:        money(s.UnpaidFines),
		AdjustedDebt:       money(s.AdjustedDebt),
		EffectivelyPaid:    s.EffectivelyPaid,
		PaymentStatus:      s.PaymentStatus,
	}
	// Terms already validated by Summarize
	if terms, err := ledger.ResolveTerms(o, o.Constructor); err == nil {
		resp.BonusMode = terms.Mode
		resp.Stage1Percent = terms.Stage1Percent.String()
		resp.Stage2Percent = terms.Stage2Percent.String()
	}
	return resp
}
