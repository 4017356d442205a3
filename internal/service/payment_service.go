package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"techpay/internal/allocator"
	"techpay/internal/apperr"
	"techpay/internal/cache"
	"techpay/internal/model"
	"techpay/internal/repository"
	ws "techpay/internal/websocket"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

// CreatePaymentRequest registers money received. ManualOrderID sends it to
// one order; otherwise it is allocated automatically, limited to
// ConstructorID's orders when set.
type CreatePaymentRequest struct {
	Amount        string `json:"amount" binding:"required,decimal_gt0"` // Decimal string
	DateReceived  string `json:"date_received" binding:"required,datetime=2006-01-02"`
	Notes         string `json:"notes"`
	ManualOrderID *uint  `json:"manual_order_id"`
	ConstructorID *uint  `json:"constructor_id"`
}

type AllocationResponse struct {
	PaymentID uint   `json:"payment_id,omitempty"`
	OrderID   uint   `json:"order_id"`
	OrderName string `json:"order_name"`
	Stage     string `json:"stage"`
	Amount    string `json:"amount"`
}

type PaymentResultResponse struct {
	PaymentID       uint                 `json:"payment_id"`
	Amount          string               `json:"amount"`
	Allocations     []AllocationResponse `json:"allocations"`
	RemainingAmount string               `json:"remaining_amount"`
}

type PaymentResponse struct {
	ID                     uint    `json:"id"`
	Amount                 string  `json:"amount"`
	DateReceived           string  `json:"date_received"`
	Notes                  string  `json:"notes"`
	ManualOrderID          *uint   `json:"manual_order_id"`
	ConstructorID          *uint   `json:"constructor_id"`
	AllocatedAutomatically bool    `json:"allocated_automatically"`
	AllocatedAmount        string  `json:"allocated_amount"`
	UnallocatedAmount      string  `json:"unallocated_amount"`
	CreatedAt              *string `json:"created_at"`
}

type RedistributeResponse struct {
	PaymentsProcessed int                  `json:"payments_processed"`
	TotalAllocated    string               `json:"total_allocated"`
	Allocations       []AllocationResponse `json:"allocations"`
}

// --- Interface ---

type PaymentService interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (PaymentResultResponse, error)
	DeletePayment(ctx context.Context, id uint) error
	RedistributePayments(ctx context.Context) (RedistributeResponse, error)
	ListPayments(ctx context.Context, constructorID *uint, page, limit int) ([]PaymentResponse, int64, error)
	GetPaymentAllocations(ctx context.Context, id uint) ([]AllocationResponse, error)
}

// PaymentOptions tunes payment processing
type PaymentOptions struct {
	// RetryOnConflict is how many times a create is re-run after a
	// consistency failure before giving up
	RetryOnConflict int
}

type paymentService struct {
	paymentRepo     repository.PaymentRepository
	allocationRepo  repository.AllocationRepository
	orderRepo       repository.OrderRepository
	constructorRepo repository.ConstructorRepository
	ledger          ledgerReader
	activity        activityLogger
	txManager       repository.TransactionManager
	stats           cache.StatsCache
	hub             EventPublisher
	log             *zap.Logger
	opts            PaymentOptions
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	allocationRepo repository.AllocationRepository,
	orderRepo repository.OrderRepository,
	constructorRepo repository.ConstructorRepository,
	deductionRepo repository.DeductionRepository,
	activityRepo repository.ActivityRepository,
	txManager repository.TransactionManager,
	stats cache.StatsCache,
	hub EventPublisher,
	log *zap.Logger,
	opts PaymentOptions,
) PaymentService {
	if opts.RetryOnConflict < 0 {
		opts.RetryOnConflict = 0
	}
	return &paymentService{
		paymentRepo:     paymentRepo,
		allocationRepo:  allocationRepo,
		orderRepo:       orderRepo,
		constructorRepo: constructorRepo,
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
		opts:      opts,
	}
}

// --- Implementation ---

func (s *paymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (PaymentResultResponse, error) {
	amount, err := parseAmount("amount", req.Amount, true)
	if err != nil {
		return PaymentResultResponse{}, err
	}
	received, err := parseDate("date_received", req.DateReceived)
	if err != nil {
		return PaymentResultResponse{}, err
	}

	var result PaymentResultResponse
	for attempt := 0; ; attempt++ {
		result, err = s.createOnce(ctx, req, amount, received)
		if err == nil {
			break
		}
		if !apperr.IsConsistency(err) || attempt >= s.opts.RetryOnConflict {
			return PaymentResultResponse{}, err
		}
		s.log.Warn("payment allocation conflicted, retrying",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}

	s.log.Info("payment created",
		zap.Uint("payment_id", result.PaymentID),
		zap.String("amount", result.Amount),
		zap.Int("allocations", len(result.Allocations)),
		zap.String("remaining", result.RemainingAmount))
	afterWrite(ctx, s.stats, s.hub, s.log, ws.EventPaymentCreated, result)
	return result, nil
}

func (s *paymentService) createOnce(ctx context.Context, req CreatePaymentRequest, amount decimal.Decimal, received time.Time) (PaymentResultResponse, error) {
	var result PaymentResultResponse

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		payment := model.Payment{
			Amount:                 amount,
			DateReceived:           received,
			Notes:                  req.Notes,
			ManualOrderID:          req.ManualOrderID,
			ConstructorID:          req.ConstructorID,
			AllocatedAutomatically: req.ManualOrderID == nil,
		}

		plan, err := s.planAllocation(txCtx, &payment, amount)
		if err != nil {
			return err
		}

		if err := s.paymentRepo.Create(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		lines, err := s.persistPlan(txCtx, payment.ID, plan, received)
		if err != nil {
			return err
		}

		result = PaymentResultResponse{
			PaymentID:       payment.ID,
			Amount:          money(amount),
			Allocations:     lines,
			RemainingAmount: money(plan.Remaining),
		}

		return s.activity.record(txCtx, model.ActionAddPayment, payment.ID, "", map[string]interface{}{
			"amount":          money(amount),
			"date_received":   req.DateReceived,
			"manual_order_id": req.ManualOrderID,
			"constructor_id":  payment.ConstructorID,
			"allocations":     lines,
			"remaining":       money(plan.Remaining),
		})
	})
	if err != nil {
		return PaymentResultResponse{}, err
	}
	return result, nil
}

// planAllocation locks the orders the payment may touch, re-reads what they
// have received so far and plans the allocation. For manual payments it
// also scopes the payment to the order's constructor.
func (s *paymentService) planAllocation(ctx context.Context, payment *model.Payment, amount decimal.Decimal) (allocator.Plan, error) {
	if payment.ManualOrderID != nil {
		order, err := s.orderRepo.FindByIDForUpdate(ctx, *payment.ManualOrderID)
		if err != nil {
			return allocator.Plan{}, notFound(err, "order", *payment.ManualOrderID)
		}
		if payment.ConstructorID != nil && (order.ConstructorID == nil || *order.ConstructorID != *payment.ConstructorID) {
			return allocator.Plan{}, apperr.Validation("SCOPE_MISMATCH",
				"order %d is not assigned to constructor %d", order.ID, *payment.ConstructorID)
		}
		payment.ConstructorID = order.ConstructorID

		summary, err := s.ledger.summary(ctx, order)
		if err != nil {
			return allocator.Plan{}, err
		}
		return allocator.Manual(amount, allocator.TargetFor(order, summary))
	}

	if payment.ConstructorID != nil {
		if _, err := s.constructorRepo.FindByID(ctx, *payment.ConstructorID); err != nil {
			return allocator.Plan{}, notFound(err, "constructor", *payment.ConstructorID)
		}
	}
	targets, err := s.eligibleTargets(ctx, payment.ConstructorID)
	if err != nil {
		return allocator.Plan{}, err
	}
	return allocator.Auto(amount, targets)
}

// eligibleTargets locks every order in scope and keeps those still owed money
func (s *paymentService) eligibleTargets(ctx context.Context, constructorID *uint) ([]allocator.Target, error) {
	orders, err := s.orderRepo.ListEligibleForUpdate(ctx, constructorID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock orders: %w", err)
	}
	summaries, err := s.ledger.summaries(ctx, orders)
	if err != nil {
		return nil, err
	}

	var targets []allocator.Target
	for i, sum := range summaries {
		t := allocator.TargetFor(&orders[i], sum)
		if t.Outstanding().IsPositive() {
			targets = append(targets, t)
		}
	}
	return targets, nil
}

// persistPlan writes the planned allocations and reconciles the orders
// they touched
func (s *paymentService) persistPlan(ctx context.Context, paymentID uint, plan allocator.Plan, paidOn time.Time) ([]AllocationResponse, error) {
	rows := make([]model.Allocation, 0, len(plan.Lines))
	lines := make([]AllocationResponse, 0, len(plan.Lines))
	touched := make([]uint, 0, len(plan.Lines))
	seen := make(map[uint]bool)
	for _, l := range plan.Lines {
		rows = append(rows, model.Allocation{
			PaymentID: paymentID,
			OrderID:   l.OrderID,
			Stage:     l.Stage,
			Amount:    l.Amount,
		})
		lines = append(lines, AllocationResponse{
			PaymentID: paymentID,
			OrderID:   l.OrderID,
			OrderName: l.OrderName,
			Stage:     l.Stage,
			Amount:    money(l.Amount),
		})
		if !seen[l.OrderID] {
			seen[l.OrderID] = true
			touched = append(touched, l.OrderID)
		}
	}

	if err := s.allocationRepo.CreateBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to create allocations: %w", err)
	}
	if err := s.ledger.reconcile(ctx, touched, &paidOn, false); err != nil {
		return nil, err
	}
	return lines, nil
}

// DeletePayment reverses a payment. Stage paid amounts are re-derived from
// the remaining allocations, so paid dates of stages that are no longer
// full are cleared.
func (s *paymentService) DeletePayment(ctx context.Context, id uint) error {
	var affected []uint
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		payment, err := s.paymentRepo.FindByID(txCtx, id)
		if err != nil {
			return notFound(err, "payment", id)
		}
		allocations, err := s.allocationRepo.ListByPayment(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load allocations: %w", err)
		}

		seen := make(map[uint]bool)
		for _, a := range allocations {
			if !seen[a.OrderID] {
				seen[a.OrderID] = true
				affected = append(affected, a.OrderID)
			}
		}
		// Lock in id order so concurrent writers queue up the same way
		sort.Slice(affected, func(i, j int) bool { return affected[i] < affected[j] })
		for _, orderID := range affected {
			if _, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID); err != nil {
				return notFound(err, "order", orderID)
			}
		}

		if err := s.allocationRepo.DeleteByPayment(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete allocations: %w", err)
		}
		if err := s.paymentRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		if err := s.ledger.reconcile(txCtx, affected, nil, true); err != nil {
			return err
		}

		return s.activity.record(txCtx, model.ActionDeletePayment, id, "", map[string]interface{}{
			"amount":          money(payment.Amount),
			"date_received":   payment.DateReceived.Format(DateLayout),
			"affected_orders": affected,
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("payment deleted", zap.Uint("payment_id", id), zap.Int("affected_orders", len(affected)))
	afterWrite(ctx, s.stats, s.hub, s.log, ws.EventPaymentDeleted, map[string]interface{}{
		"payment_id":      id,
		"affected_orders": affected,
	})
	return nil
}

// RedistributePayments applies the unallocated part of every payment, oldest
// first, within the payment's own scope
func (s *paymentService) RedistributePayments(ctx context.Context) (RedistributeResponse, error) {
	var resp RedistributeResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		payments, err := s.paymentRepo.ListChronological(txCtx)
		if err != nil {
			return fmt.Errorf("failed to list payments: %w", err)
		}

		total := decimal.Zero
		resp.Allocations = []AllocationResponse{}
		for i := range payments {
			p := &payments[i]
			remaining := p.Amount.Sub(allocatedSum(p.Allocations))
			if !remaining.IsPositive() {
				continue
			}

			plan, err := s.planRemainder(txCtx, p, remaining)
			if err != nil {
				return err
			}
			if len(plan.Lines) == 0 {
				continue
			}

			lines, err := s.persistPlan(txCtx, p.ID, plan, p.DateReceived)
			if err != nil {
				return err
			}
			resp.PaymentsProcessed++
			resp.Allocations = append(resp.Allocations, lines...)
			total = total.Add(plan.Allocated)
		}
		resp.TotalAllocated = money(total)

		return s.activity.record(txCtx, model.ActionRedistribute, 0, "", map[string]interface{}{
			"payments_processed": resp.PaymentsProcessed,
			"total_allocated":    resp.TotalAllocated,
		})
	})
	if err != nil {
		return RedistributeResponse{}, err
	}

	s.log.Info("payments redistributed",
		zap.Int("payments_processed", resp.PaymentsProcessed),
		zap.String("total_allocated", resp.TotalAllocated))
	if resp.PaymentsProcessed > 0 {
		afterWrite(ctx, s.stats, s.hub, s.log, ws.EventPaymentsRedistributed, resp)
	}
	return resp, nil
}

func (s *paymentService) planRemainder(ctx context.Context, p *model.Payment, remaining decimal.Decimal) (allocator.Plan, error) {
	if p.ManualOrderID != nil {
		order, err := s.orderRepo.FindByIDForUpdate(ctx, *p.ManualOrderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// the order is gone; its remainder stays unallocated
			return allocator.Plan{}, nil
		}
		if err != nil {
			return allocator.Plan{}, fmt.Errorf("failed to lock order %d: %w", *p.ManualOrderID, err)
		}
		summary, err := s.ledger.summary(ctx, order)
		if err != nil {
			return allocator.Plan{}, err
		}
		return allocator.Manual(remaining, allocator.TargetFor(order, summary))
	}

	targets, err := s.eligibleTargets(ctx, p.ConstructorID)
	if err != nil {
		return allocator.Plan{}, err
	}
	return allocator.Auto(remaining, targets)
}

func (s *paymentService) ListPayments(ctx context.Context, constructorID *uint, page, limit int) ([]PaymentResponse, int64, error) {
	payments, total, err := s.paymentRepo.List(ctx, constructorID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = toPaymentResponse(&payments[i])
	}
	return out, total, nil
}

func (s *paymentService) GetPaymentAllocations(ctx context.Context, id uint) ([]AllocationResponse, error) {
	if _, err := s.paymentRepo.FindByID(ctx, id); err != nil {
		return nil, notFound(err, "payment", id)
	}
	allocations, err := s.allocationRepo.ListByPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}

	out := make([]AllocationResponse, len(allocations))
	for i, a := range allocations {
		out[i] = AllocationResponse{
			PaymentID: a.PaymentID,
			OrderID:   a.OrderID,
			Stage:     a.Stage,
			Amount:    money(a.Amount),
		}
		if a.Order != nil {
			out[i].OrderName = a.Order.Name
		}
	}
	return out, nil
}

func allocatedSum(allocations []model.Allocation) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range allocations {
		sum = sum.Add(a.Amount)
	}
	return sum
}

func toPaymentResponse(p *model.Payment) PaymentResponse {
	allocated := allocatedSum(p.Allocations)
	createdAt := p.CreatedAt.Format(time.RFC3339)
	return PaymentResponse{
		ID:                     p.ID,
		Amount:                 money(p.Amount),
		DateReceived:           p.DateReceived.Format(DateLayout),
		Notes:                  p.Notes,
		ManualOrderID:          p.ManualOrderID,
		ConstructorID:          p.ConstructorID,
		AllocatedAutomatically: p.AllocatedAutomatically,
		AllocatedAmount:        money(allocated),
		UnallocatedAmount:      money(p.Amount.Sub(allocated)),
		CreatedAt:              &createdAt,
	}
}
