package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"techpay/internal/cache"
	"techpay/internal/database"
	"techpay/internal/model"
	"techpay/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordedEvent struct {
	Event string
	Data  interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Event: event, Data: data})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Event
	}
	return out
}

// staleAllocations serves empty allocation sums for the next `stale` calls,
// simulating a read that raced with another writer
type staleAllocations struct {
	repository.AllocationRepository
	mu    sync.Mutex
	stale int
}

func (s *staleAllocations) PaidByOrders(ctx context.Context, ids []uint) (map[uint]model.StagePaid, error) {
	s.mu.Lock()
	if s.stale > 0 {
		s.stale--
		s.mu.Unlock()
		return map[uint]model.StagePaid{}, nil
	}
	s.mu.Unlock()
	return s.AllocationRepository.PaidByOrders(ctx, ids)
}

type testEnv struct {
	db           *gorm.DB
	hub          *recordingPublisher
	stats        *cache.Memory
	allocations  *staleAllocations
	activityRepo repository.ActivityRepository

	payments     PaymentService
	orders       OrderService
	constructors ConstructorService
	deductions   DeductionService
	statistics   StatisticsService
	activity     ActivityService
}

type envOption func(*PaymentOptions, *StatisticsOptions)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	payOpts := PaymentOptions{RetryOnConflict: 1}
	statOpts := StatisticsOptions{}
	for _, o := range opts {
		o(&payOpts, &statOpts)
	}

	log := zap.NewNop()
	hub := &recordingPublisher{}
	stats := cache.NewMemory(time.Minute)

	orderRepo := repository.NewOrderRepository(db)
	constructorRepo := repository.NewConstructorRepository(db)
	allocations := &staleAllocations{AllocationRepository: repository.NewAllocationRepository(db)}
	deductionRepo := repository.NewDeductionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	txManager := repository.NewTransactionManager(db)

	return &testEnv{
		db:           db,
		hub:          hub,
		stats:        stats,
		allocations:  allocations,
		activityRepo: activityRepo,
		payments: NewPaymentService(paymentRepo, allocations, orderRepo, constructorRepo, deductionRepo,
			activityRepo, txManager, stats, hub, log, payOpts),
		orders: NewOrderService(orderRepo, constructorRepo, allocations, deductionRepo,
			activityRepo, txManager, stats, hub, log),
		constructors: NewConstructorService(constructorRepo, orderRepo, allocations, deductionRepo,
			activityRepo, txManager, stats, hub, log),
		deductions: NewDeductionService(deductionRepo, orderRepo, activityRepo, txManager, stats, hub, log),
		statistics: NewStatisticsService(statsRepo, orderRepo, constructorRepo, allocations, deductionRepo,
			stats, log, statOpts),
		activity: NewActivityService(activityRepo),
	}
}

func strPtr(s string) *string { return &s }
func uintPtr(v uint) *uint    { return &v }
func boolPtr(v bool) *bool    { return &v }

// constructor creates a constructor on sales_percent with the given salary
func (e *testEnv) constructor(t *testing.T, name, salary string) ConstructorResponse {
	t.Helper()
	c, err := e.constructors.CreateConstructor(context.Background(), ConstructorRequest{
		FullName:      strPtr(name),
		SalaryPercent: strPtr(salary),
	})
	require.NoError(t, err)
	return c
}

// order creates an order; a 10% constructor and price 10000 gives bonus 1000
func (e *testEnv) order(t *testing.T, name string, constructorID uint, price string, dates ...func(*OrderRequest)) OrderResponse {
	t.Helper()
	req := OrderRequest{
		Name:          strPtr(name),
		Price:         strPtr(price),
		ConstructorID: uintPtr(constructorID),
	}
	for _, d := range dates {
		d(&req)
	}
	o, err := e.orders.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	return o
}

func withToWork(date string) func(*OrderRequest) {
	return func(r *OrderRequest) { r.DateToWork = strPtr(date) }
}

func withInstallation(date string) func(*OrderRequest) {
	return func(r *OrderRequest) { r.DateInstallation = strPtr(date) }
}

func (e *testEnv) pay(t *testing.T, amount string, manualOrderID, constructorID *uint) PaymentResultResponse {
	t.Helper()
	res, err := e.payments.CreatePayment(context.Background(), CreatePaymentRequest{
		Amount:        amount,
		DateReceived:  "2024-03-01",
		ManualOrderID: manualOrderID,
		ConstructorID: constructorID,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) summary(t *testing.T, orderID uint) OrderSummaryResponse {
	t.Helper()
	s, err := e.orders.GetOrderSummary(context.Background(), orderID)
	require.NoError(t, err)
	return s
}
