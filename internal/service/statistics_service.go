package service

import (
	"context"
	"encoding/json"
	"fmt"

	"techpay/internal/cache"
	"techpay/internal/ledger"
	"techpay/internal/model"
	"techpay/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ConstructorStats struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Debt        string `json:"debt"`
	Credit      string `json:"credit"`
	Unallocated string `json:"unallocated"`
}

type FinancialStatsResponse struct {
	TotalReceived         string             `json:"total_received"`
	TotalAllocated        string             `json:"total_allocated"`
	UnallocatedTotal      string             `json:"unallocated_total"`
	PositiveDebt          string             `json:"positive_debt"`
	NegativeDebt          string             `json:"negative_debt"`
	NetDebt               string             `json:"net_debt"`
	CustomerCreditBalance string             `json:"customer_credit_balance"`
	CriticalOrders        int                `json:"critical_orders"`
	TotalFinesUnpaid      string             `json:"total_fines_unpaid"`
	TotalFinesAll         string             `json:"total_fines_all"`
	PerConstructor        []ConstructorStats `json:"per_constructor"`
}

type StatisticsService interface {
	GetFinancialStats(ctx context.Context) (FinancialStatsResponse, error)
}

// StatisticsOptions tunes the financial report
type StatisticsOptions struct {
	// UnallocatedIncludesCredit adds the customer credit balance to the
	// unallocated total
	UnallocatedIncludesCredit bool
}

type statisticsService struct {
	statsRepo       repository.StatisticsRepository
	orderRepo       repository.OrderRepository
	constructorRepo repository.ConstructorRepository
	deductionRepo   repository.DeductionRepository
	ledger          ledgerReader
	cache           cache.StatsCache
	log             *zap.Logger
	opts            StatisticsOptions
}

func NewStatisticsService(
	statsRepo repository.StatisticsRepository,
	orderRepo repository.OrderRepository,
	constructorRepo repository.ConstructorRepository,
	allocationRepo repository.AllocationRepository,
	deductionRepo repository.DeductionRepository,
	statsCache cache.StatsCache,
	log *zap.Logger,
	opts StatisticsOptions,
) StatisticsService {
	return &statisticsService{
		statsRepo:       statsRepo,
		orderRepo:       orderRepo,
		constructorRepo: constructorRepo,
		deductionRepo:   deductionRepo,
		ledger: ledgerReader{
			orders:       orderRepo,
			constructors: constructorRepo,
			allocations:  allocationRepo,
			deductions:   deductionRepo,
		},
		cache: statsCache,
		log:   log,
		opts:  opts,
	}
}

// GetFinancialStats nets every order's adjusted debt into dashboard totals.
// Results are served from the cache until the next write invalidates it.
func (s *statisticsService) GetFinancialStats(ctx context.Context) (FinancialStatsResponse, error) {
	if raw, ok, err := s.cache.Get(ctx); err != nil {
		s.log.Warn("failed to read stats cache", zap.Error(err))
	} else if ok {
		var cached FinancialStatsResponse
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		s.log.Warn("discarding unreadable stats cache entry")
	}

	resp, err := s.compute(ctx)
	if err != nil {
		return FinancialStatsResponse{}, err
	}

	if raw, err := json.Marshal(resp); err == nil {
		if err := s.cache.Set(ctx, raw); err != nil {
			s.log.Warn("failed to write stats cache", zap.Error(err))
		}
	}
	return resp, nil
}

func (s *statisticsService) compute(ctx context.Context) (FinancialStatsResponse, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return FinancialStatsResponse{}, fmt.Errorf("failed to list orders: %w", err)
	}
	summaries, err := s.ledger.summaries(ctx, orders)
	if err != nil {
		return FinancialStatsResponse{}, err
	}
	receipts, err := s.statsRepo.ReceiptsByConstructor(ctx)
	if err != nil {
		return FinancialStatsResponse{}, err
	}
	fines, err := s.deductionRepo.Totals(ctx)
	if err != nil {
		return FinancialStatsResponse{}, fmt.Errorf("failed to sum deductions: %w", err)
	}
	constructors, err := s.constructorRepo.List(ctx, false)
	if err != nil {
		return FinancialStatsResponse{}, fmt.Errorf("failed to list constructors: %w", err)
	}

	totals := ledger.Aggregate(summaries)

	byConstructor := make(map[uint][]ledger.Summary)
	critical := 0
	for i, sum := range summaries {
		if sum.IsCriticalDebt {
			critical++
		}
		if orders[i].ConstructorID != nil {
			id := *orders[i].ConstructorID
			byConstructor[id] = append(byConstructor[id], sum)
		}
	}

	received, allocated := decimal.Zero, decimal.Zero
	unallocatedBy := make(map[uint]decimal.Decimal)
	for _, r := range receipts {
		received = received.Add(r.Received)
		allocated = allocated.Add(r.Allocated)
		if r.ConstructorID != nil {
			unallocatedBy[*r.ConstructorID] = r.Unallocated()
		}
	}

	unallocated := received.Sub(allocated)
	if s.opts.UnallocatedIncludesCredit {
		unallocated = unallocated.Add(totals.CustomerCreditBalance)
	}

	resp := FinancialStatsResponse{
		TotalReceived:         money(received),
		TotalAllocated:        money(allocated),
		UnallocatedTotal:      money(unallocated),
		PositiveDebt:          money(totals.PositiveDebt),
		NegativeDebt:          money(totals.NegativeDebt),
		NetDebt:               money(totals.NetDebt),
		CustomerCreditBalance: money(totals.CustomerCreditBalance),
		CriticalOrders:        critical,
		TotalFinesUnpaid:      money(fines.Unpaid),
		TotalFinesAll:         money(fines.Total),
		PerConstructor:        make([]ConstructorStats, 0, len(constructors)),
	}
	for _, c := range constructors {
		resp.PerConstructor = append(resp.PerConstructor, constructorStats(&c, byConstructor[c.ID], unallocatedBy[c.ID]))
	}
	return resp, nil
}

func constructorStats(c *model.Constructor, summaries []ledger.Summary, unallocated decimal.Decimal) ConstructorStats {
	t := ledger.Aggregate(summaries)
	return ConstructorStats{
		ID:          c.ID,
		Name:        c.FullName,
		Debt:        money(t.NetDebt),
		Credit:      money(t.CustomerCreditBalance),
		Unallocated: money(unallocated),
	}
}
