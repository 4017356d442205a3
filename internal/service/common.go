package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"techpay/internal/apperr"
	"techpay/internal/cache"
	"techpay/internal/ledger"
	"techpay/internal/model"
	"techpay/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// EventPublisher pushes live updates to connected dashboards.
// Implementations must not block.
type EventPublisher interface {
	Publish(event string, data interface{})
}

// NopPublisher discards every event
type NopPublisher struct{}

func (NopPublisher) Publish(string, interface{}) {}

// Actor identifies who triggered a change, for the activity log
type Actor struct {
	Name      string
	RequestID string
}

type actorKey struct{}

// WithActor attaches the acting user to ctx
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the acting user, or "system" when none is attached
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok && a.Name != "" {
		return a
	}
	return Actor{Name: "system"}
}

// activityLogger writes activity entries inside the caller's transaction
type activityLogger struct {
	repo repository.ActivityRepository
}

func (l activityLogger) record(ctx context.Context, action string, entityID uint, entityName string, details interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode activity details: %w", err)
	}
	actor := ActorFrom(ctx)
	entry := &model.ActivityLog{
		Actor:      actor.Name,
		RequestID:  actor.RequestID,
		Action:     action,
		EntityID:   strconv.FormatUint(uint64(entityID), 10),
		EntityName: entityName,
		Details:    datatypes.JSON(raw),
	}
	if err := l.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return nil
}

// afterWrite drops cached statistics and notifies dashboards once a write
// has committed. Cache failures only cost freshness, so they are logged.
func afterWrite(ctx context.Context, stats cache.StatsCache, hub EventPublisher, log *zap.Logger, event string, data interface{}) {
	if err := stats.Invalidate(ctx); err != nil {
		log.Warn("failed to invalidate stats cache", zap.Error(err))
	}
	hub.Publish(event, data)
}

// notFound translates gorm's missing-row error into the domain error
func notFound(err error, entity string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return fmt.Errorf("failed to load %s %v: %w", entity, id, err)
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Validation("INVALID_DATE", "%s must be a date in YYYY-MM-DD format, got %q", field, s)
	}
	return t, nil
}

// parseOptionalDate maps "" to nil
func parseOptionalDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// parseAmount parses a non-negative money value. positive additionally
// rejects zero.
func parseAmount(field, s string, positive bool) (decimal.Decimal, error) {
	d, err := ledger.ParseMoney(s)
	if errors.Is(err, ledger.ErrSubCent) {
		return decimal.Zero, apperr.Validation("INVALID_AMOUNT", "%s must have at most %d decimal places, got %q", field, ledger.MoneyPlaces, s)
	}
	if err != nil {
		return decimal.Zero, apperr.Validation("INVALID_AMOUNT", "%s must be a decimal number, got %q", field, s)
	}
	if d.IsNegative() || (positive && d.IsZero()) {
		qualifier := "must not be negative"
		if positive {
			qualifier = "must be positive"
		}
		return decimal.Zero, apperr.Validation("INVALID_AMOUNT", "%s %s, got %s", field, qualifier, s)
	}
	return d, nil
}

// parseNullMoney is parseNullDecimal for currency fields
func parseNullMoney(field, s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := ledger.ParseMoney(s)
	if errors.Is(err, ledger.ErrSubCent) {
		return decimal.NullDecimal{}, apperr.Validation("INVALID_AMOUNT", "%s must have at most %d decimal places, got %q", field, ledger.MoneyPlaces, s)
	}
	if err != nil {
		return decimal.NullDecimal{}, apperr.Validation("INVALID_NUMBER", "%s must be a decimal number, got %q", field, s)
	}
	return decimal.NewNullDecimal(d), nil
}

// parseNullDecimal maps "" to an unset value
func parseNullDecimal(field, s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, apperr.Validation("INVALID_NUMBER", "%s must be a decimal number, got %q", field, s)
	}
	return decimal.NewNullDecimal(d), nil
}

func formatNullDecimal(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func money(d decimal.Decimal) string {
	return ledger.FormatMoney(d)
}
