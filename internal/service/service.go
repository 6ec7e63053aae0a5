package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iurnickita/eventbilling/internal/adjustment"
	"github.com/iurnickita/eventbilling/internal/balance"
	"github.com/iurnickita/eventbilling/internal/model"
	"github.com/iurnickita/eventbilling/internal/pricing"
	"github.com/iurnickita/eventbilling/internal/service/config"
	"github.com/iurnickita/eventbilling/internal/service/rateclient"
	"github.com/iurnickita/eventbilling/internal/store"
)

type Service interface {
	CreateEvent(ctx context.Context, input EventInput) (model.Event, error)
	UpdateEventPricing(ctx context.Context, id uuid.UUID, input EventInput) (model.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (model.Event, error)
	GetBalance(ctx context.Context, id uuid.UUID) (balance.Summary, error)
	CreatePayment(ctx context.Context, eventID uuid.UUID, input PaymentInput) (PaymentResult, error)
	DeletePayment(ctx context.Context, eventID uuid.UUID, paymentID uuid.UUID) error
	PreviewAdjustment(ctx context.Context, id uuid.UUID) (adjustment.Preview, error)
	ApplyAdjustment(ctx context.Context, id uuid.UUID, force bool) (adjustment.Result, error)
}

var (
	ErrInsufficientData    = errors.New("insufficient data")
	ErrUnprocessableEntity = errors.New("unprocessable entity")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrConcurrentUpdate    = errors.New("event was modified concurrently")
	// ошибки индексации отдаются как есть
	ErrInvalidState = adjustment.ErrInvalidState
	ErrNotEligible  = adjustment.ErrNotEligible
)

// Clock - источник текущего времени, подменяется в тестах.
type Clock func() time.Time

type Option func(*service)

func WithClock(clock Clock) Option {
	return func(s *service) {
		s.clock = clock
	}
}

func WithRateClient(rates rateclient.RateClient) Option {
	return func(s *service) {
		s.rates = rates
	}
}

type service struct {
	cfg    config.Config
	store  store.Store
	rates  rateclient.RateClient
	clock  Clock
	zaplog *zap.Logger
}

func NewService(cfg config.Config, store store.Store, zaplog *zap.Logger, opts ...Option) (Service, error) {
	service := service{
		cfg:    cfg,
		store:  store,
		clock:  time.Now,
		zaplog: zaplog,
	}

	if cfg.RateServiceAddr != "" {
		timeout := 5 * time.Second
		if cfg.RateTimeout != "" {
			parsed, err := time.ParseDuration(cfg.RateTimeout)
			if err != nil {
				return nil, err
			}
			timeout = parsed
		}
		service.rates = rateclient.NewRateClient(cfg.RateServiceAddr, timeout)
	}

	for _, opt := range opts {
		opt(&service)
	}

	return &service, nil
}

func (service *service) now() time.Time {
	return service.clock().UTC()
}

func (service *service) CreateEvent(ctx context.Context, input EventInput) (model.Event, error) {
	if err := input.validate(); err != nil {
		return model.Event{}, err
	}

	now := service.now()
	event := model.Event{ID: uuid.New()}
	input.apply(&event.Data)
	event.Data.CreatedAt = now
	event.Data.UpdatedAt = now
	event.Data.TotalAmount = contractTotal(event)
	if !withinAmountLimit(event.Data.TotalAmount) {
		return model.Event{}, ErrUnprocessableEntity
	}

	err := service.store.EventCreate(ctx, event)
	if err != nil {
		return model.Event{}, mapStoreError(err)
	}

	service.zaplog.Info("event created",
		zap.String("event", event.ID.String()),
		zap.String("scheme", string(event.Data.Scheme)),
		zap.String("total", event.Data.TotalAmount.StringFixed(2)),
	)
	return event, nil
}

func (service *service) UpdateEventPricing(ctx context.Context, id uuid.UUID, input EventInput) (model.Event, error) {
	if err := input.validate(); err != nil {
		return model.Event{}, err
	}

	event, err := service.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, err
	}

	prevScheme := event.Data.Scheme
	input.apply(&event.Data)
	event.Data.UpdatedAt = service.now()
	event.Data.TotalAmount = contractTotal(event)
	if !withinAmountLimit(event.Data.TotalAmount) {
		return model.Event{}, ErrUnprocessableEntity
	}

	if prevScheme != event.Data.Scheme && len(event.Payments) > 0 {
		// старые платежи остаются привязаны к категориям прежней схемы
		service.zaplog.Warn("pricing scheme changed with existing payments",
			zap.String("event", id.String()),
			zap.String("from", string(prevScheme)),
			zap.String("to", string(event.Data.Scheme)),
			zap.Int("payments", len(event.Payments)),
		)
	}

	err = service.store.EventUpdatePricing(ctx, event)
	if err != nil {
		return model.Event{}, mapStoreError(err)
	}
	event.Data.Version++
	return event, nil
}

func (service *service) GetEvent(ctx context.Context, id uuid.UUID) (model.Event, error) {
	if id == uuid.Nil {
		return model.Event{}, ErrInsufficientData
	}

	event, err := service.store.EventGet(ctx, id)
	if err != nil {
		return model.Event{}, mapStoreError(err)
	}
	return event, nil
}

func (service *service) GetBalance(ctx context.Context, id uuid.UUID) (balance.Summary, error) {
	event, err := service.GetEvent(ctx, id)
	if err != nil {
		return balance.Summary{}, err
	}

	var liveRate decimal.NullDecimal
	if balance.NeedsLiveRate(event) {
		if quote, ok := service.currentRate(ctx); ok {
			liveRate = decimal.NewNullDecimal(quote.Rate)
		}
	}

	summary := balance.Compute(event, liveRate)
	if summary.RatesUnavailable {
		service.zaplog.Warn("balance computed without exchange rate",
			zap.String("event", id.String()),
		)
	}
	return summary, nil
}

func (service *service) CreatePayment(ctx context.Context, eventID uuid.UUID, input PaymentInput) (PaymentResult, error) {
	if err := input.validate(); err != nil {
		return PaymentResult{}, err
	}

	event, err := service.GetEvent(ctx, eventID)
	if err != nil {
		return PaymentResult{}, err
	}

	now := service.now()
	tiers := pricing.Normalize(event.Data)

	var result PaymentResult
	payment := model.Payment{
		ID: uuid.New(),
		Data: model.PaymentData{
			EventID:  event.ID,
			Amount:   input.Amount.Round(priceScale),
			Currency: input.Currency,
			PaidAt:   now,
			Coverage: input.coverage(tiers),
		},
	}
	if input.PaidAt != nil {
		payment.Data.PaidAt = input.PaidAt.UTC()
	}

	// курс фиксируется только для платежа в другой валюте
	if payment.Data.Currency != event.Data.Currency {
		switch {
		case input.ExchangeRate.Valid:
			payment.Data.ExchangeRate = roundRate(input.ExchangeRate.Decimal)
			payment.Data.ExchangeRateDate = &now
		default:
			if quote, ok := service.currentRate(ctx); ok {
				date := quote.Date
				if date.IsZero() {
					date = now
				}
				payment.Data.ExchangeRate = roundRate(quote.Rate)
				payment.Data.ExchangeRateDate = &date
			} else {
				result.RatesUnavailable = true
			}
		}
	}

	covered := pricing.Aggregate(append(event.Payments, payment), tiers)
	result.OverCoverage = pricing.OverCovered(tiers, covered)

	err = service.store.PaymentCreate(ctx, payment)
	if err != nil {
		return PaymentResult{}, mapStoreError(err)
	}
	result.Payment = payment

	if result.OverCoverage {
		service.zaplog.Warn("payment covers more guests than contracted",
			zap.String("event", event.ID.String()),
			zap.String("payment", payment.ID.String()),
			zap.Int("adult", covered.Adult),
			zap.Int("juvenile", covered.Juvenile),
			zap.Int("child", covered.Child),
		)
	}
	if result.RatesUnavailable {
		service.zaplog.Warn("payment stored without exchange rate",
			zap.String("event", event.ID.String()),
			zap.String("payment", payment.ID.String()),
			zap.String("currency", string(payment.Data.Currency)),
		)
	}

	return result, nil
}

func (service *service) DeletePayment(ctx context.Context, eventID uuid.UUID, paymentID uuid.UUID) error {
	if eventID == uuid.Nil || paymentID == uuid.Nil {
		return ErrInsufficientData
	}

	err := service.store.PaymentDelete(ctx, eventID, paymentID)
	if err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (service *service) PreviewAdjustment(ctx context.Context, id uuid.UUID) (adjustment.Preview, error) {
	event, err := service.GetEvent(ctx, id)
	if err != nil {
		return adjustment.Preview{}, err
	}

	return adjustment.NewPreview(event, service.now())
}

func (service *service) ApplyAdjustment(ctx context.Context, id uuid.UUID, force bool) (adjustment.Result, error) {
	event, err := service.GetEvent(ctx, id)
	if err != nil {
		return adjustment.Result{}, err
	}

	result, err := adjustment.Apply(event, service.now(), force)
	if err != nil {
		return adjustment.Result{}, err
	}

	// запись только если мероприятие не менялось после чтения
	err = service.store.EventApplyAdjustment(ctx, result.Event)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			service.zaplog.Warn("adjustment lost to concurrent update",
				zap.String("event", id.String()),
				zap.Int("version", event.Data.Version),
			)
		}
		return adjustment.Result{}, mapStoreError(err)
	}
	result.Event.Data.Version++

	service.zaplog.Info("quarterly adjustment applied",
		zap.String("event", id.String()),
		zap.String("percent", result.Preview.Percent.String()),
		zap.String("total_before", event.Data.TotalAmount.StringFixed(2)),
		zap.String("total_after", result.Event.Data.TotalAmount.StringFixed(2)),
		zap.Bool("force", force),
	)
	return result, nil
}

func (service *service) currentRate(ctx context.Context) (rateclient.Quote, bool) {
	if service.rates == nil {
		return rateclient.Quote{}, false
	}

	quote, err := service.rates.GetCurrentRate(ctx)
	if err != nil {
		service.zaplog.Warn("live exchange rate unavailable", zap.Error(err))
		return rateclient.Quote{}, false
	}
	return quote, true
}

// roundRate приводит курс к точности, с которой он хранится.
func roundRate(rate decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(rate.Round(rateScale))
}

// contractTotal - итог мероприятия с учетом цен на момент оплаты.
func contractTotal(event model.Event) decimal.Decimal {
	return balance.Compute(event, decimal.NullDecimal{}).TotalDue.Round(priceScale)
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrAlreadyExists
	case errors.Is(err, store.ErrConflict):
		return ErrConcurrentUpdate
	default:
		return err
	}
}
