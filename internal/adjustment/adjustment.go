package adjustment

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iurnickita/eventbilling/internal/model"
	"github.com/iurnickita/eventbilling/internal/pricing"
)

// PeriodMonths - минимальный интервал между индексациями.
const PeriodMonths = 3

var (
	ErrInvalidState = errors.New("no adjustment configured")
	ErrNotEligible  = errors.New("adjustment is not eligible yet")
)

// NotEligibleError сообщает, когда индексация станет доступна.
type NotEligibleError struct {
	NextEligibleAt time.Time
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("%s: next adjustment at %s", ErrNotEligible, e.NextEligibleAt.Format(time.RFC3339))
}

func (e *NotEligibleError) Unwrap() error {
	return ErrNotEligible
}

type Prices struct {
	Adult    decimal.Decimal
	Juvenile decimal.Decimal
	Child    decimal.Decimal
}

type Preview struct {
	Eligible       bool
	NextEligibleAt time.Time
	Percent        decimal.Decimal
	Remaining      pricing.Quantities
	CurrentPrices  Prices
	NewPrices      Prices

	// CoveredValue не меняется индексацией.
	CoveredValue decimal.Decimal
	// RemainingValue - остаток по новым ценам.
	RemainingValue decimal.Decimal
	// NewTotal - итог мероприятия после индексации, округлен.
	NewTotal decimal.Decimal
}

type Result struct {
	Event   model.Event
	Preview Preview
}

// NextEligibleAt - дата, начиная с которой разрешена следующая индексация.
func NextEligibleAt(data model.EventData) time.Time {
	base := data.CreatedAt
	if data.LastAdjustmentAt != nil {
		base = *data.LastAdjustmentAt
	}
	return addMonths(base, PeriodMonths)
}

// NewPreview считает индексацию без изменения мероприятия.
func NewPreview(event model.Event, now time.Time) (Preview, error) {
	data := event.Data
	if !data.QuarterlyAdjustmentEnabled() {
		return Preview{}, ErrInvalidState
	}

	tiers := pricing.Normalize(data)
	covered := pricing.Aggregate(event.Payments, tiers)
	remaining := pricing.Remaining(tiers, covered)

	factor := factor(data.QuarterlyAdjustmentPercent)
	next := NextEligibleAt(data)

	escalated := tiers
	escalated.AdultPrice = escalate(tiers.AdultPrice, factor)
	escalated.JuvenilePrice = escalate(tiers.JuvenilePrice, factor)
	escalated.ChildPrice = escalate(tiers.ChildPrice, factor)

	remainingValue := escalated.Value(remaining)

	return Preview{
		Eligible:       !now.Before(next),
		NextEligibleAt: next,
		Percent:        data.QuarterlyAdjustmentPercent,
		Remaining:      remaining,
		CurrentPrices: Prices{
			Adult:    tiers.AdultPrice,
			Juvenile: tiers.JuvenilePrice,
			Child:    tiers.ChildPrice,
		},
		NewPrices: Prices{
			Adult:    escalated.AdultPrice,
			Juvenile: escalated.JuvenilePrice,
			Child:    escalated.ChildPrice,
		},
		CoveredValue:   covered.Value,
		RemainingValue: remainingValue,
		NewTotal:       covered.Value.Add(remainingValue).Round(2),
	}, nil
}

// Apply индексирует цены неоплаченного остатка.
// Оплаченные количества сохраняют цены на момент оплаты.
// force принимается, но не отменяет проверку срока.
func Apply(event model.Event, now time.Time, force bool) (Result, error) {
	preview, err := NewPreview(event, now)
	if err != nil {
		return Result{}, err
	}
	if !preview.Eligible {
		return Result{}, &NotEligibleError{NextEligibleAt: preview.NextEligibleAt}
	}

	data := event.Data
	if data.ActiveScheme() == model.PricingSchemeTiered && data.SectionTotal() > 0 {
		data.AdultPrice = preview.NewPrices.Adult
		data.JuvenilePrice = preview.NewPrices.Juvenile
		data.ChildPrice = preview.NewPrices.Child
	} else {
		data.PricePerDish = escalate(data.PricePerDish, factor(data.QuarterlyAdjustmentPercent))
	}

	stamp := now
	data.TotalAmount = preview.NewTotal
	data.LastAdjustmentAt = &stamp
	data.UpdatedAt = now

	adjusted := event
	adjusted.Data = data

	return Result{Event: adjusted, Preview: preview}, nil
}

func factor(percent decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(percent.Div(decimal.NewFromInt(100)))
}

func escalate(price, factor decimal.Decimal) decimal.Decimal {
	return price.Mul(factor).Round(2)
}

// addMonths прибавляет календарные месяцы. Если в целевом месяце нет такого
// дня, берется последний день месяца.
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	hour, minute, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}
