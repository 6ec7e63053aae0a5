package balance

import (
	"github.com/shopspring/decimal"

	"github.com/iurnickita/eventbilling/internal/currency"
	"github.com/iurnickita/eventbilling/internal/model"
	"github.com/iurnickita/eventbilling/internal/pricing"
)

// Summary - состояние расчетов по мероприятию в валюте мероприятия.
type Summary struct {
	Currency  model.Currency
	Tiers     pricing.Tiers
	Covered   pricing.Covered
	Remaining pricing.Quantities

	TotalDue  decimal.Decimal
	TotalPaid decimal.Decimal
	Balance   decimal.Decimal

	// RatesUnavailable - часть платежей в другой валюте учтена без курса,
	// TotalPaid и Balance неточны.
	RatesUnavailable bool
	// OverCoverage - платежи покрывают больше гостей, чем по договору.
	OverCoverage bool
}

// Compute пересчитывает баланс мероприятия с нуля.
// liveRate - текущий курс, используется только для платежей без своего курса.
func Compute(event model.Event, liveRate decimal.NullDecimal) Summary {
	tiers := pricing.Normalize(event.Data)
	covered := pricing.Aggregate(event.Payments, tiers)
	remaining := pricing.Remaining(tiers, covered)

	summary := Summary{
		Currency:     event.Data.Currency,
		Tiers:        tiers,
		Covered:      covered,
		Remaining:    remaining,
		TotalDue:     covered.Value.Add(tiers.Value(remaining)),
		TotalPaid:    decimal.Zero,
		OverCoverage: pricing.OverCovered(tiers, covered),
	}

	for _, payment := range event.Payments {
		rate := paymentRate(payment, liveRate)
		if currency.NeedsRate(payment.Data.Currency, event.Data.Currency) &&
			!currency.Available(payment.Data.Currency, event.Data.Currency, rate) {
			summary.RatesUnavailable = true
		}
		summary.TotalPaid = summary.TotalPaid.Add(
			currency.Convert(payment.Data.Amount, payment.Data.Currency, event.Data.Currency, rate))
	}

	summary.Balance = summary.TotalDue.Sub(summary.TotalPaid)

	return summary
}

// NeedsLiveRate - есть ли платеж в другой валюте без собственного курса.
func NeedsLiveRate(event model.Event) bool {
	for _, payment := range event.Payments {
		if currency.NeedsRate(payment.Data.Currency, event.Data.Currency) &&
			!usable(payment.Data.ExchangeRate) {
			return true
		}
	}
	return false
}

// Round округляет денежные поля до 2 знаков. Только для вывода.
func (s Summary) Round() Summary {
	s.Covered.Value = s.Covered.Value.Round(2)
	s.TotalDue = s.TotalDue.Round(2)
	s.TotalPaid = s.TotalPaid.Round(2)
	s.Balance = s.Balance.Round(2)
	return s
}

func paymentRate(payment model.Payment, liveRate decimal.NullDecimal) decimal.NullDecimal {
	if usable(payment.Data.ExchangeRate) {
		return payment.Data.ExchangeRate
	}
	return liveRate
}

func usable(rate decimal.NullDecimal) bool {
	return rate.Valid && rate.Decimal.IsPositive()
}
