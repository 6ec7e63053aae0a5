package currency

import (
	"github.com/shopspring/decimal"

	"github.com/iurnickita/eventbilling/internal/model"
)

// Convert переводит сумму из одной валюты в другую по курсу ARS за 1 USD.
// Если валюты совпадают или курса нет, сумма возвращается без изменений.
// Округления здесь нет.
func Convert(amount decimal.Decimal, from, to model.Currency, rate decimal.NullDecimal) decimal.Decimal {
	if !Available(from, to, rate) {
		return amount
	}

	switch {
	case from == model.CurrencyUSD && to == model.CurrencyARS:
		return amount.Mul(rate.Decimal)
	case from == model.CurrencyARS && to == model.CurrencyUSD:
		return amount.Div(rate.Decimal)
	default:
		return amount
	}
}

// Available сообщает, выполнит ли Convert реальный пересчет.
// Нулевой или отрицательный курс считается отсутствующим.
func Available(from, to model.Currency, rate decimal.NullDecimal) bool {
	if from == to {
		return false
	}
	return rate.Valid && rate.Decimal.IsPositive()
}

// NeedsRate - true, если для пересчета нужен курс.
func NeedsRate(from, to model.Currency) bool {
	return from != to
}
