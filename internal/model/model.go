package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Валюты расчетов

type Currency string

const (
	CurrencyARS Currency = "ARS"
	CurrencyUSD Currency = "USD"
)

func (c Currency) Valid() bool {
	return c == CurrencyARS || c == CurrencyUSD
}

// Схема цен мероприятия.
// flat - устаревшая схема "кол-во блюд * цена блюда",
// tiered - взрослые/подростки/дети со своими ценами.

type PricingScheme string

const (
	PricingSchemeFlat   PricingScheme = "flat"
	PricingSchemeTiered PricingScheme = "tiered"
)

// SchemeFor решает, какая схема активна для данных количеств.
func SchemeFor(adultCount, juvenileCount, childCount int) PricingScheme {
	if adultCount+juvenileCount+childCount > 0 {
		return PricingSchemeTiered
	}
	return PricingSchemeFlat
}

// Мероприятие

type Event struct {
	ID       uuid.UUID
	Data     EventData
	Payments []Payment
}
type EventData struct {
	Currency Currency
	Scheme   PricingScheme

	DishCount    int
	PricePerDish decimal.Decimal

	AdultCount    int
	JuvenileCount int
	ChildCount    int
	AdultPrice    decimal.Decimal
	JuvenilePrice decimal.Decimal
	ChildPrice    decimal.Decimal

	QuarterlyAdjustmentPercent decimal.Decimal
	LastAdjustmentAt           *time.Time

	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Version растет с каждой записью мероприятия.
	// Запись проходит, только если версия не изменилась с момента чтения.
	Version int
}

func (data EventData) SectionTotal() int {
	return data.AdultCount + data.JuvenileCount + data.ChildCount
}

func (data EventData) QuarterlyAdjustmentEnabled() bool {
	return data.QuarterlyAdjustmentPercent.IsPositive()
}

// ActiveScheme возвращает сохраненную схему, а для старых записей без нее
// выводит схему по количествам.
func (data EventData) ActiveScheme() PricingScheme {
	switch data.Scheme {
	case PricingSchemeFlat, PricingSchemeTiered:
		return data.Scheme
	default:
		return SchemeFor(data.AdultCount, data.JuvenileCount, data.ChildCount)
	}
}

// Платежи

type Payment struct {
	ID   uuid.UUID
	Data PaymentData
}
type PaymentData struct {
	EventID          uuid.UUID
	Amount           decimal.Decimal
	Currency         Currency
	ExchangeRate     decimal.NullDecimal // ARS за 1 USD на момент платежа
	ExchangeRateDate *time.Time
	PaidAt           time.Time
	Coverage         Coverage
}

// Что покрывает платеж

type CoverageKind string

const (
	CoverageNone   CoverageKind = "none"
	CoverageFlat   CoverageKind = "flat"
	CoverageTiered CoverageKind = "tiered"
)

// Coverage - количества, оплаченные платежом, и цены на момент оплаты.
// Для CoverageFlat количество тарелок и цена блюда хранятся в Adult/AdultPrice.
type Coverage struct {
	Kind          CoverageKind
	Adult         int
	Juvenile      int
	Child         int
	AdultPrice    decimal.NullDecimal
	JuvenilePrice decimal.NullDecimal
	ChildPrice    decimal.NullDecimal
}
