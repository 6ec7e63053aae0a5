package service

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iurnickita/eventbilling/internal/model"
	"github.com/iurnickita/eventbilling/internal/pricing"
)

// Пределы колонок в базе. Значения сверяются после округления,
// с которым они будут сохранены.
const (
	maxCount   = math.MaxInt32
	priceScale = 2
	rateScale  = 4
)

var (
	maxPrice   = decimal.New(1, 12) // NUMERIC (14, 2)
	maxAmount  = decimal.New(1, 14) // NUMERIC (16, 2)
	maxPercent = decimal.New(1, 3)  // NUMERIC (7, 4)
	maxRate    = decimal.New(1, 10) // NUMERIC (14, 4)
)

func withinCountLimit(count int) bool {
	return count >= 0 && count <= maxCount
}

func withinAmountLimit(amount decimal.Decimal) bool {
	return amount.Round(priceScale).LessThan(maxAmount)
}

// EventInput - цены мероприятия при создании и изменении.
type EventInput struct {
	Currency model.Currency

	DishCount    int
	PricePerDish decimal.Decimal

	AdultCount    int
	JuvenileCount int
	ChildCount    int
	AdultPrice    decimal.Decimal
	JuvenilePrice decimal.Decimal
	ChildPrice    decimal.Decimal

	QuarterlyAdjustmentPercent decimal.Decimal
}

func (input EventInput) validate() error {
	if input.Currency == "" {
		return ErrInsufficientData
	}
	if !input.Currency.Valid() {
		return ErrUnprocessableEntity
	}
	for _, count := range []int{input.DishCount, input.AdultCount, input.JuvenileCount, input.ChildCount} {
		if !withinCountLimit(count) {
			return ErrUnprocessableEntity
		}
	}
	for _, price := range []decimal.Decimal{
		input.PricePerDish,
		input.AdultPrice,
		input.JuvenilePrice,
		input.ChildPrice,
	} {
		if price.IsNegative() || !price.Round(priceScale).LessThan(maxPrice) {
			return ErrUnprocessableEntity
		}
	}
	percent := input.QuarterlyAdjustmentPercent
	if percent.IsNegative() || !percent.Round(rateScale).LessThan(maxPercent) {
		return ErrUnprocessableEntity
	}
	return nil
}

// apply переносит цены в мероприятие и фиксирует активную схему.
// При схеме по категориям цена блюда обнуляется.
func (input EventInput) apply(data *model.EventData) {
	data.Currency = input.Currency
	data.Scheme = model.SchemeFor(input.AdultCount, input.JuvenileCount, input.ChildCount)

	data.DishCount = input.DishCount
	data.PricePerDish = input.PricePerDish.Round(priceScale)
	data.AdultCount = input.AdultCount
	data.JuvenileCount = input.JuvenileCount
	data.ChildCount = input.ChildCount
	data.AdultPrice = input.AdultPrice.Round(priceScale)
	data.JuvenilePrice = input.JuvenilePrice.Round(priceScale)
	data.ChildPrice = input.ChildPrice.Round(priceScale)
	data.QuarterlyAdjustmentPercent = input.QuarterlyAdjustmentPercent.Round(rateScale)

	if data.Scheme == model.PricingSchemeTiered {
		data.PricePerDish = decimal.Zero
	}
}

// PaymentInput - новый платеж. Покрытие по категориям важнее тарелок,
// без покрытия платеж только денежный.
type PaymentInput struct {
	Amount       decimal.Decimal
	Currency     model.Currency
	ExchangeRate decimal.NullDecimal
	PaidAt       *time.Time

	PlatesCovered   *int
	AdultCovered    *int
	JuvenileCovered *int
	ChildCovered    *int
}

type PaymentResult struct {
	Payment model.Payment
	// OverCoverage - предупреждение, платеж все равно сохранен.
	OverCoverage bool
	// RatesUnavailable - платеж в другой валюте сохранен без курса.
	RatesUnavailable bool
}

func (input PaymentInput) validate() error {
	if input.Currency == "" {
		return ErrInsufficientData
	}
	if !input.Currency.Valid() {
		return ErrUnprocessableEntity
	}
	// сохраняется сумма, округленная до копеек
	if !input.Amount.Round(priceScale).IsPositive() || !withinAmountLimit(input.Amount) {
		return ErrUnprocessableEntity
	}
	if input.ExchangeRate.Valid {
		rate := input.ExchangeRate.Decimal.Round(rateScale)
		if !rate.IsPositive() || !rate.LessThan(maxRate) {
			return ErrUnprocessableEntity
		}
	}
	for _, count := range []*int{input.PlatesCovered, input.AdultCovered, input.JuvenileCovered, input.ChildCovered} {
		if count != nil && !withinCountLimit(*count) {
			return ErrUnprocessableEntity
		}
	}
	return nil
}

func (input PaymentInput) hasTieredCoverage() bool {
	return input.AdultCovered != nil || input.JuvenileCovered != nil || input.ChildCovered != nil
}

// coverage выбирает вид покрытия и снимает текущие цены категорий.
func (input PaymentInput) coverage(tiers pricing.Tiers) model.Coverage {
	switch {
	case input.hasTieredCoverage():
		return model.Coverage{
			Kind:          model.CoverageTiered,
			Adult:         valueOrZero(input.AdultCovered),
			Juvenile:      valueOrZero(input.JuvenileCovered),
			Child:         valueOrZero(input.ChildCovered),
			AdultPrice:    decimal.NewNullDecimal(tiers.AdultPrice),
			JuvenilePrice: decimal.NewNullDecimal(tiers.JuvenilePrice),
			ChildPrice:    decimal.NewNullDecimal(tiers.ChildPrice),
		}
	case input.PlatesCovered != nil:
		return model.Coverage{
			Kind:       model.CoverageFlat,
			Adult:      *input.PlatesCovered,
			AdultPrice: decimal.NewNullDecimal(tiers.AdultPrice),
		}
	default:
		return model.Coverage{Kind: model.CoverageNone}
	}
}

func valueOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
