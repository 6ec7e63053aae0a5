package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iurnickita/eventbilling/internal/model"
)

// Строки таблиц. Колонки старых записей могут быть NULL.

type eventRow struct {
	ID            uuid.UUID       `db:"id"`
	Currency      string          `db:"currency"`
	PricingScheme sql.NullString  `db:"pricing_scheme"`
	DishCount     int             `db:"dish_count"`
	PricePerDish  decimal.Decimal `db:"price_per_dish"`
	AdultCount    int             `db:"adult_count"`
	JuvenileCount int             `db:"juvenile_count"`
	ChildCount    int             `db:"child_count"`
	AdultPrice    decimal.Decimal `db:"adult_price"`
	JuvenilePrice decimal.Decimal `db:"juvenile_price"`
	ChildPrice    decimal.Decimal `db:"child_price"`

	AdjustmentPercent decimal.Decimal `db:"quarterly_adjustment_percent"`
	LastAdjustmentAt  sql.NullTime    `db:"last_adjustment_at"`

	TotalAmount decimal.Decimal `db:"total_amount"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	Version     int             `db:"version"`
}

type paymentRow struct {
	ID               uuid.UUID           `db:"id"`
	EventID          uuid.UUID           `db:"event_id"`
	Amount           decimal.Decimal     `db:"amount"`
	Currency         string              `db:"currency"`
	ExchangeRate     decimal.NullDecimal `db:"exchange_rate"`
	ExchangeRateDate sql.NullTime        `db:"exchange_rate_date"`
	CoverageKind     sql.NullString      `db:"coverage_kind"`

	PlatesCovered         sql.NullInt64       `db:"plates_covered"`
	PricePerDishAtPayment decimal.NullDecimal `db:"price_per_dish_at_payment"`

	AdultCovered           sql.NullInt64       `db:"adult_covered"`
	JuvenileCovered        sql.NullInt64       `db:"juvenile_covered"`
	ChildCovered           sql.NullInt64       `db:"child_covered"`
	AdultPriceAtPayment    decimal.NullDecimal `db:"adult_price_at_payment"`
	JuvenilePriceAtPayment decimal.NullDecimal `db:"juvenile_price_at_payment"`
	ChildPriceAtPayment    decimal.NullDecimal `db:"child_price_at_payment"`

	PaidAt time.Time `db:"paid_at"`
}

func newEventRow(event model.Event) eventRow {
	data := event.Data
	row := eventRow{
		ID:                event.ID,
		Currency:          string(data.Currency),
		PricingScheme:     sql.NullString{String: string(data.Scheme), Valid: data.Scheme != ""},
		DishCount:         data.DishCount,
		PricePerDish:      data.PricePerDish,
		AdultCount:        data.AdultCount,
		JuvenileCount:     data.JuvenileCount,
		ChildCount:        data.ChildCount,
		AdultPrice:        data.AdultPrice,
		JuvenilePrice:     data.JuvenilePrice,
		ChildPrice:        data.ChildPrice,
		AdjustmentPercent: data.QuarterlyAdjustmentPercent,
		TotalAmount:       data.TotalAmount,
		CreatedAt:         data.CreatedAt,
		UpdatedAt:         data.UpdatedAt,
		Version:           data.Version,
	}
	if data.LastAdjustmentAt != nil {
		row.LastAdjustmentAt = sql.NullTime{Time: *data.LastAdjustmentAt, Valid: true}
	}
	return row
}

func (row eventRow) toModel() model.Event {
	event := model.Event{
		ID: row.ID,
		Data: model.EventData{
			Currency:                   model.Currency(row.Currency),
			DishCount:                  row.DishCount,
			PricePerDish:               row.PricePerDish,
			AdultCount:                 row.AdultCount,
			JuvenileCount:              row.JuvenileCount,
			ChildCount:                 row.ChildCount,
			AdultPrice:                 row.AdultPrice,
			JuvenilePrice:              row.JuvenilePrice,
			ChildPrice:                 row.ChildPrice,
			QuarterlyAdjustmentPercent: row.AdjustmentPercent,
			TotalAmount:                row.TotalAmount,
			CreatedAt:                  row.CreatedAt,
			UpdatedAt:                  row.UpdatedAt,
			Version:                    row.Version,
		},
	}
	if row.PricingScheme.Valid {
		event.Data.Scheme = model.PricingScheme(row.PricingScheme.String)
	} else {
		event.Data.Scheme = event.Data.ActiveScheme()
	}
	if row.LastAdjustmentAt.Valid {
		at := row.LastAdjustmentAt.Time
		event.Data.LastAdjustmentAt = &at
	}
	return event
}

func newPaymentRow(payment model.Payment) paymentRow {
	data := payment.Data
	coverage := data.Coverage
	row := paymentRow{
		ID:           payment.ID,
		EventID:      data.EventID,
		Amount:       data.Amount,
		Currency:     string(data.Currency),
		ExchangeRate: data.ExchangeRate,
		CoverageKind: sql.NullString{String: string(coverage.Kind), Valid: coverage.Kind != ""},
		PaidAt:       data.PaidAt,
	}
	if data.ExchangeRateDate != nil {
		row.ExchangeRateDate = sql.NullTime{Time: *data.ExchangeRateDate, Valid: true}
	}

	switch coverage.Kind {
	case model.CoverageFlat:
		row.PlatesCovered = nullInt(coverage.Adult)
		row.PricePerDishAtPayment = coverage.AdultPrice
	case model.CoverageTiered:
		row.AdultCovered = nullInt(coverage.Adult)
		row.JuvenileCovered = nullInt(coverage.Juvenile)
		row.ChildCovered = nullInt(coverage.Child)
		row.AdultPriceAtPayment = coverage.AdultPrice
		row.JuvenilePriceAtPayment = coverage.JuvenilePrice
		row.ChildPriceAtPayment = coverage.ChildPrice
	}
	return row
}

func (row paymentRow) toModel() model.Payment {
	payment := model.Payment{
		ID: row.ID,
		Data: model.PaymentData{
			EventID:      row.EventID,
			Amount:       row.Amount,
			Currency:     model.Currency(row.Currency),
			ExchangeRate: row.ExchangeRate,
			PaidAt:       row.PaidAt,
		},
	}
	if row.ExchangeRateDate.Valid {
		at := row.ExchangeRateDate.Time
		payment.Data.ExchangeRateDate = &at
	}

	switch row.coverageKind() {
	case model.CoverageTiered:
		payment.Data.Coverage = model.Coverage{
			Kind:     model.CoverageTiered,
			Adult:    int(row.AdultCovered.Int64),
			Juvenile: int(row.JuvenileCovered.Int64),
			Child:    int(row.ChildCovered.Int64),
			// платеж до разбивки по категориям: цена блюда - снимок взрослой цены
			AdultPrice:    firstValid(row.AdultPriceAtPayment, row.PricePerDishAtPayment),
			JuvenilePrice: row.JuvenilePriceAtPayment,
			ChildPrice:    row.ChildPriceAtPayment,
		}
	case model.CoverageFlat:
		payment.Data.Coverage = model.Coverage{
			Kind:       model.CoverageFlat,
			Adult:      int(row.PlatesCovered.Int64),
			AdultPrice: firstValid(row.PricePerDishAtPayment, row.AdultPriceAtPayment),
		}
	default:
		payment.Data.Coverage = model.Coverage{Kind: model.CoverageNone}
	}
	return payment
}

// coverageKind - сохраненный вид покрытия, для старых записей выводится
// по заполненным колонкам. Разбивка по категориям важнее тарелок.
func (row paymentRow) coverageKind() model.CoverageKind {
	if row.CoverageKind.Valid {
		return model.CoverageKind(row.CoverageKind.String)
	}
	switch {
	case row.AdultCovered.Valid || row.JuvenileCovered.Valid || row.ChildCovered.Valid:
		return model.CoverageTiered
	case row.PlatesCovered.Valid:
		return model.CoverageFlat
	default:
		return model.CoverageNone
	}
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func firstValid(values ...decimal.NullDecimal) decimal.NullDecimal {
	for _, v := range values {
		if v.Valid {
			return v
		}
	}
	return decimal.NullDecimal{}
}
