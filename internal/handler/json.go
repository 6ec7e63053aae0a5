package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iurnickita/eventbilling/internal/adjustment"
	"github.com/iurnickita/eventbilling/internal/balance"
	"github.com/iurnickita/eventbilling/internal/model"
	"github.com/iurnickita/eventbilling/internal/pricing"
	"github.com/iurnickita/eventbilling/internal/service"
)

// Деньги наружу отдаются строкой с двумя знаками после запятой

type EventJSONRequest struct {
	Currency                   string          `json:"currency"`
	DishCount                  int             `json:"dish_count"`
	PricePerDish               decimal.Decimal `json:"price_per_dish"`
	AdultCount                 int             `json:"adult_count"`
	JuvenileCount              int             `json:"juvenile_count"`
	ChildCount                 int             `json:"child_count"`
	AdultPrice                 decimal.Decimal `json:"adult_price"`
	JuvenilePrice              decimal.Decimal `json:"juvenile_price"`
	ChildPrice                 decimal.Decimal `json:"child_price"`
	QuarterlyAdjustmentPercent decimal.Decimal `json:"quarterly_adjustment_percent"`
}

func (request EventJSONRequest) toInput() service.EventInput {
	return service.EventInput{
		Currency:                   model.Currency(request.Currency),
		DishCount:                  request.DishCount,
		PricePerDish:               request.PricePerDish,
		AdultCount:                 request.AdultCount,
		JuvenileCount:              request.JuvenileCount,
		ChildCount:                 request.ChildCount,
		AdultPrice:                 request.AdultPrice,
		JuvenilePrice:              request.JuvenilePrice,
		ChildPrice:                 request.ChildPrice,
		QuarterlyAdjustmentPercent: request.QuarterlyAdjustmentPercent,
	}
}

type PaymentJSONRequest struct {
	Amount          decimal.Decimal     `json:"amount"`
	Currency        string              `json:"currency"`
	ExchangeRate    decimal.NullDecimal `json:"exchange_rate"`
	PaidAt          *time.Time          `json:"paid_at"`
	PlatesCovered   *int                `json:"plates_covered"`
	AdultCovered    *int                `json:"adult_covered"`
	JuvenileCovered *int                `json:"juvenile_covered"`
	ChildCovered    *int                `json:"child_covered"`
}

func (request PaymentJSONRequest) toInput() service.PaymentInput {
	return service.PaymentInput{
		Amount:          request.Amount,
		Currency:        model.Currency(request.Currency),
		ExchangeRate:    request.ExchangeRate,
		PaidAt:          request.PaidAt,
		PlatesCovered:   request.PlatesCovered,
		AdultCovered:    request.AdultCovered,
		JuvenileCovered: request.JuvenileCovered,
		ChildCovered:    request.ChildCovered,
	}
}

type AdjustmentJSONRequest struct {
	Force bool `json:"force"`
}

type ErrorJSONResponse struct {
	Error          string     `json:"error"`
	NextEligibleAt *time.Time `json:"next_eligible_at,omitempty"`
}

type EventJSONResponse struct {
	ID                         string                `json:"id"`
	Currency                   string                `json:"currency"`
	PricingScheme              string                `json:"pricing_scheme"`
	DishCount                  int                   `json:"dish_count"`
	PricePerDish               string                `json:"price_per_dish"`
	AdultCount                 int                   `json:"adult_count"`
	JuvenileCount              int                   `json:"juvenile_count"`
	ChildCount                 int                   `json:"child_count"`
	AdultPrice                 string                `json:"adult_price"`
	JuvenilePrice              string                `json:"juvenile_price"`
	ChildPrice                 string                `json:"child_price"`
	QuarterlyAdjustmentPercent string                `json:"quarterly_adjustment_percent"`
	QuarterlyAdjustmentEnabled bool                  `json:"quarterly_adjustment_enabled"`
	LastAdjustmentAt           *time.Time            `json:"last_adjustment_at"`
	TotalAmount                string                `json:"total_amount"`
	CreatedAt                  time.Time             `json:"created_at"`
	UpdatedAt                  time.Time             `json:"updated_at"`
	Payments                   []PaymentJSONResponse `json:"payments"`
}

func newEventJSONResponse(event model.Event) EventJSONResponse {
	data := event.Data
	response := EventJSONResponse{
		ID:                         event.ID.String(),
		Currency:                   string(data.Currency),
		PricingScheme:              string(data.Scheme),
		DishCount:                  data.DishCount,
		PricePerDish:               moneyOutput(data.PricePerDish),
		AdultCount:                 data.AdultCount,
		JuvenileCount:              data.JuvenileCount,
		ChildCount:                 data.ChildCount,
		AdultPrice:                 moneyOutput(data.AdultPrice),
		JuvenilePrice:              moneyOutput(data.JuvenilePrice),
		ChildPrice:                 moneyOutput(data.ChildPrice),
		QuarterlyAdjustmentPercent: data.QuarterlyAdjustmentPercent.String(),
		QuarterlyAdjustmentEnabled: data.QuarterlyAdjustmentEnabled(),
		LastAdjustmentAt:           data.LastAdjustmentAt,
		TotalAmount:                moneyOutput(data.TotalAmount),
		CreatedAt:                  data.CreatedAt,
		UpdatedAt:                  data.UpdatedAt,
		Payments:                   make([]PaymentJSONResponse, 0, len(event.Payments)),
	}
	for _, payment := range event.Payments {
		response.Payments = append(response.Payments, newPaymentJSONResponse(payment))
	}
	return response
}

type CoverageJSONResponse struct {
	Kind          string  `json:"kind"`
	Adult         int     `json:"adult"`
	Juvenile      int     `json:"juvenile"`
	Child         int     `json:"child"`
	AdultPrice    *string `json:"adult_price_at_payment,omitempty"`
	JuvenilePrice *string `json:"juvenile_price_at_payment,omitempty"`
	ChildPrice    *string `json:"child_price_at_payment,omitempty"`
}

type PaymentJSONResponse struct {
	ID               string               `json:"id"`
	EventID          string               `json:"event_id"`
	Amount           string               `json:"amount"`
	Currency         string               `json:"currency"`
	ExchangeRate     *string              `json:"exchange_rate"`
	ExchangeRateDate *time.Time           `json:"exchange_rate_date"`
	PaidAt           time.Time            `json:"paid_at"`
	Coverage         CoverageJSONResponse `json:"coverage"`
}

func newPaymentJSONResponse(payment model.Payment) PaymentJSONResponse {
	data := payment.Data
	response := PaymentJSONResponse{
		ID:               payment.ID.String(),
		EventID:          data.EventID.String(),
		Amount:           moneyOutput(data.Amount),
		Currency:         string(data.Currency),
		ExchangeRateDate: data.ExchangeRateDate,
		PaidAt:           data.PaidAt,
		Coverage: CoverageJSONResponse{
			Kind:          string(data.Coverage.Kind),
			Adult:         data.Coverage.Adult,
			Juvenile:      data.Coverage.Juvenile,
			Child:         data.Coverage.Child,
			AdultPrice:    nullMoneyOutput(data.Coverage.AdultPrice),
			JuvenilePrice: nullMoneyOutput(data.Coverage.JuvenilePrice),
			ChildPrice:    nullMoneyOutput(data.Coverage.ChildPrice),
		},
	}
	if data.ExchangeRate.Valid {
		rate := data.ExchangeRate.Decimal.String()
		response.ExchangeRate = &rate
	}
	return response
}

type PaymentResultJSONResponse struct {
	Payment          PaymentJSONResponse `json:"payment"`
	OverCoverage     bool                `json:"over_coverage"`
	RatesUnavailable bool                `json:"rates_unavailable"`
}

type QuantitiesJSON struct {
	Adult    int `json:"adult"`
	Juvenile int `json:"juvenile"`
	Child    int `json:"child"`
}

func newQuantitiesJSON(q pricing.Quantities) QuantitiesJSON {
	return QuantitiesJSON{Adult: q.Adult, Juvenile: q.Juvenile, Child: q.Child}
}

type BalanceJSONResponse struct {
	Currency         string         `json:"currency"`
	TotalDue         string         `json:"total_due"`
	TotalPaid        string         `json:"total_paid"`
	Balance          string         `json:"balance"`
	CoveredValue     string         `json:"covered_value"`
	Covered          QuantitiesJSON `json:"covered"`
	Remaining        QuantitiesJSON `json:"remaining"`
	RatesUnavailable bool           `json:"rates_unavailable"`
	OverCoverage     bool           `json:"over_coverage"`
}

func newBalanceJSONResponse(summary balance.Summary) BalanceJSONResponse {
	summary = summary.Round()
	return BalanceJSONResponse{
		Currency:         string(summary.Currency),
		TotalDue:         moneyOutput(summary.TotalDue),
		TotalPaid:        moneyOutput(summary.TotalPaid),
		Balance:          moneyOutput(summary.Balance),
		CoveredValue:     moneyOutput(summary.Covered.Value),
		Covered:          newQuantitiesJSON(summary.Covered.Quantities),
		Remaining:        newQuantitiesJSON(summary.Remaining),
		RatesUnavailable: summary.RatesUnavailable,
		OverCoverage:     summary.OverCoverage,
	}
}

type PricesJSON struct {
	Adult    string `json:"adult"`
	Juvenile string `json:"juvenile"`
	Child    string `json:"child"`
}

func newPricesJSON(prices adjustment.Prices) PricesJSON {
	return PricesJSON{
		Adult:    moneyOutput(prices.Adult),
		Juvenile: moneyOutput(prices.Juvenile),
		Child:    moneyOutput(prices.Child),
	}
}

type PreviewJSONResponse struct {
	Eligible       bool           `json:"eligible"`
	NextEligibleAt time.Time      `json:"next_eligible_at"`
	Percent        string         `json:"percent"`
	Remaining      QuantitiesJSON `json:"remaining"`
	CurrentPrices  PricesJSON     `json:"current_prices"`
	NewPrices      PricesJSON     `json:"new_prices"`
	CoveredValue   string         `json:"covered_value"`
	RemainingValue string         `json:"remaining_value"`
	NewTotal       string         `json:"new_total"`
}

func newPreviewJSONResponse(preview adjustment.Preview) PreviewJSONResponse {
	return PreviewJSONResponse{
		Eligible:       preview.Eligible,
		NextEligibleAt: preview.NextEligibleAt,
		Percent:        preview.Percent.String(),
		Remaining:      newQuantitiesJSON(preview.Remaining),
		CurrentPrices:  newPricesJSON(preview.CurrentPrices),
		NewPrices:      newPricesJSON(preview.NewPrices),
		CoveredValue:   moneyOutput(preview.CoveredValue),
		RemainingValue: moneyOutput(preview.RemainingValue),
		NewTotal:       moneyOutput(preview.NewTotal),
	}
}

type AdjustmentJSONResponse struct {
	Event   EventJSONResponse   `json:"event"`
	Preview PreviewJSONResponse `json:"preview"`
}

func moneyOutput(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func nullMoneyOutput(amount decimal.NullDecimal) *string {
	if !amount.Valid {
		return nil
	}
	s := moneyOutput(amount.Decimal)
	return &s
}
