package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iurnickita/eventbilling/internal/adjustment"
	"github.com/iurnickita/eventbilling/internal/balance"
	"github.com/iurnickita/eventbilling/internal/model"
	"github.com/iurnickita/eventbilling/internal/pricing"
	"github.com/iurnickita/eventbilling/internal/service"
)

type stubService struct {
	event   model.Event
	summary balance.Summary
	preview adjustment.Preview
	err     error

	gotEventInput   service.EventInput
	gotPaymentInput service.PaymentInput
	gotForce        bool
	deleted         [2]uuid.UUID
}

func (s *stubService) CreateEvent(_ context.Context, input service.EventInput) (model.Event, error) {
	s.gotEventInput = input
	return s.event, s.err
}

func (s *stubService) UpdateEventPricing(_ context.Context, _ uuid.UUID, input service.EventInput) (model.Event, error) {
	s.gotEventInput = input
	return s.event, s.err
}

func (s *stubService) GetEvent(_ context.Context, _ uuid.UUID) (model.Event, error) {
	return s.event, s.err
}

func (s *stubService) GetBalance(_ context.Context, _ uuid.UUID) (balance.Summary, error) {
	return s.summary, s.err
}

func (s *stubService) CreatePayment(_ context.Context, eventID uuid.UUID, input service.PaymentInput) (service.PaymentResult, error) {
	s.gotPaymentInput = input
	payment := model.Payment{ID: uuid.New(), Data: model.PaymentData{
		EventID:  eventID,
		Amount:   input.Amount,
		Currency: input.Currency,
		Coverage: model.Coverage{
			Kind:       model.CoverageTiered,
			Adult:      40,
			AdultPrice: decimal.NewNullDecimal(decimal.RequireFromString("450")),
		},
	}}
	return service.PaymentResult{Payment: payment, OverCoverage: true}, s.err
}

func (s *stubService) DeletePayment(_ context.Context, eventID uuid.UUID, paymentID uuid.UUID) error {
	s.deleted = [2]uuid.UUID{eventID, paymentID}
	return s.err
}

func (s *stubService) PreviewAdjustment(_ context.Context, _ uuid.UUID) (adjustment.Preview, error) {
	return s.preview, s.err
}

func (s *stubService) ApplyAdjustment(_ context.Context, _ uuid.UUID, force bool) (adjustment.Result, error) {
	s.gotForce = force
	return adjustment.Result{Event: s.event, Preview: s.preview}, s.err
}

func testEvent() model.Event {
	return model.Event{
		ID: uuid.New(),
		Data: model.EventData{
			Currency:     model.CurrencyARS,
			Scheme:       model.PricingSchemeTiered,
			AdultCount:   100,
			AdultPrice:   decimal.RequireFromString("450"),
			PricePerDish: decimal.Zero,
			TotalAmount:  decimal.RequireFromString("45000"),
		},
	}
}

func do(t *testing.T, svc service.Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	router := newHandler(svc, zap.NewNop()).newRouter()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestPostEvent(t *testing.T) {
	svc := &stubService{event: testEvent()}

	rec := do(t, svc, http.MethodPost, "/api/events",
		`{"currency":"ARS","adult_count":100,"adult_price":"450.00","quarterly_adjustment_percent":10}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var response EventJSONResponse
	decode(t, rec, &response)
	assert.Equal(t, svc.event.ID.String(), response.ID)
	assert.Equal(t, "45000.00", response.TotalAmount)
	assert.Equal(t, "0.00", response.PricePerDish)
	assert.Equal(t, "tiered", response.PricingScheme)
	assert.Empty(t, response.Payments)

	assert.Equal(t, model.CurrencyARS, svc.gotEventInput.Currency)
	assert.Equal(t, 100, svc.gotEventInput.AdultCount)
	assert.True(t, decimal.NewFromInt(10).Equal(svc.gotEventInput.QuarterlyAdjustmentPercent))
}

func TestPostEventBadJSON(t *testing.T) {
	svc := &stubService{}

	rec := do(t, svc, http.MethodPost, "/api/events", `{"currency":"ARS","guests":3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, svc, http.MethodPost, "/api/events", `{"currency":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBalance(t *testing.T) {
	svc := &stubService{summary: balance.Summary{
		Currency:  model.CurrencyARS,
		Covered:   pricing.Covered{Quantities: pricing.Quantities{Adult: 40}, Value: decimal.RequireFromString("18000")},
		Remaining: pricing.Quantities{Adult: 60},
		TotalDue:  decimal.RequireFromString("45000"),
		TotalPaid: decimal.RequireFromString("18000.004"),
		Balance:   decimal.RequireFromString("26999.996"),
	}}

	rec := do(t, svc, http.MethodGet, "/api/events/"+uuid.NewString()+"/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var response BalanceJSONResponse
	decode(t, rec, &response)
	assert.Equal(t, "45000.00", response.TotalDue)
	assert.Equal(t, "18000.00", response.TotalPaid)
	assert.Equal(t, "27000.00", response.Balance)
	assert.Equal(t, "18000.00", response.CoveredValue)
	assert.Equal(t, 60, response.Remaining.Adult)
	assert.Equal(t, 40, response.Covered.Adult)
	assert.False(t, response.RatesUnavailable)
}

func TestBalanceJSONResponseRounding(t *testing.T) {
	response := newBalanceJSONResponse(balance.Summary{
		Currency:  model.CurrencyUSD,
		Covered:   pricing.Covered{Value: decimal.RequireFromString("37.504999")},
		TotalDue:  decimal.RequireFromString("100.005"),
		TotalPaid: decimal.RequireFromString("62.4951"),
		Balance:   decimal.RequireFromString("37.5099"),
	})
	assert.Equal(t, "USD", response.Currency)
	assert.Equal(t, "37.50", response.CoveredValue)
	assert.Equal(t, "100.01", response.TotalDue)
	assert.Equal(t, "62.50", response.TotalPaid)
	assert.Equal(t, "37.51", response.Balance)
}

func TestPostPayment(t *testing.T) {
	svc := &stubService{}
	eventID := uuid.New()

	rec := do(t, svc, http.MethodPost, "/api/events/"+eventID.String()+"/payments",
		`{"amount":18000,"currency":"ARS","adult_covered":40,"exchange_rate":null}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var response PaymentResultJSONResponse
	decode(t, rec, &response)
	assert.True(t, response.OverCoverage)
	assert.Equal(t, eventID.String(), response.Payment.EventID)
	assert.Equal(t, "18000.00", response.Payment.Amount)
	require.NotNil(t, response.Payment.Coverage.AdultPrice)
	assert.Equal(t, "450.00", *response.Payment.Coverage.AdultPrice)
	assert.Nil(t, response.Payment.Coverage.ChildPrice)
	assert.Nil(t, response.Payment.ExchangeRate)

	require.NotNil(t, svc.gotPaymentInput.AdultCovered)
	assert.Equal(t, 40, *svc.gotPaymentInput.AdultCovered)
	assert.Nil(t, svc.gotPaymentInput.PlatesCovered)
	assert.False(t, svc.gotPaymentInput.ExchangeRate.Valid)
}

func TestDeletePayment(t *testing.T) {
	svc := &stubService{}
	eventID, paymentID := uuid.New(), uuid.New()

	rec := do(t, svc, http.MethodDelete, "/api/events/"+eventID.String()+"/payments/"+paymentID.String(), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, [2]uuid.UUID{eventID, paymentID}, svc.deleted)

	rec = do(t, svc, http.MethodDelete, "/api/events/"+eventID.String()+"/payments/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdjustment(t *testing.T) {
	next := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	svc := &stubService{
		event: testEvent(),
		preview: adjustment.Preview{
			Eligible:       true,
			NextEligibleAt: next,
			Percent:        decimal.NewFromInt(10),
			Remaining:      pricing.Quantities{Adult: 60},
			CurrentPrices:  adjustment.Prices{Adult: decimal.RequireFromString("450"), Juvenile: decimal.Zero, Child: decimal.Zero},
			NewPrices:      adjustment.Prices{Adult: decimal.RequireFromString("495"), Juvenile: decimal.Zero, Child: decimal.Zero},
			CoveredValue:   decimal.RequireFromString("18000"),
			RemainingValue: decimal.RequireFromString("29700"),
			NewTotal:       decimal.RequireFromString("47700"),
		},
	}
	target := "/api/events/" + svc.event.ID.String() + "/adjustment"

	rec := do(t, svc, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var preview PreviewJSONResponse
	decode(t, rec, &preview)
	assert.True(t, preview.Eligible)
	assert.Equal(t, "495.00", preview.NewPrices.Adult)
	assert.Equal(t, "47700.00", preview.NewTotal)
	assert.Equal(t, next, preview.NextEligibleAt)

	// без тела
	rec = do(t, svc, http.MethodPost, target, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.gotForce)

	rec = do(t, svc, http.MethodPost, target, `{"force":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.gotForce)

	var applied AdjustmentJSONResponse
	decode(t, rec, &applied)
	assert.Equal(t, svc.event.ID.String(), applied.Event.ID)
	assert.Equal(t, "18000.00", applied.Preview.CoveredValue)
}

func TestServiceErrors(t *testing.T) {
	next := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"insufficient data", service.ErrInsufficientData, http.StatusBadRequest},
		{"unprocessable", service.ErrUnprocessableEntity, http.StatusUnprocessableEntity},
		{"not configured", service.ErrInvalidState, http.StatusUnprocessableEntity},
		{"not eligible", &adjustment.NotEligibleError{NextEligibleAt: next}, http.StatusConflict},
		{"concurrent", service.ErrConcurrentUpdate, http.StatusConflict},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{err: tt.err}
			rec := do(t, svc, http.MethodPost, "/api/events/"+uuid.NewString()+"/adjustment", "")
			require.Equal(t, tt.status, rec.Code)

			var response ErrorJSONResponse
			decode(t, rec, &response)
			assert.NotEmpty(t, response.Error)
			if tt.status == http.StatusConflict && errors.Is(tt.err, service.ErrNotEligible) {
				require.NotNil(t, response.NextEligibleAt)
				assert.Equal(t, next, *response.NextEligibleAt)
			}
		})
	}
}

func TestInvalidEventID(t *testing.T) {
	rec := do(t, &stubService{}, http.MethodGet, "/api/events/42", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
