package rateclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// JSON ответ сервиса котировок
type QuoteAnswer struct {
	Currency  string          `json:"moneda"`
	Buy       decimal.Decimal `json:"compra"`
	Sell      decimal.Decimal `json:"venta"`
	UpdatedAt time.Time       `json:"fechaActualizacion"`
}

// Quote - курс ARS за 1 USD.
type Quote struct {
	Rate decimal.Decimal
	Date time.Time
}

var ErrUnavailable = errors.New("exchange rate unavailable")

type RateClient interface {
	GetCurrentRate(ctx context.Context) (Quote, error)
}

type rateClient struct {
	client *resty.Client
}

const quotePath = "/v1/dolares/oficial"

func NewRateClient(serviceAddr string, timeout time.Duration) RateClient {
	client := resty.New().
		SetBaseURL(serviceAddr).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return rateClient{client: client}
}

func (client rateClient) GetCurrentRate(ctx context.Context) (Quote, error) {
	setresp, err := client.client.R().
		SetContext(ctx).
		Get(quotePath)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	switch setresp.StatusCode() {
	case http.StatusOK:
		var answer QuoteAnswer
		if err = json.Unmarshal(setresp.Body(), &answer); err != nil {
			return Quote{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if !answer.Sell.IsPositive() {
			return Quote{}, fmt.Errorf("%w: bad quote %s", ErrUnavailable, answer.Sell)
		}
		return Quote{Rate: answer.Sell, Date: answer.UpdatedAt}, nil
	default:
		return Quote{}, fmt.Errorf("%w: rate request status: %d", ErrUnavailable, setresp.StatusCode())
	}
}
