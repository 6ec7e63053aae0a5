package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iurnickita/eventbilling/internal/model"
)

func TestConvert(t *testing.T) {
	rate := decimal.NewNullDecimal(decimal.RequireFromString("1000"))

	tests := []struct {
		name   string
		amount string
		from   model.Currency
		to     model.Currency
		rate   decimal.NullDecimal
		want   string
	}{
		{"same currency ignores rate", "150.25", model.CurrencyARS, model.CurrencyARS, rate, "150.25"},
		{"usd to ars", "20", model.CurrencyUSD, model.CurrencyARS, rate, "20000"},
		{"ars to usd", "18000", model.CurrencyARS, model.CurrencyUSD, rate, "18"},
		{"no rate is identity", "20", model.CurrencyUSD, model.CurrencyARS, decimal.NullDecimal{}, "20"},
		{"zero rate is identity", "20", model.CurrencyARS, model.CurrencyUSD, decimal.NewNullDecimal(decimal.Zero), "20"},
		{"negative rate is identity", "20", model.CurrencyARS, model.CurrencyUSD, decimal.NewNullDecimal(decimal.NewFromInt(-5)), "20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(decimal.RequireFromString(tt.amount), tt.from, tt.to, tt.rate)
			require.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestConvertNoRounding(t *testing.T) {
	rate := decimal.NewNullDecimal(decimal.RequireFromString("3"))
	got := Convert(decimal.NewFromInt(10), model.CurrencyARS, model.CurrencyUSD, rate)

	// 10/3 не округляется до копеек
	require.True(t, got.GreaterThan(decimal.RequireFromString("3.33")))
	require.True(t, got.LessThan(decimal.RequireFromString("3.34")))
}

func TestAvailable(t *testing.T) {
	rate := decimal.NewNullDecimal(decimal.NewFromInt(1000))

	require.False(t, Available(model.CurrencyARS, model.CurrencyARS, rate))
	require.True(t, Available(model.CurrencyUSD, model.CurrencyARS, rate))
	require.False(t, Available(model.CurrencyUSD, model.CurrencyARS, decimal.NullDecimal{}))
	require.True(t, NeedsRate(model.CurrencyUSD, model.CurrencyARS))
	require.False(t, NeedsRate(model.CurrencyUSD, model.CurrencyUSD))
}
