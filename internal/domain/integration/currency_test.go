package integration

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRateValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"92,35", "92.35"},
		{"99.50", "99.5"},
		{"1 234,5", "1234.5"},
		{"1 234,5", "1234.5"},
		{" 18,9876 ", "18.9876"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRateValue(tt.in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"", "abc", "1,2,3", "-5", "0"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := ParseRateValue(bad)
			assert.ErrorIs(t, err, ErrInvalidRateValue)
		})
	}
}

func TestNewCurrencyRate(t *testing.T) {
	rate, err := NewCurrencyRate("usd", "92,35", 1)
	require.NoError(t, err)
	assert.Equal(t, "USD", rate.Code)
	assert.True(t, decimal.RequireFromString("92.35").Equal(rate.Amount))
	assert.Equal(t, int64(1), rate.Nominal)

	rate, err = NewCurrencyRate("KZT", "19,5", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rate.Nominal)

	_, err = NewCurrencyRate("US", "1", 1)
	assert.ErrorIs(t, err, ErrInvalidCurrencyCode)

	_, err = NewCurrencyRate("U$D", "1", 1)
	assert.ErrorIs(t, err, ErrInvalidCurrencyCode)
}

func TestCurrencyRate_UnitCount(t *testing.T) {
	tests := []struct {
		name    string
		nominal int64
		want    int64
	}{
		{"single unit", 1, 1},
		{"quoted per hundred", 100, 100},
		{"unset", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate := CurrencyRate{Code: "KZT", Amount: decimal.RequireFromString("19.5"), Nominal: tt.nominal}
			assert.Equal(t, tt.want, rate.UnitCount())
		})
	}
}

func TestSelectRates(t *testing.T) {
	rates := []CurrencyRate{
		{Code: "USD", Amount: decimal.RequireFromString("92.35"), Nominal: 1},
		{Code: "GBP", Amount: decimal.RequireFromString("117"), Nominal: 1},
		{Code: "EUR", Amount: decimal.RequireFromString("99.5"), Nominal: 1},
	}

	selected, missing := SelectRates(rates, []string{"usd", "EUR", "PLN", "EUR"})
	require.Len(t, selected, 2)
	assert.Equal(t, "EUR", selected[0].Code)
	assert.Equal(t, "USD", selected[1].Code)
	assert.Equal(t, []string{"PLN"}, missing)
}
