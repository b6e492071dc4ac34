package integration

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrencyCodes is the set of currencies synchronised when none are configured
var DefaultCurrencyCodes = []string{"EUR", "USD", "KZT", "PLN"}

// CurrencyRate is the official rate of one currency expressed in the base currency.
// Amount is the published value for Nominal units of the currency.
type CurrencyRate struct {
	Code    string          `json:"code"`
	Amount  decimal.Decimal `json:"amount"`
	Nominal int64           `json:"nominal"`
}

// NewCurrencyRate validates the code and parses a locale-formatted value ("92,35")
func NewCurrencyRate(code, value string, nominal int64) (CurrencyRate, error) {
	normalized, err := NormalizeCurrencyCode(code)
	if err != nil {
		return CurrencyRate{}, err
	}
	amount, err := ParseRateValue(value)
	if err != nil {
		return CurrencyRate{}, err
	}
	if nominal <= 0 {
		nominal = 1
	}
	return CurrencyRate{Code: normalized, Amount: amount, Nominal: nominal}, nil
}

// UnitCount returns how many units of the currency Amount is quoted for
func (r CurrencyRate) UnitCount() int64 {
	if r.Nominal < 1 {
		return 1
	}
	return r.Nominal
}

// ParseRateValue parses a decimal that may use a comma as the decimal separator.
// Spaces (including non-breaking ones) used as thousand separators are dropped.
func ParseRateValue(value string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t':
			return -1
		case ',':
			return '.'
		}
		return r
	}, value)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidRateValue)
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidRateValue, value)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q is not positive", ErrInvalidRateValue, value)
	}
	return amount, nil
}

// NormalizeCurrencyCode upper-cases a 3-letter ISO 4217 code
func NormalizeCurrencyCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrencyCode, code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrencyCode, code)
		}
	}
	return code, nil
}

// SelectRates keeps the rates whose code is in codes, sorted by code.
// Codes missing from the feed are returned separately.
func SelectRates(rates []CurrencyRate, codes []string) (selected []CurrencyRate, missing []string) {
	byCode := make(map[string]CurrencyRate, len(rates))
	for _, r := range rates {
		byCode[r.Code] = r
	}

	wanted := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if _, dup := seen[c]; dup || c == "" {
			continue
		}
		seen[c] = struct{}{}
		wanted = append(wanted, c)
	}
	sort.Strings(wanted)

	for _, c := range wanted {
		if r, ok := byCode[c]; ok {
			selected = append(selected, r)
		} else {
			missing = append(missing, c)
		}
	}
	return selected, missing
}
