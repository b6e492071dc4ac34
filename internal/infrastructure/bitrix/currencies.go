package bitrix

import (
	"context"

	"github.com/erp/crmsync/internal/domain/integration"
)

// ListCurrencyCodes returns the code of every currency known to the portal
func (c *Client) ListCurrencyCodes(ctx context.Context) ([]string, error) {
	records, err := listAll[CurrencyRecord](ctx, c, MethodCurrencyList, map[string]any{})
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(records))
	for _, r := range records {
		codes = append(codes, r.Currency)
	}
	return codes, nil
}

// UpdateCurrency sets the rate of an existing currency. The published value is
// sent unchanged with the number of units it is quoted for.
func (c *Client) UpdateCurrency(ctx context.Context, rate integration.CurrencyRate) error {
	return c.callInto(ctx, MethodCurrencyUpdate, map[string]any{
		"id": rate.Code,
		"fields": CurrencyFields{
			AmountCnt: rate.UnitCount(),
			Amount:    rate.Amount,
		},
	}, nil)
}

// AddCurrency creates a currency. The unit count is 1 unless the feed quotes
// the currency per several units.
func (c *Client) AddCurrency(ctx context.Context, rate integration.CurrencyRate) error {
	return c.callInto(ctx, MethodCurrencyAdd, map[string]any{
		"fields": CurrencyFields{
			Currency:  rate.Code,
			AmountCnt: rate.UnitCount(),
			Amount:    rate.Amount,
		},
	}, nil)
}
