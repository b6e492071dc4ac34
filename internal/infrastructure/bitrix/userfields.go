package bitrix

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/erp/crmsync/internal/domain/integration"
)

// ListDealFieldNames returns the name of every field in the deal schema, sorted
func (c *Client) ListDealFieldNames(ctx context.Context) ([]string, error) {
	var schema map[string]json.RawMessage
	if err := c.callInto(ctx, MethodDealFields, nil, &schema); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// AddDealUserField creates a user field on the deal object.
// The portal adds the UF_CRM_ prefix itself, so it is stripped from the request.
func (c *Client) AddDealUserField(ctx context.Context, field integration.UserField) error {
	short := strings.TrimPrefix(field.FieldName, integration.UserFieldPrefix)
	return c.callInto(ctx, MethodDealUserFieldAdd, map[string]any{
		"fields": UserFieldFields{
			FieldName:  short,
			UserTypeID: field.UserTypeID,
			Label:      short,
		},
	}, nil)
}
