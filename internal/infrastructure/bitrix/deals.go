package bitrix

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/crmsync/internal/domain/integration"
)

// dealSelect lists the fields read back for reconciliation
var dealSelect = []string{"ID", "TITLE", "COMMENTS", FieldContactID, FieldDeliveryAddress, FieldCloseDate, FieldDeliveryCode}

// FindDealsByDeliveryCode returns the deals whose delivery code equals code
func (c *Client) FindDealsByDeliveryCode(ctx context.Context, code string) ([]integration.Deal, error) {
	records, err := listAll[DealRecord](ctx, c, MethodDealList, map[string]any{
		"filter": map[string]string{FieldDeliveryCode: code},
		"select": dealSelect,
		"order":  map[string]string{"ID": "ASC"},
	})
	if err != nil {
		return nil, err
	}

	deals := make([]integration.Deal, 0, len(records))
	for _, r := range records {
		deals = append(deals, integration.Deal{
			ID:              r.ID.String(),
			Title:           r.Title,
			Comments:        r.Comments,
			ContactID:       r.ContactID.String(),
			DeliveryAddress: r.DeliveryAddress.String(),
			CloseDate:       r.CloseDate,
			DeliveryCode:    r.DeliveryCode.String(),
		})
	}
	return deals, nil
}

// CreateDeal creates a deal. The returned id is only logged.
func (c *Client) CreateDeal(ctx context.Context, deal *integration.Deal) error {
	if deal == nil {
		return fmt.Errorf("bitrix: deal is nil")
	}
	var raw json.RawMessage
	if err := c.callInto(ctx, MethodDealAdd, map[string]any{
		"fields": DealFields{
			Title:           deal.Title,
			Comments:        deal.Comments,
			ContactID:       deal.ContactID,
			DeliveryAddress: deal.DeliveryAddress,
			CloseDate:       deal.CloseDate,
			DeliveryCode:    deal.DeliveryCode,
		},
		"params": map[string]string{"REGISTER_SONET_EVENT": "Y"},
	}, &raw); err != nil {
		return err
	}

	id, err := parseID(raw)
	if err != nil {
		return fmt.Errorf("%w: %s returned %s", integration.ErrCRMInvalidResponse, MethodDealAdd, raw)
	}
	c.logger.Debug("Bitrix24 deal created", zap.String("id", id))
	return nil
}

// UpdateDealField sets one field on an existing deal
func (c *Client) UpdateDealField(ctx context.Context, dealID string, field integration.DealField, value string) error {
	code, err := dealFieldCode(field)
	if err != nil {
		return err
	}

	var ok bool
	if err := c.callInto(ctx, MethodDealUpdate, map[string]any{
		"id":     dealID,
		"fields": map[string]string{code: value},
	}, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s returned false for deal %s", integration.ErrCRMInvalidResponse, MethodDealUpdate, dealID)
	}
	return nil
}

// GetProductRows returns the product names attached to a deal
func (c *Client) GetProductRows(ctx context.Context, dealID string) ([]string, error) {
	var rows []ProductRow
	if err := c.callInto(ctx, MethodProductRowsGet, map[string]any{"id": dealID}, &rows); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.ProductName)
	}
	return names, nil
}

// SetProductRows replaces the product rows of a deal
func (c *Client) SetProductRows(ctx context.Context, dealID string, products []string) error {
	rows := make([]ProductRow, 0, len(products))
	for _, name := range products {
		rows = append(rows, ProductRow{ProductName: name})
	}
	return c.callInto(ctx, MethodProductRowsSet, map[string]any{
		"id":   dealID,
		"rows": rows,
	}, nil)
}

// dealFieldCode maps a domain deal field to its Bitrix24 field code
func dealFieldCode(field integration.DealField) (string, error) {
	switch field {
	case integration.DealFieldContact:
		return FieldContactID, nil
	case integration.DealFieldDeliveryAddress:
		return FieldDeliveryAddress, nil
	case integration.DealFieldCloseDate:
		return FieldCloseDate, nil
	default:
		return "", fmt.Errorf("bitrix: unknown deal field %q", field)
	}
}
