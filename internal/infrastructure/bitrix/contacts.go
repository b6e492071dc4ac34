package bitrix

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/crmsync/internal/domain/integration"
)

// ListContacts returns every contact with its id and phone entries, ordered by id
func (c *Client) ListContacts(ctx context.Context) ([]integration.Contact, error) {
	records, err := listAll[ContactRecord](ctx, c, MethodContactList, map[string]any{
		"select": []string{"ID", "NAME", "LAST_NAME", "PHONE", "ADDRESS"},
		"order":  map[string]string{"ID": "ASC"},
	})
	if err != nil {
		return nil, err
	}

	contacts := make([]integration.Contact, 0, len(records))
	for _, r := range records {
		contacts = append(contacts, toContact(r))
	}
	return contacts, nil
}

// CreateContact creates a contact. The returned id is only logged.
func (c *Client) CreateContact(ctx context.Context, contact *integration.Contact) error {
	if contact == nil {
		return fmt.Errorf("bitrix: contact is nil")
	}

	phones := make([]MultiField, 0, len(contact.Phones))
	for _, p := range contact.Phones {
		phones = append(phones, MultiField{Value: p.Value, ValueType: p.ValueType})
	}

	var raw json.RawMessage
	if err := c.callInto(ctx, MethodContactAdd, map[string]any{
		"fields": ContactFields{
			Name:     contact.Name,
			LastName: contact.LastName,
			Phone:    phones,
			Address:  contact.Address,
		},
		"params": map[string]string{"REGISTER_SONET_EVENT": "Y"},
	}, &raw); err != nil {
		return err
	}

	id, err := parseID(raw)
	if err != nil {
		return fmt.Errorf("%w: %s returned %s", integration.ErrCRMInvalidResponse, MethodContactAdd, raw)
	}
	c.logger.Debug("Bitrix24 contact created", zap.String("id", id))
	return nil
}

func toContact(r ContactRecord) integration.Contact {
	phones := make([]integration.Phone, 0, len(r.Phone))
	for _, p := range r.Phone {
		phones = append(phones, integration.Phone{Value: p.Value, ValueType: p.ValueType})
	}
	return integration.Contact{
		ID:       r.ID.String(),
		Name:     r.Name,
		LastName: r.LastName,
		Phones:   phones,
		Address:  r.Address,
	}
}
