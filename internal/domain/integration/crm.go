package integration

import (
	"context"
	"time"
)

// PhoneTypeWork is the phone value type used for contacts created from orders
const PhoneTypeWork = "WORK"

// ---------------------------------------------------------------------------
// Contact
// ---------------------------------------------------------------------------

// Phone is one entry of a contact's multi-value phone field
type Phone struct {
	Value     string `json:"value"`
	ValueType string `json:"value_type"`
}

// Contact is a CRM contact record
type Contact struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	LastName string  `json:"last_name"`
	Phones   []Phone `json:"phones"`
	Address  string  `json:"address"`
}

// FirstPhone returns the value of the first phone entry, or "" when there is none
func (c *Contact) FirstPhone() string {
	if c == nil || len(c.Phones) == 0 {
		return ""
	}
	return c.Phones[0].Value
}

// NewContactFromOrder builds the contact to create for an order's client
func NewContactFromOrder(order *Order) *Contact {
	return &Contact{
		Name:     order.Client.Name,
		LastName: order.Client.Surname,
		Phones:   []Phone{{Value: order.Client.Phone, ValueType: PhoneTypeWork}},
		Address:  order.Client.Address,
	}
}

// MatchContactByPhone returns the first contact whose first phone entry equals
// phone exactly (case-sensitive, no normalisation), or nil.
func MatchContactByPhone(contacts []Contact, phone string) *Contact {
	for i := range contacts {
		if contacts[i].FirstPhone() == phone {
			return &contacts[i]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Deal
// ---------------------------------------------------------------------------

// Deal is a CRM deal record. DeliveryCode is the lookup key.
type Deal struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Comments        string `json:"comments"`
	ContactID       string `json:"contact_id"`
	DeliveryAddress string `json:"delivery_address"`
	CloseDate       string `json:"close_date"`
	DeliveryCode    string `json:"delivery_code"`
}

// HasContact reports whether the deal is linked to a contact.
// The CRM reports an unlinked deal with an empty or "0" contact id.
func (d *Deal) HasContact() bool {
	return d.ContactID != "" && d.ContactID != "0"
}

// NewDealFromOrder builds the deal to create for an order
func NewDealFromOrder(order *Order, contactID string, closeDate time.Time) *Deal {
	return &Deal{
		Title:           order.Title,
		Comments:        order.Description,
		ContactID:       contactID,
		DeliveryAddress: order.DeliveryAddress,
		CloseDate:       closeDate.Format(CloseDateLayout),
		DeliveryCode:    order.DeliveryCode,
	}
}

// DealField identifies a deal field that reconciliation may update
type DealField string

const (
	// DealFieldContact is the contact link of a deal
	DealFieldContact DealField = "contact"
	// DealFieldDeliveryAddress is the delivery address custom field
	DealFieldDeliveryAddress DealField = "delivery_address"
	// DealFieldCloseDate is the deal close date
	DealFieldCloseDate DealField = "close_date"
)

// String returns the string representation of DealField
func (f DealField) String() string {
	return string(f)
}

// IsValid returns true if the field is known
func (f DealField) IsValid() bool {
	switch f {
	case DealFieldContact, DealFieldDeliveryAddress, DealFieldCloseDate:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// ContactCRM is the contact side of the CRM port
type ContactCRM interface {
	// ListContacts returns every contact with its id and phone entries
	ListContacts(ctx context.Context) ([]Contact, error)

	// CreateContact creates a contact. The CRM-assigned id is not returned;
	// callers look the contact up again.
	CreateContact(ctx context.Context, contact *Contact) error
}

// DealCRM is the deal side of the CRM port
type DealCRM interface {
	// FindDealsByDeliveryCode returns deals whose delivery code custom field equals code
	FindDealsByDeliveryCode(ctx context.Context, code string) ([]Deal, error)

	// CreateDeal creates a deal
	CreateDeal(ctx context.Context, deal *Deal) error

	// UpdateDealField sets a single field on an existing deal
	UpdateDealField(ctx context.Context, dealID string, field DealField, value string) error

	// GetProductRows returns the product names attached to a deal
	GetProductRows(ctx context.Context, dealID string) ([]string, error)

	// SetProductRows replaces the product rows of a deal
	SetProductRows(ctx context.Context, dealID string, products []string) error
}

// DealSyncCRM is everything deal reconciliation needs from the CRM
type DealSyncCRM interface {
	ContactCRM
	DealCRM
}

// UserFieldCRM manages the deal user field schema
type UserFieldCRM interface {
	// ListDealFieldNames returns the names of every field on the deal object,
	// built-in and user-defined
	ListDealFieldNames(ctx context.Context) ([]string, error)

	// AddDealUserField creates a user field on the deal object
	AddDealUserField(ctx context.Context, field UserField) error
}

// CurrencyCRM manages the CRM currency directory
type CurrencyCRM interface {
	// ListCurrencyCodes returns the codes of every currency known to the CRM
	ListCurrencyCodes(ctx context.Context) ([]string, error)

	// UpdateCurrency sets the rate of an existing currency
	UpdateCurrency(ctx context.Context, rate CurrencyRate) error

	// AddCurrency creates a currency with a unit count of 1
	AddCurrency(ctx context.Context, rate CurrencyRate) error
}

// OrderSource supplies pending orders
type OrderSource interface {
	// FetchOrder returns the next pending order. Shape problems are
	// reported as *ValidationError.
	FetchOrder(ctx context.Context) (*Order, error)
}

// RateFeed supplies official daily exchange rates
type RateFeed interface {
	// FetchRates returns every rate published for the given date
	FetchRates(ctx context.Context, date time.Time) ([]CurrencyRate, error)
}
