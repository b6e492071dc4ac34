package bitrix

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// REST methods used by the client
const (
	MethodContactList      = "crm.contact.list"
	MethodContactAdd       = "crm.contact.add"
	MethodDealList         = "crm.deal.list"
	MethodDealAdd          = "crm.deal.add"
	MethodDealUpdate       = "crm.deal.update"
	MethodProductRowsGet   = "crm.deal.productrows.get"
	MethodProductRowsSet   = "crm.deal.productrows.set"
	MethodDealFields       = "crm.deal.fields"
	MethodDealUserFieldAdd = "crm.deal.userfield.add"
	MethodCurrencyList     = "crm.currency.list"
	MethodCurrencyAdd      = "crm.currency.add"
	MethodCurrencyUpdate   = "crm.currency.update"
)

// Deal field codes
const (
	FieldContactID       = "CONTACT_ID"
	FieldCloseDate       = "CLOSEDATE"
	FieldDeliveryAddress = "UF_CRM_DELIVERY_ADDRESS"
	FieldDeliveryCode    = "UF_CRM_DELIVERY_CODE"
)

// Response is the envelope of every Bitrix24 REST response
type Response struct {
	Result           json.RawMessage `json:"result"`
	Next             *int            `json:"next,omitempty"`
	Total            *int            `json:"total,omitempty"`
	Error            string          `json:"error,omitempty"`
	ErrorDescription string          `json:"error_description,omitempty"`
}

// IsSuccess returns true if the envelope carries no error
func (r *Response) IsSuccess() bool {
	return r.Error == ""
}

// FlexString accepts a JSON string, number or null. Bitrix24 returns ids
// as strings on most methods, as numbers on some and null for empty links.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = FlexString(num.String())
	return nil
}

// String returns the plain string
func (s FlexString) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Contacts
// ---------------------------------------------------------------------------

// MultiField is an entry of a multi-value field such as PHONE
type MultiField struct {
	ID        FlexString `json:"ID,omitempty"`
	Value     string     `json:"VALUE"`
	ValueType string     `json:"VALUE_TYPE"`
	TypeID    string     `json:"TYPE_ID,omitempty"`
}

// ContactRecord is a contact as returned by crm.contact.list
type ContactRecord struct {
	ID       FlexString   `json:"ID"`
	Name     string       `json:"NAME"`
	LastName string       `json:"LAST_NAME"`
	Phone    []MultiField `json:"PHONE"`
	Address  string       `json:"ADDRESS"`
}

// ContactFields is the payload of crm.contact.add
type ContactFields struct {
	Name     string       `json:"NAME"`
	LastName string       `json:"LAST_NAME"`
	Phone    []MultiField `json:"PHONE"`
	Address  string       `json:"ADDRESS"`
}

// ---------------------------------------------------------------------------
// Deals
// ---------------------------------------------------------------------------

// DealRecord is a deal as returned by crm.deal.list
type DealRecord struct {
	ID              FlexString `json:"ID"`
	Title           string     `json:"TITLE"`
	Comments        string     `json:"COMMENTS"`
	ContactID       FlexString `json:"CONTACT_ID"`
	DeliveryAddress FlexString `json:"UF_CRM_DELIVERY_ADDRESS"`
	CloseDate       string     `json:"CLOSEDATE"`
	DeliveryCode    FlexString `json:"UF_CRM_DELIVERY_CODE"`
}

// DealFields is the payload of crm.deal.add
type DealFields struct {
	Title           string `json:"TITLE"`
	Comments        string `json:"COMMENTS"`
	ContactID       string `json:"CONTACT_ID"`
	DeliveryAddress string `json:"UF_CRM_DELIVERY_ADDRESS"`
	CloseDate       string `json:"CLOSEDATE"`
	DeliveryCode    string `json:"UF_CRM_DELIVERY_CODE"`
}

// ProductRow is one row of crm.deal.productrows.get/set
type ProductRow struct {
	ID          FlexString `json:"ID,omitempty"`
	ProductName string     `json:"PRODUCT_NAME"`
}

// ---------------------------------------------------------------------------
// User fields
// ---------------------------------------------------------------------------

// UserFieldFields is the payload of crm.deal.userfield.add
type UserFieldFields struct {
	FieldName  string `json:"FIELD_NAME"`
	UserTypeID string `json:"USER_TYPE_ID"`
	Label      string `json:"EDIT_FORM_LABEL,omitempty"`
}

// ---------------------------------------------------------------------------
// Currencies
// ---------------------------------------------------------------------------

// CurrencyRecord is a currency as returned by crm.currency.list
type CurrencyRecord struct {
	Currency  string     `json:"CURRENCY"`
	AmountCnt FlexString `json:"AMOUNT_CNT"`
	Amount    FlexString `json:"AMOUNT"`
	Base      string     `json:"BASE"`
}

// CurrencyFields is the payload of crm.currency.add/update
type CurrencyFields struct {
	Currency  string          `json:"CURRENCY,omitempty"`
	AmountCnt int64           `json:"AMOUNT_CNT"`
	Amount    decimal.Decimal `json:"AMOUNT"`
}

// parseID converts the integer id returned by an add method
func parseID(raw json.RawMessage) (string, error) {
	var id FlexString
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", err
	}
	if _, err := strconv.ParseInt(id.String(), 10, 64); err != nil {
		return "", err
	}
	return id.String(), nil
}
