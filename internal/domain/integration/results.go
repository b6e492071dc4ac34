package integration

import "time"

// DealSyncResult reports what one reconciliation pass wrote to the CRM
type DealSyncResult struct {
	DeliveryCode    string      `json:"delivery_code"`
	ContactID       string      `json:"contact_id"`
	ContactCreated  bool        `json:"contact_created"`
	DealID          string      `json:"deal_id"`
	DealCreated     bool        `json:"deal_created"`
	UpdatedFields   []DealField `json:"updated_fields"`
	ProductsWritten bool        `json:"products_written"`
	Products        []string    `json:"products,omitempty"`
}

// NoOp returns true when the pass made no write to the CRM
func (r *DealSyncResult) NoOp() bool {
	return !r.ContactCreated && !r.DealCreated && len(r.UpdatedFields) == 0 && !r.ProductsWritten
}

// WriteCount returns the number of CRM write calls issued
func (r *DealSyncResult) WriteCount() int {
	n := len(r.UpdatedFields)
	if r.ContactCreated {
		n++
	}
	if r.DealCreated {
		n++
	}
	if r.ProductsWritten {
		n++
	}
	return n
}

// UserFieldResult reports which user fields were created and which already existed
type UserFieldResult struct {
	Created  []string `json:"created"`
	Existing []string `json:"existing"`
}

// CurrencySyncResult reports the outcome of one currency pass
type CurrencySyncResult struct {
	Date    time.Time `json:"date"`
	Updated []string  `json:"updated"`
	Added   []string  `json:"added"`
	Missing []string  `json:"missing,omitempty"`
}

// WriteCount returns the number of CRM write calls issued
func (r *CurrencySyncResult) WriteCount() int {
	return len(r.Updated) + len(r.Added)
}
