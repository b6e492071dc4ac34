package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

// DeliveryDateLayout is the layout of Order.DeliveryDate ("YYYY-MM-DD:HH:MM")
const DeliveryDateLayout = "2006-01-02:15:04"

// CloseDateLayout is the layout used when sending a deal close date to the CRM
const CloseDateLayout = "2006-01-02T15:04:05"

// dateKeyLength is the length of the date portion of an ISO timestamp (YYYY-MM-DD)
const dateKeyLength = 10

// ---------------------------------------------------------------------------
// Order
// ---------------------------------------------------------------------------

// Client is the buyer attached to an incoming order
type Client struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address"`
}

// Order is one pending delivery order fetched from the order source
type Order struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Client          Client   `json:"client"`
	Products        []string `json:"products" validate:"required"`
	DeliveryAddress string   `json:"delivery_address"`
	DeliveryDate    string   `json:"delivery_date" validate:"required,datetime=2006-01-02:15:04"`
	DeliveryCode    string   `json:"delivery_code" validate:"required"`
}

// jsonShape is the expected JSON kind of a top-level order field
type jsonShape int

const (
	shapeString jsonShape = iota
	shapeObject
	shapeArray
)

func (s jsonShape) String() string {
	switch s {
	case shapeObject:
		return "object"
	case shapeArray:
		return "list"
	default:
		return "string"
	}
}

func (s jsonShape) reason() string {
	if s == shapeObject {
		return "must be an object"
	}
	return "must be a " + s.String()
}

type fieldSpec struct {
	name  string
	shape jsonShape
}

// orderFields lists every required top-level field and its shape
var orderFields = []fieldSpec{
	{"title", shapeString},
	{"description", shapeString},
	{"client", shapeObject},
	{"products", shapeArray},
	{"delivery_address", shapeString},
	{"delivery_date", shapeString},
	{"delivery_code", shapeString},
}

// clientFields lists every required field of the client object
var clientFields = []fieldSpec{
	{"name", shapeString},
	{"surname", shapeString},
	{"phone", shapeString},
	{"address", shapeString},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeOrder decodes and validates a raw JSON order.
// Every field must be present, non-null and of the expected shape; the
// order is rejected as a whole with a *ValidationError otherwise.
func DecodeOrder(data []byte) (*Order, error) {
	verr := &ValidationError{}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		verr.add("order", "must be a JSON object")
		return nil, verr
	}

	checkShapes(verr, "", raw, orderFields)
	if clientRaw, ok := raw["client"]; ok && shapeOf(clientRaw) == shapeObject {
		var client map[string]json.RawMessage
		if err := json.Unmarshal(clientRaw, &client); err == nil {
			checkShapes(verr, "client.", client, clientFields)
		}
	}
	if productsRaw, ok := raw["products"]; ok && shapeOf(productsRaw) == shapeArray {
		checkProductElements(verr, productsRaw)
	}
	if !verr.empty() {
		return nil, verr
	}

	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			verr.add(topLevelField(typeErr.Field), "unexpected "+typeErr.Value)
		} else {
			verr.add("order", err.Error())
		}
		return nil, verr
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}
	return &order, nil
}

// checkShapes records a FieldError for each missing or mis-shaped field
func checkShapes(verr *ValidationError, prefix string, raw map[string]json.RawMessage, specs []fieldSpec) {
	for _, spec := range specs {
		value, ok := raw[spec.name]
		if !ok || isNull(value) {
			verr.add(prefix+spec.name, "is required")
			continue
		}
		if shape, known := shapeOfKnown(value); !known || shape != spec.shape {
			verr.add(prefix+spec.name, spec.shape.reason())
		}
	}
}

// checkProductElements rejects null entries, which would otherwise decode to ""
func checkProductElements(verr *ValidationError, raw json.RawMessage) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return
	}
	for _, item := range items {
		if isNull(item) {
			verr.add("products", "must not contain null")
			return
		}
	}
}

// topLevelField trims a decoder field path ("products[1]", "client.name") to its root
func topLevelField(path string) string {
	if idx := strings.IndexAny(path, ".["); idx >= 0 {
		path = path[:idx]
	}
	if path == "" {
		return "order"
	}
	return path
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

func shapeOf(value json.RawMessage) jsonShape {
	shape, _ := shapeOfKnown(value)
	return shape
}

func shapeOfKnown(value json.RawMessage) (jsonShape, bool) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return shapeString, false
	}
	switch trimmed[0] {
	case '"':
		return shapeString, true
	case '{':
		return shapeObject, true
	case '[':
		return shapeArray, true
	default:
		return shapeString, false
	}
}

// Validate checks the declarative rules on an order: natural keys must be
// non-empty and the delivery date must match DeliveryDateLayout.
func (o *Order) Validate() error {
	if o == nil {
		return &ValidationError{Fields: []FieldError{{Field: "order", Reason: "is required"}}}
	}
	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	verr := &ValidationError{}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.add(fieldPath(fe.Namespace()), ruleReason(fe))
		}
		return verr
	}
	verr.add("order", err.Error())
	return verr
}

// fieldPath strips the struct name from a validator namespace ("Order.client.phone")
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func ruleReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return "must match YYYY-MM-DD:HH:MM"
	default:
		return "failed " + fe.Tag()
	}
}

// DeliveryTime parses DeliveryDate in the given location (time.Local if nil)
func (o *Order) DeliveryTime(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DeliveryDateLayout, o.DeliveryDate, loc)
}

// ---------------------------------------------------------------------------
// Date helpers
// ---------------------------------------------------------------------------

// DateKey returns the date portion (YYYY-MM-DD) of an ISO timestamp string.
// Strings shorter than ten characters are returned unchanged.
func DateKey(iso string) string {
	if len(iso) < dateKeyLength {
		return iso
	}
	return iso[:dateKeyLength]
}

// SameDate reports whether t falls on the date stored in the CRM close date.
// Only the date portion is compared; the time of day is ignored.
func SameDate(t time.Time, crmCloseDate string) bool {
	return DateKey(t.Format(CloseDateLayout)) == DateKey(crmCloseDate)
}

// ---------------------------------------------------------------------------
// Phone diagnostics
// ---------------------------------------------------------------------------

// PhoneCheck is the result of parsing a client phone number.
// Contact matching never uses it; it only feeds diagnostics.
type PhoneCheck struct {
	Valid bool
	E164  string
}

// PhoneDiagnostics parses the client phone for the given default region ("RU").
func (c Client) PhoneDiagnostics(region string) PhoneCheck {
	parsed, err := phonenumbers.Parse(c.Phone, region)
	if err != nil {
		return PhoneCheck{}
	}
	return PhoneCheck{
		Valid: phonenumbers.IsValidNumber(parsed),
		E164:  phonenumbers.Format(parsed, phonenumbers.E164),
	}
}
