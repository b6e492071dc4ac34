package integration

import (
	"fmt"
	"strings"
)

const (
	// UserFieldPrefix is the prefix the CRM requires on deal user field names
	UserFieldPrefix = "UF_CRM_"
	// UserTypeString is the user field type used for every provisioned field
	UserTypeString = "string"

	// UserFieldDeliveryCode stores the external delivery code of a deal
	UserFieldDeliveryCode = UserFieldPrefix + "DELIVERY_CODE"
	// UserFieldDeliveryAddress stores the delivery address of a deal
	UserFieldDeliveryAddress = UserFieldPrefix + "DELIVERY_ADDRESS"
)

// DefaultUserFieldNames are provisioned when no names are configured
var DefaultUserFieldNames = []string{"DELIVERY_CODE", "DELIVERY_ADDRESS"}

// UserField is a custom field on the CRM deal object
type UserField struct {
	FieldName  string `json:"field_name"`
	UserTypeID string `json:"user_type_id"`
}

// NewStringUserField returns a string-typed user field for name,
// adding the UF_CRM_ prefix when it is missing.
func NewStringUserField(name string) (UserField, error) {
	full, err := NormalizeUserFieldName(name)
	if err != nil {
		return UserField{}, err
	}
	return UserField{FieldName: full, UserTypeID: UserTypeString}, nil
}

// NormalizeUserFieldName upper-cases name and prefixes it with UF_CRM_.
// Only latin letters, digits and underscores are accepted.
func NormalizeUserFieldName(name string) (string, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidUserFieldName)
	}
	for _, r := range name {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return "", fmt.Errorf("%w: %q", ErrInvalidUserFieldName, name)
		}
	}
	if !strings.HasPrefix(name, UserFieldPrefix) {
		name = UserFieldPrefix + name
	}
	if name == UserFieldPrefix {
		return "", fmt.Errorf("%w: %q", ErrInvalidUserFieldName, name)
	}
	return name, nil
}
