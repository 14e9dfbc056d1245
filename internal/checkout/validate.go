package checkout

import (
	"regexp"

	"github.com/beautivra/storefront/internal/domain"
)

const (
	DefaultProvince = "ON"
	DefaultCountry  = "Canada"
)

// FieldErrors maps a shipping field's JSON name to its message.
type FieldErrors map[string]string

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Validate checks the shipping form. The result is empty when the address
// can be submitted.
func Validate(a domain.ShippingAddress) FieldErrors {
	errs := FieldErrors{}
	if a.FirstName == "" {
		errs["first_name"] = "First name is required"
	}
	if a.LastName == "" {
		errs["last_name"] = "Last name is required"
	}
	if a.Email == "" {
		errs["email"] = "Email is required"
	} else if !emailPattern.MatchString(a.Email) {
		errs["email"] = "Invalid email"
	}
	if a.Phone == "" {
		errs["phone"] = "Phone is required"
	}
	if a.Address == "" {
		errs["address"] = "Address is required"
	}
	if a.City == "" {
		errs["city"] = "City is required"
	}
	if a.PostalCode == "" {
		errs["postal_code"] = "Postal code is required"
	}
	return errs
}

// WithDefaults fills the province and country the form preselects.
func WithDefaults(a domain.ShippingAddress) domain.ShippingAddress {
	if a.Province == "" {
		a.Province = DefaultProvince
	}
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}
