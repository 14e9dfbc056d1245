package checkout

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrMissingCheckoutURL = errors.New("backend returned no checkout url")
)

// ValidationError reports every invalid shipping field at once.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "Please fill in all required fields"
}
