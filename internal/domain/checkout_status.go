package domain

const (
	PaymentStatusPaid    = "paid"
	SessionStatusExpired = "expired"
)

// CheckoutSessionStatus is the backend's view of a hosted payment session.
type CheckoutSessionStatus struct {
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (s *CheckoutSessionStatus) IsPaid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

func (s *CheckoutSessionStatus) IsExpired() bool {
	return s.Status == SessionStatusExpired
}

// OrderID returns the order reference embedded by the backend, if any.
func (s *CheckoutSessionStatus) OrderID() string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata["order_id"]
}

type ConfirmationState string

const (
	ConfirmationChecking ConfirmationState = "checking"
	ConfirmationSuccess  ConfirmationState = "success"
	ConfirmationExpired  ConfirmationState = "expired"
	ConfirmationError    ConfirmationState = "error"
	ConfirmationPending  ConfirmationState = "pending"
)

func (s ConfirmationState) IsTerminal() bool {
	return s != ConfirmationChecking
}

// String representation (for logging)
func (s ConfirmationState) String() string {
	return string(s)
}
