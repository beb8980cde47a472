package enums

import "fmt"

// PaymentMethod selects how an order settles.
type PaymentMethod string

const (
	// PaymentMethodOnline settles through the hosted payment gateway.
	PaymentMethodOnline PaymentMethod = "online"
	// PaymentMethodOfflineTransfer settles through a manually verified
	// bank transfer slip.
	PaymentMethodOfflineTransfer PaymentMethod = "offline_transfer"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodOnline,
	PaymentMethodOfflineTransfer,
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
