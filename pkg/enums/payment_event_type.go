package enums

import "fmt"

// PaymentEventType classifies a verified gateway notification.
type PaymentEventType string

const (
	PaymentEventTypePaid    PaymentEventType = "paid"
	PaymentEventTypePending PaymentEventType = "pending"
	PaymentEventTypeFailed  PaymentEventType = "failed"
)

var validPaymentEventTypes = []PaymentEventType{
	PaymentEventTypePaid,
	PaymentEventTypePending,
	PaymentEventTypeFailed,
}

// IsValid reports whether the value is a known PaymentEventType.
func (t PaymentEventType) IsValid() bool {
	for _, candidate := range validPaymentEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParsePaymentEventType converts raw input into a PaymentEventType.
func ParsePaymentEventType(value string) (PaymentEventType, error) {
	for _, candidate := range validPaymentEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment event type %q", value)
}
