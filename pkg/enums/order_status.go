package enums

import "fmt"

// OrderStatus is the single source of truth for what has financially
// happened to an order.
type OrderStatus string

const (
	OrderStatusPendingPayment       OrderStatus = "pending_payment"
	OrderStatusAwaitingVerification OrderStatus = "awaiting_verification"
	OrderStatusPaid                 OrderStatus = "paid"
	OrderStatusFulfilled            OrderStatus = "fulfilled"
	OrderStatusPaymentFailed        OrderStatus = "payment_failed"
	OrderStatusPartiallyRefunded    OrderStatus = "partially_refunded"
	OrderStatusRefunded             OrderStatus = "refunded"
	OrderStatusCancelled            OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusAwaitingVerification,
	OrderStatusPaid,
	OrderStatusFulfilled,
	OrderStatusPaymentFailed,
	OrderStatusPartiallyRefunded,
	OrderStatusRefunded,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsSettled reports whether the order has ever been paid. Refund statuses
// count as settled: money changed hands before it was returned.
func (s OrderStatus) IsSettled() bool {
	switch s {
	case OrderStatusPaid, OrderStatusFulfilled, OrderStatusPartiallyRefunded, OrderStatusRefunded:
		return true
	}
	return false
}

// IsPaymentTerminal reports whether a later gateway event may still move the
// order forward. Terminal statuses never move backward.
func (s OrderStatus) IsPaymentTerminal() bool {
	switch s {
	case OrderStatusPaid, OrderStatusFulfilled, OrderStatusRefunded, OrderStatusCancelled:
		return true
	}
	return false
}

// AwaitsPayment reports whether the order is still waiting for settlement.
func (s OrderStatus) AwaitsPayment() bool {
	return s == OrderStatusPendingPayment || s == OrderStatusAwaitingVerification
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
