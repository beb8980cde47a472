package enums

// TransitionSource records what drove an order status change, so the
// status history can distinguish gateway callbacks from operator actions.
type TransitionSource string

const (
	TransitionSourceGatewayCallback TransitionSource = "gateway_callback"
	TransitionSourceGatewayReturn   TransitionSource = "gateway_return"
	TransitionSourceManual          TransitionSource = "manual"
	TransitionSourceCheckout        TransitionSource = "checkout"
	TransitionSourceRefund          TransitionSource = "refund"
)

// IsValid reports whether the value is a known TransitionSource.
func (s TransitionSource) IsValid() bool {
	switch s {
	case TransitionSourceGatewayCallback, TransitionSourceGatewayReturn,
		TransitionSourceManual, TransitionSourceCheckout, TransitionSourceRefund:
		return true
	}
	return false
}
