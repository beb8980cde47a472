package orders

import (
	"fmt"

	"github.com/visolux/store-backend/pkg/enums"
	storeerrors "github.com/visolux/store-backend/pkg/errors"
)

// Event is a state-machine input. Payment events come from the gateway
// ledger; the rest are operator or refund-service actions.
type Event string

const (
	EventPaymentPaid    Event = "payment_paid"
	EventPaymentPending Event = "payment_pending"
	EventPaymentFailed  Event = "payment_failed"
	EventCancel         Event = "cancel"
	EventFulfill        Event = "fulfill"
	EventRefundPartial  Event = "refund_partial"
	EventRefundFull     Event = "refund_full"
)

// Outcome describes what applying an event to a status means. Changed=false
// with Anomaly=false is a benign no-op (idempotent redelivery); Anomaly=true
// flags a conflicting event that must be surfaced for manual review but
// leaves the status untouched.
type Outcome struct {
	From    enums.OrderStatus
	To      enums.OrderStatus
	Changed bool
	Anomaly bool
	Reason  string
}

// Apply is the pure transition function. It returns a typed STATE_CONFLICT
// error for operator actions that are simply not allowed from the current
// status; gateway events never error, they either transition, no-op, or
// flag an anomaly.
func Apply(current enums.OrderStatus, event Event) (Outcome, error) {
	unchanged := Outcome{From: current, To: current}

	switch event {
	case EventPaymentPaid:
		if current.AwaitsPayment() || current == enums.OrderStatusPaymentFailed {
			return Outcome{From: current, To: enums.OrderStatusPaid, Changed: true}, nil
		}
		if current == enums.OrderStatusCancelled || current == enums.OrderStatusRefunded {
			anomaly := unchanged
			anomaly.Anomaly = true
			anomaly.Reason = "StaleOrConflictingEvent: PAID event on " + string(current) + " order"
			return anomaly, nil
		}
		// Already paid or later; idempotent no-op.
		return unchanged, nil

	case EventPaymentPending:
		// Pending keeps the order where it is; the ledger row is the record.
		return unchanged, nil

	case EventPaymentFailed:
		if current.AwaitsPayment() {
			return Outcome{From: current, To: enums.OrderStatusPaymentFailed, Changed: true}, nil
		}
		if current == enums.OrderStatusPaymentFailed {
			return unchanged, nil
		}
		anomaly := unchanged
		anomaly.Anomaly = true
		anomaly.Reason = "StaleOrConflictingEvent: FAILED event on " + string(current) + " order"
		return anomaly, nil

	case EventCancel:
		if current.AwaitsPayment() || current == enums.OrderStatusPaymentFailed {
			return Outcome{From: current, To: enums.OrderStatusCancelled, Changed: true}, nil
		}
		if current == enums.OrderStatusCancelled {
			return unchanged, nil
		}
		return Outcome{}, transitionError(current, event)

	case EventFulfill:
		if current == enums.OrderStatusPaid {
			return Outcome{From: current, To: enums.OrderStatusFulfilled, Changed: true}, nil
		}
		return Outcome{}, transitionError(current, event)

	case EventRefundPartial:
		switch current {
		case enums.OrderStatusPaid, enums.OrderStatusFulfilled:
			return Outcome{From: current, To: enums.OrderStatusPartiallyRefunded, Changed: true}, nil
		case enums.OrderStatusPartiallyRefunded:
			return unchanged, nil
		case enums.OrderStatusRefunded:
			// Residual correction against an already fully refunded order.
			return unchanged, nil
		}
		return Outcome{}, transitionError(current, event)

	case EventRefundFull:
		switch current {
		case enums.OrderStatusPaid, enums.OrderStatusFulfilled, enums.OrderStatusPartiallyRefunded:
			return Outcome{From: current, To: enums.OrderStatusRefunded, Changed: true}, nil
		case enums.OrderStatusRefunded:
			return unchanged, nil
		}
		return Outcome{}, transitionError(current, event)

	default:
		return Outcome{}, storeerrors.New(storeerrors.CodeInternal, fmt.Sprintf("unknown order event %q", event))
	}
}

func transitionError(current enums.OrderStatus, event Event) error {
	return storeerrors.New(
		storeerrors.CodeStateConflict,
		fmt.Sprintf("event %s not allowed on %s order", event, current),
	)
}
