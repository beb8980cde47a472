// Package payments reconciles gateway notifications against orders: it
// verifies callback signatures, records each notification exactly once in
// the payment event ledger and drives the order state machine.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/visolux/store-backend/internal/orders"
	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
	storeerrors "github.com/visolux/store-backend/pkg/errors"
	"github.com/visolux/store-backend/pkg/fiuu"
	"github.com/visolux/store-backend/pkg/logger"
	"github.com/visolux/store-backend/pkg/metrics"
	"github.com/visolux/store-backend/pkg/money"
)

// payDateLayout is the gateway's paydate wire format.
const payDateLayout = "2006-01-02 15:04:05"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service processes inbound gateway notifications.
type Service struct {
	gateway fiuu.Config
	orders  *orders.Service
	ledger  Repository
	tx      txRunner
	logg    *logger.Logger
	webhook *metrics.WebhookMetrics
	now     func() time.Time
}

// NewService wires the callback processor. The webhook metrics may be nil.
func NewService(gateway fiuu.Config, ordersSvc *orders.Service, ledger Repository, tx txRunner, logg *logger.Logger, webhook *metrics.WebhookMetrics) (*Service, error) {
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{
		gateway: gateway,
		orders:  ordersSvc,
		ledger:  ledger,
		tx:      tx,
		logg:    logg,
		webhook: webhook,
		now:     time.Now,
	}, nil
}

// Ledger exposes the event repository for read paths.
func (s *Service) Ledger() Repository {
	return s.ledger
}

// CallbackResult reports what processing one notification did.
type CallbackResult struct {
	Order     *models.Order
	EventType enums.PaymentEventType
	// Duplicate is true when the ledger already held this notification and
	// no transition was attempted.
	Duplicate bool
	Outcome   orders.Outcome
}

// ProcessCallback handles one gateway notification end to end: signature
// verification, order lookup, amount and currency reconciliation, the
// idempotent ledger insert and the resulting state transition. The ledger
// insert and the transition share one transaction, so a crash between them
// cannot leave a recorded payment without its status change.
func (s *Service) ProcessCallback(ctx context.Context, source enums.TransitionSource, payload map[string]string) (*CallbackResult, error) {
	label := string(source)

	verify := s.gateway.VerifySkey(payload)
	if !verify.OK {
		outcome := metrics.WebhookOutcomeRejected
		if strings.HasPrefix(verify.Reason, "missing_fields") {
			outcome = metrics.WebhookOutcomeBadRequest
		}
		s.webhook.IncCallback(label, outcome)
		// The expected digest stays out of the error details; it would hand
		// the sender the signature the secret key produces for this payload.
		warnCtx := s.logg.WithFields(ctx, map[string]any{
			"source":         label,
			"reason":         verify.Reason,
			"order_ref":      verify.Used.OrderRef,
			"gateway_txn_id": verify.Used.TranID,
			"amount":         verify.Used.Amount,
			"expected_skey":  verify.Expected,
			"received_skey":  verify.Received,
		})
		s.logg.Warn(warnCtx, "payment callback failed signature verification")
		return nil, storeerrors.New(storeerrors.CodeAuthenticity, "callback signature verification failed").
			WithDetails(map[string]any{
				"reason":         verify.Reason,
				"order_ref":      verify.Used.OrderRef,
				"gateway_txn_id": verify.Used.TranID,
			})
	}

	fields := verify.Used
	ctx = s.logg.WithFields(ctx, map[string]any{
		"source":      label,
		"order_ref":   fields.OrderRef,
		"status_code": fields.StatusCode,
	})
	ctx = s.logg.WithGatewayTxnID(ctx, fields.TranID)

	order, err := s.orders.Repo().GetByRef(ctx, fields.OrderRef)
	if err != nil {
		s.webhook.IncCallback(label, metrics.WebhookOutcomeError)
		return nil, storeerrors.Wrap(storeerrors.CodeDependency, err, "loading order for callback")
	}
	if order == nil {
		s.webhook.IncCallback(label, metrics.WebhookOutcomeRejected)
		s.logg.Warn(ctx, "payment callback references unknown order")
		return nil, storeerrors.New(storeerrors.CodeNotFound, "order not found for callback reference")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if order.PaymentMethod != enums.PaymentMethodOnline {
		s.webhook.IncCallback(label, metrics.WebhookOutcomeRejected)
		s.logg.Warn(ctx, "payment callback targets a non-gateway order")
		return nil, storeerrors.New(storeerrors.CodeStateConflict, "order does not settle through the payment gateway")
	}
	if !strings.EqualFold(fields.Currency, order.Currency) {
		s.webhook.IncCallback(label, metrics.WebhookOutcomeRejected)
		s.logg.Warn(ctx, "payment callback currency does not match order")
		return nil, storeerrors.New(storeerrors.CodeValidation, "callback currency does not match order").
			WithDetails(map[string]any{"callback": fields.Currency, "order": order.Currency})
	}

	amountCents, err := money.ParseAmount(fields.Amount)
	if err != nil {
		s.webhook.IncCallback(label, metrics.WebhookOutcomeBadRequest)
		return nil, storeerrors.Wrap(storeerrors.CodeValidation, err, "parsing callback amount")
	}

	eventType := fiuu.StatusToEventType(fields.StatusCode)
	if eventType == enums.PaymentEventTypePaid && amountCents != order.GrandTotalCents {
		s.webhook.IncCallback(label, metrics.WebhookOutcomeRejected)
		warnCtx := s.logg.WithFields(ctx, map[string]any{
			"callback_cents": amountCents,
			"order_cents":    order.GrandTotalCents,
		})
		s.logg.Warn(warnCtx, "paid callback amount does not match order total")
		return nil, storeerrors.New(storeerrors.CodeValidation, "callback amount does not match order total").
			WithDetails(map[string]any{"callback_cents": amountCents, "order_cents": order.GrandTotalCents})
	}

	event := s.buildEvent(order, fields, eventType, amountCents, payload)

	result := &CallbackResult{Order: order, EventType: eventType}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		recorded, err := s.ledger.WithTx(tx).Record(ctx, event)
		if err != nil {
			return err
		}
		if recorded == RecordDuplicateIgnored {
			result.Duplicate = true
			return nil
		}
		outcome, err := s.orders.Transition(ctx, tx, order, eventForType(eventType), source, nil)
		if err != nil {
			return err
		}
		result.Outcome = outcome
		return nil
	})
	if err != nil {
		s.webhook.IncCallback(label, metrics.WebhookOutcomeError)
		if typed := storeerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, storeerrors.Wrap(storeerrors.CodeDependency, err, "recording payment callback")
	}

	if result.Duplicate {
		s.webhook.IncCallback(label, metrics.WebhookOutcomeDuplicate)
		s.logg.Info(ctx, "duplicate payment callback ignored")
	} else {
		s.webhook.IncCallback(label, metrics.WebhookOutcomeProcessed)
		s.logg.Info(ctx, "payment callback processed")
	}
	return result, nil
}

func (s *Service) buildEvent(order *models.Order, fields fiuu.CallbackFields, eventType enums.PaymentEventType, amountCents int, payload map[string]string) *models.PaymentEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	event := &models.PaymentEvent{
		OrderID:       order.ID,
		Gateway:       "FIUU",
		GatewayTxnID:  fields.TranID,
		EventType:     eventType,
		StatusCode:    fields.StatusCode,
		AmountCents:   amountCents,
		Currency:      strings.ToUpper(fields.Currency),
		PayloadDigest: fiuu.PayloadDigest(payload),
		Payload:       raw,
		Verified:      true,
		ReceivedAt:    s.now(),
	}
	if fields.Channel != "" {
		channel := fields.Channel
		event.Channel = &channel
	}
	if fields.AppCode != "" {
		appCode := fields.AppCode
		event.AppCode = &appCode
	}
	if eventType == enums.PaymentEventTypePaid {
		if paidAt, err := time.Parse(payDateLayout, fields.PayDate); err == nil {
			event.PaidAt = &paidAt
		}
	}
	return event
}

func eventForType(eventType enums.PaymentEventType) orders.Event {
	switch eventType {
	case enums.PaymentEventTypePaid:
		return orders.EventPaymentPaid
	case enums.PaymentEventTypePending:
		return orders.EventPaymentPending
	default:
		return orders.EventPaymentFailed
	}
}
