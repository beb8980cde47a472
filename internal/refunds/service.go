// Package refunds applies per-line refunds against settled orders, enforcing
// quantity and amount caps so an order can never refund more than the buyer
// paid for it.
package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visolux/store-backend/internal/orders"
	"github.com/visolux/store-backend/internal/payments"
	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
	storeerrors "github.com/visolux/store-backend/pkg/errors"
	"github.com/visolux/store-backend/pkg/fiuu"
	"github.com/visolux/store-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service issues refunds and digests refund-status webhooks.
type Service struct {
	orders  *orders.Service
	repo    Repository
	ledger  payments.Repository
	tx      txRunner
	gateway fiuu.Config
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(ordersSvc *orders.Service, repo Repository, ledger payments.Repository, tx txRunner, gateway fiuu.Config, logg *logger.Logger) (*Service, error) {
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("refunds repository is required")
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
		orders:  ordersSvc,
		repo:    repo,
		ledger:  ledger,
		tx:      tx,
		gateway: gateway,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// RefundItemInput identifies the line, the quantity coming back and an
// optional override amount. A nil amount refunds the pro-rated net paid for
// the returned quantity.
type RefundItemInput struct {
	OrderID     uuid.UUID
	OrderItemID uuid.UUID
	Quantity    int
	AmountCents *int
	Reason      *string
}

// RefundItemResult returns the recorded refund and the order's refund state
// after it.
type RefundItemResult struct {
	Refund       *models.OrderItemRefund
	RefundStatus enums.RefundStatus
	OrderStatus  enums.OrderStatus
}

// RefundItem records one per-line refund and refreshes the order's refund
// status. The cap check, the insert and the status refresh share one
// transaction with the order row locked, so two concurrent refunds for the
// same line cannot both pass the cap against a stale prior-refund read.
func (s *Service) RefundItem(ctx context.Context, in RefundItemInput) (*RefundItemResult, error) {
	if in.Quantity <= 0 {
		return nil, storeerrors.New(storeerrors.CodeValidation, "refund quantity must be positive")
	}
	if in.AmountCents != nil && *in.AmountCents < 0 {
		return nil, storeerrors.New(storeerrors.CodeValidation, "refund amount must not be negative")
	}

	var order *models.Order
	result := &RefundItemResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.Repo().WithTx(tx)

		var err error
		order, err = ordersRepo.GetByIDForUpdate(ctx, in.OrderID)
		if err != nil {
			return storeerrors.Wrap(storeerrors.CodeDependency, err, "loading order")
		}
		if order == nil {
			return storeerrors.New(storeerrors.CodeNotFound, "order not found")
		}
		if !refundableStatus(order.Status) {
			return storeerrors.New(storeerrors.CodeStateConflict, "order is not refundable in its current status").
				WithDetails(map[string]any{"status": string(order.Status)})
		}

		items, err := ordersRepo.GetItems(ctx, in.OrderID)
		if err != nil {
			return storeerrors.Wrap(storeerrors.CodeDependency, err, "loading order items")
		}
		itemIdx := -1
		for i := range items {
			if items[i].ID == in.OrderItemID {
				itemIdx = i
				break
			}
		}
		if itemIdx == -1 {
			return storeerrors.New(storeerrors.CodeNotFound, "order item not found")
		}
		item := items[itemIdx]

		prior, err := s.repo.WithTx(tx).ListByOrderID(ctx, in.OrderID)
		if err != nil {
			return storeerrors.Wrap(storeerrors.CodeDependency, err, "loading prior refunds")
		}

		refundedQty := 0
		refundedCents := 0
		totalRefundedCents := 0
		for _, r := range prior {
			totalRefundedCents += r.AmountCents
			if r.OrderItemID == in.OrderItemID {
				refundedQty += r.Quantity
				refundedCents += r.AmountCents
			}
		}

		if in.Quantity > item.Quantity-refundedQty {
			return refundExceedsPaid("quantity exceeds remaining refundable quantity", map[string]any{
				"requested": in.Quantity,
				"remaining": item.Quantity - refundedQty,
			})
		}

		lineNet := lineNetCents(items, order.DiscountCents, itemIdx)
		remainingCents := lineNet - refundedCents

		amount := proRatedAmount(lineNet, item.Quantity, in.Quantity)
		if in.AmountCents != nil {
			amount = *in.AmountCents
		}
		if amount > remainingCents {
			return refundExceedsPaid("amount exceeds remaining refundable amount", map[string]any{
				"requested_cents": amount,
				"remaining_cents": remainingCents,
			})
		}

		refund := &models.OrderItemRefund{
			OrderID:     in.OrderID,
			OrderItemID: in.OrderItemID,
			Quantity:    in.Quantity,
			AmountCents: amount,
			Reason:      in.Reason,
		}
		if order.PaymentMethod == enums.PaymentMethodOnline {
			txnID, err := s.ledger.WithTx(tx).LatestPaidTxnID(ctx, in.OrderID)
			if err != nil {
				return storeerrors.Wrap(storeerrors.CodeDependency, err, "resolving gateway transaction")
			}
			if txnID != "" {
				refund.GatewayTxnID = &txnID
			}
		}

		if err := s.repo.WithTx(tx).Create(ctx, refund); err != nil {
			return err
		}
		status, err := s.refreshRefundStatus(ctx, tx, order, totalRefundedCents+amount)
		if err != nil {
			return err
		}
		result.Refund = refund
		result.RefundStatus = status
		result.OrderStatus = order.Status
		return nil
	})
	if err != nil {
		if typed := storeerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, storeerrors.Wrap(storeerrors.CodeDependency, err, "recording refund")
	}

	refundCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_code":   order.Code,
		"refund_id":    result.Refund.ID.String(),
		"amount_cents": result.Refund.AmountCents,
	})
	s.logg.Info(refundCtx, "item refund recorded")
	return result, nil
}

// refreshRefundStatus recomputes the order's refund state from the running
// refunded total and drives the matching state-machine event.
func (s *Service) refreshRefundStatus(ctx context.Context, tx *gorm.DB, order *models.Order, totalRefundedCents int) (enums.RefundStatus, error) {
	refundable := refundableTotalCents(order)

	status := enums.RefundStatusPartial
	event := orders.EventRefundPartial
	if totalRefundedCents >= refundable && refundable > 0 {
		status = enums.RefundStatusFull
		event = orders.EventRefundFull
	}

	if _, err := s.orders.Transition(ctx, tx, order, event, enums.TransitionSourceRefund, nil); err != nil {
		return "", err
	}
	if err := s.orders.Repo().WithTx(tx).UpdateRefundStatus(ctx, order.ID, status); err != nil {
		return "", err
	}
	order.RefundStatus = status
	return status, nil
}

// HandleRefundNotify verifies a refund status webhook and attaches the
// provider's ids to the matching refund row. The RefID the gateway echoes is
// the refund row id we issued the refund under.
func (s *Service) HandleRefundNotify(ctx context.Context, payload map[string]string) (*fiuu.RefundNotifyResult, error) {
	result := s.gateway.VerifyRefundNotify(payload)
	if !result.OK {
		warnCtx := s.logg.WithField(ctx, "reason", result.Reason)
		s.logg.Warn(warnCtx, "refund notify failed signature verification")
		return nil, storeerrors.New(storeerrors.CodeAuthenticity, "refund notify signature verification failed").
			WithDetails(map[string]any{"reason": result.Reason})
	}

	notifyCtx := s.logg.WithFields(ctx, map[string]any{
		"ref_id":    result.RefID,
		"refund_id": result.RefundID,
		"status":    result.Status,
	})

	refundRowID, err := uuid.Parse(result.RefID)
	if err != nil {
		s.logg.Warn(notifyCtx, "refund notify references unknown refund")
		return &result, nil
	}
	refund, err := s.repo.GetByID(ctx, refundRowID)
	if err != nil {
		return nil, storeerrors.Wrap(storeerrors.CodeDependency, err, "loading refund for notify")
	}
	if refund == nil {
		s.logg.Warn(notifyCtx, "refund notify references unknown refund")
		return &result, nil
	}

	refundID := result.RefundID
	txnID := result.TxnID
	if err := s.repo.SetGatewayRefs(ctx, refund.ID, &refundID, &txnID); err != nil {
		return nil, storeerrors.Wrap(storeerrors.CodeDependency, err, "updating refund gateway refs")
	}

	s.logg.Info(notifyCtx, "refund notify processed")
	return &result, nil
}

func refundableStatus(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusPaid, enums.OrderStatusFulfilled,
		enums.OrderStatusPartiallyRefunded, enums.OrderStatusRefunded:
		return true
	}
	return false
}

// lineNetCents is what the buyer actually paid for one line: the line total
// minus its largest-remainder share of the order discount.
func lineNetCents(items []models.OrderItem, discountCents, idx int) int {
	lineTotals := make([]int, len(items))
	for i := range items {
		lineTotals[i] = items[i].LineTotalCents
	}
	alloc := AllocateDiscount(lineTotals, discountCents)
	return lineTotals[idx] - alloc[idx]
}

// refundableTotalCents is the item-level net the whole order can return.
func refundableTotalCents(order *models.Order) int {
	net := order.ItemsSubtotalCents - order.DiscountCents
	if net < 0 {
		return 0
	}
	return net
}

// proRatedAmount defaults the refund to the net paid for the returned
// quantity, rounded half up.
func proRatedAmount(lineNetCents, lineQty, refundQty int) int {
	if lineQty <= 0 {
		return 0
	}
	return (lineNetCents*refundQty + lineQty/2) / lineQty
}

func refundExceedsPaid(msg string, details map[string]any) error {
	details["reason"] = "RefundExceedsPaid"
	return storeerrors.New(storeerrors.CodeStateConflict, msg).WithDetails(details)
}
