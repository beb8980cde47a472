package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visolux/store-backend/api/responses"
	"github.com/visolux/store-backend/api/validators"
	"github.com/visolux/store-backend/internal/orders"
	"github.com/visolux/store-backend/internal/payments"
	"github.com/visolux/store-backend/internal/refunds"
	"github.com/visolux/store-backend/internal/transfers"
	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
	pkgerrors "github.com/visolux/store-backend/pkg/errors"
	"github.com/visolux/store-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type historyResponse struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Source     string    `json:"source"`
	Reason     *string   `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type paymentEventResponse struct {
	ID           string     `json:"id"`
	Gateway      string     `json:"gateway"`
	GatewayTxnID string     `json:"gateway_txn_id"`
	EventType    string     `json:"event_type"`
	StatusCode   string     `json:"status_code"`
	AmountCents  int        `json:"amount_cents"`
	Currency     string     `json:"currency"`
	Channel      *string    `json:"channel,omitempty"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	ReceivedAt   time.Time  `json:"received_at"`
}

type refundResponse struct {
	ID           string    `json:"id"`
	OrderItemID  string    `json:"order_item_id"`
	Quantity     int       `json:"quantity"`
	AmountCents  int       `json:"amount_cents"`
	Reason       *string   `json:"reason,omitempty"`
	GatewayRefID *string   `json:"gateway_ref_id,omitempty"`
	GatewayTxnID *string   `json:"gateway_txn_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type transferResponse struct {
	ID          string     `json:"id"`
	BankName    string     `json:"bank_name"`
	ReferenceNo string     `json:"reference_no"`
	AmountCents int        `json:"amount_cents"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	SlipDeleted bool       `json:"slip_deleted"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	VerifiedBy  *string    `json:"verified_by,omitempty"`
}

type adminOrderResponse struct {
	Order    orderResponse          `json:"order"`
	History  []historyResponse      `json:"history"`
	Events   []paymentEventResponse `json:"payment_events"`
	Refunds  []refundResponse       `json:"refunds"`
	Transfer *transferResponse      `json:"transfer,omitempty"`
}

// AdminGetOrder returns the operator view: the order with its items, the
// full status history, the payment event ledger, refunds and the bank
// transfer record for offline orders.
func AdminGetOrder(logg *logger.Logger, ordersRepo orders.Repository, ledger payments.Repository, refundsRepo refunds.Repository, transfersRepo transfers.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a UUID"))
			return
		}

		order, err := ordersRepo.GetWithDetails(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order"))
			return
		}
		if order == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		events, err := ledger.ListByOrderID(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment events"))
			return
		}
		refundRows, err := refundsRepo.ListByOrderID(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading refunds"))
			return
		}

		resp := adminOrderResponse{Order: toOrderResponse(order, order.Items)}
		for _, entry := range order.History {
			resp.History = append(resp.History, historyResponse{
				FromStatus: string(entry.FromStatus),
				ToStatus:   string(entry.ToStatus),
				Source:     string(entry.Source),
				Reason:     entry.Reason,
				CreatedAt:  entry.CreatedAt,
			})
		}
		for _, event := range events {
			resp.Events = append(resp.Events, paymentEventResponse{
				ID:           event.ID.String(),
				Gateway:      event.Gateway,
				GatewayTxnID: event.GatewayTxnID,
				EventType:    string(event.EventType),
				StatusCode:   event.StatusCode,
				AmountCents:  event.AmountCents,
				Currency:     event.Currency,
				Channel:      event.Channel,
				PaidAt:       event.PaidAt,
				ReceivedAt:   event.ReceivedAt,
			})
		}
		for _, refund := range refundRows {
			resp.Refunds = append(resp.Refunds, refundResponse{
				ID:           refund.ID.String(),
				OrderItemID:  refund.OrderItemID.String(),
				Quantity:     refund.Quantity,
				AmountCents:  refund.AmountCents,
				Reason:       refund.Reason,
				GatewayRefID: refund.GatewayRefID,
				GatewayTxnID: refund.GatewayTxnID,
				CreatedAt:    refund.CreatedAt,
			})
		}

		if order.PaymentMethod == enums.PaymentMethodOfflineTransfer {
			transfer, err := transfersRepo.GetByOrderID(ctx, orderID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading bank transfer"))
				return
			}
			if transfer != nil {
				resp.Transfer = &transferResponse{
					ID:          transfer.ID.String(),
					BankName:    transfer.BankName,
					ReferenceNo: transfer.ReferenceNo,
					AmountCents: transfer.AmountCents,
					UploadedAt:  transfer.UploadedAt,
					SlipDeleted: transfer.SlipDeleted,
					VerifiedAt:  transfer.VerifiedAt,
					VerifiedBy:  transfer.VerifiedBy,
				}
			}
		}

		responses.WriteSuccess(w, resp)
	}
}

type settleOrderRequest struct {
	VerifiedBy  string `json:"verified_by" validate:"required"`
	BankName    string `json:"bank_name"`
	ReferenceNo string `json:"reference_no"`
	AmountCents int    `json:"amount_cents" validate:"gte=0"`
	SlipPath    string `json:"slip_path"`
}

// AdminSettleOrder settles an offline-transfer order after an operator has
// reviewed the bank-in slip. The transfer record is created from the request
// when the order does not have one yet, then marked verified together with
// the status transition.
func AdminSettleOrder(logg *logger.Logger, ordersSvc *orders.Service, transfersRepo transfers.Repository, tx txRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a UUID"))
			return
		}

		var req settleOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := ordersSvc.Repo().GetByID(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order"))
			return
		}
		if order == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		if order.PaymentMethod != enums.PaymentMethodOfflineTransfer {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "only offline-transfer orders settle manually"))
			return
		}

		now := time.Now()
		err = tx.WithTx(ctx, func(txDB *gorm.DB) error {
			repo := transfersRepo.WithTx(txDB)
			transfer, err := repo.GetByOrderID(ctx, orderID)
			if err != nil {
				return err
			}
			if transfer == nil {
				transfer = &models.OfflineBankTransfer{
					OrderID:     orderID,
					BankName:    req.BankName,
					ReferenceNo: req.ReferenceNo,
					AmountCents: req.AmountCents,
					SlipPath:    req.SlipPath,
					UploadedAt:  now,
				}
				if err := repo.Create(ctx, transfer); err != nil {
					return err
				}
			}
			if err := repo.MarkVerified(ctx, transfer.ID, req.VerifiedBy, now); err != nil {
				return err
			}

			reason := "bank transfer verified by " + req.VerifiedBy
			_, err = ordersSvc.Transition(ctx, txDB, order, orders.EventPaymentPaid, enums.TransitionSourceManual, &reason)
			return err
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		settleCtx := logg.WithFields(ctx, map[string]any{
			"order_id":    order.ID.String(),
			"order_code":  order.Code,
			"verified_by": req.VerifiedBy,
		})
		logg.Info(settleCtx, "offline transfer settled")
		responses.WriteSuccess(w, toOrderResponse(order, nil))
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// AdminCancelOrder cancels an unpaid order. Settled orders refuse with a
// state conflict; refunds are the way money goes back.
func AdminCancelOrder(logg *logger.Logger, ordersSvc *orders.Service, tx txRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a UUID"))
			return
		}

		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := ordersSvc.Repo().GetByID(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order"))
			return
		}
		if order == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		var reason *string
		if req.Reason != "" {
			reason = &req.Reason
		}
		err = tx.WithTx(ctx, func(txDB *gorm.DB) error {
			_, err := ordersSvc.Transition(ctx, txDB, order, orders.EventCancel, enums.TransitionSourceManual, reason)
			return err
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderResponse(order, nil))
	}
}

type refundItemRequest struct {
	Quantity    int     `json:"quantity" validate:"gt=0"`
	AmountCents *int    `json:"amount_cents"`
	Reason      *string `json:"reason"`
}

// AdminRefundItem records a per-line refund against a settled order.
func AdminRefundItem(logg *logger.Logger, refundsSvc *refunds.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a UUID"))
			return
		}
		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order item id must be a UUID"))
			return
		}

		var req refundItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := refundsSvc.RefundItem(ctx, refunds.RefundItemInput{
			OrderID:     orderID,
			OrderItemID: itemID,
			Quantity:    req.Quantity,
			AmountCents: req.AmountCents,
			Reason:      req.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		refund := result.Refund
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"refund": refundResponse{
				ID:           refund.ID.String(),
				OrderItemID:  refund.OrderItemID.String(),
				Quantity:     refund.Quantity,
				AmountCents:  refund.AmountCents,
				Reason:       refund.Reason,
				GatewayTxnID: refund.GatewayTxnID,
				CreatedAt:    refund.CreatedAt,
			},
			"refund_status": string(result.RefundStatus),
			"order_status":  string(result.OrderStatus),
		})
	}
}
