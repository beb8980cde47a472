package controllers

import (
	"net/http"
	"net/url"

	"github.com/visolux/store-backend/api/responses"
	"github.com/visolux/store-backend/internal/payments"
	"github.com/visolux/store-backend/internal/refunds"
	"github.com/visolux/store-backend/pkg/enums"
	pkgerrors "github.com/visolux/store-backend/pkg/errors"
	"github.com/visolux/store-backend/pkg/logger"
)

// formFields flattens the request's query and form body into the flat
// key/value map the gateway protocol is defined over.
func formFields(r *http.Request) map[string]string {
	_ = r.ParseForm()
	fields := make(map[string]string, len(r.Form))
	for key, values := range r.Form {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields
}

// PaymentCallback handles the gateway's server-to-server notification. The
// gateway retries until it reads a literal OK body, so duplicates ack OK too.
func PaymentCallback(logg *logger.Logger, svc *payments.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		_, err := svc.ProcessCallback(ctx, enums.TransitionSourceGatewayCallback, formFields(r))
		if err != nil {
			status := http.StatusInternalServerError
			if typed := pkgerrors.As(err); typed != nil {
				status = pkgerrors.MetadataFor(typed.Code()).HTTPStatus
			}
			logg.Error(ctx, "payment callback rejected", err)
			responses.WriteText(w, status, "ERROR")
			return
		}
		responses.WriteText(w, http.StatusOK, "OK")
	}
}

// PaymentReturn handles the buyer's browser returning from the gateway. It
// runs the same verification and reconciliation as the callback, then sends
// the buyer to the storefront result page. A missing result URL degrades to
// a JSON response for headless setups.
func PaymentReturn(logg *logger.Logger, svc *payments.Service, resultURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		fields := formFields(r)

		result, err := svc.ProcessCallback(ctx, enums.TransitionSourceGatewayReturn, fields)
		if err != nil {
			logg.Error(ctx, "payment return rejected", err)
			status := "error"
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeAuthenticity {
				status = "invalid"
			}
			redirectResult(w, r, resultURL, fields["orderid"], status)
			return
		}

		redirectResult(w, r, resultURL, result.Order.Code, returnStatus(result.EventType))
	}
}

// PaymentCancel handles the buyer abandoning the hosted payment page. The
// order stays pending; the callback or the expiry job decides its fate.
func PaymentCancel(logg *logger.Logger, resultURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderRef := r.URL.Query().Get("orderid")

		cancelCtx := logg.WithField(ctx, "order_ref", orderRef)
		logg.Info(cancelCtx, "buyer cancelled at payment gateway")

		redirectResult(w, r, resultURL, orderRef, "cancelled")
	}
}

// RefundNotify handles the gateway's refund status webhook. The gateway only
// wants a 200; processing failures are logged and acked so it stops retrying.
func RefundNotify(logg *logger.Logger, svc *refunds.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if _, err := svc.HandleRefundNotify(ctx, formFields(r)); err != nil {
			logg.Error(ctx, "refund notify rejected", err)
		}
		responses.WriteText(w, http.StatusOK, "OK")
	}
}

func returnStatus(eventType enums.PaymentEventType) string {
	switch eventType {
	case enums.PaymentEventTypePaid:
		return "paid"
	case enums.PaymentEventTypePending:
		return "pending"
	default:
		return "failed"
	}
}

func redirectResult(w http.ResponseWriter, r *http.Request, resultURL, orderRef, status string) {
	if resultURL == "" {
		responses.WriteSuccess(w, map[string]string{"order": orderRef, "status": status})
		return
	}
	qs := url.Values{}
	if orderRef != "" {
		qs.Set("order", orderRef)
	}
	qs.Set("status", status)
	http.Redirect(w, r, resultURL+"?"+qs.Encode(), http.StatusSeeOther)
}
