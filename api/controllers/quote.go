package controllers

import (
	"net/http"

	"github.com/visolux/store-backend/api/responses"
	"github.com/visolux/store-backend/api/validators"
	"github.com/visolux/store-backend/internal/quote"
	"github.com/visolux/store-backend/internal/shipping"
	pkgerrors "github.com/visolux/store-backend/pkg/errors"
	"github.com/visolux/store-backend/pkg/logger"
)

type quoteRequest struct {
	PromoCode          string  `json:"promo_code"`
	State              string  `json:"state" validate:"required"`
	Postcode           string  `json:"postcode"`
	ItemsSubtotalCents int     `json:"items_subtotal_cents" validate:"gte=0"`
	WeightKg           float64 `json:"weight_kg"`
}

type quoteResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`

	ShippingOK    bool   `json:"shipping_ok"`
	ShippingLabel string `json:"shipping_label,omitempty"`
	ShippingCents int    `json:"shipping_cents"`
	Region        string `json:"region,omitempty"`

	PromoCode     string `json:"promo_code,omitempty"`
	PromoReason   string `json:"promo_reason,omitempty"`
	DiscountCents int    `json:"discount_cents"`

	ItemsSubtotalCents         int `json:"items_subtotal_cents"`
	PreDiscountGrandTotalCents int `json:"pre_discount_grand_total_cents"`
	GrandTotalCents            int `json:"grand_total_cents"`
}

// QuoteCheckout prices a cart without persisting anything. An unservable
// address is a successful quote with shipping_ok=false, not an error.
func QuoteCheckout(logg *logger.Logger, engine *quote.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req quoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if req.Postcode != "" && !shipping.ValidPostcode(req.Postcode) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "postcode must be five digits"))
			return
		}

		result, err := engine.Quote(ctx, quote.Input{
			ItemsSubtotalCents: req.ItemsSubtotalCents,
			State:              req.State,
			Postcode:           shipping.NormalizePostcode(req.Postcode),
			PromoCode:          req.PromoCode,
			WeightKg:           req.WeightKg,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := quoteResponse{
			OK:                         true,
			ShippingOK:                 result.ShippingAvailable,
			ShippingLabel:              result.ShippingLabel,
			ShippingCents:              result.ShippingCents,
			Region:                     string(result.Region),
			PromoCode:                  result.PromoCode,
			PromoReason:                result.PromoReason,
			DiscountCents:              result.DiscountCents,
			ItemsSubtotalCents:         result.ItemsSubtotalCents,
			PreDiscountGrandTotalCents: result.PreDiscountGrandTotalCents,
			GrandTotalCents:            result.GrandTotalCents,
		}
		if !result.ShippingAvailable {
			resp.Message = "shipping is not available for this state"
		}
		responses.WriteSuccess(w, resp)
	}
}
