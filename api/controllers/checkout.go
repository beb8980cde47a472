package controllers

import (
	"net/http"
	"time"

	"github.com/visolux/store-backend/api/responses"
	"github.com/visolux/store-backend/api/validators"
	"github.com/visolux/store-backend/internal/checkout"
	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
	pkgerrors "github.com/visolux/store-backend/pkg/errors"
	"github.com/visolux/store-backend/pkg/fiuu"
	"github.com/visolux/store-backend/pkg/logger"
)

type checkoutItemRequest struct {
	SKU            string `json:"sku" validate:"required"`
	Name           string `json:"name" validate:"required"`
	UnitPriceCents int    `json:"unit_price_cents" validate:"gte=0"`
	Quantity       int    `json:"quantity" validate:"gt=0"`
}

type checkoutRequest struct {
	CustomerName  string `json:"customer_name" validate:"required"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	CustomerPhone string `json:"customer_phone"`

	AddressLine1 string `json:"address_line1" validate:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	Postcode     string `json:"postcode" validate:"required"`

	Items         []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	PromoCode     string                `json:"promo_code"`
	PaymentMethod string                `json:"payment_method" validate:"required"`
}

type orderItemResponse struct {
	ID             string `json:"id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int    `json:"line_total_cents"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Status        string `json:"status"`
	RefundStatus  string `json:"refund_status"`
	PaymentMethod string `json:"payment_method"`
	Currency      string `json:"currency"`

	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`

	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Region   string `json:"region"`

	ItemsSubtotalCents int     `json:"items_subtotal_cents"`
	ShippingCents      int     `json:"shipping_cents"`
	DiscountCents      int     `json:"discount_cents"`
	GrandTotalCents    int     `json:"grand_total_cents"`
	PromoCodeApplied   *string `json:"promo_code_applied,omitempty"`

	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	Items []orderItemResponse `json:"items,omitempty"`
}

type paymentRequestResponse struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Fields  map[string]string `json:"fields"`
	FullURL string            `json:"full_url,omitempty"`
}

type checkoutResponse struct {
	Order   orderResponse           `json:"order"`
	Payment *paymentRequestResponse `json:"payment,omitempty"`
}

// PlaceOrder freezes a priced cart into an order. Gateway orders come back
// with the signed hosted payment handoff.
func PlaceOrder(logg *logger.Logger, svc *checkout.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment method is invalid").
				WithDetails(map[string]any{"payment_method": req.PaymentMethod}))
			return
		}

		in := checkout.PlaceOrderInput{
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			CustomerPhone: req.CustomerPhone,
			AddressLine1:  req.AddressLine1,
			AddressLine2:  req.AddressLine2,
			City:          req.City,
			State:         req.State,
			Postcode:      req.Postcode,
			PromoCode:     req.PromoCode,
			PaymentMethod: method,
		}
		for _, item := range req.Items {
			in.Items = append(in.Items, checkout.ItemInput{
				SKU:            item.SKU,
				Name:           item.Name,
				UnitPriceCents: item.UnitPriceCents,
				Quantity:       item.Quantity,
			})
		}

		result, err := svc.PlaceOrder(ctx, in)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := checkoutResponse{
			Order:   toOrderResponse(result.Order, result.Order.Items),
			Payment: toPaymentResponse(result.Payment),
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

func toOrderResponse(order *models.Order, items []models.OrderItem) orderResponse {
	resp := orderResponse{
		ID:                 order.ID.String(),
		Code:               order.Code,
		Status:             string(order.Status),
		RefundStatus:       string(order.RefundStatus),
		PaymentMethod:      string(order.PaymentMethod),
		Currency:           order.Currency,
		CustomerName:       order.CustomerName,
		CustomerEmail:      order.CustomerEmail,
		State:              order.State,
		Postcode:           order.Postcode,
		Region:             string(order.Region),
		ItemsSubtotalCents: order.ItemsSubtotalCents,
		ShippingCents:      order.ShippingCents,
		DiscountCents:      order.DiscountCents,
		GrandTotalCents:    order.GrandTotalCents,
		PromoCodeApplied:   order.PromoCodeApplied,
		PaidAt:             order.PaidAt,
		CancelledAt:        order.CancelledAt,
		CreatedAt:          order.CreatedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:             item.ID.String(),
			SKU:            item.SKU,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return resp
}

func toPaymentResponse(payment *fiuu.HostedPaymentRequest) *paymentRequestResponse {
	if payment == nil {
		return nil
	}
	return &paymentRequestResponse{
		URL:     payment.URL,
		Method:  payment.Method,
		Fields:  payment.Fields,
		FullURL: payment.FullURL,
	}
}
