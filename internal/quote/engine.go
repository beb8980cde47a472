// Package quote composes shipping and promo pricing into checkout quotes.
// Quoting is read-only and idempotent; the checkout service freezes a quote
// into an order.
package quote

import (
	"context"
	"fmt"

	"github.com/visolux/store-backend/internal/promo"
	"github.com/visolux/store-backend/internal/shipping"
	"github.com/visolux/store-backend/pkg/enums"
	"github.com/visolux/store-backend/pkg/money"
)

// Input is everything a quote depends on. WeightKg is carried for courier
// integrations that price by weight; the tier calculator ignores it.
type Input struct {
	ItemsSubtotalCents int
	State              string
	Postcode           string
	PromoCode          string
	WeightKg           float64
}

// Result is a fully-formed quote. ShippingAvailable=false disables checkout
// but is still a successful quote, not an error.
type Result struct {
	ItemsSubtotalCents int

	ShippingAvailable bool
	ShippingCents     int
	ShippingLabel     string
	Region            enums.Region

	PromoCode     string
	PromoReason   string
	DiscountCents int

	PreDiscountGrandTotalCents int
	GrandTotalCents            int
}

// Engine derives quotes from the shipping calculator and promo service.
type Engine struct {
	shipping *shipping.Calculator
	promos   *promo.Service
}

func NewEngine(shippingCalc *shipping.Calculator, promoSvc *promo.Service) (*Engine, error) {
	if shippingCalc == nil {
		return nil, fmt.Errorf("shipping calculator is required")
	}
	if promoSvc == nil {
		return nil, fmt.Errorf("promo service is required")
	}
	return &Engine{shipping: shippingCalc, promos: promoSvc}, nil
}

// Quote prices the cart. Promo failures are never fatal: the quote succeeds
// with a zero discount and a machine-readable reason. An unservable address
// yields a quote with ShippingAvailable=false and the grand total equal to
// the items subtotal, so callers can render a disabled checkout state.
func (e *Engine) Quote(ctx context.Context, in Input) (Result, error) {
	if in.ItemsSubtotalCents < 0 {
		return Result{}, fmt.Errorf("items subtotal must not be negative")
	}

	result := Result{ItemsSubtotalCents: in.ItemsSubtotalCents}

	ship := e.shipping.QuoteForState(in.State)
	if !ship.Available {
		result.PreDiscountGrandTotalCents = in.ItemsSubtotalCents
		result.GrandTotalCents = in.ItemsSubtotalCents
		return result, nil
	}

	result.ShippingAvailable = true
	result.ShippingCents = ship.FeeCents
	result.ShippingLabel = ship.Label
	result.Region = ship.Region
	result.PreDiscountGrandTotalCents = money.Add(in.ItemsSubtotalCents, ship.FeeCents)

	if in.PromoCode != "" {
		validation, err := e.promos.Validate(ctx, in.PromoCode)
		if err != nil {
			return Result{}, err
		}
		result.PromoReason = validation.Reason
		if validation.Valid {
			result.PromoCode = validation.Promo.Code
			result.DiscountCents = promo.Discount(validation.Promo, in.ItemsSubtotalCents, ship.FeeCents)
		}
	}

	result.GrandTotalCents = money.SubFloor(result.PreDiscountGrandTotalCents, result.DiscountCents)
	return result, nil
}
