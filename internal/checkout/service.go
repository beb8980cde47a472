// Package checkout freezes a priced cart into an order. Every total on the
// stored order is re-derived server-side from the quote engine at placement
// time; client-supplied totals are never trusted.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/visolux/store-backend/internal/orders"
	"github.com/visolux/store-backend/internal/promo"
	"github.com/visolux/store-backend/internal/quote"
	"github.com/visolux/store-backend/internal/shipping"
	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
	storeerrors "github.com/visolux/store-backend/pkg/errors"
	"github.com/visolux/store-backend/pkg/fiuu"
	"github.com/visolux/store-backend/pkg/logger"
	"github.com/visolux/store-backend/pkg/ordercode"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ItemInput is one cart line as submitted by the storefront.
type ItemInput struct {
	SKU            string
	Name           string
	UnitPriceCents int
	Quantity       int
}

// PlaceOrderInput carries the cart and the buyer's details.
type PlaceOrderInput struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	Postcode     string

	Items         []ItemInput
	PromoCode     string
	PaymentMethod enums.PaymentMethod
}

// PlaceOrderResult returns the frozen order, the quote it was priced from
// and, for gateway orders, the hosted payment handoff.
type PlaceOrderResult struct {
	Order   *models.Order
	Quote   quote.Result
	Payment *fiuu.HostedPaymentRequest
}

// Service places orders.
type Service struct {
	engine  *quote.Engine
	orders  orders.Repository
	promos  promo.Repository
	tx      txRunner
	gateway fiuu.Config
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(engine *quote.Engine, ordersRepo orders.Repository, promos promo.Repository, tx txRunner, gateway fiuu.Config, logg *logger.Logger) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("quote engine is required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promo repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{
		engine:  engine,
		orders:  ordersRepo,
		promos:  promos,
		tx:      tx,
		gateway: gateway,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// PlaceOrder validates the cart, re-prices it, consumes the promo use and
// persists the order atomically. Gateway orders start at PENDING_PAYMENT and
// come back with a signed hosted payment request; offline transfers start at
// AWAITING_VERIFICATION and settle through manual slip review.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	state, ok := shipping.CanonicalState(in.State)
	if !ok {
		return nil, storeerrors.New(storeerrors.CodeValidation, "shipping is not available for this state").
			WithDetails(map[string]any{"state": in.State})
	}

	subtotal := 0
	for _, item := range in.Items {
		subtotal += item.UnitPriceCents * item.Quantity
	}

	quoted, err := s.engine.Quote(ctx, quote.Input{
		ItemsSubtotalCents: subtotal,
		State:              state,
		Postcode:           shipping.NormalizePostcode(in.Postcode),
		PromoCode:          in.PromoCode,
	})
	if err != nil {
		return nil, storeerrors.Wrap(storeerrors.CodeDependency, err, "pricing order")
	}
	if !quoted.ShippingAvailable {
		return nil, storeerrors.New(storeerrors.CodeValidation, "shipping is not available for this state").
			WithDetails(map[string]any{"state": in.State})
	}
	// A promo the buyer typed must actually apply; quoting tolerates invalid
	// codes but placement does not.
	if in.PromoCode != "" && quoted.PromoCode == "" {
		return nil, storeerrors.New(storeerrors.CodeValidation, "promo code cannot be applied").
			WithDetails(map[string]any{"reason": quoted.PromoReason})
	}

	now := s.now()
	code, err := ordercode.New(now)
	if err != nil {
		return nil, storeerrors.Wrap(storeerrors.CodeInternal, err, "generating order code")
	}

	order := s.buildOrder(code, state, in, quoted)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if quoted.PromoCode != "" {
			promos := s.promos.WithTx(tx)
			applied, err := promos.GetByCode(ctx, quoted.PromoCode)
			if err != nil {
				return err
			}
			if applied == nil {
				return storeerrors.New(storeerrors.CodeValidation, "promo code cannot be applied")
			}
			consumed, err := promos.ConsumeUse(ctx, applied.ID)
			if err != nil {
				return err
			}
			if !consumed {
				return storeerrors.New(storeerrors.CodeValidation, "promo code usage limit reached")
			}
		}
		return s.orders.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		if typed := storeerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, storeerrors.Wrap(storeerrors.CodeDependency, err, "placing order")
	}

	orderCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":    order.ID.String(),
		"order_code":  order.Code,
		"grand_total": order.GrandTotalCents,
	})
	s.logg.Info(orderCtx, "order placed")

	result := &PlaceOrderResult{Order: order, Quote: quoted}
	if in.PaymentMethod == enums.PaymentMethodOnline {
		payment, err := s.gateway.BuildHostedPaymentRequest(fiuu.PaymentInput{
			OrderRef:      order.Code,
			AmountCents:   order.GrandTotalCents,
			CustomerName:  in.CustomerName,
			CustomerEmail: in.CustomerEmail,
			CustomerPhone: in.CustomerPhone,
		})
		if err != nil {
			return nil, storeerrors.Wrap(storeerrors.CodeInternal, err, "building payment request")
		}
		result.Payment = payment
	}
	return result, nil
}

func (s *Service) buildOrder(code, state string, in PlaceOrderInput, quoted quote.Result) *models.Order {
	initial := enums.OrderStatusPendingPayment
	if in.PaymentMethod == enums.PaymentMethodOfflineTransfer {
		initial = enums.OrderStatusAwaitingVerification
	}

	order := &models.Order{
		Code:               code,
		Status:             initial,
		RefundStatus:       enums.RefundStatusNone,
		PaymentMethod:      in.PaymentMethod,
		Currency:           s.currency(),
		CustomerName:       strings.TrimSpace(in.CustomerName),
		CustomerEmail:      strings.TrimSpace(in.CustomerEmail),
		CustomerPhone:      strings.TrimSpace(in.CustomerPhone),
		AddressLine1:       strings.TrimSpace(in.AddressLine1),
		AddressLine2:       strings.TrimSpace(in.AddressLine2),
		City:               strings.TrimSpace(in.City),
		State:              state,
		Postcode:           shipping.NormalizePostcode(in.Postcode),
		Region:             quoted.Region,
		ItemsSubtotalCents: quoted.ItemsSubtotalCents,
		ShippingCents:      quoted.ShippingCents,
		DiscountCents:      quoted.DiscountCents,
		GrandTotalCents:    quoted.GrandTotalCents,
		History: []models.OrderStatusHistory{
			{FromStatus: initial, ToStatus: initial, Source: enums.TransitionSourceCheckout},
		},
	}
	if quoted.PromoCode != "" {
		applied := quoted.PromoCode
		order.PromoCodeApplied = &applied
	}
	for _, item := range in.Items {
		order.Items = append(order.Items, models.OrderItem{
			SKU:            strings.TrimSpace(item.SKU),
			Name:           strings.TrimSpace(item.Name),
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.UnitPriceCents * item.Quantity,
		})
	}
	return order
}

func (s *Service) currency() string {
	if s.gateway.Currency != "" {
		return strings.ToUpper(s.gateway.Currency)
	}
	return "MYR"
}

func validateInput(in PlaceOrderInput) error {
	var problems []string
	if strings.TrimSpace(in.CustomerName) == "" {
		problems = append(problems, "customer name is required")
	}
	if strings.TrimSpace(in.CustomerEmail) == "" {
		problems = append(problems, "customer email is required")
	}
	if strings.TrimSpace(in.AddressLine1) == "" {
		problems = append(problems, "address line 1 is required")
	}
	if strings.TrimSpace(in.City) == "" {
		problems = append(problems, "city is required")
	}
	if !shipping.ValidPostcode(in.Postcode) {
		problems = append(problems, "postcode must be five digits")
	}
	if !in.PaymentMethod.IsValid() {
		problems = append(problems, "payment method is invalid")
	}
	if len(in.Items) == 0 {
		problems = append(problems, "at least one item is required")
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.SKU) == "" {
			problems = append(problems, fmt.Sprintf("items[%d]: sku is required", i))
		}
		if item.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("items[%d]: quantity must be positive", i))
		}
		if item.UnitPriceCents < 0 {
			problems = append(problems, fmt.Sprintf("items[%d]: unit price must not be negative", i))
		}
	}
	if len(problems) > 0 {
		return storeerrors.New(storeerrors.CodeValidation, "invalid order input").
			WithDetails(map[string]any{"problems": problems})
	}
	return nil
}
