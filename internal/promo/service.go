// Package promo validates promo codes and computes discounts. Validation is
// read-only; usage is consumed only inside the checkout transaction.
package promo

import (
	"context"
	"fmt"
	"time"

	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
	"github.com/visolux/store-backend/pkg/money"
)

// Machine-readable validation reasons, surfaced verbatim in quote responses.
const (
	ReasonOK                = "OK"
	ReasonNotFound          = "PROMO_NOT_FOUND"
	ReasonInactive          = "PROMO_INACTIVE"
	ReasonNotYetValid       = "PROMO_NOT_YET_VALID"
	ReasonExpired           = "PROMO_EXPIRED"
	ReasonUsageLimitReached = "PROMO_USAGE_LIMIT_REACHED"
	ReasonMalformed         = "PROMO_MALFORMED"
)

// Validation is the outcome of checking one code. Promo is set only when
// Valid is true.
type Validation struct {
	Valid  bool
	Reason string
	Promo  *models.PromoCode
}

// Service validates codes and prices discounts.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promo repository is required")
	}
	return &Service{repo: repo, now: time.Now}, nil
}

// Validate checks a code against the first-failure-wins rule order:
// exists, active, window, usage, well-formed.
func (s *Service) Validate(ctx context.Context, code string) (Validation, error) {
	promo, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return Validation{}, fmt.Errorf("loading promo %q: %w", NormalizeCode(code), err)
	}
	if promo == nil {
		return Validation{Reason: ReasonNotFound}, nil
	}

	if !promo.Active {
		return Validation{Reason: ReasonInactive}, nil
	}

	at := s.now()
	if promo.StartsAt != nil && at.Before(*promo.StartsAt) {
		return Validation{Reason: ReasonNotYetValid}, nil
	}
	if promo.EndsAt != nil && at.After(*promo.EndsAt) {
		return Validation{Reason: ReasonExpired}, nil
	}

	if promo.MaxUses != nil && promo.UseCount >= *promo.MaxUses {
		return Validation{Reason: ReasonUsageLimitReached}, nil
	}

	if !wellFormed(promo) {
		return Validation{Reason: ReasonMalformed}, nil
	}

	return Validation{Valid: true, Reason: ReasonOK, Promo: promo}, nil
}

func wellFormed(promo *models.PromoCode) bool {
	switch promo.Type {
	case enums.PromoTypePercent:
		return promo.PercentOff >= 1 && promo.PercentOff <= 100
	case enums.PromoTypeFixed:
		return promo.AmountOffCents > 0
	default:
		return false
	}
}

// Discount prices a valid promo against its target base: the items subtotal,
// or the shipping fee when AppliesToShipping is set. The result never exceeds
// the base. Percent discounts round half up to the nearest cent.
func Discount(promo *models.PromoCode, subtotalCents, shippingCents int) int {
	if promo == nil {
		return 0
	}

	base := subtotalCents
	if promo.AppliesToShipping {
		base = shippingCents
	}
	if base <= 0 {
		return 0
	}

	switch promo.Type {
	case enums.PromoTypePercent:
		d := money.Percent(base, promo.PercentOff)
		if d > base {
			return base
		}
		return d
	case enums.PromoTypeFixed:
		if promo.AmountOffCents > base {
			return base
		}
		return promo.AmountOffCents
	default:
		return 0
	}
}
