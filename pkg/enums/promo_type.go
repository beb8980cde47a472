package enums

import "fmt"

// PromoType distinguishes percentage promos from fixed-amount promos.
// Exactly one of percent_off / amount_off_cents is meaningful per type.
type PromoType string

const (
	PromoTypePercent PromoType = "percent"
	PromoTypeFixed   PromoType = "fixed"
)

var validPromoTypes = []PromoType{
	PromoTypePercent,
	PromoTypeFixed,
}

// IsValid reports whether the value is a known PromoType.
func (t PromoType) IsValid() bool {
	for _, candidate := range validPromoTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParsePromoType converts raw input into a PromoType.
func ParsePromoType(value string) (PromoType, error) {
	for _, candidate := range validPromoTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promo type %q", value)
}
