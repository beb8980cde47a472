// Package shipping computes courier fees for Malaysian delivery addresses
// using the two-tier West/East partition of the 16 states and federal
// territories. The calculator is pure; fees come from configuration.
package shipping

import (
	"strings"

	"github.com/visolux/store-backend/pkg/config"
	"github.com/visolux/store-backend/pkg/enums"
)

// Canonical state names. Lookup is case-insensitive over these.
var malaysiaStates = []string{
	// West Malaysia
	"Johor",
	"Kedah",
	"Kelantan",
	"Melaka",
	"Negeri Sembilan",
	"Pahang",
	"Penang",
	"Perak",
	"Perlis",
	"Selangor",
	"Terengganu",
	"Kuala Lumpur",
	"Putrajaya",

	// East Malaysia
	"Sabah",
	"Sarawak",
	"Labuan",
}

var eastStates = map[string]bool{
	"Sabah":   true,
	"Sarawak": true,
	"Labuan":  true,
}

// Quote is the shipping leg of a checkout quote. Available=false means the
// address cannot be served; the fee is zero and checkout must not proceed
// with a guessed rate.
type Quote struct {
	FeeCents  int
	Available bool
	Region    enums.Region
	Label     string
}

// Calculator resolves a state name to a courier fee.
type Calculator struct {
	westFeeCents int
	eastFeeCents int
}

func NewCalculator(cfg config.ShippingConfig) *Calculator {
	return &Calculator{
		westFeeCents: cfg.WestFeeCents,
		eastFeeCents: cfg.EastFeeCents,
	}
}

// CanonicalState resolves raw input to the canonical state name,
// case-insensitively. Unknown states return ok=false.
func CanonicalState(state string) (string, bool) {
	trimmed := strings.TrimSpace(state)
	for _, candidate := range malaysiaStates {
		if strings.EqualFold(candidate, trimmed) {
			return candidate, true
		}
	}
	return "", false
}

// RegionForState partitions a state into West or East Malaysia.
func RegionForState(state string) (enums.Region, bool) {
	canonical, ok := CanonicalState(state)
	if !ok {
		return "", false
	}
	if eastStates[canonical] {
		return enums.RegionEast, true
	}
	return enums.RegionWest, true
}

// QuoteForState returns the courier fee for the given state. Unknown states
// fail closed.
func (c *Calculator) QuoteForState(state string) Quote {
	region, ok := RegionForState(state)
	if !ok {
		return Quote{}
	}
	if region == enums.RegionEast {
		return Quote{
			FeeCents:  c.eastFeeCents,
			Available: true,
			Region:    region,
			Label:     "East Malaysia",
		}
	}
	return Quote{
		FeeCents:  c.westFeeCents,
		Available: true,
		Region:    region,
		Label:     "West Malaysia",
	}
}

// NormalizePostcode strips everything but digits.
func NormalizePostcode(postcode string) string {
	var b strings.Builder
	for _, r := range postcode {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidPostcode reports whether the input normalizes to exactly five digits.
func ValidPostcode(postcode string) bool {
	return len(NormalizePostcode(postcode)) == 5
}
