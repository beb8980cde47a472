package refunds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocateDiscount(t *testing.T) {
	tests := []struct {
		name       string
		lineTotals []int
		discount   int
		want       []int
	}{
		{"even thirds with remainder", []int{3333, 3333, 3334}, 1000, []int{333, 333, 334}},
		{"single line takes all", []int{10000}, 1000, []int{1000}},
		{"zero discount", []int{5000, 5000}, 0, []int{0, 0}},
		{"skewed lines", []int{999, 1}, 10, []int{10, 0}},
		{"discount clamped to subtotal", []int{300, 200}, 1000, []int{300, 200}},
		{"zero-value line gets nothing", []int{5000, 0}, 500, []int{500, 0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AllocateDiscount(tc.lineTotals, tc.discount)
			assert.Equal(t, tc.want, got)

			sum := 0
			for _, v := range got {
				sum += v
			}
			want := tc.discount
			subtotal := 0
			for _, v := range tc.lineTotals {
				subtotal += v
			}
			if want > subtotal {
				want = subtotal
			}
			if want < 0 {
				want = 0
			}
			assert.Equal(t, want, sum, "allocations must sum to the discount")
		})
	}
}
