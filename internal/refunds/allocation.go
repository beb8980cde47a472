package refunds

// AllocateDiscount spreads a whole-order discount across line totals so each
// line's refundable amount reflects what the buyer actually paid for it.
// Shares are proportional with largest-remainder distribution of the leftover
// cents, so the allocations always sum exactly to the discount.
func AllocateDiscount(lineTotals []int, discountCents int) []int {
	alloc := make([]int, len(lineTotals))
	if discountCents <= 0 || len(lineTotals) == 0 {
		return alloc
	}

	subtotal := 0
	for _, total := range lineTotals {
		if total > 0 {
			subtotal += total
		}
	}
	if subtotal == 0 {
		return alloc
	}
	if discountCents > subtotal {
		discountCents = subtotal
	}

	remainders := make([]int, len(lineTotals))
	allocated := 0
	for i, total := range lineTotals {
		if total <= 0 {
			continue
		}
		scaled := total * discountCents
		alloc[i] = scaled / subtotal
		remainders[i] = scaled % subtotal
		allocated += alloc[i]
	}

	// Hand the leftover cents to the largest remainders, never exceeding a
	// line's total.
	for leftover := discountCents - allocated; leftover > 0; leftover-- {
		best := -1
		for i := range lineTotals {
			if alloc[i] >= lineTotals[i] {
				continue
			}
			if best == -1 || remainders[i] > remainders[best] {
				best = i
			}
		}
		if best == -1 {
			break
		}
		alloc[best]++
		remainders[best] = -1
	}
	return alloc
}
