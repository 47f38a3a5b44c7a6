package split

import (
	"sort"

	"github.com/shopspring/decimal"
)

// allocate distributes units across weights with the largest-remainder
// method: every share is floored, then the shortfall is handed out one unit at
// a time to the shares with the largest fractional remainder. Ties go to the
// earlier index. The result always sums to units.
//
// A zero weight sum yields all zeros.
func allocate(units int64, weights []decimal.Decimal) []int64 {
	out := make([]int64, len(weights))
	if len(weights) == 0 || units <= 0 {
		return out
	}

	sumW := decimal.Zero
	for _, w := range weights {
		sumW = sumW.Add(w)
	}
	if !sumW.IsPositive() {
		return out
	}

	total := decimal.NewFromInt(units)
	remainders := make([]decimal.Decimal, len(weights))
	var floored int64
	for i, w := range weights {
		exact := total.Mul(w).Div(sumW)
		base := exact.Floor()
		out[i] = base.IntPart()
		remainders[i] = exact.Sub(base)
		floored += out[i]
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})

	for k := int64(0); k < units-floored; k++ {
		out[order[int(k)%len(order)]]++
	}
	return out
}
