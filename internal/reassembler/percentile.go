package reassembler

import (
	"math"
	"sort"
	"strconv"
)

// Percentile interpolates linearly between the closest order statistics. values does
// not need to be sorted.
func Percentile(values []float64, p float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo], true
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo)), true
}

// percentileTable maps "25", "50", ... to the percentile value, or nil when there
// were no values.
func percentileTable(values []float64, percentiles []float64) map[string]*float64 {
	table := make(map[string]*float64, len(percentiles))
	for _, p := range percentiles {
		label := strconv.FormatFloat(p, 'f', -1, 64)
		if v, ok := Percentile(values, p); ok {
			table[label] = &v
		} else {
			table[label] = nil
		}
	}
	return table
}
