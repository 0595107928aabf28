package reassembler

import (
	"ddos-reassembler/internal/fingerprint"
)

// CanonicalTTLs are the initial TTL values operating systems commonly start from.
var CanonicalTTLs = []int{32, 64, 128, 255}

// InferInitialTTL rounds an observed TTL up to the nearest canonical initial value.
// It returns 0 for values that cannot be a TTL.
func InferInitialTTL(ttl int) int {
	if ttl <= 0 || ttl > fingerprint.MaxTTL {
		return 0
	}
	for _, c := range CanonicalTTLs {
		if ttl <= c {
			return c
		}
	}
	return 0
}

// Hops estimates how many routers a packet crossed since it was sent, assuming it
// started from the nearest canonical TTL at or above the observed one.
func Hops(ttl int) (int, bool) {
	initial := InferInitialTTL(ttl)
	if initial == 0 {
		return 0, false
	}
	return initial - ttl, true
}

// HopDistance estimates how many hops separate an observing location from the target
// for one source. Each TTL sample at the location is paired with the largest sample
// the target recorded for the same source that is not larger. When the target only
// recorded larger values, the smallest of those sharing the sample's initial TTL is
// used instead. Samples without any partner are discarded. The result is the mean
// absolute TTL gap over the pairings, and false when there are none.
func HopDistance(atLocation, atTarget []int) (float64, bool) {
	total := 0
	pairs := 0
	for _, l := range atLocation {
		gap, ok := pairTTL(l, atTarget)
		if !ok {
			continue
		}
		total += gap
		pairs++
	}
	if pairs == 0 {
		return 0, false
	}
	return float64(total) / float64(pairs), true
}

func pairTTL(l int, atTarget []int) (int, bool) {
	below, above := -1, -1
	for _, t := range atTarget {
		switch {
		case t <= l:
			if t > below {
				below = t
			}
		case InferInitialTTL(t) == InferInitialTTL(l):
			if above < 0 || t < above {
				above = t
			}
		}
	}
	if below >= 0 {
		return l - below, true
	}
	if above >= 0 {
		return above - l, true
	}
	return 0, false
}
