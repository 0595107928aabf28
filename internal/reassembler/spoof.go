package reassembler

import (
	"ddos-reassembler/internal/dataframe"
)

// SourceStats describes the sender population seen by the target.
type SourceStats struct {
	NrSources  int     `json:"nr_sources"`
	PctSpoofed float64 `json:"pct_spoofed"`
	// MeanHopsToTarget is the average path length from the senders, inferred from the
	// TTLs recorded at the target. Absent when no sample maps to a canonical TTL.
	MeanHopsToTarget *float64 `json:"mean_hops_to_target,omitempty"`
}

// EstimateSpoofing treats a source address that reached the target with at least
// minDistinct different TTLs as an aggregate of several physical senders.
func EstimateSpoofing(ttlsBySource map[string][]int, minDistinct int) SourceStats {
	var stats SourceStats
	var hops dataframe.Mean

	spoofed := 0
	for _, ttls := range ttlsBySource {
		distinct := make(map[int]struct{}, len(ttls))
		for _, ttl := range ttls {
			distinct[ttl] = struct{}{}
			if h, ok := Hops(ttl); ok {
				hops.Add(float64(h))
			}
		}
		if len(distinct) >= minDistinct {
			spoofed++
		}
	}

	stats.NrSources = len(ttlsBySource)
	if stats.NrSources > 0 {
		stats.PctSpoofed = float64(spoofed) / float64(stats.NrSources)
	}
	if mean, ok := hops.Value(); ok {
		stats.MeanHopsToTarget = &mean
	}
	return stats
}
