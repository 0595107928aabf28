package reassembler

import (
	"fmt"

	"ddos-reassembler/internal/dataframe"
	"ddos-reassembler/internal/fingerprint"
)

type targetCandidate struct {
	packets dataframe.Sum
	minKey  dataframe.Min[string]
}

// DetectTarget returns the location that received the most packets among
// self-observations whose detection threshold is at least threshold. Equal volumes go
// to the location with the lexicographically smallest fingerprint key.
func DetectTarget(table []fingerprint.Observation, threshold float64) (string, error) {
	candidates := dataframe.GroupBy(table,
		func(o fingerprint.Observation) (string, bool) {
			return o.Location, o.IsSelfObservation() && o.DetectionThreshold >= threshold
		},
		func(string) *targetCandidate { return &targetCandidate{} },
		func(c *targetCandidate, o fingerprint.Observation) {
			c.packets.Add(o.NrPackets)
			c.minKey.Add(o.Key)
		})

	if candidates.Len() == 0 {
		return "", fmt.Errorf("%w (threshold %.2f)", ErrNoTargetFound, threshold)
	}

	var (
		best        string
		bestPackets float64
		bestKey     string
		found       bool
	)
	candidates.Each(func(location string, c *targetCandidate) {
		packets := c.packets.Value()
		key, _ := c.minKey.Value()
		if !found || packets > bestPackets || (packets == bestPackets && key < bestKey) {
			best, bestPackets, bestKey, found = location, packets, key, true
		}
	})
	return best, nil
}
