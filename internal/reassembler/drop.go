package reassembler

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"ddos-reassembler/internal/fingerprint"
)

// DropFingerprints models partial capture loss. It removes floor(p * n) of the n
// distinct fingerprint keys not recorded at the target location, chosen uniformly at
// random from a source seeded with seed. Observations made at the target are never
// removed because target detection depends on them. It returns the remaining table
// and the dropped keys.
func DropFingerprints(table []fingerprint.Observation, target string, p float64, seed int64) ([]fingerprint.Observation, []string, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, nil, fmt.Errorf("%w: got %v", ErrInvalidDropFraction, p)
	}

	protected := make(map[string]struct{})
	candidates := make(map[string]struct{})
	for _, o := range table {
		if o.Location == target {
			protected[o.Key] = struct{}{}
		} else {
			candidates[o.Key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(candidates))
	for k := range candidates {
		// a key shared with a target observation would take target rows with it
		if _, ok := protected[k]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := int(math.Floor(p * float64(len(keys))))
	if n == 0 {
		return table, nil, nil
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	dropped := keys[:n]
	sort.Strings(dropped)

	drop := make(map[string]struct{}, n)
	for _, k := range dropped {
		drop[k] = struct{}{}
	}

	kept := make([]fingerprint.Observation, 0, len(table))
	for _, o := range table {
		if _, ok := drop[o.Key]; ok {
			continue
		}
		kept = append(kept, o)
	}
	return kept, dropped, nil
}
