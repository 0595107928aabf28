package reassembler

import (
	"ddos-reassembler/internal/fingerprint"
)

// GroundTruth compares the reassembled view with what the simulation knows. It is
// only available when fingerprints carry the is_attack label.
type GroundTruth struct {
	NrAttackAV                 int      `json:"nr_attack_av"`
	NrBackgroundAV             int      `json:"nr_background_av"`
	NrParticipatingNodes       int      `json:"nr_participating_nodes"`
	NrLocationsObservingAttack int      `json:"nr_locations_observing_attack"`
	Sources                    []string `json:"sources"`
	Target                     string   `json:"target"`
}

// buildGroundTruth returns false when no observation is labeled.
func buildGroundTruth(table []fingerprint.Observation, detected, target string, sources []string) (*GroundTruth, bool) {
	gt := &GroundTruth{
		Sources: append([]string{}, sources...),
		Target:  target,
	}

	labeled := false
	locations := make(map[string]struct{})
	observing := make(map[string]struct{})
	for _, o := range table {
		locations[o.Location] = struct{}{}
		if o.IsAttack == nil {
			gt.NrBackgroundAV++
			continue
		}
		labeled = true
		if !*o.IsAttack {
			gt.NrBackgroundAV++
			continue
		}
		gt.NrAttackAV++
		if o.Location != detected {
			observing[o.Location] = struct{}{}
		}
	}
	if !labeled {
		return nil, false
	}

	gt.NrParticipatingNodes = len(locations)
	gt.NrLocationsObservingAttack = len(observing)
	return gt, true
}
