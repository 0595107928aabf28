// Package evaluation measures how reassembly degrades when fingerprints go missing.
package evaluation

import (
	"fmt"
	"math"
	"sync"

	"ddos-reassembler/internal/fingerprint"
	"ddos-reassembler/internal/logging"
	"ddos-reassembler/internal/reassembler"

	"github.com/sirupsen/logrus"
)

// Truth identifies the simulated attack. An empty Target disables the comparison.
type Truth struct {
	Target  string
	Sources []string
}

// DropResult is one point of a drop sweep.
type DropResult struct {
	Fraction       float64 `json:"fraction"`
	DroppedKeys    int     `json:"dropped_keys"`
	NrFingerprints int     `json:"nr_fingerprints"`
	Estimated      int     `json:"estimated"`
	Discarded      int     `json:"discarded"`
	// GroundTruth is the number of locations that really observed attack traffic.
	GroundTruth *int  `json:"ground_truth,omitempty"`
	TargetMatch *bool `json:"target_match,omitempty"`
}

// DiscardedRelative is the share of aggregated nodes the filter removed.
func (r DropResult) DiscardedRelative() float64 {
	total := r.Estimated + r.Discarded
	if total == 0 {
		return 0
	}
	return float64(r.Discarded) / float64(total)
}

// DefaultFractions are 0.0, 0.1, ..., 0.9.
func DefaultFractions() []float64 {
	fractions := make([]float64, 10)
	for i := range fractions {
		fractions[i] = math.Round(float64(i)*0.1*10) / 10
	}
	return fractions
}

// DropSweep reassembles fps once per fraction, each time from a fresh table with the
// same seed. Up to workers runs execute at once; results keep the order of fractions.
func DropSweep(fps []fingerprint.Fingerprint, opts reassembler.Options, fractions []float64, seed int64, truth Truth, workers int) ([]DropResult, error) {
	if workers < 1 {
		workers = 1
	}
	logger := logging.GetLogger()

	// runs only read fps once every key is set
	for i := range fps {
		if err := fps[i].EnsureKey(); err != nil {
			return nil, err
		}
	}

	results := make([]DropResult, len(fractions))
	errs := make([]error, len(fractions))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, p := range fractions {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p float64) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = runOnce(fps, opts, p, seed, truth)
		}(i, p)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("drop fraction %v: %w", fractions[i], err)
		}
	}

	logger.WithFields(logrus.Fields{
		"points":  len(results),
		"seed":    seed,
		"workers": workers,
	}).Info("Drop sweep completed")
	return results, nil
}

func runOnce(fps []fingerprint.Fingerprint, opts reassembler.Options, p float64, seed int64, truth Truth) (DropResult, error) {
	res := DropResult{Fraction: p}

	r, err := reassembler.FromFingerprints(fps, opts)
	if err != nil {
		return res, err
	}
	dropped, err := r.Drop(p, seed)
	if err != nil {
		return res, err
	}
	s, err := r.Reassemble()
	if err != nil {
		return res, err
	}

	res.DroppedKeys = len(dropped)
	res.NrFingerprints = s.Meta.NrFingerprints
	res.Estimated = s.IntermediateNodes.NrIntermediateNodes
	res.Discarded = s.IntermediateNodes.Discarded

	if truth.Target == "" {
		return res, nil
	}
	if err := r.AddGroundTruth(truth.Target, truth.Sources); err != nil {
		return res, err
	}
	if gt := r.Summary().GroundTruth; gt != nil {
		observing := gt.NrLocationsObservingAttack
		match := gt.Target == s.Target.IP
		res.GroundTruth = &observing
		res.TargetMatch = &match
	}
	return res, nil
}
