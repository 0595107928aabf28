package reassembler

import (
	"fmt"
)

const (
	DefaultTargetThreshold      = 0.5
	DefaultMinDurationSeconds   = 60.0
	DefaultSpoofMinDistinctTTLs = 2
)

// DefaultPercentiles are reported for the detection thresholds of retained nodes.
var DefaultPercentiles = []float64{25, 50, 75}

// Options tunes the inference heuristics of one run.
type Options struct {
	// TargetThreshold is the minimum detection threshold a self-observation needs to be
	// considered during target detection.
	TargetThreshold float64
	// MinDurationSeconds discards intermediate nodes whose observed activity lasted no
	// longer than this.
	MinDurationSeconds float64
	// SpoofMinDistinctTTLs is the number of distinct TTLs at the target from which a
	// source address counts as shared by several senders.
	SpoofMinDistinctTTLs int
	Percentiles          []float64
	// Simulated adds the ground-truth distance columns to key nodes when fingerprints
	// carry them.
	Simulated bool
}

func DefaultOptions() Options {
	return Options{
		TargetThreshold:      DefaultTargetThreshold,
		MinDurationSeconds:   DefaultMinDurationSeconds,
		SpoofMinDistinctTTLs: DefaultSpoofMinDistinctTTLs,
		Percentiles:          append([]float64(nil), DefaultPercentiles...),
	}
}

func (o Options) Validate() error {
	if o.TargetThreshold < 0 || o.TargetThreshold > 1 {
		return fmt.Errorf("target threshold %v outside [0, 1]", o.TargetThreshold)
	}
	if o.MinDurationSeconds < 0 {
		return fmt.Errorf("min duration %v must not be negative", o.MinDurationSeconds)
	}
	if o.SpoofMinDistinctTTLs < 2 {
		return fmt.Errorf("spoof heuristic needs at least 2 distinct TTLs, got %d", o.SpoofMinDistinctTTLs)
	}
	for _, p := range o.Percentiles {
		if p < 0 || p > 100 {
			return fmt.Errorf("percentile %v outside [0, 100]", p)
		}
	}
	return nil
}
