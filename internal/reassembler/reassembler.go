package reassembler

import (
	"context"
	"fmt"

	"ddos-reassembler/internal/fingerprint"
	"ddos-reassembler/internal/logging"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type State int

const (
	StateLoaded State = iota
	StateTargetResolved
	StateReassembled
	StateGroundTruthEnriched
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateTargetResolved:
		return "target_resolved"
	case StateReassembled:
		return "reassembled"
	case StateGroundTruthEnriched:
		return "ground_truth_enriched"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Persister stores a finished summary, e.g. on disk or in a database.
type Persister interface {
	Write(ctx context.Context, s *Summary) error
}

// Reassembler runs one reassembly over one observation table. The table is owned by
// the instance; a new run needs a new Reassembler.
type Reassembler struct {
	opts    Options
	table   []fingerprint.Observation
	target  string
	state   State
	drop    float64
	summary *Summary
	runID   string
	logger  *logrus.Entry
}

// FromFingerprints validates and normalizes fps and resolves the target. Documents
// that break the schema constraints fail with *fingerprint.MalformedFingerprintError.
func FromFingerprints(fps []fingerprint.Fingerprint, opts Options) (*Reassembler, error) {
	for i := range fps {
		if err := fps[i].EnsureKey(); err != nil {
			return nil, err
		}
		if err := fingerprint.Validate(&fps[i]); err != nil {
			return nil, err
		}
	}
	table, err := fingerprint.FlattenAll(fps)
	if err != nil {
		return nil, err
	}
	return New(table, opts)
}

// New takes ownership of table and detects the attack target. It fails with
// ErrNoTargetFound when no self-observation clears the target threshold.
func New(table []fingerprint.Observation, opts Options) (*Reassembler, error) {
	if len(table) == 0 {
		return nil, ErrMissingData
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	runID := uuid.NewString()
	r := &Reassembler{
		opts:   opts,
		table:  table,
		state:  StateLoaded,
		runID:  runID,
		logger: logging.GetReassemblerLogger().WithField("run_id", runID),
	}

	target, err := DetectTarget(table, opts.TargetThreshold)
	if err != nil {
		r.state = StateFailed
		r.logger.WithError(err).Error("Target detection failed")
		return nil, err
	}
	r.target = target
	r.state = StateTargetResolved

	r.logger.WithFields(logrus.Fields{
		"target":       target,
		"observations": len(table),
	}).Info("Target resolved")
	return r, nil
}

func (r *Reassembler) Target() string { return r.target }

func (r *Reassembler) State() State { return r.state }

func (r *Reassembler) RunID() string { return r.runID }

// Summary returns nil until Reassemble succeeded.
func (r *Reassembler) Summary() *Summary { return r.summary }

// Observations returns a copy of the current table.
func (r *Reassembler) Observations() []fingerprint.Observation {
	return append([]fingerprint.Observation(nil), r.table...)
}

// Drop removes a fraction p of the non-target fingerprints before reassembly and
// returns the removed keys. The same seed over the same table always drops the same
// keys.
func (r *Reassembler) Drop(p float64, seed int64) ([]string, error) {
	if r.state != StateTargetResolved {
		return nil, fmt.Errorf("%w: cannot drop fingerprints in state %s", ErrInvalidTransition, r.state)
	}

	kept, dropped, err := DropFingerprints(r.table, r.target, p, seed)
	if err != nil {
		return nil, err
	}
	r.table = kept
	r.drop = p

	r.logger.WithFields(logrus.Fields{
		"fraction":     p,
		"seed":         seed,
		"dropped_keys": len(dropped),
		"observations": len(kept),
	}).Info("Dropped fingerprints")
	return dropped, nil
}

// Reassemble runs hop estimation, aggregation, filtering and spoofing estimation and
// builds the summary.
func (r *Reassembler) Reassemble() (*Summary, error) {
	if r.state != StateTargetResolved {
		return nil, fmt.Errorf("%w: cannot reassemble in state %s", ErrInvalidTransition, r.state)
	}

	view := viewAtTarget(r.table, r.target)
	nodes := aggregateNodes(r.table, r.target, view, r.opts.Simulated)
	filtered := FilterNodes(nodes, r.opts.MinDurationSeconds)

	summary := buildSummary(r.target, view, filtered, r.opts)
	summary.Meta = RunMeta{
		RunID:          r.runID,
		SchemaVersion:  fingerprint.SchemaVersion,
		DropFraction:   r.drop,
		NrFingerprints: countKeys(r.table),
		NrObservations: len(r.table),
	}

	r.summary = summary
	r.state = StateReassembled

	r.logger.WithFields(logrus.Fields{
		"target":             r.target,
		"intermediate_nodes": summary.IntermediateNodes.NrIntermediateNodes,
		"discarded_nodes":    summary.IntermediateNodes.Discarded,
		"nr_sources":         summary.Sources.NrSources,
		"pct_spoofed":        summary.Sources.PctSpoofed,
	}).Info("Reassembly completed")
	return summary, nil
}

// AddGroundTruth attaches simulation ground truth to the summary. target and sources
// are the true identities known to the simulator. Fingerprints without attack labels
// leave the summary unchanged.
func (r *Reassembler) AddGroundTruth(target string, sources []string) error {
	switch r.state {
	case StateReassembled:
	case StateGroundTruthEnriched:
		return fmt.Errorf("%w: ground truth already added", ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: state is %s", ErrPrecededState, r.state)
	}

	gt, ok := buildGroundTruth(r.table, r.target, target, sources)
	if !ok {
		r.logger.Warn("Fingerprints carry no attack labels, ground truth unavailable")
		return nil
	}
	r.summary.GroundTruth = gt
	r.state = StateGroundTruthEnriched

	r.logger.WithFields(logrus.Fields{
		"nr_attack_av":                  gt.NrAttackAV,
		"nr_background_av":              gt.NrBackgroundAV,
		"nr_locations_observing_attack": gt.NrLocationsObservingAttack,
		"target_match":                  gt.Target == r.target,
	}).Info("Ground truth added")
	return nil
}

// Persist computes the content key of the summary and hands it to every persister.
func (r *Reassembler) Persist(ctx context.Context, persisters ...Persister) error {
	if r.state != StateReassembled && r.state != StateGroundTruthEnriched {
		return fmt.Errorf("%w: state is %s", ErrPrecededState, r.state)
	}
	if err := r.summary.ComputeKey(); err != nil {
		return fmt.Errorf("compute summary key: %w", err)
	}
	for _, p := range persisters {
		if err := p.Write(ctx, r.summary); err != nil {
			return err
		}
	}
	r.logger.WithFields(logrus.Fields{
		"key":   r.summary.Key,
		"sinks": len(persisters),
	}).Info("Summary persisted")
	return nil
}

func countKeys(table []fingerprint.Observation) int {
	keys := make(map[string]struct{})
	for _, o := range table {
		keys[o.Key] = struct{}{}
	}
	return len(keys)
}
