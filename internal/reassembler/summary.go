package reassembler

import (
	"sort"
	"time"

	"ddos-reassembler/internal/dataframe"
	"ddos-reassembler/internal/fingerprint"
)

// Summary is the reassembled view of one attack.
type Summary struct {
	Key               string            `json:"key,omitempty"`
	Attack            AttackWindow      `json:"attack"`
	Target            TargetInfo        `json:"target"`
	IntermediateNodes IntermediateNodes `json:"intermediate_nodes"`
	Sources           SourceStats       `json:"sources"`
	GroundTruth       *GroundTruth      `json:"ground_truth,omitempty"`
	Meta              RunMeta           `json:"meta"`
}

type AttackWindow struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	Service         *string   `json:"service"`
	Protocol        string    `json:"protocol"`
}

type TargetInfo struct {
	IP                 string  `json:"ip"`
	DetectionThreshold float64 `json:"detection_threshold"`
}

type IntermediateNodes struct {
	Discarded           int                 `json:"discarded_intermediate_nodes"`
	NrIntermediateNodes int                 `json:"nr_intermediate_nodes"`
	DetectionThreshold  map[string]*float64 `json:"detection_threshold"`
	KeyNodes            []IntermediateNode  `json:"key_nodes"`
}

// RunMeta records how the input looked when the summary was produced. RunID is only
// used to tag exported records and is not part of the content key.
type RunMeta struct {
	RunID          string  `json:"-"`
	SchemaVersion  int     `json:"schema_version"`
	DropFraction   float64 `json:"drop_fraction"`
	NrFingerprints int     `json:"nr_fingerprints"`
	NrObservations int     `json:"nr_observations"`
}

// ComputeKey stores the content key of the summary in Key.
func (s *Summary) ComputeKey() error {
	s.Key = ""
	key, err := fingerprint.KeyOf(s)
	if err != nil {
		return err
	}
	s.Key = key
	return nil
}

func buildAttackWindow(view targetView) (AttackWindow, TargetInfo) {
	var (
		window    dataframe.TimeRange
		duration  dataframe.Mean
		threshold dataframe.Mean
		services  dataframe.Counter[string]
		protocols dataframe.Counter[string]
	)
	for _, o := range view.rows {
		window.Add(o.TimeStart, o.TimeEnd())
		duration.Add(o.DurationSeconds)
		threshold.Add(o.DetectionThreshold)
		if o.Service != "" {
			services.Add(o.Service)
		}
		if o.Protocol != "" {
			protocols.Add(o.Protocol)
		}
	}

	attack := AttackWindow{
		StartTime: window.Start(),
		EndTime:   window.End(),
	}
	attack.DurationSeconds, _ = duration.Value()
	if svc, ok := services.Mode(); ok {
		attack.Service = &svc
	}
	attack.Protocol, _ = protocols.Mode()

	var info TargetInfo
	info.DetectionThreshold, _ = threshold.Value()
	return attack, info
}

// sortKeyNodes orders nodes by descending packet volume, then ascending hop distance.
func sortKeyNodes(nodes []IntermediateNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].NrPackets != nodes[j].NrPackets {
			return nodes[i].NrPackets > nodes[j].NrPackets
		}
		if nodes[i].HopsToTarget != nodes[j].HopsToTarget {
			return nodes[i].HopsToTarget < nodes[j].HopsToTarget
		}
		return nodes[i].Location < nodes[j].Location
	})
}

func buildSummary(target string, view targetView, filtered FilterResult, opts Options) *Summary {
	attack, info := buildAttackWindow(view)
	info.IP = target

	keyNodes := append([]IntermediateNode{}, filtered.Retained...)
	sortKeyNodes(keyNodes)

	thresholds := make([]float64, 0, len(keyNodes))
	for _, n := range keyNodes {
		thresholds = append(thresholds, n.DetectionThreshold)
	}

	return &Summary{
		Attack: attack,
		Target: info,
		IntermediateNodes: IntermediateNodes{
			Discarded:           filtered.Discarded,
			NrIntermediateNodes: len(keyNodes),
			DetectionThreshold:  percentileTable(thresholds, opts.Percentiles),
			KeyNodes:            keyNodes,
		},
		Sources: EstimateSpoofing(view.ttlsBySource, opts.SpoofMinDistinctTTLs),
	}
}
