package reassembler

import (
	"math"
	"time"

	"ddos-reassembler/internal/dataframe"
	"ddos-reassembler/internal/fingerprint"
)

// targetView collects what the target itself recorded about the attack.
type targetView struct {
	rows         []fingerprint.Observation
	ttlsBySource map[string][]int
	packets      float64
}

func viewAtTarget(table []fingerprint.Observation, target string) targetView {
	v := targetView{ttlsBySource: make(map[string][]int)}
	for _, o := range table {
		if o.Location != target || o.Target != target {
			continue
		}
		v.rows = append(v.rows, o)
		v.ttlsBySource[o.SourceIP] = append(v.ttlsBySource[o.SourceIP], o.TTLSamples...)
		v.packets += o.NrPackets
	}
	return v
}

type nodeAccumulator struct {
	packets   dataframe.Sum
	hops      dataframe.Mean
	threshold dataframe.Min[float64]
	window    dataframe.TimeRange
	distance  dataframe.Min[int]
}

// aggregateNodes reduces every observation made toward the target at another location
// into one IntermediateNode per location. Locations without a single hop estimate are
// left out.
func aggregateNodes(table []fingerprint.Observation, target string, view targetView, simulated bool) []IntermediateNode {
	groups := dataframe.GroupBy(table,
		func(o fingerprint.Observation) (string, bool) {
			return o.Location, o.Target == target && o.Location != target
		},
		func(string) *nodeAccumulator { return &nodeAccumulator{} },
		func(acc *nodeAccumulator, o fingerprint.Observation) {
			acc.packets.Add(o.NrPackets)
			acc.threshold.Add(o.DetectionThreshold)
			acc.window.Add(o.TimeStart, o.TimeEnd())
			if o.Distance != nil {
				acc.distance.Add(*o.Distance)
			}
			if ttls, ok := view.ttlsBySource[o.SourceIP]; ok {
				if d, ok := HopDistance(o.TTLSamples, ttls); ok {
					acc.hops.Add(d)
				}
			}
		})

	nodes := make([]IntermediateNode, 0, groups.Len())
	groups.Each(func(location string, acc *nodeAccumulator) {
		meanHops, ok := acc.hops.Value()
		if !ok {
			return
		}
		threshold, _ := acc.threshold.Value()

		node := IntermediateNode{
			Location:           location,
			NrPackets:          acc.packets.Value(),
			HopsToTarget:       int(math.RoundToEven(meanHops)),
			DetectionThreshold: threshold,
			TimeStart:          acc.window.Start(),
			TimeEnd:            acc.window.End(),
			DurationSeconds:    acc.window.Duration().Seconds(),
		}
		if view.packets > 0 {
			node.FractionOfTotalAttack = node.NrPackets / view.packets
		}
		if d, ok := acc.distance.Value(); ok && simulated {
			diff := node.HopsToTarget - d
			node.Distance = &d
			node.InferredDistanceDiff = &diff
		}
		nodes = append(nodes, node)
	})
	return nodes
}

// IntermediateNode summarises one location that saw traffic toward the target in
// transit.
type IntermediateNode struct {
	Location              string    `json:"location"`
	NrPackets             float64   `json:"nr_packets"`
	HopsToTarget          int       `json:"hops_to_target"`
	DetectionThreshold    float64   `json:"detection_threshold"`
	TimeStart             time.Time `json:"time_start"`
	TimeEnd               time.Time `json:"time_end"`
	DurationSeconds       float64   `json:"duration_seconds"`
	FractionOfTotalAttack float64   `json:"fraction_of_total_attack"`
	Distance              *int      `json:"distance,omitempty"`
	InferredDistanceDiff  *int      `json:"inferred_distance_diff,omitempty"`
}
