package reassembler

import (
	"fmt"
	"time"

	"ddos-reassembler/internal/fingerprint"
)

var testStart = time.Date(2023, 5, 4, 10, 0, 0, 0, time.UTC)

// obsRow describes one observation; offset and duration are in seconds.
type obsRow struct {
	key       string
	location  string
	target    string
	source    string
	ttls      []int
	packets   float64
	offset    float64
	duration  float64
	threshold float64
	attack    *bool
	distance  *int
	service   string
}

func (o obsRow) build() fingerprint.Observation {
	target := o.target
	if target == "" {
		target = "T"
	}
	key := o.key
	if key == "" {
		key = fmt.Sprintf("fp-%s-%s", o.location, target)
	}
	threshold := o.threshold
	if threshold == 0 {
		threshold = 1
	}
	duration := o.duration
	if duration == 0 {
		duration = 120
	}
	return fingerprint.Observation{
		Key:                key,
		Location:           o.location,
		Target:             target,
		SourceIP:           o.source,
		TTLSamples:         o.ttls,
		NrPackets:          o.packets,
		DurationSeconds:    duration,
		TimeStart:          testStart.Add(time.Duration(o.offset * float64(time.Second))),
		DetectionThreshold: threshold,
		Protocol:           "TCP",
		Service:            o.service,
		IsAttack:           o.attack,
		Distance:           o.distance,
	}
}

func table(rows ...obsRow) []fingerprint.Observation {
	out := make([]fingerprint.Observation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.build())
	}
	return out
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

// selfFingerprint is a document recorded at the target itself.
func selfFingerprint(duration, threshold float64) fingerprint.Fingerprint {
	return fingerprint.Fingerprint{
		Location: "T",
		Target:   "T",
		AttackVectors: []fingerprint.AttackVector{{
			Protocol:           "TCP",
			SourceIPs:          []string{"s1"},
			TTL:                map[string]float64{"64": 1},
			TTLBySource:        map[string][]int{"s1": {64}},
			TimeStart:          fingerprint.Timestamp{Time: testStart},
			DurationSeconds:    duration,
			NrPackets:          1000,
			NrPacketsBySource:  map[string]float64{"s1": 1000},
			DetectionThreshold: threshold,
		}},
	}
}
