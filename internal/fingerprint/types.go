package fingerprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion identifies the fingerprint document layout understood by this package.
// Simulation-only fields (distance, is_attack, source_ips_real) are optional in it.
const SchemaVersion = 1

// Fingerprint is the record one vantage point produces about traffic it observed
// toward a claimed target.
type Fingerprint struct {
	Key           string         `json:"key,omitempty"`
	Location      string         `json:"location" validate:"required"`
	Target        string         `json:"target" validate:"required"`
	Distance      *int           `json:"distance,omitempty" validate:"omitempty,min=0"`
	AttackVectors []AttackVector `json:"attack_vectors" validate:"required,min=1,dive"`
}

// AttackVector is one traffic class observed toward the target. The per-source maps are
// keyed by source identifier (the claimed, possibly spoofed, sender address).
type AttackVector struct {
	Service            *string            `json:"service"`
	Protocol           string             `json:"protocol"`
	SourceIPs          []string           `json:"source_ips" validate:"required,min=1"`
	SourceIPsReal      map[string]string  `json:"source_ips_real,omitempty"`
	TTL                map[string]float64 `json:"ttl"`
	TTLBySource        map[string][]int   `json:"ttl_by_source"`
	TimeStart          Timestamp          `json:"time_start"`
	DurationSeconds    float64            `json:"duration_seconds" validate:"gt=0"`
	NrPackets          float64            `json:"nr_packets" validate:"min=0"`
	NrPacketsBySource  map[string]float64 `json:"nr_packets_by_source"`
	NrMegabytes        float64            `json:"nr_megabytes" validate:"min=0"`
	DetectionThreshold float64            `json:"detection_threshold" validate:"min=0,max=1"`
	IsAttack           *bool              `json:"is_attack,omitempty"`
}

// Observation is one (location, target, source) row of the normalized table.
type Observation struct {
	Key                string
	Location           string
	Target             string
	SourceIP           string
	SourceIPReal       string
	TTLSamples         []int
	NrPackets          float64
	NrMegabytes        float64
	DurationSeconds    float64
	TimeStart          time.Time
	DetectionThreshold float64
	Service            string
	Protocol           string
	IsAttack           *bool
	Distance           *int
}

func (o Observation) TimeEnd() time.Time {
	return o.TimeStart.Add(time.Duration(o.DurationSeconds * float64(time.Second)))
}

// IsSelfObservation reports whether the row was recorded at the destination itself.
func (o Observation) IsSelfObservation() bool {
	return o.Location == o.Target
}

// Timestamp accepts RFC 3339 as well as the zone-less ISO 8601 form emitted by the
// simulator. Zone-less values are taken as UTC.
type Timestamp struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("time_start must not be null")
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	ts.Time = t
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.Time.UTC().Format(time.RFC3339Nano))
}
