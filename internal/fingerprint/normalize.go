package fingerprint

import (
	"fmt"
)

// Flatten turns one fingerprint into one Observation per (source, attack vector).
// Fingerprint level fields are copied onto every row.
func Flatten(fp Fingerprint) ([]Observation, error) {
	var rows []Observation

	for i, av := range fp.AttackVectors {
		service := ""
		if av.Service != nil {
			service = *av.Service
		}

		for _, src := range av.SourceIPs {
			ttls, ok := av.TTLBySource[src]
			if !ok {
				return nil, &MalformedFingerprintError{Key: fp.Key, Source: src, Field: "ttl_by_source",
					Reason: fmt.Sprintf("attack vector %d lists the source without TTL samples", i)}
			}
			if len(ttls) == 0 {
				return nil, &MalformedFingerprintError{Key: fp.Key, Source: src, Field: "ttl_by_source",
					Reason: "empty TTL sample list"}
			}
			for _, ttl := range ttls {
				if ttl <= 0 || ttl > MaxTTL {
					return nil, &MalformedFingerprintError{Key: fp.Key, Source: src, Field: "ttl_by_source",
						Reason: fmt.Sprintf("TTL %d outside (0, %d]", ttl, MaxTTL)}
				}
			}

			packets, ok := av.NrPacketsBySource[src]
			if !ok {
				return nil, &MalformedFingerprintError{Key: fp.Key, Source: src, Field: "nr_packets_by_source",
					Reason: fmt.Sprintf("attack vector %d lists the source without a packet count", i)}
			}

			samples := make([]int, len(ttls))
			copy(samples, ttls)

			rows = append(rows, Observation{
				Key:                fp.Key,
				Location:           fp.Location,
				Target:             fp.Target,
				SourceIP:           src,
				SourceIPReal:       av.SourceIPsReal[src],
				TTLSamples:         samples,
				NrPackets:          packets,
				NrMegabytes:        av.NrMegabytes,
				DurationSeconds:    av.DurationSeconds,
				TimeStart:          av.TimeStart.Time,
				DetectionThreshold: av.DetectionThreshold,
				Service:            service,
				Protocol:           av.Protocol,
				IsAttack:           av.IsAttack,
				Distance:           fp.Distance,
			})
		}
	}

	return rows, nil
}

// FlattenAll normalizes a whole fingerprint set into one observation table.
func FlattenAll(fps []Fingerprint) ([]Observation, error) {
	if len(fps) == 0 {
		return nil, ErrMissingData
	}

	var table []Observation
	for _, fp := range fps {
		rows, err := Flatten(fp)
		if err != nil {
			return nil, err
		}
		table = append(table, rows...)
	}
	return table, nil
}
