package sink

import (
	"context"
	"fmt"
	"time"

	"ddos-reassembler/internal/config"
	"ddos-reassembler/internal/logging"
	"ddos-reassembler/internal/reassembler"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
)

const (
	summaryMeasurement = "reassembly_summary"
	nodeMeasurement    = "intermediate_node"
)

type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	org      string
}

func NewInfluxSink(ctx context.Context, cfg config.InfluxDBConfig) (*InfluxSink, error) {
	logger := logging.GetLogger()

	client := influxdb2.NewClient(cfg.Host, cfg.Token)

	// Test connection
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		logger.WithField("host", cfg.Host).WithError(err).Error("Failed to connect to InfluxDB")
		return nil, err
	}

	if health.Status != "pass" {
		client.Close()
		message := ""
		if health.Message != nil {
			message = *health.Message
		}
		logger.WithFields(logrus.Fields{
			"host":    cfg.Host,
			"status":  health.Status,
			"message": message,
		}).Error("InfluxDB health check failed")
		return nil, fmt.Errorf("influxdb health status %s", health.Status)
	}

	logger.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"bucket": cfg.Bucket,
		"org":    cfg.Org,
	}).Info("Connected to InfluxDB")

	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
		org:      cfg.Org,
	}, nil
}

func (idb *InfluxSink) Write(ctx context.Context, s *reassembler.Summary) error {
	if err := ensureKey(s); err != nil {
		return err
	}
	points := summaryPoints(s)
	if err := idb.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write data points: %w", err)
	}
	return nil
}

func (idb *InfluxSink) Close() error {
	idb.client.Close()
	return nil
}

// summaryPoints builds one reassembly_summary point at the attack start and one
// intermediate_node point per key node at the node's first observation.
func summaryPoints(s *reassembler.Summary) []*write.Point {
	tags := map[string]string{
		"summary_key": s.Key,
		"target":      s.Target.IP,
	}
	if s.Meta.RunID != "" {
		tags["run_id"] = s.Meta.RunID
	}

	fields := map[string]interface{}{
		"duration_seconds":             s.Attack.DurationSeconds,
		"target_detection_threshold":   s.Target.DetectionThreshold,
		"nr_intermediate_nodes":        s.IntermediateNodes.NrIntermediateNodes,
		"discarded_intermediate_nodes": s.IntermediateNodes.Discarded,
		"nr_sources":                   s.Sources.NrSources,
		"pct_spoofed":                  s.Sources.PctSpoofed,
		"drop_fraction":                s.Meta.DropFraction,
		"nr_fingerprints":              s.Meta.NrFingerprints,
		"protocol":                     s.Attack.Protocol,
	}
	if s.Attack.Service != nil {
		fields["service"] = *s.Attack.Service
	}
	for label, v := range s.IntermediateNodes.DetectionThreshold {
		if v != nil {
			fields["detection_threshold_p"+label] = *v
		}
	}
	if gt := s.GroundTruth; gt != nil {
		fields["gt_nr_attack_av"] = gt.NrAttackAV
		fields["gt_nr_locations_observing_attack"] = gt.NrLocationsObservingAttack
		fields["gt_target_match"] = gt.Target == s.Target.IP
	}

	points := make([]*write.Point, 0, 1+len(s.IntermediateNodes.KeyNodes))
	points = append(points, influxdb2.NewPoint(summaryMeasurement, tags, fields, s.Attack.StartTime))

	for rank, n := range s.IntermediateNodes.KeyNodes {
		nodeTags := map[string]string{
			"summary_key": s.Key,
			"target":      s.Target.IP,
			"location":    n.Location,
		}
		if s.Meta.RunID != "" {
			nodeTags["run_id"] = s.Meta.RunID
		}
		nodeFields := map[string]interface{}{
			"rank":                     rank,
			"nr_packets":               n.NrPackets,
			"hops_to_target":           n.HopsToTarget,
			"detection_threshold":      n.DetectionThreshold,
			"duration_seconds":         n.DurationSeconds,
			"fraction_of_total_attack": n.FractionOfTotalAttack,
		}
		if n.InferredDistanceDiff != nil {
			nodeFields["inferred_distance_diff"] = *n.InferredDistanceDiff
		}
		points = append(points, influxdb2.NewPoint(nodeMeasurement, nodeTags, nodeFields, n.TimeStart))
	}
	return points
}
