// Package sink persists reassembly summaries to files, time series, object storage,
// caches and SQL databases.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ddos-reassembler/internal/config"
	"ddos-reassembler/internal/logging"
	"ddos-reassembler/internal/reassembler"

	"github.com/sirupsen/logrus"
)

// Sink stores summaries. Every Sink is also a reassembler.Persister.
type Sink interface {
	Write(ctx context.Context, s *reassembler.Summary) error
	Close() error
}

// Multi writes to every sink in order and stops at the first failure.
type Multi []Sink

func (m Multi) Write(ctx context.Context, s *reassembler.Summary) error {
	for _, sk := range m {
		if err := sk.Write(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Close() error {
	var errs []error
	for _, sk := range m {
		if err := sk.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig connects every sink enabled in cfg. Sinks opened before a failure are
// closed again.
func FromConfig(ctx context.Context, cfg config.OutputConfig) (Multi, error) {
	logger := logging.GetLogger()

	var sinks Multi
	fail := func(name string, err error) (Multi, error) {
		_ = sinks.Close()
		logger.WithField("sink", name).WithError(err).Error("Failed to open sink")
		return nil, fmt.Errorf("open %s sink: %w", name, err)
	}

	if cfg.Dir != "" {
		sinks = append(sinks, NewDirSink(cfg.Dir))
	}
	if cfg.InfluxDB != nil {
		s, err := NewInfluxSink(ctx, *cfg.InfluxDB)
		if err != nil {
			return fail("influxdb", err)
		}
		sinks = append(sinks, s)
	}
	if cfg.S3 != nil {
		s, err := NewS3Sink(ctx, *cfg.S3)
		if err != nil {
			return fail("s3", err)
		}
		sinks = append(sinks, s)
	}
	if cfg.Redis != nil {
		s, err := NewRedisSink(ctx, *cfg.Redis)
		if err != nil {
			return fail("redis", err)
		}
		sinks = append(sinks, s)
	}
	if cfg.Postgres != nil {
		s, err := NewPostgresSink(ctx, *cfg.Postgres)
		if err != nil {
			return fail("postgres", err)
		}
		sinks = append(sinks, s)
	}

	logger.WithFields(logrus.Fields{
		"sinks": len(sinks),
	}).Debug("Sinks configured")
	return sinks, nil
}

// Encode renders a summary the way every sink stores it: two-space indented JSON with
// a trailing newline.
func Encode(s *reassembler.Summary) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func ensureKey(s *reassembler.Summary) error {
	if s == nil {
		return errors.New("summary is nil")
	}
	if s.Key != "" {
		return nil
	}
	return s.ComputeKey()
}
