package config

import (
	"time"

	"ddos-reassembler/internal/fingerprint"
	"ddos-reassembler/internal/reassembler"
)

type Config struct {
	Reassembler ReassemblerConfig `yaml:"reassembler"`
	Input       InputConfig       `yaml:"input"`
	Drop        DropConfig        `yaml:"drop"`
	Output      OutputConfig      `yaml:"output"`
}

type ReassemblerConfig struct {
	TargetThreshold      float64   `yaml:"target_threshold" validate:"gte=0,lte=1"`
	MinDurationSeconds   float64   `yaml:"min_duration_seconds" validate:"gte=0"`
	SpoofMinDistinctTTLs int       `yaml:"spoof_min_distinct_ttls" validate:"gte=2"`
	Percentiles          []float64 `yaml:"percentiles" validate:"dive,gte=0,lte=100"`
	Simulated            bool      `yaml:"simulated"`
	LogLevel             string    `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
}

type InputConfig struct {
	Dir        string `yaml:"dir"`
	Bundle     string `yaml:"bundle"`
	VerifyKeys bool   `yaml:"verify_keys"`
}

type DropConfig struct {
	Fraction float64 `yaml:"fraction" validate:"gte=0,lte=1"`
	Seed     int64   `yaml:"seed"`
}

type OutputConfig struct {
	Dir             string          `yaml:"dir"`
	MetricsTextfile string          `yaml:"metrics_textfile"`
	InfluxDB        *InfluxDBConfig `yaml:"influxdb"`
	S3              *S3Config       `yaml:"s3"`
	Redis           *RedisConfig    `yaml:"redis"`
	Postgres        *PostgresConfig `yaml:"postgres"`
}

type InfluxDBConfig struct {
	Host   string `yaml:"host" validate:"required"`
	Token  string `yaml:"token" validate:"required"`
	Org    string `yaml:"org" validate:"required"`
	Bucket string `yaml:"bucket" validate:"required"`
}

type S3Config struct {
	Bucket string `yaml:"bucket" validate:"required"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
	// Endpoint overrides the AWS endpoint, e.g. for MinIO.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr" validate:"required,hostname_port"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db" validate:"gte=0"`
	Channel    string `yaml:"channel"`
	TTLSeconds int    `yaml:"ttl_seconds" validate:"gte=0"`
}

type PostgresConfig struct {
	URL   string `yaml:"url" validate:"required"`
	Table string `yaml:"table"`
}

// Default returns the configuration used when no file is given. Values read from a file
// are applied on top of it.
func Default() *Config {
	return &Config{
		Reassembler: ReassemblerConfig{
			TargetThreshold:      reassembler.DefaultTargetThreshold,
			MinDurationSeconds:   reassembler.DefaultMinDurationSeconds,
			SpoofMinDistinctTTLs: reassembler.DefaultSpoofMinDistinctTTLs,
			Percentiles:          append([]float64(nil), reassembler.DefaultPercentiles...),
			LogLevel:             "info",
		},
		Output: OutputConfig{
			Dir: "global-fp",
		},
	}
}

func (c *Config) ToOptions() reassembler.Options {
	return reassembler.Options{
		TargetThreshold:      c.Reassembler.TargetThreshold,
		MinDurationSeconds:   c.Reassembler.MinDurationSeconds,
		SpoofMinDistinctTTLs: c.Reassembler.SpoofMinDistinctTTLs,
		Percentiles:          append([]float64(nil), c.Reassembler.Percentiles...),
		Simulated:            c.Reassembler.Simulated,
	}
}

func (c *Config) LoadOptions() fingerprint.LoadOptions {
	return fingerprint.LoadOptions{VerifyKeys: c.Input.VerifyKeys}
}

func (r *RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

func (p *PostgresConfig) TableName() string {
	if p.Table == "" {
		return "reassembly_summaries"
	}
	return p.Table
}
