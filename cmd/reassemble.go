package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"ddos-reassembler/internal/config"
	"ddos-reassembler/internal/fingerprint"
	"ddos-reassembler/internal/logging"
	"ddos-reassembler/internal/metrics"
	"ddos-reassembler/internal/reassembler"
	"ddos-reassembler/internal/report"
	"ddos-reassembler/internal/sink"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type reassembleFlags struct {
	configFile      string
	inputDir        string
	bundle          string
	verifyKeys      bool
	drop            float64
	seed            int64
	truthFile       string
	outDir          string
	format          string
	metricsTextfile string
	simulated       bool
	noPersist       bool
}

func newReassembleCmd(logLevel *string) *cobra.Command {
	var f reassembleFlags

	cmd := &cobra.Command{
		Use:   "reassemble",
		Short: "Reassemble a set of fingerprints into one attack summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f.configFile, *logLevel)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}
			format, err := report.ParseFormat(f.format)
			if err != nil {
				return err
			}

			var truth *config.GroundTruth
			if f.truthFile != "" {
				if truth, err = config.LoadGroundTruth(f.truthFile); err != nil {
					return err
				}
			}
			return runReassemble(cmd.Context(), cmd.OutOrStdout(), cfg, truth, format, !f.noPersist)
		},
	}

	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&f.inputDir, "input", "i", "", "Directory of fingerprint JSON files")
	cmd.Flags().StringVar(&f.bundle, "bundle", "", "Snappy fingerprint bundle instead of a directory")
	cmd.Flags().BoolVar(&f.verifyKeys, "verify-keys", false, "Reject fingerprints whose key does not match their content")
	cmd.Flags().Float64Var(&f.drop, "drop", 0, "Fraction of non-target fingerprints to drop before reassembly")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Seed for fingerprint dropping")
	cmd.Flags().StringVar(&f.truthFile, "truth", "", "Ground truth file (target, sources) of a simulated attack")
	cmd.Flags().StringVarP(&f.outDir, "out", "o", "", "Directory the summary is written to")
	cmd.Flags().StringVar(&f.format, "format", "json", "Output format (json, text)")
	cmd.Flags().StringVar(&f.metricsTextfile, "metrics-textfile", "", "Write run metrics in Prometheus textfile format")
	cmd.Flags().BoolVar(&f.simulated, "simulated", false, "Report ground-truth distances of simulated fingerprints")
	cmd.Flags().BoolVar(&f.noPersist, "no-persist", false, "Only print the summary")
	return cmd
}

// apply overrides configuration values with the flags given on the command line.
func (f *reassembleFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input.Dir = f.inputDir
		cfg.Input.Bundle = ""
	}
	if flags.Changed("bundle") {
		cfg.Input.Bundle = f.bundle
		cfg.Input.Dir = ""
	}
	if flags.Changed("verify-keys") {
		cfg.Input.VerifyKeys = f.verifyKeys
	}
	if flags.Changed("drop") {
		cfg.Drop.Fraction = f.drop
	}
	if flags.Changed("seed") {
		cfg.Drop.Seed = f.seed
	}
	if flags.Changed("out") {
		cfg.Output.Dir = f.outDir
	}
	if flags.Changed("metrics-textfile") {
		cfg.Output.MetricsTextfile = f.metricsTextfile
	}
	if flags.Changed("simulated") {
		cfg.Reassembler.Simulated = f.simulated
	}
	if cfg.Input.Dir == "" && cfg.Input.Bundle == "" {
		return fmt.Errorf("%w: pass --input or --bundle", fingerprint.ErrMissingData)
	}
	return cfg.Validate()
}

func loadFingerprints(cfg *config.Config) ([]fingerprint.Fingerprint, error) {
	if cfg.Input.Bundle != "" {
		return fingerprint.LoadBundle(cfg.Input.Bundle, cfg.LoadOptions())
	}
	return fingerprint.LoadDir(cfg.Input.Dir, cfg.LoadOptions())
}

func runReassemble(ctx context.Context, out io.Writer, cfg *config.Config, truth *config.GroundTruth, format report.Format, persist bool) error {
	logger := logging.GetLogger()
	reg := metrics.NewRegistry()
	started := time.Now()

	summary, err := reassemble(ctx, cfg, truth, reg, persist)
	if err != nil {
		reg.RecordFailure(time.Since(started))
		writeMetrics(reg, cfg.Output.MetricsTextfile)
		return err
	}
	reg.RecordSummary(summary, time.Since(started))
	writeMetrics(reg, cfg.Output.MetricsTextfile)

	logger.WithFields(logrus.Fields{
		"key":                summary.Key,
		"target":             summary.Target.IP,
		"intermediate_nodes": summary.IntermediateNodes.NrIntermediateNodes,
		"duration":           time.Since(started).String(),
	}).Info("Reassembly finished")

	return report.Render(out, summary, format)
}

func reassemble(ctx context.Context, cfg *config.Config, truth *config.GroundTruth, reg *metrics.Registry, persist bool) (*reassembler.Summary, error) {
	logger := logging.GetLogger()

	fps, err := loadFingerprints(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to load fingerprints")
		return nil, err
	}

	r, err := reassembler.FromFingerprints(fps, cfg.ToOptions())
	if err != nil {
		return nil, err
	}
	reg.RecordLoad(len(fps), len(r.Observations()))

	if cfg.Drop.Fraction > 0 {
		dropped, err := r.Drop(cfg.Drop.Fraction, cfg.Drop.Seed)
		if err != nil {
			return nil, err
		}
		reg.RecordDrop(len(dropped))
	}

	summary, err := r.Reassemble()
	if err != nil {
		return nil, err
	}

	if truth != nil {
		if err := r.AddGroundTruth(truth.Target, truth.Sources); err != nil {
			return nil, err
		}
	}

	if !persist {
		return summary, summary.ComputeKey()
	}

	sinks, err := sink.FromConfig(ctx, cfg.Output)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close sinks")
		}
	}()

	if err := r.Persist(ctx, sinks); err != nil {
		logger.WithError(err).Error("Failed to persist summary")
		return nil, err
	}
	return summary, nil
}

func writeMetrics(reg *metrics.Registry, path string) {
	if path == "" {
		return
	}
	logger := logging.GetLogger()
	if err := reg.WriteTextfile(path); err != nil {
		logger.WithField("path", path).WithError(err).Warn("Failed to write metrics textfile")
		return
	}
	logger.WithField("path", path).Debug("Metrics written")
}
