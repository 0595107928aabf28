package cmd

import (
	"encoding/json"
	"fmt"

	"ddos-reassembler/internal/config"
	"ddos-reassembler/internal/evaluation"
	"ddos-reassembler/internal/fingerprint"
	"ddos-reassembler/internal/report"

	"github.com/spf13/cobra"
)

func newEvaluateCmd(logLevel *string) *cobra.Command {
	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate reassembly quality on simulated fingerprints",
	}
	evaluateCmd.AddCommand(newEvaluateDropCmd(logLevel))
	return evaluateCmd
}

func newEvaluateDropCmd(logLevel *string) *cobra.Command {
	var (
		configFile string
		inputDir   string
		bundle     string
		truthFile  string
		fractions  []float64
		seed       int64
		workers    int
		format     string
	)

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Reassemble repeatedly while dropping a growing share of fingerprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile, *logLevel)
			if err != nil {
				return err
			}
			if inputDir != "" {
				cfg.Input.Dir, cfg.Input.Bundle = inputDir, ""
			}
			if bundle != "" {
				cfg.Input.Bundle, cfg.Input.Dir = bundle, ""
			}
			if cfg.Input.Dir == "" && cfg.Input.Bundle == "" {
				return fmt.Errorf("%w: pass --input or --bundle", fingerprint.ErrMissingData)
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Drop.Seed
			}

			var truth evaluation.Truth
			if truthFile != "" {
				gt, err := config.LoadGroundTruth(truthFile)
				if err != nil {
					return err
				}
				truth = evaluation.Truth{Target: gt.Target, Sources: gt.Sources}
			}

			fps, err := loadFingerprints(cfg)
			if err != nil {
				return err
			}
			if len(fractions) == 0 {
				fractions = evaluation.DefaultFractions()
			}

			results, err := evaluation.DropSweep(fps, cfg.ToOptions(), fractions, seed, truth, workers)
			if err != nil {
				return err
			}

			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == report.FormatText {
				_, err = fmt.Fprint(cmd.OutOrStdout(), report.RenderSweep(results))
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Directory of fingerprint JSON files")
	cmd.Flags().StringVar(&bundle, "bundle", "", "Snappy fingerprint bundle instead of a directory")
	cmd.Flags().StringVar(&truthFile, "truth", "", "Ground truth file (target, sources) of the simulated attack")
	cmd.Flags().Float64SliceVar(&fractions, "fractions", nil, "Drop fractions to evaluate (default 0.0 to 0.9 in steps of 0.1)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for fingerprint dropping")
	cmd.Flags().IntVar(&workers, "parallel", 1, "Number of sweep points reassembled at once")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (json, text)")
	return cmd
}
