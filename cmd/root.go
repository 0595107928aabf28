package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"ddos-reassembler/internal/config"
	"ddos-reassembler/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

// envFile returns the first .env found in the working directory or next to the
// executable.
func envFile() (string, bool) {
	candidates := []string{".env"}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// loadEnvironment makes INFLUXDB_*, AWS_* and similar sink credentials available for
// ${VAR} expansion in the config file. Variables already set are not overridden.
func loadEnvironment() {
	path, ok := envFile()
	if !ok {
		return
	}
	logger := logging.GetLogger().WithField("file", path)
	if err := godotenv.Load(path); err != nil {
		logger.WithError(err).Warn("Error loading .env file")
		return
	}
	logger.Debug("Loaded environment variables")
}

// Execute runs the command line interface.
func Execute() error {
	loadEnvironment()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var logLevel, logFormat string

	rootCmd := &cobra.Command{
		Use:     "ddos-reassembler",
		Short:   "Reassemble DDoS fingerprints into a traceback summary",
		Long:    "Detects the attack target from distributed traffic fingerprints, estimates hop distances of intermediate nodes from TTL evidence and reports spoofing statistics",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				if err := logging.SetLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
				if err := logging.SetReassemblerLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
			}
			if err := logging.SetFormat(logFormat); err != nil {
				return err
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log output format (text, json)")

	rootCmd.AddCommand(newReassembleCmd(&logLevel))
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newKeyCmd())
	rootCmd.AddCommand(newBundleCmd())
	rootCmd.AddCommand(newEvaluateCmd(&logLevel))
	return rootCmd
}

// loadConfig reads configFile or falls back to the defaults. The log level of the
// reassembler logger follows the file unless --log-level was given.
func loadConfig(configFile string, logLevelFlag string) (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logLevelFlag == "" && cfg.Reassembler.LogLevel != "" {
		if err := logging.SetReassemblerLogLevel(cfg.Reassembler.LogLevel); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	return cfg, nil
}
