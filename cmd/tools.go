package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"ddos-reassembler/internal/config"
	"ddos-reassembler/internal/fingerprint"
	"ddos-reassembler/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a reassembler configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	cmd.MarkFlagRequired("config")
	return cmd
}

func validateConfig(configFile string) error {
	logger := logging.GetLogger()

	_, err := config.LoadConfig(configFile)
	if err != nil {
		logger.WithField("config_file", configFile).WithError(err).Error("Configuration validation failed")
		return err
	}
	logger.WithField("config_file", configFile).Info("Configuration is valid")
	return nil
}

func newKeyCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "key <file>...",
		Short: "Print the content key of fingerprint documents",
		Long:  "Computes the content key of each document and compares it with the key the document carries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mismatches := 0
			for _, path := range args {
				computed, stored, err := documentKeys(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				status := "ok"
				switch {
				case stored == "":
					status = "missing"
				case stored != computed:
					status = "mismatch"
					mismatches++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", computed, status, path)
			}
			if verify && mismatches > 0 {
				return fmt.Errorf("%d document(s) carry a key that does not match their content", mismatches)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "Fail when a stored key does not match")
	return cmd
}

func documentKeys(path string) (computed, stored string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	computed, err = fingerprint.ContentKey(data)
	if err != nil {
		return "", "", err
	}
	var doc struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", "", err
	}
	return computed, doc.Key, nil
}

func newBundleCmd() *cobra.Command {
	var inputDir, output string

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Pack a directory of fingerprints into one snappy compressed bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.GetLogger()

			docs, paths, err := fingerprint.ReadDir(inputDir)
			if err != nil {
				return err
			}
			// reject broken documents before they end up in a bundle
			for i, doc := range docs {
				if _, err := fingerprint.Decode(doc, fingerprint.LoadOptions{}); err != nil {
					return fmt.Errorf("%s: %w", paths[i], err)
				}
			}
			if err := fingerprint.WriteBundle(output, docs); err != nil {
				return err
			}

			logger.WithFields(logrus.Fields{
				"input":        inputDir,
				"bundle":       output,
				"fingerprints": len(docs),
			}).Info("Bundle written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Directory of fingerprint JSON files")
	cmd.Flags().StringVarP(&output, "output", "o", "fingerprints"+fingerprint.BundleExt, "Bundle file to write")
	cmd.MarkFlagRequired("input")
	return cmd
}
