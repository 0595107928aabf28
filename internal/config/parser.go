package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"ddos-reassembler/internal/logging"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
	validate      = validator.New()
)

func LoadConfig(filepath string) (*Config, error) {
	config, _, err := LoadConfigWithContent(filepath)
	return config, err
}

// LoadConfigWithContent also returns the raw file content so callers can log or store
// exactly what a run was configured with.
func LoadConfigWithContent(filepath string) (*Config, string, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(filepath)
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to read config file")
		return nil, "", err
	}

	originalContent := string(data)

	config, err := Parse(data)
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to parse config file")
		return nil, "", err
	}

	return config, originalContent, nil
}

// Parse expands ${VAR} references, applies the YAML document on top of Default and
// validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	config := Default()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	if c.Input.Dir != "" && c.Input.Bundle != "" {
		return fmt.Errorf("input: dir and bundle are mutually exclusive")
	}

	// Unexpanded variables would otherwise surface later as connection errors.
	if db := c.Output.InfluxDB; db != nil {
		if envVarPattern.MatchString(db.Host) || envVarPattern.MatchString(db.Token) {
			return fmt.Errorf("output.influxdb: unresolved environment variable in host or token")
		}
	}
	if pg := c.Output.Postgres; pg != nil && envVarPattern.MatchString(pg.URL) {
		return fmt.Errorf("output.postgres: unresolved environment variable in url")
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
