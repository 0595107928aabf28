package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GroundTruth is what the traffic generator knows about a simulated attack. JSON files
// written by the generator parse as well.
type GroundTruth struct {
	Target  string   `yaml:"target" json:"target" validate:"required"`
	Sources []string `yaml:"sources" json:"sources"`
}

func LoadGroundTruth(path string) (*GroundTruth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var gt GroundTruth
	if err := yaml.Unmarshal(data, &gt); err != nil {
		return nil, fmt.Errorf("parse ground truth %s: %w", path, err)
	}
	if err := validate.Struct(&gt); err != nil {
		return nil, fmt.Errorf("ground truth %s: %w", path, formatValidationError(err))
	}
	return &gt, nil
}
