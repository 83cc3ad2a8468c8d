// Package config loads and validates flowrank.yml project settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/flowrank/internal/policy"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Defaults applied before a config file is read.
const (
	DefaultSigfigs        = 2
	DefaultWorkers        = 1
	DefaultMinClusterRank = 0.5
)

var validate = validator.New()

// ProjectConfig holds project-level settings loaded from flowrank.yml.
type ProjectConfig struct {
	// Threshold is a percentage, 0..100. Nil leaves the threshold pass off.
	Threshold      *float64 `yaml:"threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
	Sigfigs        int      `yaml:"sigfigs" validate:"gte=0,lte=15"`
	Workers        int      `yaml:"workers" validate:"gte=1"`
	Implied        string   `yaml:"implied,omitempty" validate:"omitempty,oneof=hide only include"`
	MinClusterRank float64  `yaml:"minClusterRank" validate:"gte=0,lte=1"`
	ClusterCommand string   `yaml:"clusterCommand,omitempty"`
	EquivClasses   bool     `yaml:"equivClasses,omitempty"`
	MetricsAddr    string   `yaml:"metricsAddr,omitempty" validate:"omitempty,hostname_port"`
	Verbose        bool     `yaml:"verbose,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *ProjectConfig {
	return &ProjectConfig{
		Sigfigs:        DefaultSigfigs,
		Workers:        DefaultWorkers,
		MinClusterRank: DefaultMinClusterRank,
	}
}

// Load attempts to read flowrank.yml or flowrank.yaml from the given
// directory. Returns the defaults (not an error) if no config file exists.
// Values in the file override the defaults; the result is validated.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"flowrank.yml", "flowrank.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		cfg := Default()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", name, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Default(), nil
}

// Validate checks every field against its bounds.
func (c *ProjectConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ThresholdRank converts the percentage threshold to a rank in 0..1.
func (c *ProjectConfig) ThresholdRank() (float64, bool) {
	if c.Threshold == nil {
		return 0, false
	}
	return *c.Threshold / 100, true
}

// ImpliedMode parses the implied setting.
func (c *ProjectConfig) ImpliedMode() (policy.ImpliedMode, error) {
	return policy.ParseImpliedMode(c.Implied)
}

// ValidateThreshold rejects a percentage outside 0..100. Used for
// command-line overrides before any analysis starts.
func ValidateThreshold(percent float64) error {
	if err := validate.Var(percent, "gte=0,lte=100"); err != nil {
		return fmt.Errorf("%w: threshold %v: must be a percentage between 0 and 100", ErrInvalidConfig, percent)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Report the first failure.
	e := validationErrs[0]
	field, tag, param := e.Field(), e.Tag(), e.Param()
	switch tag {
	case "gte":
		return fmt.Errorf("%w: %s: must be at least %s", ErrInvalidConfig, field, param)
	case "lte":
		return fmt.Errorf("%w: %s: must not exceed %s", ErrInvalidConfig, field, param)
	case "oneof":
		return fmt.Errorf("%w: %s: must be one of %s", ErrInvalidConfig, field, param)
	case "hostname_port":
		return fmt.Errorf("%w: %s: must be host:port", ErrInvalidConfig, field)
	default:
		return fmt.Errorf("%w: %s: validation failed (%s)", ErrInvalidConfig, field, tag)
	}
}
