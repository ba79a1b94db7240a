package diagnose

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"recondiag/internal/discovery"
	"recondiag/internal/recon"
)

// Config is the engine configuration document: desk tolerances, discovery
// thresholds, and the evaluation worker bound.
type Config struct {
	Tolerances recon.Tolerances `yaml:"tolerances"`
	Discovery  discovery.Config `yaml:"discovery"`
	// Workers bounds the rule-evaluation fan-out; 0 means one per CPU.
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the desk defaults.
func DefaultConfig() Config {
	return Config{
		Tolerances: recon.DefaultTolerances(),
		Discovery:  discovery.DefaultConfig(),
	}
}

// LoadConfig reads a YAML config document (JSON is a YAML subset), filling
// omitted fields from the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("diagnose: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("diagnose: parse config %s: %w", path, err)
	}
	if cfg.Workers < 0 {
		return cfg, fmt.Errorf("diagnose: config %s: workers must be >= 0", path)
	}
	return cfg, nil
}
