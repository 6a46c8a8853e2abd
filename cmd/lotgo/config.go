package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	lotgo "github.com/hupe1980/lotgo"
)

// Duration wraps time.Duration so YAML configs can use "500ms" or "15m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the on-disk CLI configuration.
type Config struct {
	Layout lotgo.Layout `yaml:"layout"`
	Engine EngineConfig `yaml:"engine"`
	Sim    SimConfig    `yaml:"sim"`
}

// EngineConfig tunes the reservation engine.
type EngineConfig struct {
	AdmissionLimit   int64    `yaml:"admission_limit"`
	ThrottleInterval Duration `yaml:"throttle_interval"`
	WarningLead      Duration `yaml:"warning_lead"`
	Workers          int      `yaml:"workers"`
}

// SimConfig controls the load generators.
type SimConfig struct {
	Users   bool  `yaml:"users"`
	Sensors bool  `yaml:"sensors"`
	Seed    int64 `yaml:"seed"`
}

func defaultConfig() Config {
	return Config{
		Layout: lotgo.DefaultLayout(),
		Sim: SimConfig{
			Users:   true,
			Sensors: true,
		},
	}
}

// loadConfig reads a YAML config file, falling back to defaults for any
// field the file leaves out. An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Layout) == 0 {
		cfg.Layout = lotgo.DefaultLayout()
	}
	return cfg, nil
}
