package config

import (
	"fmt"
	"time"
)

// Config represents a bailer.yaml configuration file.
// All values are optional and act as defaults for bailer run flags.
// CLI flags always override config values.
type Config struct {
	Workspace  WorkspaceConfig `yaml:"workspace"`
	Scan       ScanConfig      `yaml:"scan"`
	Calculator string          `yaml:"calculator"`
	Statistic  string          `yaml:"statistic"`
	Fit        string          `yaml:"fit"`
	CL         float64         `yaml:"cl"`
	Toys       int             `yaml:"toys"`
	BatchSize  int             `yaml:"batch_size"`
	Workers    int             `yaml:"workers"`
	Seed       *int            `yaml:"seed"`
	WorkerBin  string          `yaml:"worker_bin"`
	Prefix     string          `yaml:"prefix"`
	Journal    JournalConfig   `yaml:"journal"`
	Notify     NotifyConfig    `yaml:"notify"`
}

// WorkspaceConfig names the default model to fit.
type WorkspaceConfig struct {
	File string `yaml:"file"`
	Name string `yaml:"name"`
	POI  string `yaml:"poi"`
}

// ScanConfig holds the default parameter scan range.
type ScanConfig struct {
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Points int     `yaml:"points"`
}

// JournalConfig holds run journal defaults from the config file.
// An empty Path leaves the journal disabled.
type JournalConfig struct {
	Backend      string `yaml:"backend"`
	Path         string `yaml:"path"`
	Dataset      string `yaml:"dataset"`
	Source       string `yaml:"source"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	S3PathStyle  bool   `yaml:"s3_path_style"`
	BufferEvents int    `yaml:"buffer_events"`
}

// NotifyConfig holds notification defaults from the config file.
// An empty Type leaves notifications disabled.
type NotifyConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
