// Package config provides configuration loading for nifti2bids.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultBIDSVersion is written to dataset_description.json when no
// version is configured.
const DefaultBIDSVersion = "1.10.0"

// Config contains all nifti2bids configuration settings.
type Config struct {
	// Logging contains settings for operational and provenance logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Dataset holds the defaults for dataset_description.json.
	Dataset DatasetConfig `json:"dataset" yaml:"dataset"`

	// Presentation configures Presentation log conversion.
	Presentation PresentationConfig `json:"presentation" yaml:"presentation"`

	// EPrime configures E-Prime log conversion.
	EPrime EPrimeConfig `json:"eprime" yaml:"eprime"`

	// SliceTiming holds the acquisition defaults used when a header has no
	// slice code.
	SliceTiming SliceTimingConfig `json:"slice_timing" yaml:"slice_timing"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	Level string `json:"level" yaml:"level"`

	// Provenance enables the JSONL record of file operations under
	// <dataset>/code/nifti2bids/.
	Provenance bool `json:"provenance" yaml:"provenance"`
}

// DatasetConfig holds dataset_description.json defaults.
type DatasetConfig struct {
	Name        string   `json:"name" yaml:"name"`
	BIDSVersion string   `json:"bids_version" yaml:"bids_version"`
	DatasetType string   `json:"dataset_type,omitempty" yaml:"dataset_type,omitempty"`
	License     string   `json:"license,omitempty" yaml:"license,omitempty"`
	Authors     []string `json:"authors,omitempty" yaml:"authors,omitempty"`
}

// PresentationConfig configures Presentation log conversion.
type PresentationConfig struct {
	// ToSeconds converts the time columns to seconds.
	ToSeconds bool `json:"to_seconds" yaml:"to_seconds"`

	// TimeScale is the number of log time units per second.
	TimeScale float64 `json:"time_scale" yaml:"time_scale"`

	// TriggerEventType is the Event Type of scanner pulses.
	TriggerEventType string `json:"trigger_event_type" yaml:"trigger_event_type"`

	// RestCode marks rest blocks in block designs.
	RestCode string `json:"rest_code,omitempty" yaml:"rest_code,omitempty"`
}

// EPrimeConfig configures E-Prime log conversion.
type EPrimeConfig struct {
	// TimeScale divides E-Prime times; 1000 converts ms to seconds.
	TimeScale float64 `json:"time_scale" yaml:"time_scale"`

	OnsetColumn     string `json:"onset_column" yaml:"onset_column"`
	DurationColumn  string `json:"duration_column,omitempty" yaml:"duration_column,omitempty"`
	TrialTypeColumn string `json:"trial_type_column" yaml:"trial_type_column"`
}

// SliceTimingConfig configures slice timing defaults.
type SliceTimingConfig struct {
	// Method is "sequential" or "interleaved".
	Method    string `json:"method" yaml:"method"`
	Ascending bool   `json:"ascending" yaml:"ascending"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Provenance: true,
		},
		Dataset: DatasetConfig{
			BIDSVersion: DefaultBIDSVersion,
			DatasetType: "raw",
		},
		Presentation: PresentationConfig{
			ToSeconds:        true,
			TimeScale:        10000,
			TriggerEventType: "Pulse",
		},
		EPrime: EPrimeConfig{
			TimeScale:       1000,
			OnsetColumn:     "Stimulus.OnsetTime",
			TrialTypeColumn: "Condition",
		},
		SliceTiming: SliceTimingConfig{
			Method:    "sequential",
			Ascending: true,
		},
	}
}

// DefaultPath returns ~/.nifti2bids/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".nifti2bids", "config.yaml"), nil
}

// Load loads configuration from path, or from the default location when
// path is empty, and applies environment variables.
// Order: defaults -> config file -> environment variables
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	} else if defaultPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(defaultPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(defaultPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Dataset metadata may reference ${VAR} values.
	config.Dataset.Name = expandEnvVars(config.Dataset.Name)
	config.Dataset.License = expandEnvVars(config.Dataset.License)
	for i, a := range config.Dataset.Authors {
		config.Dataset.Authors[i] = expandEnvVars(a)
	}

	return config, nil
}

// Save writes the configuration to path, creating its directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	validMethods := map[string]bool{"sequential": true, "interleaved": true}
	if !validMethods[c.SliceTiming.Method] {
		return fmt.Errorf("invalid slice timing method: %s (valid: sequential, interleaved)", c.SliceTiming.Method)
	}

	if c.Presentation.TimeScale <= 0 {
		return fmt.Errorf("presentation time_scale must be positive, got %g", c.Presentation.TimeScale)
	}
	if c.EPrime.TimeScale <= 0 {
		return fmt.Errorf("eprime time_scale must be positive, got %g", c.EPrime.TimeScale)
	}

	validTypes := map[string]bool{"": true, "raw": true, "derivative": true}
	if !validTypes[c.Dataset.DatasetType] {
		return fmt.Errorf("invalid dataset type: %s (valid: raw, derivative)", c.Dataset.DatasetType)
	}

	return nil
}

// Get retrieves a configuration value by dot-notation key.
func (c *Config) Get(key string) (any, bool) {
	switch key {
	case "logging.level":
		return c.Logging.Level, true
	case "logging.provenance":
		return c.Logging.Provenance, true
	case "dataset.name":
		return c.Dataset.Name, true
	case "dataset.bids_version":
		return c.Dataset.BIDSVersion, true
	case "dataset.dataset_type":
		return c.Dataset.DatasetType, true
	case "dataset.license":
		return c.Dataset.License, true
	case "dataset.authors":
		return c.Dataset.Authors, true
	case "presentation.to_seconds":
		return c.Presentation.ToSeconds, true
	case "presentation.time_scale":
		return c.Presentation.TimeScale, true
	case "presentation.trigger_event_type":
		return c.Presentation.TriggerEventType, true
	case "presentation.rest_code":
		return c.Presentation.RestCode, true
	case "eprime.time_scale":
		return c.EPrime.TimeScale, true
	case "eprime.onset_column":
		return c.EPrime.OnsetColumn, true
	case "eprime.duration_column":
		return c.EPrime.DurationColumn, true
	case "eprime.trial_type_column":
		return c.EPrime.TrialTypeColumn, true
	case "slice_timing.method":
		return c.SliceTiming.Method, true
	case "slice_timing.ascending":
		return c.SliceTiming.Ascending, true
	default:
		return nil, false
	}
}

// Keys lists every key accepted by Get and Set, in display order.
func Keys() []string {
	return []string{
		"logging.level", "logging.provenance",
		"dataset.name", "dataset.bids_version", "dataset.dataset_type", "dataset.license", "dataset.authors",
		"presentation.to_seconds", "presentation.time_scale", "presentation.trigger_event_type", "presentation.rest_code",
		"eprime.time_scale", "eprime.onset_column", "eprime.duration_column", "eprime.trial_type_column",
		"slice_timing.method", "slice_timing.ascending",
	}
}

// Set sets a configuration value by dot-notation key and re-validates.
func (c *Config) Set(key, value string) error {
	next := *c
	switch key {
	case "logging.level":
		next.Logging.Level = value
	case "logging.provenance":
		next.Logging.Provenance = parseBool(value)
	case "dataset.name":
		next.Dataset.Name = value
	case "dataset.bids_version":
		next.Dataset.BIDSVersion = value
	case "dataset.dataset_type":
		next.Dataset.DatasetType = value
	case "dataset.license":
		next.Dataset.License = value
	case "dataset.authors":
		next.Dataset.Authors = splitList(value)
	case "presentation.to_seconds":
		next.Presentation.ToSeconds = parseBool(value)
	case "presentation.time_scale":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid time scale: %s", value)
		}
		next.Presentation.TimeScale = f
	case "presentation.trigger_event_type":
		next.Presentation.TriggerEventType = value
	case "presentation.rest_code":
		next.Presentation.RestCode = value
	case "eprime.time_scale":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid time scale: %s", value)
		}
		next.EPrime.TimeScale = f
	case "eprime.onset_column":
		next.EPrime.OnsetColumn = value
	case "eprime.duration_column":
		next.EPrime.DurationColumn = value
	case "eprime.trial_type_column":
		next.EPrime.TrialTypeColumn = value
	case "slice_timing.method":
		next.SliceTiming.Method = value
	case "slice_timing.ascending":
		next.SliceTiming.Ascending = parseBool(value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("NIFTI2BIDS_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("NIFTI2BIDS_PROVENANCE"); v != "" {
		config.Logging.Provenance = parseBool(v)
	}
	if v := os.Getenv("NIFTI2BIDS_DATASET_NAME"); v != "" {
		config.Dataset.Name = v
	}
	if v := os.Getenv("NIFTI2BIDS_BIDS_VERSION"); v != "" {
		config.Dataset.BIDSVersion = v
	}
	if v := os.Getenv("NIFTI2BIDS_SLICE_METHOD"); v != "" {
		config.SliceTiming.Method = v
	}
	if v := os.Getenv("NIFTI2BIDS_SLICE_ASCENDING"); v != "" {
		config.SliceTiming.Ascending = parseBool(v)
	}
	if v := os.Getenv("NIFTI2BIDS_PRESENTATION_TIME_SCALE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Presentation.TimeScale = f
		}
	}
	if v := os.Getenv("NIFTI2BIDS_EPRIME_TIME_SCALE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.EPrime.TimeScale = f
		}
	}
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
