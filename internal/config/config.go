// Package config defines the application configuration. A loaded Config is
// immutable: it is populated once at startup and passed by pointer into the
// components that need it; nothing mutates it afterwards.
package config

import (
	"fmt"
	"time"

	"github.com/openprocure/tenderisk/pkg/constants"
)

// Config holds the application's configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	Model   ModelConfig   `mapstructure:"model"`
	Explain ExplainConfig `mapstructure:"explain"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds

	// MaxUploadBytes bounds the size of an uploaded tender table.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ScoringConfig struct {
	// HighRiskCutoff is the default rule-score cutoff for the High level.
	// Requests may override it within the allowed range.
	HighRiskCutoff int `mapstructure:"high_risk_cutoff"`

	// OversightThresholds are the procurement approval limits used for the
	// near-threshold indicator, ascending.
	OversightThresholds []float64 `mapstructure:"oversight_thresholds"`

	// RetentionMinutes bounds how long a scored batch stays retrievable.
	RetentionMinutes int `mapstructure:"retention_minutes"`
}

// Retention returns the working-set retention as a duration.
func (c *ScoringConfig) Retention() time.Duration {
	if c.RetentionMinutes <= 0 {
		return constants.AnalysisRetention
	}
	return time.Duration(c.RetentionMinutes) * time.Minute
}

type ModelConfig struct {
	// BundlePath points at the pre-trained detector bundle. Empty disables
	// the pre-trained path; scoring fits on demand.
	BundlePath string `mapstructure:"bundle_path"`

	// WatchBundle reloads the bundle when the file changes on disk.
	WatchBundle bool `mapstructure:"watch_bundle"`
}

type ExplainConfig struct {
	// Endpoint is the text-generation service URL. Empty disables narrative
	// explanations; scoring output is unaffected.
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`

	// TimeoutSeconds bounds one explanation request.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Enabled reports whether the explanation client should be wired.
func (c *ExplainConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Timeout returns the request timeout as a duration.
func (c *ExplainConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Scoring.HighRiskCutoff < constants.MinHighRiskCutoff || c.Scoring.HighRiskCutoff > constants.MaxHighRiskCutoff {
		return fmt.Errorf("high_risk_cutoff %d outside [%d,%d]",
			c.Scoring.HighRiskCutoff, constants.MinHighRiskCutoff, constants.MaxHighRiskCutoff)
	}
	for i := 1; i < len(c.Scoring.OversightThresholds); i++ {
		if c.Scoring.OversightThresholds[i] <= c.Scoring.OversightThresholds[i-1] {
			return fmt.Errorf("oversight_thresholds must be ascending")
		}
	}
	return nil
}
