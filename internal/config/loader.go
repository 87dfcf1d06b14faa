package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/errors"
)

// LoadConfig loads the configuration from file and environment variables.
// Environment variables use the TENDERISK_ prefix with dots replaced by
// underscores, e.g. TENDERISK_SERVER_PORT.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.max_upload_bytes", 32<<20)
	v.SetDefault("scoring.high_risk_cutoff", constants.DefaultHighRiskCutoff)
	v.SetDefault("scoring.oversight_thresholds", []float64{1_000_000, 10_000_000})
	v.SetDefault("scoring.retention_minutes", 120)
	v.SetDefault("model.bundle_path", "")
	v.SetDefault("model.watch_bundle", true)
	v.SetDefault("explain.endpoint", "")
	v.SetDefault("explain.model", "")
	v.SetDefault("explain.timeout_seconds", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/tenderisk/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, constants.ErrCodeInternal, "read config file")
		}
	}

	v.SetEnvPrefix("TENDERISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeInternal, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeInvalidArgument, "validate config")
	}
	return &cfg, nil
}
