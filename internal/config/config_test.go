package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprocure/tenderisk/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no config.yaml present

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 70, cfg.Scoring.HighRiskCutoff)
	assert.Equal(t, []float64{1_000_000, 10_000_000}, cfg.Scoring.OversightThresholds)
	assert.Equal(t, 2*time.Hour, cfg.Scoring.Retention())
	assert.False(t, cfg.Explain.Enabled())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TENDERISK_SERVER_PORT", "9090")
	t.Setenv("TENDERISK_SCORING_HIGH_RISK_CUTOFF", "80")
	t.Setenv("TENDERISK_LOG_LEVEL", "debug")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 80, cfg.Scoring.HighRiskCutoff)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsBadCutoff(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TENDERISK_SCORING_HIGH_RISK_CUTOFF", "95")

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Scoring.HighRiskCutoff = 70
	cfg.Scoring.OversightThresholds = []float64{100, 50}
	assert.Error(t, cfg.Validate())

	cfg.Scoring.OversightThresholds = []float64{50, 100}
	assert.NoError(t, cfg.Validate())
}

func TestExplainConfig(t *testing.T) {
	c := config.ExplainConfig{Endpoint: "https://gen.example"}
	assert.True(t, c.Enabled())
	assert.Equal(t, 30*time.Second, c.Timeout())

	c.TimeoutSeconds = 5
	assert.Equal(t, 5*time.Second, c.Timeout())
}
