package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
	return dir
}

func TestLoad_FillsDefaults(t *testing.T) {
	dir := writeConfigFile(t, `
server:
  host: 0.0.0.0
redis:
  host: localhost
  port: 6379
`)

	require.NoError(t, Load(dir))
	cfg := GetConfig()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, time.Second, cfg.Validation.Timeout())
	assert.Equal(t, 30*time.Second, cfg.Validation.BreakerCooldown())
	assert.Equal(t, int64(604800), cfg.Velocity.TTLSeconds)
	assert.Equal(t, int64(86400), cfg.Velocity.WindowSeconds)
	assert.Equal(t, 3, cfg.Velocity.SuffixLength)
	assert.Equal(t, 500*time.Millisecond, cfg.Velocity.StoreTimeout())
	assert.Equal(t, 1.25, cfg.Policy.RiskLowCut)
	assert.Equal(t, 2.0, cfg.Policy.RiskMediumCut)
	assert.Equal(t, "high", cfg.Policy.BlockLevel)
	assert.Equal(t, "cloudfront-viewer-country", cfg.Headers.ViewerCountry)
	assert.Equal(t, "sms-risk", cfg.Headers.ThreatSummary)
	assert.Equal(t, "x-request-id", cfg.Headers.RequestID)
}

func TestLoad_ExplicitValuesSurviveDefaults(t *testing.T) {
	dir := writeConfigFile(t, `
server:
  port: 9000
velocity:
  window_seconds: 3600
  suffix_length: 4
scoring:
  core_countries: ["AE", "SA", "EG"]
  weights:
    bot_signal: 3
  thresholds:
    ip_velocity: 8
policy:
  block_level: count
`)

	require.NoError(t, Load(dir))
	cfg := GetConfig()

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, int64(3600), cfg.Velocity.WindowSeconds)
	assert.Equal(t, 4, cfg.Velocity.SuffixLength)
	assert.Equal(t, []string{"AE", "SA", "EG"}, cfg.Scoring.CoreCountries)
	assert.Equal(t, 3.0, cfg.Scoring.Weights["bot_signal"])
	assert.Equal(t, int64(8), cfg.Scoring.Thresholds["ip_velocity"])
	assert.Equal(t, "count", cfg.Policy.BlockLevel)
}
