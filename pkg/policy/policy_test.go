package policy_test

import (
	"testing"

	"github.com/NeuralTrust/SMSGuard/pkg/domain/signals"
	"github.com/NeuralTrust/SMSGuard/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThreatLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected policy.ThreatLevel
	}{
		{"low", policy.ThreatLevelLow},
		{"MEDIUM", policy.ThreatLevelMedium},
		{"High", policy.ThreatLevelHigh},
		{"unacceptable", policy.ThreatLevelUnacceptable},
		{"count", policy.ThreatLevelCount},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := policy.ParseThreatLevel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}

	t.Run("Unknown Level", func(t *testing.T) {
		_, err := policy.ParseThreatLevel("severe")
		assert.Error(t, err)
	})
}

func TestThreatLevel_String(t *testing.T) {
	assert.Equal(t, "LOW", policy.ThreatLevelLow.String())
	assert.Equal(t, "UNACCEPTABLE", policy.ThreatLevelUnacceptable.String())
	assert.Equal(t, "COUNT", policy.ThreatLevelCount.String())
	assert.Equal(t, "UNKNOWN", policy.ThreatLevel(42).String())
}

func TestPolicy_LevelForScore(t *testing.T) {
	p := policy.NewPolicy(policy.DefaultConfig())

	tests := []struct {
		name     string
		score    float64
		expected policy.ThreatLevel
	}{
		{"Identity Score", 1.0, policy.ThreatLevelLow},
		{"Just Below Low Cut", 1.2499, policy.ThreatLevelLow},
		{"At Low Cut", 1.25, policy.ThreatLevelMedium},
		{"Just Below Medium Cut", 1.9999, policy.ThreatLevelMedium},
		{"At Medium Cut", 2, policy.ThreatLevelHigh},
		{"Far Above", 48.2, policy.ThreatLevelHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.LevelForScore(tt.score))
		})
	}
}

func TestPolicy_ActionOnThreat(t *testing.T) {
	t.Run("Default Blocks From High", func(t *testing.T) {
		p := policy.NewPolicy(policy.DefaultConfig())
		assert.Equal(t, policy.ActionPass, p.ActionOnThreat(policy.ThreatLevelLow))
		assert.Equal(t, policy.ActionPass, p.ActionOnThreat(policy.ThreatLevelMedium))
		assert.Equal(t, policy.ActionBlock, p.ActionOnThreat(policy.ThreatLevelHigh))
		assert.Equal(t, policy.ActionBlock, p.ActionOnThreat(policy.ThreatLevelUnacceptable))
	})

	t.Run("Count Mode Never Blocks", func(t *testing.T) {
		cfg, err := policy.ConfigFromSettings(0, 0, "count", nil, nil)
		require.NoError(t, err)
		p := policy.NewPolicy(cfg)
		assert.Equal(t, policy.ActionPass, p.ActionOnThreat(policy.ThreatLevelHigh))
		assert.Equal(t, policy.ActionPass, p.ActionOnThreat(policy.ThreatLevelUnacceptable))
	})
}

func TestPolicy_Blacklists(t *testing.T) {
	p := policy.NewPolicy(policy.DefaultConfig())

	assert.True(t, p.IsBannedPhoneCountry("MH"))
	assert.True(t, p.IsBannedPhoneCountry("SB"))
	assert.False(t, p.IsBannedPhoneCountry("AE"))

	assert.True(t, p.IsBannedPhoneType(signals.PhoneTypeLandline))
	assert.True(t, p.IsBannedPhoneType(signals.PhoneTypeVoip))
	assert.True(t, p.IsBannedPhoneType(signals.PhoneTypeInvalid))
	assert.True(t, p.IsBannedPhoneType(signals.PhoneTypeOther))
	assert.False(t, p.IsBannedPhoneType(signals.PhoneTypeMobile))
	assert.False(t, p.IsBannedPhoneType(signals.PhoneTypePrepaid))
}

func TestConfigFromSettings(t *testing.T) {
	t.Run("Zero Values Keep Defaults", func(t *testing.T) {
		cfg, err := policy.ConfigFromSettings(0, 0, "", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, policy.DefaultConfig(), cfg)
	})

	t.Run("Overrides Apply", func(t *testing.T) {
		cfg, err := policy.ConfigFromSettings(1.5, 3, "unacceptable", []string{"KP"}, []string{"voip"})
		require.NoError(t, err)
		assert.Equal(t, 1.5, cfg.RiskLowCut)
		assert.Equal(t, 3.0, cfg.RiskMediumCut)
		assert.Equal(t, policy.ThreatLevelUnacceptable, cfg.BlockLevel)
		assert.Equal(t, []string{"KP"}, cfg.PhoneCountryBlacklist)
		assert.Equal(t, []signals.PhoneType{signals.PhoneTypeVoip}, cfg.PhoneTypeBlacklist)
	})

	t.Run("Invalid Block Level", func(t *testing.T) {
		_, err := policy.ConfigFromSettings(0, 0, "lockdown", nil, nil)
		assert.Error(t, err)
	})
}
