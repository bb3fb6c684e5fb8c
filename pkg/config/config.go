package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Validation ValidationConfig `mapstructure:"validation"`
	Velocity   VelocityConfig   `mapstructure:"velocity"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Headers    HeadersConfig    `mapstructure:"headers"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

type ValidationConfig struct {
	Endpoint           string `mapstructure:"endpoint"`
	APIKey             string `mapstructure:"api_key"`
	TimeoutMs          int    `mapstructure:"timeout_ms"`
	BreakerMaxFailures uint32 `mapstructure:"breaker_max_failures"`
	BreakerCooldownMs  int    `mapstructure:"breaker_cooldown_ms"`
}

func (c ValidationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c ValidationConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownMs) * time.Millisecond
}

type VelocityConfig struct {
	TTLSeconds     int64 `mapstructure:"ttl_seconds"`
	WindowSeconds  int64 `mapstructure:"window_seconds"`
	SuffixLength   int   `mapstructure:"suffix_length"`
	StoreTimeoutMs int   `mapstructure:"store_timeout_ms"`
}

func (c VelocityConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMs) * time.Millisecond
}

type ScoringConfig struct {
	CoreCountries []string           `mapstructure:"core_countries"`
	Weights       map[string]float64 `mapstructure:"weights"`
	Thresholds    map[string]int64   `mapstructure:"thresholds"`
}

type PolicyConfig struct {
	RiskLowCut            float64  `mapstructure:"risk_low_cut"`
	RiskMediumCut         float64  `mapstructure:"risk_medium_cut"`
	BlockLevel            string   `mapstructure:"block_level"`
	PhoneCountryBlacklist []string `mapstructure:"phone_country_blacklist"`
	PhoneTypeBlacklist    []string `mapstructure:"phone_type_blacklist"`
}

type HeadersConfig struct {
	ViewerCountry   string `mapstructure:"viewer_country"`
	AnonymizingIP   string `mapstructure:"anonymizing_ip"`
	Datacenter      string `mapstructure:"datacenter"`
	Bot             string `mapstructure:"bot"`
	SessionVelocity string `mapstructure:"session_velocity"`
	RequestID       string `mapstructure:"request_id"`
	ThreatSummary   string `mapstructure:"threat_summary"`
}

var globalConfig Config

func Load(configPath string) error {
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("could not load main config file: %w", err)
	}

	setDefaultValues()

	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	viper.SetConfigName(fileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file %s.yaml not found, using only environment variables", fileName)
		}
		return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
	}

	if err := viper.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

func setDefaultValues() {
	if globalConfig.Server.Port == 0 {
		globalConfig.Server.Port = 8080
	}
	if globalConfig.Server.MetricsPort == 0 {
		globalConfig.Server.MetricsPort = 9090
	}
	if globalConfig.Validation.TimeoutMs == 0 {
		globalConfig.Validation.TimeoutMs = 1000
	}
	if globalConfig.Validation.BreakerMaxFailures == 0 {
		globalConfig.Validation.BreakerMaxFailures = 5
	}
	if globalConfig.Validation.BreakerCooldownMs == 0 {
		globalConfig.Validation.BreakerCooldownMs = 30000
	}
	if globalConfig.Velocity.TTLSeconds == 0 {
		globalConfig.Velocity.TTLSeconds = 604800
	}
	if globalConfig.Velocity.WindowSeconds == 0 {
		globalConfig.Velocity.WindowSeconds = 86400
	}
	if globalConfig.Velocity.SuffixLength == 0 {
		globalConfig.Velocity.SuffixLength = 3
	}
	if globalConfig.Velocity.StoreTimeoutMs == 0 {
		globalConfig.Velocity.StoreTimeoutMs = 500
	}
	if globalConfig.Policy.RiskLowCut == 0 {
		globalConfig.Policy.RiskLowCut = 1.25
	}
	if globalConfig.Policy.RiskMediumCut == 0 {
		globalConfig.Policy.RiskMediumCut = 2
	}
	if globalConfig.Policy.BlockLevel == "" {
		globalConfig.Policy.BlockLevel = "high"
	}
	if globalConfig.Headers.ViewerCountry == "" {
		globalConfig.Headers.ViewerCountry = "cloudfront-viewer-country"
	}
	if globalConfig.Headers.AnonymizingIP == "" {
		globalConfig.Headers.AnonymizingIP = "x-amzn-waf-vpn-signal"
	}
	if globalConfig.Headers.Datacenter == "" {
		globalConfig.Headers.Datacenter = "x-amzn-waf-datacenter-signal"
	}
	if globalConfig.Headers.Bot == "" {
		globalConfig.Headers.Bot = "x-amzn-waf-bot-signal"
	}
	if globalConfig.Headers.SessionVelocity == "" {
		globalConfig.Headers.SessionVelocity = "x-amzn-waf-session-velocity"
	}
	if globalConfig.Headers.RequestID == "" {
		globalConfig.Headers.RequestID = "x-request-id"
	}
	if globalConfig.Headers.ThreatSummary == "" {
		globalConfig.Headers.ThreatSummary = "sms-risk"
	}
}

func GetConfig() *Config {
	return &globalConfig
}
