package policy

import (
	"fmt"
	"strings"

	"github.com/NeuralTrust/SMSGuard/pkg/domain/signals"
)

// ThreatLevel is the ordered classification derived from the risk score, or
// forced by a hard filter. Count sits above Unacceptable so that a deployment
// can observe and label traffic without ever blocking it.
type ThreatLevel int

const (
	ThreatLevelLow          ThreatLevel = 1
	ThreatLevelMedium       ThreatLevel = 2
	ThreatLevelHigh         ThreatLevel = 3
	ThreatLevelUnacceptable ThreatLevel = 4
	ThreatLevelCount        ThreatLevel = 5
)

func (l ThreatLevel) String() string {
	switch l {
	case ThreatLevelLow:
		return "LOW"
	case ThreatLevelMedium:
		return "MEDIUM"
	case ThreatLevelHigh:
		return "HIGH"
	case ThreatLevelUnacceptable:
		return "UNACCEPTABLE"
	case ThreatLevelCount:
		return "COUNT"
	default:
		return "UNKNOWN"
	}
}

func ParseThreatLevel(value string) (ThreatLevel, error) {
	switch strings.ToLower(value) {
	case "low":
		return ThreatLevelLow, nil
	case "medium":
		return ThreatLevelMedium, nil
	case "high":
		return ThreatLevelHigh, nil
	case "unacceptable":
		return ThreatLevelUnacceptable, nil
	case "count":
		return ThreatLevelCount, nil
	default:
		return 0, fmt.Errorf("unknown threat level: %q", value)
	}
}

type Action int

const (
	ActionBlock Action = iota
	ActionPass
)

// Hard filter block reasons, surfaced verbatim in the block response.
const (
	ReasonBannedPhoneCountry = "BANNED_PHONE_COUNTRY"
	ReasonBannedPhoneType    = "BANNED_PHONE_TYPE"
)

type Config struct {
	RiskLowCut            float64
	RiskMediumCut         float64
	BlockLevel            ThreatLevel
	PhoneCountryBlacklist []string
	PhoneTypeBlacklist    []signals.PhoneType
}

func DefaultConfig() Config {
	return Config{
		RiskLowCut:            1.25,
		RiskMediumCut:         2,
		BlockLevel:            ThreatLevelHigh,
		PhoneCountryBlacklist: []string{"MH", "SB"},
		PhoneTypeBlacklist: []signals.PhoneType{
			signals.PhoneTypeLandline,
			signals.PhoneTypeVoip,
			signals.PhoneTypeInvalid,
			signals.PhoneTypeOther,
		},
	}
}

// ConfigFromSettings overlays configured values on the defaults. Zero values
// keep their default, so a partial policy section stays safe.
func ConfigFromSettings(
	riskLowCut, riskMediumCut float64,
	blockLevel string,
	phoneCountryBlacklist, phoneTypeBlacklist []string,
) (Config, error) {
	cfg := DefaultConfig()
	if riskLowCut > 0 {
		cfg.RiskLowCut = riskLowCut
	}
	if riskMediumCut > 0 {
		cfg.RiskMediumCut = riskMediumCut
	}
	if blockLevel != "" {
		level, err := ParseThreatLevel(blockLevel)
		if err != nil {
			return Config{}, err
		}
		cfg.BlockLevel = level
	}
	if phoneCountryBlacklist != nil {
		cfg.PhoneCountryBlacklist = phoneCountryBlacklist
	}
	if phoneTypeBlacklist != nil {
		types := make([]signals.PhoneType, 0, len(phoneTypeBlacklist))
		for _, t := range phoneTypeBlacklist {
			types = append(types, signals.PhoneType(strings.ToUpper(t)))
		}
		cfg.PhoneTypeBlacklist = types
	}
	return cfg, nil
}

type Policy struct {
	cfg             Config
	bannedCountries map[string]struct{}
	bannedTypes     map[signals.PhoneType]struct{}
}

func NewPolicy(cfg Config) *Policy {
	bannedCountries := make(map[string]struct{}, len(cfg.PhoneCountryBlacklist))
	for _, c := range cfg.PhoneCountryBlacklist {
		bannedCountries[c] = struct{}{}
	}
	bannedTypes := make(map[signals.PhoneType]struct{}, len(cfg.PhoneTypeBlacklist))
	for _, t := range cfg.PhoneTypeBlacklist {
		bannedTypes[t] = struct{}{}
	}
	return &Policy{
		cfg:             cfg,
		bannedCountries: bannedCountries,
		bannedTypes:     bannedTypes,
	}
}

// LevelForScore maps the continuous score onto the ordered levels through the
// two configured cut points. Unacceptable is reserved for hard filters and is
// never produced here.
func (p *Policy) LevelForScore(score float64) ThreatLevel {
	if score < p.cfg.RiskLowCut {
		return ThreatLevelLow
	}
	if score < p.cfg.RiskMediumCut {
		return ThreatLevelMedium
	}
	return ThreatLevelHigh
}

// ActionOnThreat is the single behavioral tunable: block when the threat level
// reaches the configured block level.
func (p *Policy) ActionOnThreat(level ThreatLevel) Action {
	if level >= p.cfg.BlockLevel {
		return ActionBlock
	}
	return ActionPass
}

func (p *Policy) IsBannedPhoneCountry(country string) bool {
	_, ok := p.bannedCountries[country]
	return ok
}

func (p *Policy) IsBannedPhoneType(phoneType signals.PhoneType) bool {
	_, ok := p.bannedTypes[phoneType]
	return ok
}
