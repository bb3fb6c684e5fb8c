package scoring

import (
	"fmt"
	"strings"

	"github.com/NeuralTrust/SMSGuard/pkg/domain/signals"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
)

// Risk element labels, in evaluation order.
const (
	LabelIPNonCoreCountry    = "IP_NON_CORE_COUNTRY"
	LabelPhoneNonCoreCountry = "PHONE_NON_CORE_COUNTRY"
	LabelBotSignal           = "BOT_SIGNAL"
	LabelAnonymizingIP       = "ANONYMIZING_IP"
	LabelDatacenterIP        = "DATACENTER_IP"
	LabelIPVelocity          = "IP_VELOCITY"
	LabelPhoneVelocity       = "PHONE_VELOCITY"
	LabelPhonePrefixVelocity = "PHONE_PREFIX_VELOCITY"
	LabelSessionVelocity     = "SESSION_VELOCITY"
)

type Weights struct {
	IPNonCoreCountry    float64 `mapstructure:"ip_non_core_country"`
	PhoneNonCoreCountry float64 `mapstructure:"phone_non_core_country"`
	BotSignal           float64 `mapstructure:"bot_signal"`
	AnonymizingIP       float64 `mapstructure:"anonymizing_ip"`
	DatacenterIP        float64 `mapstructure:"datacenter_ip"`
	IPVelocity          float64 `mapstructure:"ip_velocity"`
	PhoneVelocity       float64 `mapstructure:"phone_velocity"`
	PhonePrefixVelocity float64 `mapstructure:"phone_prefix_velocity"`
	SessionVelocity     float64 `mapstructure:"session_velocity"`
}

type Thresholds struct {
	IPVelocity          int64 `mapstructure:"ip_velocity"`
	PhoneVelocity       int64 `mapstructure:"phone_velocity"`
	PhonePrefixVelocity int64 `mapstructure:"phone_prefix_velocity"`
}

type Config struct {
	CoreCountries []string
	Weights       Weights
	Thresholds    Thresholds
}

// DefaultConfig carries the reference tuning. Deployments override it through
// the scoring section of the configuration file.
func DefaultConfig() Config {
	return Config{
		CoreCountries: []string{"AE", "SA", "EG"},
		Weights: Weights{
			IPNonCoreCountry:    1.25,
			PhoneNonCoreCountry: 1.25,
			BotSignal:           2,
			AnonymizingIP:       1.5,
			DatacenterIP:        1.4,
			IPVelocity:          2,
			PhoneVelocity:       2,
			PhonePrefixVelocity: 2,
			SessionVelocity:     2,
		},
		Thresholds: Thresholds{
			IPVelocity:          5,
			PhoneVelocity:       5,
			PhonePrefixVelocity: 10,
		},
	}
}

// ConfigFromSettings overlays configured weight and threshold maps on the
// defaults. Keys absent from the maps keep their default value.
func ConfigFromSettings(
	coreCountries []string,
	weights map[string]float64,
	thresholds map[string]int64,
) (Config, error) {
	cfg := DefaultConfig()
	if len(coreCountries) > 0 {
		cfg.CoreCountries = coreCountries
	}
	if err := mapstructure.Decode(weights, &cfg.Weights); err != nil {
		return Config{}, fmt.Errorf("failed to decode scoring weights: %w", err)
	}
	if err := mapstructure.Decode(thresholds, &cfg.Thresholds); err != nil {
		return Config{}, fmt.Errorf("failed to decode velocity thresholds: %w", err)
	}
	return cfg, nil
}

// Risk is the multiplicative score together with the ordered labels of every
// factor that contributed, closed by a literal record of the final value.
type Risk struct {
	Score    float64
	Elements []string
}

// Summary renders the element list for the threat header.
func (r Risk) Summary() string {
	return strings.Join(r.Elements, "-")
}

type Engine struct {
	cfg    Config
	core   map[string]struct{}
	logger *logrus.Logger
}

func NewEngine(cfg Config, logger *logrus.Logger) *Engine {
	core := make(map[string]struct{}, len(cfg.CoreCountries))
	for _, c := range cfg.CoreCountries {
		core[c] = struct{}{}
	}
	return &Engine{
		cfg:    cfg,
		core:   core,
		logger: logger,
	}
}

// Score folds the available signals into a single multiplicative risk score.
// The evaluation order is fixed so that logs and the element list stay
// reproducible. Absent signals skip their factor, except countries: a country
// that could not be observed is treated as non-core.
func (e *Engine) Score(s *signals.RequestSignals) Risk {
	score := 1.0
	elements := make([]string, 0, 10)

	apply := func(weight float64, label string) {
		score *= weight
		elements = append(elements, label)
	}

	if !e.isCoreCountry(s.IPCountry) {
		apply(e.cfg.Weights.IPNonCoreCountry, LabelIPNonCoreCountry)
	}
	if !e.isCoreCountry(s.PhoneCountry) {
		apply(e.cfg.Weights.PhoneNonCoreCountry, LabelPhoneNonCoreCountry)
	}
	if s.BotSignal {
		apply(e.cfg.Weights.BotSignal, LabelBotSignal)
	}
	if s.AnonymizingIP {
		apply(e.cfg.Weights.AnonymizingIP, LabelAnonymizingIP)
	}
	if s.DatacenterIP {
		apply(e.cfg.Weights.DatacenterIP, LabelDatacenterIP)
	}
	if s.IPCount != nil && *s.IPCount > e.cfg.Thresholds.IPVelocity {
		ratio := float64(*s.IPCount) / float64(e.cfg.Thresholds.IPVelocity)
		apply(ratio*e.cfg.Weights.IPVelocity, LabelIPVelocity)
	}
	if s.PhoneCount != nil && *s.PhoneCount > e.cfg.Thresholds.PhoneVelocity {
		ratio := float64(*s.PhoneCount) / float64(e.cfg.Thresholds.PhoneVelocity)
		apply(ratio*e.cfg.Weights.PhoneVelocity, LabelPhoneVelocity)
	}
	if s.PhonePrefixCount != nil && *s.PhonePrefixCount > e.cfg.Thresholds.PhonePrefixVelocity {
		ratio := float64(*s.PhonePrefixCount) / float64(e.cfg.Thresholds.PhonePrefixVelocity)
		apply(ratio*e.cfg.Weights.PhonePrefixVelocity, LabelPhonePrefixVelocity)
	}
	if s.SessionVelocity != signals.SessionVelocityUnset {
		apply(float64(s.SessionVelocity)*e.cfg.Weights.SessionVelocity, LabelSessionVelocity)
	}

	e.logger.WithFields(logrus.Fields{
		"request_id": s.RequestID,
		"score":      score,
	}).Debug("calculated risk score")

	elements = append(elements, fmt.Sprintf("score=%g", score))

	return Risk{Score: score, Elements: elements}
}

func (e *Engine) isCoreCountry(country *string) bool {
	if country == nil {
		return false
	}
	_, ok := e.core[*country]
	return ok
}
