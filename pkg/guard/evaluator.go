package guard

import (
	"context"
	"strings"
	"time"

	"github.com/NeuralTrust/SMSGuard/pkg/domain/signals"
	"github.com/NeuralTrust/SMSGuard/pkg/infra/boundedcall"
	"github.com/NeuralTrust/SMSGuard/pkg/infra/phonevalidation"
	infraPrometheus "github.com/NeuralTrust/SMSGuard/pkg/infra/prometheus"
	"github.com/NeuralTrust/SMSGuard/pkg/infra/velocity"
	"github.com/NeuralTrust/SMSGuard/pkg/policy"
	"github.com/NeuralTrust/SMSGuard/pkg/scoring"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultBlockReason is the response body reason when a block is not caused
// by a named hard filter.
const DefaultBlockReason = "sms fraud"

type Config struct {
	HeaderViewerCountry   string
	HeaderAnonymizingIP   string
	HeaderDatacenter      string
	HeaderBot             string
	HeaderSessionVelocity string

	ValidationTimeout time.Duration
	StoreTimeout      time.Duration
	SuffixLength      int
}

// Verdict is the terminal state of one evaluation run. A blocked verdict maps
// to the fixed 403 response; a passing one carries the threat summary that is
// forwarded downstream as a header.
type Verdict struct {
	Blocked       bool
	Reason        string
	Level         policy.ThreatLevel
	Score         float64
	ThreatSummary string
}

type Evaluator struct {
	validator phonevalidation.Validator
	store     velocity.Store
	engine    *scoring.Engine
	policy    *policy.Policy
	cfg       Config
	logger    *logrus.Logger
}

func NewEvaluator(
	validator phonevalidation.Validator,
	store velocity.Store,
	engine *scoring.Engine,
	decisionPolicy *policy.Policy,
	cfg Config,
	logger *logrus.Logger,
) *Evaluator {
	return &Evaluator{
		validator: validator,
		store:     store,
		engine:    engine,
		policy:    decisionPolicy,
		cfg:       cfg,
		logger:    logger,
	}
}

// Evaluate runs one request through extraction, the concurrent signal
// collection, hard filters, scoring and the decision policy. It only returns
// an error for malformed input; degraded upstream dependencies reduce the
// signal set instead of failing the request.
func (e *Evaluator) Evaluate(ctx context.Context, req *InboundRequest) (*Verdict, error) {
	s, err := e.extract(req)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"ip":         s.IP,
		"phone":      s.Phone,
		"request_id": s.RequestID,
	}).Info("received sms request")

	prefix := s.PhonePrefix(e.cfg.SuffixLength)

	var (
		validation   *phonevalidation.Result
		validationOK bool
		ipCount      int64
		ipOK         bool
		prefixCounts velocity.PrefixCounts
		prefixOK     bool
	)

	// The validation call and the three store operations overlap so the
	// total wait is max(validationTimeout, storeTimeout), not the sum. Each
	// is individually bounded; any subset may come back absent.
	var g errgroup.Group
	g.Go(func() error {
		validation, validationOK = boundedcall.Call(ctx, e.logger, "phone_validation", e.cfg.ValidationTimeout,
			func(ctx context.Context) (*phonevalidation.Result, error) {
				return e.validator.Validate(ctx, s.Phone)
			})
		return nil
	})
	g.Go(func() error {
		ipCount, ipOK = boundedcall.Call(ctx, e.logger, "velocity_count_ip", e.cfg.StoreTimeout,
			func(ctx context.Context) (int64, error) {
				return e.store.CountByIP(ctx, s.IP, s.RequestID)
			})
		return nil
	})
	g.Go(func() error {
		prefixCounts, prefixOK = boundedcall.Call(ctx, e.logger, "velocity_count_prefix", e.cfg.StoreTimeout,
			func(ctx context.Context) (velocity.PrefixCounts, error) {
				return e.store.CountByPhonePrefix(ctx, prefix, s.Phone, s.RequestID)
			})
		return nil
	})
	g.Go(func() error {
		// The write never fails the request, and the reads exclude this
		// request's own record, so racing it against them is safe.
		_, ok := boundedcall.Call(ctx, e.logger, "velocity_record", e.cfg.StoreTimeout,
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, e.store.RecordRequest(ctx, s.IP, prefix, s.Phone, s.RequestID)
			})
		if !ok {
			e.logger.WithField("request_id", s.RequestID).Warn("velocity write skipped")
		}
		return nil
	})
	_ = g.Wait()

	if validationOK && validation != nil {
		country := validation.CountryISO2
		phoneType := validation.PhoneType
		s.PhoneCountry = &country
		s.PhoneType = &phoneType

		e.logger.WithFields(logrus.Fields{
			"request_id": s.RequestID,
			"country":    country,
			"type":       string(phoneType),
		}).Info("phone info resolved")

		if verdict := e.applyHardFilters(s); verdict != nil {
			return verdict, nil
		}
	} else {
		e.logger.WithField("request_id", s.RequestID).Error("could not apply phone verification logic")
		infraPrometheus.DegradedSignals.WithLabelValues("phone_validation").Inc()
	}

	if ipOK {
		s.IPCount = &ipCount
	} else {
		infraPrometheus.DegradedSignals.WithLabelValues("ip_velocity").Inc()
	}
	if prefixOK {
		s.PhonePrefixCount = &prefixCounts.Scanned
		s.PhoneCount = &prefixCounts.Matched
	} else {
		infraPrometheus.DegradedSignals.WithLabelValues("phone_velocity").Inc()
	}

	risk := e.engine.Score(s)
	level := e.policy.LevelForScore(risk.Score)
	infraPrometheus.ThreatLevelTotal.WithLabelValues(level.String()).Inc()

	if e.policy.ActionOnThreat(level) == policy.ActionBlock {
		return e.block(s, "", level, risk.Score), nil
	}

	s.AddThreat(risk.Summary())
	summary := strings.Join(s.Threats(), ";")

	e.logger.WithFields(logrus.Fields{
		"request_id": s.RequestID,
		"threats":    summary,
	}).Info("threats observed")

	return &Verdict{
		Level:         level,
		Score:         risk.Score,
		ThreatSummary: summary,
	}, nil
}

// applyHardFilters checks the phone country and type blacklists. Either one
// can force a block at the top threat level without scoring ever running; in
// counting-only deployments the threat is recorded and the run continues.
func (e *Evaluator) applyHardFilters(s *signals.RequestSignals) *Verdict {
	if s.PhoneCountry != nil && e.policy.IsBannedPhoneCountry(*s.PhoneCountry) {
		e.logger.WithFields(logrus.Fields{
			"request_id": s.RequestID,
			"country":    *s.PhoneCountry,
		}).Info("phone number from banned country")
		s.AddThreat(policy.ReasonBannedPhoneCountry)
		if e.policy.ActionOnThreat(policy.ThreatLevelUnacceptable) == policy.ActionBlock {
			return e.block(s, policy.ReasonBannedPhoneCountry, policy.ThreatLevelUnacceptable, 0)
		}
	}
	if s.PhoneType != nil && e.policy.IsBannedPhoneType(*s.PhoneType) {
		e.logger.WithFields(logrus.Fields{
			"request_id": s.RequestID,
			"type":       string(*s.PhoneType),
		}).Info("phone type not supported")
		s.AddThreat(policy.ReasonBannedPhoneType)
		if e.policy.ActionOnThreat(policy.ThreatLevelUnacceptable) == policy.ActionBlock {
			return e.block(s, policy.ReasonBannedPhoneType, policy.ThreatLevelUnacceptable, 0)
		}
	}
	return nil
}

func (e *Evaluator) block(s *signals.RequestSignals, reason string, level policy.ThreatLevel, score float64) *Verdict {
	e.logger.WithFields(logrus.Fields{
		"request_id": s.RequestID,
		"reason":     reason,
		"level":      level.String(),
	}).Info("blocking request")
	return &Verdict{
		Blocked: true,
		Reason:  reason,
		Level:   level,
		Score:   score,
	}
}
