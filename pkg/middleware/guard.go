package middleware

import (
	"errors"
	"time"

	"github.com/NeuralTrust/SMSGuard/pkg/config"
	"github.com/NeuralTrust/SMSGuard/pkg/guard"
	infraPrometheus "github.com/NeuralTrust/SMSGuard/pkg/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type guardMiddleware struct {
	evaluator       *guard.Evaluator
	logger          *logrus.Logger
	requestIDHeader string
	threatHeader    string
	signalHeaders   []string
}

// NewGuardMiddleware wires the evaluator in front of the protected route. On
// pass the request continues downstream annotated with the threat summary
// header; on block it terminates with the fixed 403 response.
func NewGuardMiddleware(
	evaluator *guard.Evaluator,
	headers config.HeadersConfig,
	logger *logrus.Logger,
) Middleware {
	return &guardMiddleware{
		evaluator:       evaluator,
		logger:          logger,
		requestIDHeader: headers.RequestID,
		threatHeader:    headers.ThreatSummary,
		signalHeaders: []string{
			headers.ViewerCountry,
			headers.AnonymizingIP,
			headers.Datacenter,
			headers.Bot,
			headers.SessionVelocity,
		},
	}
}

func (m *guardMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(m.requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		headers := make(map[string]string, len(m.signalHeaders))
		for _, name := range m.signalHeaders {
			if value := c.Get(name); value != "" {
				headers[name] = value
			}
		}

		req := &guard.InboundRequest{
			IP:        c.IP(),
			RequestID: requestID,
			Body:      c.Body(),
			Headers:   headers,
		}

		verdict, err := m.evaluator.Evaluate(c.UserContext(), req)
		infraPrometheus.EvaluationLatency.Observe(float64(time.Since(start).Milliseconds()))

		if err != nil {
			if errors.Is(err, guard.ErrMalformedInput) {
				infraPrometheus.EvaluationTotal.WithLabelValues("malformed").Inc()
				return c.Status(fiber.StatusBadRequest).JSON(
					fiber.Map{"error": err.Error()},
				)
			}
			m.logger.WithError(err).Error("evaluation failed")
			return c.Status(fiber.StatusInternalServerError).JSON(
				fiber.Map{"error": "evaluation failed"},
			)
		}

		if verdict.Blocked {
			infraPrometheus.EvaluationTotal.WithLabelValues("block").Inc()
			reason := verdict.Reason
			if reason == "" {
				reason = guard.DefaultBlockReason
			}
			return c.Status(fiber.StatusForbidden).JSON(
				fiber.Map{"response": reason},
			)
		}

		infraPrometheus.EvaluationTotal.WithLabelValues("pass").Inc()
		c.Request().Header.Set(m.threatHeader, verdict.ThreatSummary)
		return c.Next()
	}
}
