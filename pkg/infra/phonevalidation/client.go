package phonevalidation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NeuralTrust/SMSGuard/pkg/domain/signals"
	"github.com/NeuralTrust/SMSGuard/pkg/infra/httpx"
	"github.com/sirupsen/logrus"
)

// Result resolves a phone number to its issuing country and line type.
type Result struct {
	CountryISO2 string            `json:"country_iso2"`
	PhoneType   signals.PhoneType `json:"phone_type"`
}

//go:generate mockery --name=Validator --dir=. --output=../../../mocks --filename=phone_validator_mock.go --case=underscore --with-expecter
type Validator interface {
	Validate(ctx context.Context, phone string) (*Result, error)
}

type Config struct {
	Endpoint       string
	APIKey         string
	BreakerMax     uint32
	BreakerTimeout time.Duration
}

type client struct {
	httpClient *http.Client
	breaker    httpx.CircuitBreaker
	cfg        Config
	logger     *logrus.Logger
}

func NewClient(cfg Config, logger *logrus.Logger) Validator {
	return &client{
		httpClient: &http.Client{},
		breaker:    httpx.NewCircuitBreaker("phone_validation", cfg.BreakerTimeout, cfg.BreakerMax, logger),
		cfg:        cfg,
		logger:     logger,
	}
}

func (c *client) Validate(ctx context.Context, phone string) (*Result, error) {
	payload, err := json.Marshal(map[string]string{"phone": phone})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation request: %w", err)
	}

	var result Result
	err = c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to build validation request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("validation request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("validation service returned status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("failed to decode validation response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.CountryISO2 = strings.ToUpper(result.CountryISO2)
	result.PhoneType = signals.PhoneType(strings.ToUpper(string(result.PhoneType)))

	c.logger.WithFields(logrus.Fields{
		"country": result.CountryISO2,
		"type":    string(result.PhoneType),
	}).Debug("phone validated")

	return &result, nil
}
