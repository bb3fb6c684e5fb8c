package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NeuralTrust/SMSGuard/pkg/config"
	"github.com/NeuralTrust/SMSGuard/pkg/guard"
	handlers "github.com/NeuralTrust/SMSGuard/pkg/handlers/http"
	"github.com/NeuralTrust/SMSGuard/pkg/infra/cache"
	infraLogger "github.com/NeuralTrust/SMSGuard/pkg/infra/logger"
	"github.com/NeuralTrust/SMSGuard/pkg/infra/phonevalidation"
	"github.com/NeuralTrust/SMSGuard/pkg/infra/velocity"
	"github.com/NeuralTrust/SMSGuard/pkg/middleware"
	"github.com/NeuralTrust/SMSGuard/pkg/policy"
	"github.com/NeuralTrust/SMSGuard/pkg/scoring"
	"github.com/NeuralTrust/SMSGuard/pkg/server"
	"github.com/joho/godotenv"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger, closeLogs := infraLogger.NewLogger()

	if err := config.Load("./config"); err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}
	cfg := config.GetConfig()

	cacheClient, err := cache.NewClient(cache.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TLS:      cfg.Redis.TLS,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize redis client")
	}
	defer cacheClient.Close()

	store := velocity.NewStore(cacheClient.RedisClient(), velocity.Config{
		TTL:    time.Duration(cfg.Velocity.TTLSeconds) * time.Second,
		Window: time.Duration(cfg.Velocity.WindowSeconds) * time.Second,
	}, logger, nil)

	validator := phonevalidation.NewClient(phonevalidation.Config{
		Endpoint:       cfg.Validation.Endpoint,
		APIKey:         cfg.Validation.APIKey,
		BreakerMax:     cfg.Validation.BreakerMaxFailures,
		BreakerTimeout: cfg.Validation.BreakerCooldown(),
	}, logger)

	scoringCfg, err := scoring.ConfigFromSettings(cfg.Scoring.CoreCountries, cfg.Scoring.Weights, cfg.Scoring.Thresholds)
	if err != nil {
		logger.WithError(err).Fatal("invalid scoring configuration")
	}
	engine := scoring.NewEngine(scoringCfg, logger)

	policyCfg, err := policy.ConfigFromSettings(
		cfg.Policy.RiskLowCut,
		cfg.Policy.RiskMediumCut,
		cfg.Policy.BlockLevel,
		cfg.Policy.PhoneCountryBlacklist,
		cfg.Policy.PhoneTypeBlacklist,
	)
	if err != nil {
		logger.WithError(err).Fatal("invalid policy configuration")
	}
	decisionPolicy := policy.NewPolicy(policyCfg)

	evaluator := guard.NewEvaluator(validator, store, engine, decisionPolicy, guard.Config{
		HeaderViewerCountry:   cfg.Headers.ViewerCountry,
		HeaderAnonymizingIP:   cfg.Headers.AnonymizingIP,
		HeaderDatacenter:      cfg.Headers.Datacenter,
		HeaderBot:             cfg.Headers.Bot,
		HeaderSessionVelocity: cfg.Headers.SessionVelocity,
		ValidationTimeout:     cfg.Validation.Timeout(),
		StoreTimeout:          cfg.Velocity.StoreTimeout(),
		SuffixLength:          cfg.Velocity.SuffixLength,
	}, logger)

	guardMiddleware := middleware.NewGuardMiddleware(evaluator, cfg.Headers, logger)

	handlerTransport := handlers.HandlerTransport{
		VerdictHandler: handlers.NewVerdictHandler(logger, cfg.Headers.ThreatSummary),
	}

	srv := server.NewGuardServer(cfg, logger, guardMiddleware, handlerTransport)

	go func() {
		if err := srv.Run(); err != nil {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		logger.WithError(err).Error("failed to shutdown server")
	}
	closeLogs()
}
