package server

import (
	"fmt"

	"github.com/NeuralTrust/SMSGuard/pkg/config"
	handlers "github.com/NeuralTrust/SMSGuard/pkg/handlers/http"
	"github.com/NeuralTrust/SMSGuard/pkg/middleware"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

type GuardServer struct {
	*BaseServer
	guard            middleware.Middleware
	handlerTransport handlers.HandlerTransport
}

func NewGuardServer(
	cfg *config.Config,
	logger *logrus.Logger,
	guard middleware.Middleware,
	handlerTransport handlers.HandlerTransport,
) Server {
	s := &GuardServer{
		BaseServer:       NewBaseServer(cfg, logger),
		guard:            guard,
		handlerTransport: handlerTransport,
	}
	s.setupRoutes()
	return s
}

func (s *GuardServer) setupRoutes() {
	s.Router.Use(recover.New())
	s.setupHealthCheck()
	s.Router.Post("/api", s.guard.Middleware(), s.handlerTransport.VerdictHandler.Handle)
}

func (s *GuardServer) Run() error {
	s.setupMetricsEndpoint()
	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("starting smsguard server")
	return s.Router.Listen(addr)
}

func (s *GuardServer) Shutdown() error {
	return s.Router.Shutdown()
}
