package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type verdictHandler struct {
	logger       *logrus.Logger
	threatHeader string
}

// NewVerdictHandler is the downstream collaborator behind the guard: it
// echoes the threat summary header written by the middleware so callers can
// inspect the verdict. It carries no logic of its own.
func NewVerdictHandler(logger *logrus.Logger, threatHeader string) Handler {
	return &verdictHandler{
		logger:       logger,
		threatHeader: threatHeader,
	}
}

func (h *verdictHandler) Handle(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		h.threatHeader: c.Get(h.threatHeader),
	})
}
