package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"inventory-backend/ledger"
)

const maxPageSize = 500

// Handler exposes the ledger over HTTP. Errors are returned to the central
// fiber ErrorHandler, which maps ledger errors to status codes.
type Handler struct {
	ledger *ledger.Service
	logger *zap.Logger
}

func NewHandler(svc *ledger.Service, logger *zap.Logger) *Handler {
	return &Handler{ledger: svc, logger: logger}
}

func pathID(c *fiber.Ctx, entity string) (string, error) {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "missing "+entity+" id in path")
	}
	return id, nil
}

// GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
