package middlewares

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"inventory-backend/ledger"
)

// NewErrorHandler centralizes error responses and keeps messages sanitized.
func NewErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// 1) Fiber errors (use their status code + message)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		// 2) Validation errors (422 + per-field info)
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			out := make(map[string]string, len(ve))
			for _, fe := range ve {
				out[fe.Field()] = fe.Tag()
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"message": "validation failed",
				"errors":  out,
			})
		}

		// 3) Ledger errors
		var (
			stockErr *ledger.StockError
			depErr   *ledger.DependencyError
			reqErr   *ledger.RequestError
		)
		switch {
		case errors.As(err, &stockErr):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message":     err.Error(),
				"part_id":     stockErr.PartID,
				"part_number": stockErr.PartNumber,
				"available":   stockErr.Available,
				"requested":   stockErr.Requested,
			})
		case errors.As(err, &depErr):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message":      err.Error(),
				"dependencies": depErr.Dependencies,
			})
		case errors.As(err, &reqErr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": reqErr.Details})
		case errors.Is(err, ledger.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, ledger.ErrConflict):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
		}

		// 4) Unknown errors (500)
		logger.Error("internal error",
			zap.Error(err),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "internal server error",
		})
	}
}
