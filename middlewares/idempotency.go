package middlewares

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"inventory-backend/models"
)

// IdempotencyStore persists Idempotency-Key records outside the handler's
// unit of work.
type IdempotencyStore interface {
	// Reserve stores rec as pending, or returns the record already stored
	// under rec.Key with created=false.
	Reserve(ctx context.Context, rec *models.IdempotencyKey) (stored *models.IdempotencyKey, created bool, err error)
	Complete(ctx context.Context, key string, status int, body []byte) error
	// Release drops a pending record so the request can be retried.
	Release(ctx context.Context, key string) error
}

// Idempotency processes Idempotency-Key for mutating HTTP methods. The first
// completed response is replayed for every repeat of the same request.
func Idempotency(store IdempotencyStore, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if key == "" {
			return c.Next()
		}
		if len(key) > 128 {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		userID, _ := c.Locals("userID").(string)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "auth context missing")
		}

		path := c.OriginalURL() // includes query string

		// Build deterministic request hash: method|path|body|user
		h := sha256.New()
		h.Write([]byte(method))
		h.Write([]byte{'\n'})
		h.Write([]byte(path))
		h.Write([]byte{'\n'})
		h.Write(c.Body())
		h.Write([]byte{'\n'})
		h.Write([]byte(userID))
		reqHash := hex.EncodeToString(h.Sum(nil))

		ctx := c.UserContext()
		existing, created, err := store.Reserve(ctx, &models.IdempotencyKey{
			Key:         key,
			RequestHash: reqHash,
			Method:      method,
			Path:        path,
			UserID:      userID,
		})
		if err != nil {
			logger.Error("Idempotency lookup failed", zap.Error(err), zap.String("key", key))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
		}
		if existing.RequestHash != reqHash {
			return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
		}
		if !created {
			if existing.Pending() {
				return fiber.NewError(fiber.StatusConflict, "request with this Idempotency-Key is still in progress")
			}
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}

		if err := c.Next(); err != nil {
			release(ctx, store, logger, key)
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			release(ctx, store, logger, key)
			return nil
		}
		resp := c.Response().Body()
		blob := make([]byte, len(resp))
		copy(blob, resp)
		if err := store.Complete(ctx, key, status, blob); err != nil {
			// best-effort: don't break the successful response
			logger.Warn("Idempotency completion failed", zap.Error(err), zap.String("key", key))
		}
		return nil
	}
}

func release(ctx context.Context, store IdempotencyStore, logger *zap.Logger, key string) {
	if err := store.Release(ctx, key); err != nil {
		logger.Warn("Idempotency release failed", zap.Error(err), zap.String("key", key))
	}
}
