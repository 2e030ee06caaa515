package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"inventory-backend/controllers"
	"inventory-backend/ledger"
	"inventory-backend/middlewares"
)

type Options struct {
	Ledger      *ledger.Service
	Idempotency middlewares.IdempotencyStore
	Logger      *zap.Logger
	JWTSecret   []byte

	BodyLimit       int
	AllowedOrigins  string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// New builds the fiber app with the global error handler, limits and all
// routes.
func New(opts Options) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.NewErrorHandler(logger),
		BodyLimit:    opts.BodyLimit,
	})

	app.Use(middlewares.RequestLogger(logger))
	app.Use(recover.New())

	allowedOrigins := opts.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	// Default KeyGenerator = client IP; default 429 handler is fine.
	if opts.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimitMax,
			Expiration: opts.RateLimitWindow,
		}))
	}

	Register(app, controllers.NewHandler(opts.Ledger, logger), opts, logger)
	return app
}

// Register wires all HTTP routes.
func Register(app *fiber.App, h *controllers.Handler, opts Options, logger *zap.Logger) {
	app.Get("/health", h.Health)

	api := app.Group("/api")

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader(opts.JWTSecret))
	if opts.Idempotency != nil {
		protected.Use(middlewares.Idempotency(opts.Idempotency, logger))
	}

	// Transactions
	protected.Post("/transactions", h.CreateTransaction)
	protected.Get("/transactions", h.GetTransactions)
	protected.Get("/transactions/:id", h.GetTransaction)
	protected.Put("/transactions/:id/payment", h.UpdatePayment)
	protected.Put("/transactions/:id/notes", h.UpdateNotes)
	protected.Delete("/transactions/:id", h.DeleteTransaction)
	protected.Post("/transactions/:id/invoices", h.DeriveInvoices)

	// Stock
	protected.Post("/stock/bulk", h.BulkUpdateStock)

	// Invoices
	protected.Get("/invoices/:id", h.GetInvoice)
	protected.Delete("/invoices/:id", h.DeleteInvoice)

	// Parts
	protected.Post("/parts", h.CreatePart)
	protected.Get("/parts", h.GetParts)
	protected.Get("/parts/:id", h.GetPart)
	protected.Put("/parts/:id", h.UpdatePart)
	protected.Delete("/parts/:id", h.DeletePart)

	// Categories
	protected.Post("/categories", h.CreateCategory)
	protected.Get("/categories", h.GetCategories)
}
