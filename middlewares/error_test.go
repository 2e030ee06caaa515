package middlewares

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inventory-backend/ledger"
)

type quantityDTO struct {
	Quantity int `validate:"required,gt=0"`
}

func TestErrorHandlerMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "fiber error",
			err:    fiber.NewError(fiber.StatusTeapot, "short and stout"),
			status: fiber.StatusTeapot,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "short and stout", body["message"])
			},
		},
		{
			name:   "validation",
			err:    ValidateStruct(quantityDTO{}),
			status: fiber.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, map[string]any{"Quantity": "required"}, body["errors"])
			},
		},
		{
			name:   "insufficient stock",
			err:    &ledger.StockError{PartID: "p-1", PartNumber: "HX-1", Available: 2, Requested: 5},
			status: fiber.StatusConflict,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "HX-1", body["part_number"])
				assert.EqualValues(t, 2, body["available"])
				assert.EqualValues(t, 5, body["requested"])
			},
		},
		{
			name:   "dependencies",
			err:    &ledger.DependencyError{PartID: "p-1", Dependencies: ledger.PartDependencies{TransactionItems: 1, InvoiceItems: 2}},
			status: fiber.StatusConflict,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, map[string]any{"transaction_items": float64(1), "invoice_items": float64(2)}, body["dependencies"])
			},
		},
		{
			name:   "bad request",
			err:    &ledger.RequestError{Details: "at least one item is required"},
			status: fiber.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "at least one item is required", body["message"])
			},
		},
		{
			name:   "not found",
			err:    &ledger.NotFoundError{Entity: "part", ID: "p-9"},
			status: fiber.StatusNotFound,
		},
		{
			name:   "conflict",
			err:    &ledger.ConflictError{Details: "part number taken"},
			status: fiber.StatusConflict,
		},
		{
			name:   "persistence",
			err:    &ledger.PersistenceError{Op: "create transaction", Err: errors.New("connection reset")},
			status: fiber.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "internal server error", body["message"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(zap.NewNop())})
			app.Get("/", func(*fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["message"])
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

type priceDTO struct {
	Price    decimal.Decimal  `validate:"gte=0"`
	Discount *decimal.Decimal `validate:"omitempty,gte=0"`
}

func TestValidateDecimalFields(t *testing.T) {
	negative := decimal.RequireFromString("-0.01")

	assert.NoError(t, ValidateStruct(priceDTO{Price: decimal.RequireFromString("4.20")}))
	assert.Error(t, ValidateStruct(priceDTO{Price: negative}))
	assert.Error(t, ValidateStruct(priceDTO{Discount: &negative}))
}
