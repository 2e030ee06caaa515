package middlewares

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func authApp(secret []byte) *fiber.App {
	app := fiber.New()
	app.Get("/me", IsAuthenticatedHeader(secret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user":       c.Locals("userID"),
			"role":       c.Locals("role"),
			"can_prices": CanSetPrices(c),
		})
	})
	return app
}

func bearer(t *testing.T, secret []byte, userID, role string, ttl time.Duration) string {
	t.Helper()
	token, err := GenerateJWT(secret, userID, role, ttl)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestIsAuthenticatedHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"manager", bearer(t, testSecret, "u-1", "Manager", time.Hour), http.StatusOK, `{"can_prices":true,"role":"manager","user":"u-1"}`},
		{"role defaults to clerk", bearer(t, testSecret, "u-2", "", time.Hour), http.StatusOK, `{"can_prices":false,"role":"clerk","user":"u-2"}`},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"wrong secret", bearer(t, []byte("other"), "u-1", RoleAdmin, time.Hour), http.StatusUnauthorized, ""},
		{"expired", bearer(t, testSecret, "u-1", RoleAdmin, -time.Minute), http.StatusUnauthorized, ""},
		{"no subject", bearer(t, testSecret, "", RoleAdmin, time.Hour), http.StatusUnauthorized, ""},
	}
	app := authApp(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.JSONEq(t, tt.body, string(body))
			}
		})
	}
}

func TestIsAuthenticatedHeaderWithoutSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, testSecret, "u-1", RoleAdmin, time.Hour))

	resp, err := authApp(nil).Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestGenerateJWTRequiresSecret(t *testing.T) {
	_, err := GenerateJWT(nil, "u-1", RoleAdmin, time.Hour)
	assert.Error(t, err)
}
