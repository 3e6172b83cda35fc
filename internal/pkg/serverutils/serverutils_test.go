package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"ai-concept-engine/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signed(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "scheduler",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func testApp() *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(logger.NewNopLogger()))
	app.Get("/open", func(ctx *fiber.Ctx) error {
		return ctx.JSON(SuccessResponse("ok", 1))
	})
	app.Get("/boom", func(ctx *fiber.Ctx) error {
		return errors.New("kaput")
	})
	app.Get("/missing", func(ctx *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "nope")
	})
	app.Get("/secure", NewJwtMiddleware(testSecret), func(ctx *fiber.Ctx) error {
		return ctx.SendString(ctx.Locals("subject").(string))
	})
	return app
}

func TestErrorHandlerMapsStatus(t *testing.T) {
	app := testApp()

	tests := []struct {
		path string
		code int
	}{
		{"/open", 200},
		{"/boom", 500},
		{"/missing", 404},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
		require.NoError(t, err)
		assert.Equal(t, tt.code, resp.StatusCode, tt.path)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	var body Response[any]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "nope", body.Message)
}

func TestJwtMiddleware(t *testing.T) {
	app := testApp()

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", 401},
		{"wrong secret", "Bearer " + signed(t, "other"), 401},
		{"garbage", "Bearer abc", 401},
		{"valid", "Bearer " + signed(t, testSecret), 200},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/secure", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.code, resp.StatusCode, tt.name)
		if tt.code == 200 {
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, "scheduler", string(body))
		}
	}
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Id string `validate:"required"`
	}
	assert.NoError(t, ValidateRequest(req{Id: "x"}))

	err := ValidateRequest(req{})
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
	assert.Contains(t, fe.Message, "req.Id")
}
