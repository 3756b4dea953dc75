// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package testutil

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/qolzam/inkwell/internal/middleware/authjwt"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestConfig(t *testing.T) {
	t.Parallel()
	cfg := NewTestConfig(t, map[string]string{"QUERY_STRICT_CATEGORY": "true"})

	assert.Equal(t, "memory", cfg.Database.Type)
	assert.True(t, cfg.Query.StrictCategory)
	assert.False(t, cfg.RateLimits.Login.Enabled)
	assert.Contains(t, cfg.JWT.PublicKey, "PUBLIC KEY")
}

func TestGenerateTestJWT_AcceptedByMiddleware(t *testing.T) {
	t.Parallel()
	cfg := NewTestConfig(t, nil)
	user := types.UserContext{
		UserID:   uuid.Must(uuid.NewV4()),
		Email:    "ada@example.com",
		Username: "ada",
		Role:     types.AdminRole,
	}

	app := fiber.New()
	app.Get("/me", authjwt.New(authjwt.Config{PublicKey: cfg.JWT.PublicKey}), func(c *fiber.Ctx) error {
		u, _ := server.CurrentUser(c)
		return server.SendResponse(c, http.StatusOK, "ok", u)
	})

	h := NewHTTPHelper(t, app)
	resp := h.NewRequest(http.MethodGet, "/me", nil).
		WithJWTAuth(GenerateTestJWT(t, cfg.JWT.PrivateKey, user)).
		Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got types.UserContext
	env := Decode(t, resp, &got)
	assert.True(t, env.Success)
	assert.Equal(t, user.UserID, got.UserID)
	assert.Equal(t, "ada", got.Username)
	assert.True(t, got.IsAdmin())
	assert.NotZero(t, got.IssuedAt)

	resp = h.NewRequest(http.MethodGet, "/me", nil).Send()
	env = Decode(t, resp, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, server.CodeUnauthorized, env.Code)
}
