// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withUser(user *types.UserContext) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals(types.UserCtxName, *user)
		}
		return c.Next()
	}
}

func TestAdminMiddleware(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		user   *types.UserContext
		cfg    Config
		status int
	}{
		{"no user", nil, Config{}, http.StatusUnauthorized},
		{"plain user", &types.UserContext{Role: types.UserRole}, Config{}, http.StatusForbidden},
		{"admin", &types.UserContext{Role: types.AdminRole}, Config{}, http.StatusOK},
		{"custom access", &types.UserContext{Role: types.UserRole}, Config{HasAccess: func(u types.UserContext) bool { return true }}, http.StatusOK},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			app := fiber.New()
			app.Get("/", withUser(tc.user), New(tc.cfg), func(c *fiber.Ctx) error {
				return c.SendStatus(http.StatusOK)
			})
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
