// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package admin

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/internal/types"
)

type Config struct {
	UserCtxName string
	// Optional override to check custom permission instead of strict role
	HasAccess func(u types.UserContext) bool
}

// New requires an authenticated caller with the admin role. It must run
// after the JWT middleware.
func New(config Config) fiber.Handler {
	userKey := config.UserCtxName
	if userKey == "" {
		userKey = types.UserCtxName
	}
	hasAccess := config.HasAccess
	if hasAccess == nil {
		hasAccess = types.UserContext.IsAdmin
	}
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals(userKey).(types.UserContext)
		if !ok {
			return server.SendError(c, http.StatusUnauthorized, server.CodeUnauthorized, "missing user context", nil)
		}
		if !hasAccess(user) {
			return server.SendError(c, http.StatusForbidden, server.CodeForbidden, "admin access required", nil)
		}
		return c.Next()
	}
}
