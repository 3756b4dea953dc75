// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/types"
)

// CurrentUser returns the caller set by the auth middleware.
func CurrentUser(c *fiber.Ctx) (types.UserContext, bool) {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	return user, ok
}
