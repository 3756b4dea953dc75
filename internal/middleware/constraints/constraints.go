// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package constraints

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/qolzam/inkwell/internal/server"
)

// RequireUUID rejects requests whose path parameter is not a UUID with 404,
// as if the route did not match. Static routes such as /my-posts must be
// registered before the parameterised route.
func RequireUUID(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		paramValue := c.Params(param)
		if paramValue == "" {
			return c.Next()
		}
		if _, err := uuid.FromString(paramValue); err != nil {
			return server.SendError(c, http.StatusNotFound, server.CodeNotFound, "Resource not found", nil)
		}
		return c.Next()
	}
}
