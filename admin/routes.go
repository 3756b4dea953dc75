// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/admin/metrics"
	"github.com/qolzam/inkwell/internal/middleware/guards"
)

type Handlers struct {
	Metrics *metrics.Handler
}

func RegisterRoutes(router fiber.Router, handlers *Handlers, g guards.Guards) {
	group := router.Group("/admin")

	group.Get("/metrics", g.AdminThen(handlers.Metrics.Dashboard)...)
}
