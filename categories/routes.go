// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package categories

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/categories/handlers"
	"github.com/qolzam/inkwell/internal/middleware/constraints"
	"github.com/qolzam/inkwell/internal/middleware/guards"
)

// CategoriesHandlers holds all the handlers this router needs
type CategoriesHandlers struct {
	CategoryHandler *handlers.CategoryHandler
}

// RegisterRoutes is the single entry point for setting up category routes
func RegisterRoutes(router fiber.Router, h *CategoriesHandlers, g guards.Guards) {
	group := router.Group("/categories")

	group.Get("/", h.CategoryHandler.ListCategories)
	group.Post("/", g.AdminThen(h.CategoryHandler.CreateCategory)...)

	group.Get("/:id", constraints.RequireUUID("id"), h.CategoryHandler.GetCategory)
	group.Delete("/:id", g.AdminThen(constraints.RequireUUID("id"), h.CategoryHandler.DeleteCategory)...)
}
