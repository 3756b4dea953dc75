// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/categories/errors"
	"github.com/qolzam/inkwell/categories/models"
	"github.com/qolzam/inkwell/categories/services"
	"github.com/qolzam/inkwell/internal/server"
)

// CategoryHandler handles all category-related HTTP requests
type CategoryHandler struct {
	categoryService services.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler with injected dependencies
func NewCategoryHandler(categoryService services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategory handles POST /categories
func (h *CategoryHandler) CreateCategory(c *fiber.Ctx) error {
	var req models.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}

	category, err := h.categoryService.CreateCategory(c.UserContext(), &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusCreated, "New category successfully created.", category)
}

// ListCategories handles GET /categories
func (h *CategoryHandler) ListCategories(c *fiber.Ctx) error {
	categories, meta, err := h.categoryService.ListCategories(c.UserContext(), server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "Categories retrieved successfully.", categories, meta)
}

// GetCategory handles GET /categories/:id
func (h *CategoryHandler) GetCategory(c *fiber.Ctx) error {
	category, err := h.categoryService.GetCategory(c.UserContext(), c.Params("id"))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Category fetched successfully.", category)
}

// DeleteCategory handles DELETE /categories/:id
func (h *CategoryHandler) DeleteCategory(c *fiber.Ctx) error {
	category, err := h.categoryService.DeleteCategory(c.UserContext(), c.Params("id"))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Category successfully removed.", category)
}
