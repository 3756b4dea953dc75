// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package errors

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/server"
)

// Category service specific errors
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrValidationFailed = errors.New("validation failed")
)

// Error codes
const (
	CodeCategoryNotFound = "CATEGORY_NOT_FOUND"
	CodeCategoryExists   = "DUPLICATE_CATEGORY"
	CodeValidationFailed = "VALIDATION_FAILED"
)

// HandleServiceError handles service errors and returns appropriate HTTP responses
func HandleServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrCategoryNotFound):
		return server.SendError(c, http.StatusNotFound, CodeCategoryNotFound, "Category not found.", nil)
	case errors.Is(err, ErrCategoryExists):
		return server.SendError(c, http.StatusConflict, CodeCategoryExists, "A category with this name already exists.", nil)
	case errors.Is(err, ErrValidationFailed):
		return server.SendError(c, http.StatusBadRequest, CodeValidationFailed, err.Error(), nil)
	default:
		return server.HandleError(c, err)
	}
}

// HandleValidationError handles validation errors with 400 Bad Request
func HandleValidationError(c *fiber.Ctx, message string) error {
	return server.SendError(c, http.StatusBadRequest, CodeValidationFailed, message, nil)
}
