// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/comments/errors"
	"github.com/qolzam/inkwell/comments/models"
	"github.com/qolzam/inkwell/comments/services"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/internal/types"
)

// CommentHandler handles comment HTTP requests
type CommentHandler struct {
	commentService services.CommentService
}

// NewCommentHandler creates a new CommentHandler with injected dependencies
func NewCommentHandler(commentService services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func caller(c *fiber.Ctx) (types.UserContext, error) {
	user, ok := server.CurrentUser(c)
	if !ok {
		return user, errors.ErrMissingUserContext
	}
	return user, nil
}

// CreateComment handles POST /posts/:id/comments
func (h *CommentHandler) CreateComment(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	var req models.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}
	comment, err := h.commentService.CreateComment(c.UserContext(), user.ID(), c.Params("id"), &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusCreated, "Add comment successfully", comment)
}

// ListComments handles GET /posts/:id/comments
func (h *CommentHandler) ListComments(c *fiber.Ctx) error {
	comments, meta, err := h.commentService.ListComments(c.UserContext(), c.Params("id"), server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "Comments retrieved successfully", comments, meta)
}

// UpdateComment handles PUT /comments/:id
func (h *CommentHandler) UpdateComment(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	var req models.UpdateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}
	comment, err := h.commentService.UpdateComment(c.UserContext(), user, c.Params("id"), &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Comment updated successfully", comment)
}

// DeleteComment handles DELETE /comments/:id
func (h *CommentHandler) DeleteComment(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	comment, err := h.commentService.DeleteComment(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Comment deleted successfully", comment)
}
