// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/internal/types"
	"github.com/qolzam/inkwell/posts/errors"
	"github.com/qolzam/inkwell/posts/models"
	"github.com/qolzam/inkwell/posts/services"
)

// PostHandler handles post HTTP requests
type PostHandler struct {
	postService services.PostService
}

// NewPostHandler creates a new PostHandler with injected dependencies
func NewPostHandler(postService services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

func caller(c *fiber.Ctx) (types.UserContext, error) {
	user, ok := server.CurrentUser(c)
	if !ok {
		return user, errors.ErrMissingUserContext
	}
	return user, nil
}

// CreatePost handles POST /posts
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	var req models.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}
	post, err := h.postService.CreatePost(c.UserContext(), user, &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusCreated, "Post created successfully", post)
}

// ListPosts handles GET /posts
func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, meta, err := h.postService.ListPosts(c.UserContext(), server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "Posts retrieved successfully", posts, meta)
}

// ListMyPosts handles GET /posts/my-posts
func (h *PostHandler) ListMyPosts(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	posts, meta, err := h.postService.ListMyPosts(c.UserContext(), user.ID(), server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "Posts retrieved successfully", posts, meta)
}

// ListFollowingPosts handles GET /posts/following-users
func (h *PostHandler) ListFollowingPosts(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	posts, meta, err := h.postService.ListFollowingPosts(c.UserContext(), user.ID(), server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "Posts retrieved successfully", posts, meta)
}

// ListUserPosts handles GET /posts/users/:userId
func (h *PostHandler) ListUserPosts(c *fiber.Ctx) error {
	posts, meta, err := h.postService.ListUserPosts(c.UserContext(), c.Params("userId"), server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "Posts retrieved successfully", posts, meta)
}

// GetPost handles GET /posts/:slug. Authentication is optional.
func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	var reader *types.UserContext
	if user, ok := server.CurrentUser(c); ok {
		reader = &user
	}
	post, err := h.postService.GetPost(c.UserContext(), c.Params("slug"), reader)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Post retrieved successfully", post)
}

// UpdatePost handles PUT /posts/:id and PUT /posts/:id/by-admin
func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	var req models.UpdatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}
	post, err := h.postService.UpdatePost(c.UserContext(), user, c.Params("id"), &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Post updated successfully", post)
}

// DeletePost handles DELETE /posts/:id
func (h *PostHandler) DeletePost(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	post, err := h.postService.DeletePost(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Post deleted successfully", post)
}

// DeletePostByAdmin handles DELETE /posts/:id/by-admin
func (h *PostHandler) DeletePostByAdmin(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	var req models.AdminDeleteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errors.HandleValidationError(c, "Invalid request body")
		}
	}
	post, err := h.postService.DeletePostByAdmin(c.UserContext(), user, c.Params("id"), req.Reason)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Post deleted successfully", post)
}
