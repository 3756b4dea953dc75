// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/users/errors"
	"github.com/qolzam/inkwell/users/models"
	"github.com/qolzam/inkwell/users/services"
)

// FollowHandler handles follow relationship HTTP requests
type FollowHandler struct {
	followService services.FollowService
}

// NewFollowHandler creates a new FollowHandler with injected dependencies
func NewFollowHandler(followService services.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// Follow handles POST /users/:id/follow
func (h *FollowHandler) Follow(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	if err := h.followService.Follow(c.UserContext(), me.ID(), c.Params("id")); err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Successfully followed the user", nil)
}

// Unfollow handles DELETE /users/:id/follow
func (h *FollowHandler) Unfollow(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	if err := h.followService.Unfollow(c.UserContext(), me.ID(), c.Params("id")); err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Successfully unfollowed the user", nil)
}

// FollowStatus handles GET /users/:id/follow-status
func (h *FollowHandler) FollowStatus(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	following, err := h.followService.IsFollowing(c.UserContext(), me.ID(), c.Params("id"))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Follow status retrieved successfully", models.FollowStatus{IsFollowing: following})
}

// MyFollowers handles GET /users/me/followers
func (h *FollowHandler) MyFollowers(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return h.followers(c, me.ID())
}

// MyFollowing handles GET /users/me/following
func (h *FollowHandler) MyFollowing(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return h.following(c, me.ID())
}

// Followers handles GET /users/:id/followers
func (h *FollowHandler) Followers(c *fiber.Ctx) error {
	return h.followers(c, c.Params("id"))
}

// Following handles GET /users/:id/following
func (h *FollowHandler) Following(c *fiber.Ctx) error {
	return h.following(c, c.Params("id"))
}

func (h *FollowHandler) followers(c *fiber.Ctx, userID string) error {
	docs, meta, err := h.followService.Followers(c.UserContext(), userID, server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "Followers retrieved successfully", docs, meta)
}

func (h *FollowHandler) following(c *fiber.Ctx, userID string) error {
	docs, meta, err := h.followService.Following(c.UserContext(), userID, server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "Following retrieved successfully", docs, meta)
}
