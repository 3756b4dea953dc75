// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/auth/security"
	"github.com/qolzam/inkwell/internal/middleware/authjwt"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/internal/types"
	"github.com/qolzam/inkwell/users/errors"
	"github.com/qolzam/inkwell/users/models"
	"github.com/qolzam/inkwell/users/services"
)

// UserHandler handles user account HTTP requests
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler creates a new UserHandler with injected dependencies
func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// AccessVerifier rejects tokens of deleted or blocked accounts and tokens
// issued before the last password change.
func AccessVerifier(userService services.UserService) authjwt.Verifier {
	return func(ctx context.Context, user types.UserContext) error {
		return errors.AsFiberError(userService.CheckAccess(ctx, user))
	}
}

func caller(c *fiber.Ctx) (types.UserContext, error) {
	user, ok := server.CurrentUser(c)
	if !ok {
		return user, errors.ErrMissingUserClaims
	}
	return user, nil
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	users, meta, err := h.userService.ListUsers(c.UserContext(), server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "All users retrieved successfully", users, meta)
}

// GetMe handles GET /users/me
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	user, err := h.userService.GetUser(c.UserContext(), me.ID())
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "User retrieved successfully", user.Public())
}

// GetUserByUsername handles GET /users/:username
func (h *UserHandler) GetUserByUsername(c *fiber.Ctx) error {
	user, err := h.userService.GetUserByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "User retrieved successfully", user)
}

// UpdateProfile handles PATCH /users/update-profile
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	var req models.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}
	user, err := h.userService.UpdateProfile(c.UserContext(), me.ID(), &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "User profile updated successfully", user)
}

// UpdateSocialLinks handles PUT /users/profile/update-social-links
func (h *UserHandler) UpdateSocialLinks(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	var req models.UpdateSocialLinksRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}
	user, err := h.userService.UpdateSocialLinks(c.UserContext(), me.ID(), &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "User social links updated successfully", user)
}

// BlockUser handles PUT /users/:id/block
func (h *UserHandler) BlockUser(c *fiber.Ctx) error {
	return h.moderate(c, h.userService.BlockUser, security.EventTypeAccountBlocked, "User blocked successfully")
}

// UnblockUser handles PUT /users/:id/unblock
func (h *UserHandler) UnblockUser(c *fiber.Ctx) error {
	return h.moderate(c, h.userService.UnblockUser, security.EventTypeAccountUnblocked, "User unblock successfully")
}

// MakeAdmin handles PUT /users/:id/make-admin
func (h *UserHandler) MakeAdmin(c *fiber.Ctx) error {
	return h.moderate(c, h.userService.MakeAdmin, security.EventTypePrivilegeEscalation, "User role updated successfully: User is now an Admin.")
}

func (h *UserHandler) moderate(c *fiber.Ctx, action func(context.Context, string) (*models.User, error), event, message string) error {
	admin, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	target := c.Params("id")
	user, err := action(c.UserContext(), target)
	if err != nil {
		security.Record(c, event, target, admin.ID(), false, err.Error())
		return errors.HandleServiceError(c, err)
	}
	security.Record(c, event, target, admin.ID(), true, "")
	return server.SendResponse(c, http.StatusOK, message, user)
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	admin, err := caller(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	target := c.Params("id")
	if err := h.userService.DeleteUserAccount(c.UserContext(), target); err != nil {
		security.Record(c, security.EventTypeAccountDeleted, target, admin.ID(), false, err.Error())
		return errors.HandleServiceError(c, err)
	}
	security.Record(c, security.EventTypeAccountDeleted, target, admin.ID(), true, "")
	return server.SendResponse(c, http.StatusOK, "User account deleted successfully", nil)
}
