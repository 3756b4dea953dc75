// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/auth/errors"
	"github.com/qolzam/inkwell/auth/models"
	"github.com/qolzam/inkwell/auth/security"
	"github.com/qolzam/inkwell/auth/services"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/internal/types"
)

// AuthHandler handles registration, login and password changes
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler with injected dependencies
func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}

	result, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		security.Record(c, security.EventTypeRegisterFailure, "", "", false, errors.Code(err))
		return errors.HandleServiceError(c, err)
	}
	security.Record(c, security.EventTypeRegisterSuccess, result.User.ID, "", true, "")
	return server.SendResponse(c, http.StatusCreated, "User Registered successfully", result)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}

	result, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		security.Record(c, security.EventTypeLoginFailure, "", "", false, errors.Code(err))
		return errors.HandleServiceError(c, err)
	}
	security.Record(c, security.EventTypeLoginSuccess, result.User.ID, "", true, "")
	return server.SendResponse(c, http.StatusOK, "User Logged in successfully", result)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	caller, ok := server.CurrentUser(c)
	if !ok {
		return errors.HandleMissingUserContext(c)
	}

	user, err := h.authService.Me(c.UserContext(), caller.ID())
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "User fetched successfully", user)
}

// ChangePassword handles PUT /auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	caller, ok := server.CurrentUser(c)
	if !ok {
		return errors.HandleMissingUserContext(c)
	}

	var req models.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}

	if err := h.authService.ChangePassword(c.UserContext(), caller.ID(), &req); err != nil {
		security.Record(c, security.EventTypePasswordChange, caller.ID(), caller.ID(), false, errors.Code(err))
		return errors.HandleServiceError(c, err)
	}
	security.Record(c, security.EventTypePasswordChange, caller.ID(), caller.ID(), true, "")
	return server.SendResponse(c, http.StatusOK, "Password changed successfully", nil)
}

// ForgetPassword handles POST /auth/forget-password
func (h *AuthHandler) ForgetPassword(c *fiber.Ctx) error {
	var req models.ForgetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}

	if err := h.authService.ForgetPassword(c.UserContext(), &req); err != nil {
		security.Record(c, security.EventTypePasswordResetSent, "", "", false, errors.Code(err))
		return errors.HandleServiceError(c, err)
	}
	security.Record(c, security.EventTypePasswordResetSent, "", "", true, "")
	return server.SendResponse(c, http.StatusOK, "Password reset link sent successfully", nil)
}

// ResetPassword handles POST /auth/reset-password. The reset token is read
// from the Authorization header.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req models.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}

	token := ""
	if header := c.Get(types.HeaderAuthorization); strings.HasPrefix(header, types.BearerPrefix) {
		token = strings.TrimSpace(strings.TrimPrefix(header, types.BearerPrefix))
	}
	if err := h.authService.ResetPassword(c.UserContext(), token, &req); err != nil {
		security.Record(c, security.EventTypePasswordReset, "", "", false, errors.Code(err))
		return errors.HandleServiceError(c, err)
	}
	security.Record(c, security.EventTypePasswordReset, "", "", true, "")
	return server.SendResponse(c, http.StatusOK, "Password reset successfully", nil)
}
