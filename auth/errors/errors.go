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

// Error codes for auth service
const (
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeUserAlreadyExists    = "USER_ALREADY_EXISTS"
	CodeUserBlocked          = "USER_BLOCKED"
	CodeUserDeleted          = "USER_DELETED"
	CodeMissingUserContext   = "MISSING_USER_CONTEXT"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeInvalidResetToken    = "INVALID_RESET_TOKEN"
	CodeResetUnavailable     = "PASSWORD_RESET_UNAVAILABLE"
)

// Auth service specific errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrEmailOfDeleted     = errors.New("email belongs to a deleted account")
	ErrUsernameOfDeleted  = errors.New("username belongs to a deleted account")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrUserDeleted        = errors.New("user is deleted")
	ErrIncorrectPassword  = errors.New("old password does not match")
	ErrValidationFailed   = errors.New("validation failed")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrResetUnavailable   = errors.New("password reset email is not configured")
)

type mapping struct {
	err     error
	status  int
	code    string
	message string
}

var mappings = []mapping{
	{ErrUserNotFound, http.StatusNotFound, CodeUserNotFound, "User not found"},
	{ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "Incorrect credentials"},
	{ErrEmailTaken, http.StatusConflict, CodeUserAlreadyExists, "User already registered"},
	{ErrUsernameTaken, http.StatusConflict, CodeUserAlreadyExists, "Username already exists"},
	{ErrEmailOfDeleted, http.StatusConflict, CodeUserAlreadyExists, "Email linked to a deleted account. Recover or try a different email."},
	{ErrUsernameOfDeleted, http.StatusConflict, CodeUserAlreadyExists, "Username linked to a deleted account. Recover or try a different username."},
	{ErrUserBlocked, http.StatusForbidden, CodeUserBlocked, "User is blocked"},
	{ErrUserDeleted, http.StatusForbidden, CodeUserDeleted, "User is deleted"},
	{ErrIncorrectPassword, http.StatusUnauthorized, CodeInvalidCredentials, "Old password is incorrect"},
	{ErrInvalidResetToken, http.StatusForbidden, CodeInvalidResetToken, "Access Forbidden"},
	{ErrResetUnavailable, http.StatusServiceUnavailable, CodeResetUnavailable, "Password reset is not available"},
}

// Code returns the error code a service error is reported with.
func Code(err error) string {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	if errors.Is(err, ErrValidationFailed) {
		return CodeValidationFailed
	}
	return CodeAuthenticationFailed
}

// HandleServiceError handles service errors and returns appropriate HTTP responses
func HandleServiceError(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrValidationFailed) {
		return server.SendError(c, http.StatusBadRequest, CodeValidationFailed, err.Error(), nil)
	}
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return server.SendError(c, m.status, m.code, m.message, nil)
		}
	}
	return server.HandleError(c, err)
}

// HandleValidationError handles validation errors with 400 Bad Request
func HandleValidationError(c *fiber.Ctx, message string) error {
	return server.SendError(c, http.StatusBadRequest, CodeValidationFailed, message, nil)
}

// HandleMissingUserContext reports a request that reached a protected
// handler without an authenticated caller.
func HandleMissingUserContext(c *fiber.Ctx) error {
	return server.SendError(c, http.StatusUnauthorized, CodeMissingUserContext, "You are not authorized", nil)
}
