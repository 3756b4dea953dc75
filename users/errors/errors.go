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

// User service specific errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserBlocked       = errors.New("user is blocked")
	ErrUserDeleted       = errors.New("user is deleted")
	ErrPasswordChanged   = errors.New("password changed after token was issued")
	ErrAlreadyBlocked    = errors.New("user is already blocked")
	ErrAlreadyActive     = errors.New("user is already active")
	ErrAlreadyAdmin      = errors.New("user is already an admin")
	ErrAdminDeletion     = errors.New("admin accounts cannot be deleted")
	ErrSelfFollow        = errors.New("cannot follow yourself")
	ErrSelfUnfollow      = errors.New("cannot unfollow yourself")
	ErrAlreadyFollowing  = errors.New("already following")
	ErrNotFollowing      = errors.New("not following")
	ErrValidationFailed  = errors.New("validation failed")
	ErrMissingUserClaims = errors.New("missing user context")
)

// Error codes
const (
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeUserBlocked      = "USER_BLOCKED"
	CodeUserDeleted      = "USER_DELETED"
	CodeTokenRevoked     = "TOKEN_REVOKED"
	CodeInvalidState     = "INVALID_STATE"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeFollowConflict   = "FOLLOW_CONFLICT"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeUnauthorized     = "UNAUTHORIZED"
)

type mapping struct {
	err     error
	status  int
	code    string
	message string
}

var mappings = []mapping{
	{ErrUserNotFound, http.StatusNotFound, CodeUserNotFound, "User not found"},
	{ErrUserBlocked, http.StatusForbidden, CodeUserBlocked, "User is blocked"},
	{ErrUserDeleted, http.StatusForbidden, CodeUserDeleted, "User is already deleted"},
	{ErrPasswordChanged, http.StatusForbidden, CodeTokenRevoked, "Password has been changed. Please login again."},
	{ErrAlreadyBlocked, http.StatusBadRequest, CodeInvalidState, "User is already Blocked"},
	{ErrAlreadyActive, http.StatusBadRequest, CodeInvalidState, "User is already Active"},
	{ErrAlreadyAdmin, http.StatusBadRequest, CodeInvalidState, "User is already an admin"},
	{ErrAdminDeletion, http.StatusForbidden, CodePermissionDenied, "Admin users cannot delete accounts"},
	{ErrSelfFollow, http.StatusBadRequest, CodeFollowConflict, "You cannot follow yourself"},
	{ErrSelfUnfollow, http.StatusBadRequest, CodeFollowConflict, "You cannot unfollow yourself"},
	{ErrAlreadyFollowing, http.StatusConflict, CodeFollowConflict, "You are already following this user"},
	{ErrNotFollowing, http.StatusBadRequest, CodeFollowConflict, "You are not following this user"},
	{ErrMissingUserClaims, http.StatusUnauthorized, CodeUnauthorized, "You are not authorized"},
}

func lookup(err error) (mapping, bool) {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return mapping{}, false
}

// HandleServiceError handles service errors and returns appropriate HTTP responses
func HandleServiceError(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrValidationFailed) {
		return server.SendError(c, http.StatusBadRequest, CodeValidationFailed, err.Error(), nil)
	}
	if m, ok := lookup(err); ok {
		return server.SendError(c, m.status, m.code, m.message, nil)
	}
	return server.HandleError(c, err)
}

// HandleValidationError handles validation errors with 400 Bad Request
func HandleValidationError(c *fiber.Ctx, message string) error {
	return server.SendError(c, http.StatusBadRequest, CodeValidationFailed, message, nil)
}

// AsFiberError converts a known user error into a *fiber.Error carrying its
// status and message. Other errors are returned unchanged.
func AsFiberError(err error) error {
	if err == nil {
		return nil
	}
	if m, ok := lookup(err); ok {
		return fiber.NewError(m.status, m.message)
	}
	return err
}
