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

// Comment service specific errors
var (
	ErrCommentNotFound    = errors.New("comment not found")
	ErrPostNotFound       = errors.New("post not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrMissingUserContext = errors.New("missing user context")
	ErrValidationFailed   = errors.New("validation failed")
)

// Error codes
const (
	CodeCommentNotFound    = "COMMENT_NOT_FOUND"
	CodePostNotFound       = "POST_NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeMissingUserContext = "MISSING_USER_CONTEXT"
	CodeValidationFailed   = "VALIDATION_FAILED"
)

type mapping struct {
	err     error
	status  int
	code    string
	message string
}

var mappings = []mapping{
	{ErrCommentNotFound, http.StatusNotFound, CodeCommentNotFound, "Comment not found"},
	{ErrPostNotFound, http.StatusNotFound, CodePostNotFound, "Post not found"},
	{ErrUserNotFound, http.StatusNotFound, CodeUserNotFound, "User not found"},
	{ErrPermissionDenied, http.StatusForbidden, CodePermissionDenied, "You are not allowed to modify this comment"},
	{ErrMissingUserContext, http.StatusUnauthorized, CodeMissingUserContext, "You are not authorized"},
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
