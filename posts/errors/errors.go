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

// Post service specific errors
var (
	ErrPostNotFound         = errors.New("post not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrPremiumAuthorOnly    = errors.New("premium posts require a premium author")
	ErrLoginRequired        = errors.New("premium post requires authentication")
	ErrPremiumRequired      = errors.New("premium membership required")
	ErrSubscriptionInactive = errors.New("subscription inactive or expired")
	ErrNotFollowingAnyone   = errors.New("not following any users")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrMissingUserContext   = errors.New("missing user context")
	ErrValidationFailed     = errors.New("validation failed")
)

// Error codes
const (
	CodePostNotFound       = "POST_NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeCategoryNotFound   = "CATEGORY_NOT_FOUND"
	CodePremiumRequired    = "PREMIUM_REQUIRED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFollowing       = "NOT_FOLLOWING"
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
	{ErrPostNotFound, http.StatusNotFound, CodePostNotFound, "Post not found"},
	{ErrUserNotFound, http.StatusNotFound, CodeUserNotFound, "User not found"},
	{ErrCategoryNotFound, http.StatusNotFound, CodeCategoryNotFound, "Category not found"},
	{ErrPremiumAuthorOnly, http.StatusForbidden, CodePremiumRequired, "Only premium membership user can post premium posts, please subscribe premium subscription first"},
	{ErrLoginRequired, http.StatusUnauthorized, CodeUnauthorized, "You are not authorized"},
	{ErrPremiumRequired, http.StatusForbidden, CodePremiumRequired, "Premium content access is for premium members only"},
	{ErrSubscriptionInactive, http.StatusForbidden, CodePremiumRequired, "Your subscription is inactive or expired. Please renew to access premium content."},
	{ErrNotFollowingAnyone, http.StatusNotFound, CodeNotFollowing, "You are not following any users."},
	{ErrPermissionDenied, http.StatusForbidden, CodePermissionDenied, "You are not allowed to modify this post"},
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
