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

// Subscription and payment specific errors
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserDeleted          = errors.New("user is deleted")
	ErrUserBlocked          = errors.New("user is blocked")
	ErrAlreadyPremium       = errors.New("user is already a premium member")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrAlreadyPaid          = errors.New("payment already paid")
	ErrPaymentCanceled      = errors.New("payment canceled")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrMissingUserContext   = errors.New("missing user context")
	ErrValidationFailed     = errors.New("validation failed")
)

// Error codes
const (
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeUserInactive         = "USER_INACTIVE"
	CodeAlreadyPremium       = "ALREADY_PREMIUM"
	CodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	CodeAlreadyPaid          = "PAYMENT_ALREADY_PAID"
	CodePaymentCanceled      = "PAYMENT_CANCELED"
	CodeSubscriptionNotFound = "SUBSCRIPTION_NOT_FOUND"
	CodeMissingUserContext   = "MISSING_USER_CONTEXT"
	CodeValidationFailed     = "VALIDATION_FAILED"
)

type mapping struct {
	err     error
	status  int
	code    string
	message string
}

var mappings = []mapping{
	{ErrUserNotFound, http.StatusNotFound, CodeUserNotFound, "User not found"},
	{ErrUserDeleted, http.StatusForbidden, CodeUserInactive, "User is already deleted"},
	{ErrUserBlocked, http.StatusForbidden, CodeUserInactive, "User is blocked"},
	{ErrAlreadyPremium, http.StatusForbidden, CodeAlreadyPremium, "User is already a premium member"},
	{ErrPaymentNotFound, http.StatusNotFound, CodePaymentNotFound, "Payment not found"},
	{ErrAlreadyPaid, http.StatusBadRequest, CodeAlreadyPaid, "Payment already paid"},
	{ErrPaymentCanceled, http.StatusConflict, CodePaymentCanceled, "Payment was canceled"},
	{ErrSubscriptionNotFound, http.StatusNotFound, CodeSubscriptionNotFound, "Subscription not found"},
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
