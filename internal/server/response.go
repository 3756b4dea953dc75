// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/pkg/log"
	"github.com/qolzam/inkwell/internal/querybuilder"
)

// Response is the success envelope returned by every endpoint.
type Response struct {
	Success    bool                   `json:"success"`
	StatusCode int                    `json:"statusCode"`
	Message    string                 `json:"message"`
	Data       interface{}            `json:"data"`
	Meta       *querybuilder.PageMeta `json:"meta,omitempty"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Generic error codes shared by all domains.
const (
	CodeInvalidFilter  = "INVALID_FILTER"
	CodeNotFound       = "NOT_FOUND"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
)

// SendResponse writes a success envelope.
func SendResponse(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(Response{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

// SendPage writes a 200 success envelope carrying pagination metadata.
func SendPage(c *fiber.Ctx, message string, data interface{}, meta querybuilder.PageMeta) error {
	return c.Status(http.StatusOK).JSON(Response{
		Success:    true,
		StatusCode: http.StatusOK,
		Message:    message,
		Data:       data,
		Meta:       &meta,
	})
}

// SendError writes a failure envelope.
func SendError(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(ErrorResponse{
		Success:    false,
		StatusCode: status,
		Code:       code,
		Message:    message,
		Details:    details,
	})
}

// HandleError renders errors no domain handler recognised. Invalid filter
// values are client errors; everything else is logged and reported as 500.
func HandleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return SendError(c, fe.Code, http.StatusText(fe.Code), fe.Message, nil)
	case errors.Is(err, interfaces.ErrInvalidFilter):
		return SendError(c, http.StatusBadRequest, CodeInvalidFilter, "Invalid query parameter", err.Error())
	case errors.Is(err, interfaces.ErrNoDocuments):
		return SendError(c, http.StatusNotFound, CodeNotFound, "Resource not found", nil)
	default:
		log.ErrorWithContext(c.UserContext(), "%s %s failed: %v", c.Method(), c.Path(), err)
		return SendError(c, http.StatusInternalServerError, CodeInternalError, "An unexpected error occurred", nil)
	}
}

// ErrorHandler is the fiber.Config ErrorHandler for the API.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return HandleError(c, err)
}

// QueryValues returns the raw query string of the request, keeping every
// value of repeated keys.
func QueryValues(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	return values
}
