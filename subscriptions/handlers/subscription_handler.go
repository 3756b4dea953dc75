// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/subscriptions/errors"
	"github.com/qolzam/inkwell/subscriptions/models"
	"github.com/qolzam/inkwell/subscriptions/services"
)

// SubscriptionHandler handles subscription and payment HTTP requests
type SubscriptionHandler struct {
	subscriptionService services.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler with injected dependencies
func NewSubscriptionHandler(subscriptionService services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

func callerID(c *fiber.Ctx) (string, error) {
	user, ok := server.CurrentUser(c)
	if !ok {
		return "", errors.ErrMissingUserContext
	}
	return user.ID(), nil
}

// Subscribe handles POST /subscriptions
func (h *SubscriptionHandler) Subscribe(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	var req models.SubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}
	checkout, err := h.subscriptionService.Subscribe(c.UserContext(), userID, &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Subscription initiate successfully", checkout)
}

// ListSubscriptions handles GET /subscriptions
func (h *SubscriptionHandler) ListSubscriptions(c *fiber.Ctx) error {
	subs, meta, err := h.subscriptionService.ListSubscriptions(c.UserContext(), server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "Subscriptions retrieved successfully", subs, meta)
}

// ListMySubscriptions handles GET /subscriptions/me
func (h *SubscriptionHandler) ListMySubscriptions(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	subs, meta, err := h.subscriptionService.ListMySubscriptions(c.UserContext(), userID, server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "Subscriptions retrieved successfully", subs, meta)
}

// ConfirmPayment handles PUT /payments/:transactionId/confirm
func (h *SubscriptionHandler) ConfirmPayment(c *fiber.Ctx) error {
	payment, err := h.subscriptionService.ConfirmPayment(c.UserContext(), c.Params("transactionId"))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Payment confirmed successfully", payment)
}

// ListPayments handles GET /payments
func (h *SubscriptionHandler) ListPayments(c *fiber.Ctx) error {
	payments, meta, err := h.subscriptionService.ListPayments(c.UserContext(), server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "Payments retrieved successfully", payments, meta)
}

// ListMyPayments handles GET /payments/me
func (h *SubscriptionHandler) ListMyPayments(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	payments, meta, err := h.subscriptionService.ListMyPayments(c.UserContext(), userID, server.QueryValues(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendPage(c, "Payments retrieved successfully", payments, meta)
}
