// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package subscriptions

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/middleware/guards"
	"github.com/qolzam/inkwell/subscriptions/handlers"
)

// SubscriptionsHandlers holds all the handlers this router needs
type SubscriptionsHandlers struct {
	SubscriptionHandler *handlers.SubscriptionHandler
}

// RegisterRoutes mounts the /subscriptions and /payments routes
func RegisterRoutes(router fiber.Router, h *SubscriptionsHandlers, g guards.Guards) {
	subs := router.Group("/subscriptions")
	subs.Post("/", g.Auth, h.SubscriptionHandler.Subscribe)
	subs.Post("/subscribe", g.Auth, h.SubscriptionHandler.Subscribe)
	subs.Get("/", g.AdminThen(h.SubscriptionHandler.ListSubscriptions)...)
	subs.Get("/me", g.Auth, h.SubscriptionHandler.ListMySubscriptions)

	payments := router.Group("/payments")
	payments.Get("/", g.AdminThen(h.SubscriptionHandler.ListPayments)...)
	payments.Get("/me", g.Auth, h.SubscriptionHandler.ListMyPayments)
	payments.Put("/:transactionId/confirm", g.AdminThen(h.SubscriptionHandler.ConfirmPayment)...)
}
