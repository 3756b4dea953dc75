// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/auth/handlers"
	"github.com/qolzam/inkwell/auth/jwks"
	"github.com/qolzam/inkwell/internal/middleware/guards"
	"github.com/qolzam/inkwell/internal/middleware/ratelimit"
	"github.com/qolzam/inkwell/internal/platform/config"
)

// AuthHandlers holds all the handlers this router needs
type AuthHandlers struct {
	AuthHandler *handlers.AuthHandler
	JWKSHandler *jwks.Handler
}

// RegisterRoutes is the single entry point for setting up auth routes
func RegisterRoutes(router fiber.Router, h *AuthHandlers, g guards.Guards, cfg *config.Config) {
	group := router.Group("/auth")

	group.Post("/register", ratelimit.FromConfig("registration", cfg.RateLimits.Register), h.AuthHandler.Register)
	group.Post("/login", ratelimit.FromConfig("login", cfg.RateLimits.Login), h.AuthHandler.Login)

	group.Get("/me", g.Auth, h.AuthHandler.Me)
	group.Put("/change-password", g.Auth, h.AuthHandler.ChangePassword)

	resetLimit := ratelimit.FromConfig("password reset", cfg.RateLimits.PasswordReset)
	group.Post("/forget-password", resetLimit, h.AuthHandler.ForgetPassword)
	group.Post("/reset-password", resetLimit, h.AuthHandler.ResetPassword)

	if h.JWKSHandler != nil {
		group.Get("/.well-known/jwks.json", h.JWKSHandler.Handle)
	}
}
