// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package guards bundles the authentication middleware every router uses.
package guards

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/middleware/admin"
	"github.com/qolzam/inkwell/internal/middleware/authjwt"
	"github.com/qolzam/inkwell/internal/types"
)

// Guards holds the route guards shared by all domain routers.
type Guards struct {
	// Auth requires a valid access token.
	Auth fiber.Handler
	// OptionalAuth decodes a token when one is sent.
	OptionalAuth fiber.Handler
	// Admin requires a valid access token of an admin.
	Admin []fiber.Handler
}

// New builds the guards from the JWT public key and an optional verifier.
func New(publicKey string, verifier authjwt.Verifier) Guards {
	auth := authjwt.New(authjwt.Config{
		PublicKey:   publicKey,
		ClaimKey:    types.ClaimKey,
		UserCtxName: types.UserCtxName,
		Verifier:    verifier,
	})
	return Guards{
		Auth: auth,
		OptionalAuth: authjwt.New(authjwt.Config{
			PublicKey:   publicKey,
			ClaimKey:    types.ClaimKey,
			UserCtxName: types.UserCtxName,
			Optional:    true,
			Verifier:    verifier,
		}),
		Admin: []fiber.Handler{auth, admin.New(admin.Config{UserCtxName: types.UserCtxName})},
	}
}

// AdminThen returns the admin chain followed by handlers.
func (g Guards) AdminThen(handlers ...fiber.Handler) []fiber.Handler {
	chain := make([]fiber.Handler, 0, len(g.Admin)+len(handlers))
	chain = append(chain, g.Admin...)
	return append(chain, handlers...)
}
