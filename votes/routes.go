// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package votes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/middleware/constraints"
	"github.com/qolzam/inkwell/internal/middleware/guards"
	"github.com/qolzam/inkwell/votes/handlers"
)

// VotesHandlers holds all the handlers this router needs
type VotesHandlers struct {
	VoteHandler *handlers.VoteHandler
}

// RegisterRoutes mounts the vote routes under /posts/:id
func RegisterRoutes(router fiber.Router, h *VotesHandlers, g guards.Guards) {
	group := router.Group("/posts")

	// Route-level guards; group middleware would also match /posts/:slug.
	byID := constraints.RequireUUID("id")
	group.Put("/:id/vote", g.Auth, byID, h.VoteHandler.Vote)
	group.Get("/:id/vote-status", g.Auth, byID, h.VoteHandler.Status)
}
