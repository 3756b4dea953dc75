// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package posts

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/middleware/constraints"
	"github.com/qolzam/inkwell/internal/middleware/guards"
	"github.com/qolzam/inkwell/posts/handlers"
)

// PostsHandlers holds all the handlers this router needs
type PostsHandlers struct {
	PostHandler *handlers.PostHandler
}

// RegisterRoutes is the single entry point for setting up post routes.
// Votes and comments mount their own routes under /posts/:id.
func RegisterRoutes(router fiber.Router, h *PostsHandlers, g guards.Guards) {
	group := router.Group("/posts")

	group.Post("/", g.Auth, h.PostHandler.CreatePost)
	group.Get("/", h.PostHandler.ListPosts)

	// Static paths before /:slug
	group.Get("/following-users", g.Auth, h.PostHandler.ListFollowingPosts)
	group.Get("/my-posts", g.Auth, h.PostHandler.ListMyPosts)
	group.Get("/users/:userId", constraints.RequireUUID("userId"), h.PostHandler.ListUserPosts)

	group.Get("/:slug", g.OptionalAuth, h.PostHandler.GetPost)

	byID := constraints.RequireUUID("id")
	group.Put("/:id/by-admin", g.AdminThen(byID, h.PostHandler.UpdatePost)...)
	group.Delete("/:id/by-admin", g.AdminThen(byID, h.PostHandler.DeletePostByAdmin)...)
	group.Put("/:id", g.Auth, byID, h.PostHandler.UpdatePost)
	group.Delete("/:id", g.Auth, byID, h.PostHandler.DeletePost)
}
