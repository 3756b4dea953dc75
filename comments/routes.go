// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package comments

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/comments/handlers"
	"github.com/qolzam/inkwell/internal/middleware/constraints"
	"github.com/qolzam/inkwell/internal/middleware/guards"
)

// CommentsHandlers holds all the handlers this router needs
type CommentsHandlers struct {
	CommentHandler *handlers.CommentHandler
}

// RegisterRoutes mounts comment routes under /posts/:id/comments and /comments
func RegisterRoutes(router fiber.Router, h *CommentsHandlers, g guards.Guards) {
	byID := constraints.RequireUUID("id")

	onPost := router.Group("/posts")
	onPost.Post("/:id/comments", g.Auth, byID, h.CommentHandler.CreateComment)
	onPost.Get("/:id/comments", byID, h.CommentHandler.ListComments)

	group := router.Group("/comments")
	group.Put("/:id", g.Auth, byID, h.CommentHandler.UpdateComment)
	group.Delete("/:id", g.Auth, byID, h.CommentHandler.DeleteComment)
}
