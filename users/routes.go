// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package users

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/middleware/constraints"
	"github.com/qolzam/inkwell/internal/middleware/guards"
	"github.com/qolzam/inkwell/users/handlers"
)

// UsersHandlers holds all the handlers this router needs
type UsersHandlers struct {
	UserHandler   *handlers.UserHandler
	FollowHandler *handlers.FollowHandler
}

// RegisterRoutes is the single entry point for setting up user routes
func RegisterRoutes(router fiber.Router, h *UsersHandlers, g guards.Guards) {
	group := router.Group("/users")

	group.Get("/", g.AdminThen(h.UserHandler.ListUsers)...)

	// Static paths before /:username
	group.Get("/me", g.Auth, h.UserHandler.GetMe)
	group.Get("/me/followers", g.Auth, h.FollowHandler.MyFollowers)
	group.Get("/me/following", g.Auth, h.FollowHandler.MyFollowing)
	group.Patch("/update-profile", g.Auth, h.UserHandler.UpdateProfile)
	group.Put("/profile/update-social-links", g.Auth, h.UserHandler.UpdateSocialLinks)

	group.Get("/:username", h.UserHandler.GetUserByUsername)

	byID := constraints.RequireUUID("id")
	// Moderation accepts PUT as well as PATCH.
	for _, method := range []string{fiber.MethodPatch, fiber.MethodPut} {
		group.Add(method, "/:id/block", g.AdminThen(byID, h.UserHandler.BlockUser)...)
		group.Add(method, "/:id/unblock", g.AdminThen(byID, h.UserHandler.UnblockUser)...)
		group.Add(method, "/:id/make-admin", g.AdminThen(byID, h.UserHandler.MakeAdmin)...)
	}
	group.Delete("/:id", g.AdminThen(byID, h.UserHandler.DeleteUser)...)

	group.Post("/:id/follow", g.Auth, byID, h.FollowHandler.Follow)
	group.Delete("/:id/follow", g.Auth, byID, h.FollowHandler.Unfollow)
	group.Get("/:id/follow-status", g.Auth, byID, h.FollowHandler.FollowStatus)
	group.Get("/:id/followers", byID, h.FollowHandler.Followers)
	group.Get("/:id/following", byID, h.FollowHandler.Following)
}
