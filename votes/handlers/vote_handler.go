// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/votes/errors"
	"github.com/qolzam/inkwell/votes/models"
	"github.com/qolzam/inkwell/votes/services"
)

// VoteHandler handles vote HTTP requests
type VoteHandler struct {
	voteService services.VoteService
}

// NewVoteHandler creates a new VoteHandler with injected dependencies
func NewVoteHandler(voteService services.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

// Vote handles PUT /posts/:id/vote?voteType=upvote|downvote. The vote type
// may also be sent as a JSON body.
func (h *VoteHandler) Vote(c *fiber.Ctx) error {
	user, ok := server.CurrentUser(c)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrMissingUserContext)
	}
	voteType := c.Query("voteType")
	if voteType == "" && len(c.Body()) > 0 {
		var req models.VoteRequest
		if err := c.BodyParser(&req); err != nil {
			return errors.HandleServiceError(c, errors.ErrInvalidVoteType)
		}
		voteType = req.VoteType
	}
	post, err := h.voteService.Vote(c.UserContext(), user.ID(), c.Params("id"), voteType)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Vote on post successfully updated", post)
}

// Status handles GET /posts/:id/vote-status
func (h *VoteHandler) Status(c *fiber.Ctx) error {
	user, ok := server.CurrentUser(c)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrMissingUserContext)
	}
	status, err := h.voteService.Status(c.UserContext(), user.ID(), c.Params("id"))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Vote status retrieved successfully", status)
}
