// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package metrics

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/server"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Dashboard handles GET /admin/metrics
func (h *Handler) Dashboard(c *fiber.Ctx) error {
	dash, err := h.svc.Dashboard(c.UserContext())
	if err != nil {
		return server.HandleError(c, err)
	}
	return server.SendResponse(c, http.StatusOK, "Dashboard Metrics retrieved successfully", dash)
}
