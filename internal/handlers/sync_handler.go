package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/roadwatch/backend/internal/docsync"
	"github.com/roadwatch/backend/internal/dto"
)

// SyncHandler exposes on-demand reconciliation. Each pass is independent:
// a user pass, a report pass, or the full users-then-reports run.
type SyncHandler struct {
	reconciler *docsync.Reconciler
}

func NewSyncHandler(reconciler *docsync.Reconciler) *SyncHandler {
	return &SyncHandler{reconciler: reconciler}
}

func (h *SyncHandler) ReconcileAll(c *fiber.Ctx) error {
	summary, err := h.reconciler.ReconcileAll(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	return c.JSON(summary)
}

func (h *SyncHandler) ReconcileUsers(c *fiber.Ctx) error {
	summary, err := h.reconciler.ReconcileUsers(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	return c.JSON(summary)
}

func (h *SyncHandler) ReconcileReports(c *fiber.Ctx) error {
	summary, err := h.reconciler.ReconcileReports(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	return c.JSON(summary)
}
