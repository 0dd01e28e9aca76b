package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/roadwatch/backend/internal/database"
	"github.com/roadwatch/backend/internal/dto"
)

// Pinger is satisfied by the document store client.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	docs Pinger
}

func NewHealthHandler(docs Pinger) *HealthHandler {
	return &HealthHandler{docs: docs}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	docStatus := "ok"
	if err := h.docs.Ping(c.Context()); err != nil {
		docStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		DocStore:  docStatus,
	})
}
