package messaging

import (
	"context"
	"net/http"

	"lechuga_bot_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// UpdateHandler processes a single inbound update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *Update) error
}

// WebhookHandler receives bot API updates over HTTP.
type WebhookHandler struct {
	handler UpdateHandler
	log     *logger.Logger
}

// NewWebhookHandler creates a webhook handler that dispatches updates to h.
func NewWebhookHandler(h UpdateHandler, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{handler: h, log: log}
}

// HandleUpdate processes an inbound update.
// POST /api/v1/webhook/telegram
// Authenticated via X-Telegram-Bot-Api-Secret-Token header (checked by middleware).
func (h *WebhookHandler) HandleUpdate(c *gin.Context) {
	var update Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.log.Warn("malformed update payload", "error", err)
		// Always acknowledge; a non-200 makes the bot API redeliver forever.
		c.Status(http.StatusOK)
		return
	}

	if err := h.handler.HandleUpdate(c.Request.Context(), &update); err != nil {
		h.log.Error("update handling failed", "update_id", update.UpdateID, "error", err)
	}

	c.Status(http.StatusOK)
}
