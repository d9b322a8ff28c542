package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/channelgate/channelgate/internal/infrastructure/telegram"
	"github.com/channelgate/channelgate/internal/shared/constants"
	"github.com/channelgate/channelgate/internal/shared/logger"
	"github.com/channelgate/channelgate/internal/shared/utils"
)

// TelegramWebhookHandler feeds webhook deliveries into the same update handler polling uses.
type TelegramWebhookHandler struct {
	handler telegram.UpdateHandler
	secret  string
	logger  logger.Interface
}

func NewTelegramWebhookHandler(handler telegram.UpdateHandler, secret string, logger logger.Interface) *TelegramWebhookHandler {
	return &TelegramWebhookHandler{handler: handler, secret: secret, logger: logger}
}

// Handle verifies the secret token and dispatches the update. Handling failures still
// answer 200: redeliveries are idempotent but would only repeat the failure.
// POST /telegram/webhook
func (h *TelegramWebhookHandler) Handle(c *gin.Context) {
	if h.secret == "" {
		h.logger.Errorw("webhook secret not configured, rejecting request")
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "webhook not configured")
		return
	}

	presented := c.GetHeader(constants.HeaderTelegramSecret)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(h.secret)) != 1 {
		h.logger.Warnw("webhook secret verification failed", "received_secret_empty", presented == "")
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warnw("failed to parse webhook update", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	// Telegram may drop the connection before a payment finishes activating.
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.handler.HandleUpdate(ctx, &update); err != nil {
		h.logger.Errorw("failed to handle webhook update", "error", err, "update_id", update.UpdateID)
	}
	c.Status(http.StatusOK)
}
