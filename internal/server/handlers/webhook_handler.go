package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdbook/internal/domain/models"
)

const whatsAppObject = "whatsapp_business_account"

// WebhookService is the part of the messaging service the webhook routes call.
type WebhookService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
}

// WebhookHandler handles WhatsApp webhook callbacks.
type WebhookHandler struct {
	svc    WebhookService
	logger *zap.Logger
}

type verifyQuery struct {
	Mode        string `form:"hub.mode"`
	VerifyToken string `form:"hub.verify_token"`
	Challenge   string `form:"hub.challenge" binding:"required"`
}

// NewWebhookHandler constructs the HTTP handler adapter.
func NewWebhookHandler(svc WebhookService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, logger: logger}
}

// Verify answers the subscription handshake by echoing hub.challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	var q verifyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.String(http.StatusBadRequest, "missing hub.challenge")
		return
	}

	challenge, err := h.svc.VerifyWebhookToken(q.Mode, q.VerifyToken, q.Challenge)
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.String("mode", q.Mode), zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}

	c.String(http.StatusOK, challenge)
}

// Receive processes a callback and acknowledges it with 200 whatever the
// outcome, since redelivered messages are deduplicated downstream.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if payload.Object != "" && payload.Object != whatsAppObject {
		h.logger.Debug("ignoring webhook for foreign object", zap.String("object", payload.Object))
		c.Status(http.StatusOK)
		return
	}

	if err := h.svc.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("failed processing webhook", zap.Int("entries", len(payload.Entry)), zap.Error(err))
	}

	c.Status(http.StatusOK)
}
