package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"whatsapp-bridge/config"
	"whatsapp-bridge/internal/models"
	"whatsapp-bridge/internal/ratelimit"
)

// Assistant is the slice of the orchestrator the webhook needs.
type Assistant interface {
	HandleText(ctx context.Context, waID, name, body string) error
	HandleImage(ctx context.Context, waID, name, mediaID, caption string) error
}

// WebhookHandler terminates Meta's webhook: verification challenges on GET,
// signed event deliveries on POST.
type WebhookHandler struct {
	cfg       *config.Config
	assistant Assistant
	limiter   *ratelimit.PerSender
	dedup     *messageDedup
	logger    *zap.SugaredLogger
}

func NewWebhookHandler(cfg *config.Config, assistant Assistant, limiter *ratelimit.PerSender, logger *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{
		cfg:       cfg,
		assistant: assistant,
		limiter:   limiter,
		dedup:     newMessageDedup(),
		logger:    logger,
	}
}

func (h *WebhookHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/webhook", h.HandleVerification)
	router.POST("/webhook", SignatureRequired(h.cfg.WhatsApp.AppSecret, h.logger), h.HandleEvent)
}

// HandleVerification answers the subscription challenge Meta sends when the
// webhook URL is registered.
func (h *WebhookHandler) HandleVerification(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.cfg.WhatsApp.VerifyToken {
		h.logger.Infow("webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}

	h.logger.Warnw("webhook verification failed", "mode", mode)
	c.JSON(http.StatusForbidden, gin.H{"status": "error", "message": "verification failed"})
}

// HandleEvent processes one signed webhook delivery synchronously; the 200
// acknowledgement doubles as the success signal to Meta.
func (h *WebhookHandler) HandleEvent(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "not a valid JSON payload"})
		return
	}

	inbound, err := payload.ExtractInbound()
	if err != nil {
		if errors.Is(err, models.ErrWrongObject) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "not a whatsapp api event"})
			return
		}
		// status updates and other message-less deliveries are acknowledged
		// so Meta stops retrying them
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	deliveryID := uuid.NewString()
	log := h.logger.With("delivery_id", deliveryID, "wa_id", inbound.WaID, "type", inbound.Type)

	if h.dedup.Seen(inbound.MessageID) {
		log.Debugw("duplicate delivery ignored", "message_id", inbound.MessageID)
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	if h.limiter != nil && !h.limiter.Allow(inbound.WaID) {
		log.Infow("rate limited, message dropped")
		c.JSON(http.StatusOK, gin.H{"status": "rate_limited"})
		return
	}

	ctx := c.Request.Context()

	switch inbound.Type {
	case "text":
		body := strings.TrimSpace(inbound.Text)
		if body == "" {
			log.Warnw("text message without body")
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		log.Infow("handling text message", "from", inbound.Name)
		err = h.assistant.HandleText(ctx, inbound.WaID, inbound.Name, body)
	case "image":
		if inbound.MediaID == "" {
			log.Warnw("image message without media id")
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		log.Infow("handling image message", "from", inbound.Name, "media_id", inbound.MediaID)
		err = h.assistant.HandleImage(ctx, inbound.WaID, inbound.Name, inbound.MediaID, inbound.Caption)
	default:
		log.Warnw("unsupported message type")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err != nil {
		log.Errorw("message handling failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to process message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
