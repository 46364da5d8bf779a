package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuvoice/backend/internal/event"
)

// snsMessage is the envelope SNS posts to HTTP(S) subscriptions.
type snsMessage struct {
	Type         string `json:"Type"`
	MessageID    string `json:"MessageId"`
	TopicArn     string `json:"TopicArn"`
	Message      string `json:"Message"`
	SubscribeURL string `json:"SubscribeURL"`
}

// TextractCallback handles POST /callbacks/textract
func (h *CallbackHandler) TextractCallback(c *gin.Context) {
	h.bridge(c, h.ocrRoutingKey)
}

// PollyCallback handles POST /callbacks/polly
func (h *CallbackHandler) PollyCallback(c *gin.Context) {
	h.bridge(c, h.speechRoutingKey)
}

// bridge unwraps an SNS notification and republishes the inner message as
// a batch-of-one envelope on the given routing key. Subscription
// confirmations are logged and acknowledged without forwarding.
func (h *CallbackHandler) bridge(c *gin.Context, routingKey string) {
	var msg snsMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		h.logger.Error("Invalid notification body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid notification body",
		})
		return
	}

	if msg.Type == "SubscriptionConfirmation" {
		h.logger.Info("Received subscription confirmation",
			slog.String("topic_arn", msg.TopicArn),
			slog.String("subscribe_url", msg.SubscribeURL),
		)
		c.Status(http.StatusOK)
		return
	}

	if msg.Type != "Notification" {
		h.logger.Warn("Ignoring unexpected notification type",
			slog.String("type", msg.Type),
			slog.String("message_id", msg.MessageID),
		)
		c.Status(http.StatusOK)
		return
	}

	envelope, err := event.NewEnvelope([]byte(msg.Message))
	if err != nil {
		h.logger.Error("Failed to wrap notification",
			slog.String("message_id", msg.MessageID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid notification payload",
		})
		return
	}

	if err := h.publisher.PublishWithRetry(c.Request.Context(), routingKey, envelope, "application/json"); err != nil {
		h.logger.Error("Failed to enqueue notification",
			slog.String("routing_key", routingKey),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to enqueue notification",
		})
		return
	}

	h.logger.Info("Notification enqueued",
		slog.String("routing_key", routingKey),
		slog.String("message_id", msg.MessageID),
	)

	c.Status(http.StatusOK)
}
