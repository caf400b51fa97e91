package handlers

import (
	"errors"
	"net/http"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaymentWebhookHandler receives asynchronous payment notifications from the
// gateway and hands them to the settlement service.
type PaymentWebhookHandler struct {
	settlement *services.SettlementService
	logger     *logrus.Logger
}

// NewPaymentWebhookHandler creates a new PaymentWebhookHandler
func NewPaymentWebhookHandler(settlement *services.SettlementService, logger *logrus.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{settlement: settlement, logger: logger}
}

// HandleCallback settles a reservation from a gateway webhook. The gateway
// retries on non-2xx, so replays of an already-settled callback return 200.
// POST /api/v1/payments/webhook
func (h *PaymentWebhookHandler) HandleCallback(c *gin.Context) {
	var cb models.PaymentCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback: " + err.Error()})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"reservation_id": cb.ReservationID,
		"outcome":        cb.Outcome,
		"gateway_ref":    cb.GatewayRef,
	}).Info("Payment webhook received")

	if err := h.settlement.Settle(c.Request.Context(), models.PaymentSourceWebhook, &cb); err != nil {
		var transition *models.TransitionError
		switch {
		case errors.Is(err, models.ErrReservationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		case errors.As(err, &transition):
			// Hold expired before the webhook arrived; nothing to retry.
			c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": transition.Reason})
		default:
			h.logger.WithError(err).WithField("reservation_id", cb.ReservationID).Error("Webhook settlement failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
