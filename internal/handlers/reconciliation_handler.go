package handlers

import (
	"net/http"
	"strconv"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/database"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReconciliationHandler exposes the payment audit trail for back-office
// reconciliation and dispute review.
type ReconciliationHandler struct {
	audit  *database.PaymentAuditRepository
	logger *logrus.Logger
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(audit *database.PaymentAuditRepository, logger *logrus.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{audit: audit, logger: logger}
}

// GetReservationAudit returns the full payment event history for one
// reservation, oldest first.
// GET /api/v1/payments/audit/:reservation_id
func (h *ReconciliationHandler) GetReservationAudit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("reservation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	entries, err := h.audit.GetByReservationID(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("reservation_id", id).Error("Failed to load payment audit trail")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audit trail"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservation_id": id, "events": entries, "count": len(entries)})
}

// GetAmountMismatches lists recent gateway events whose amount disagreed with
// the reservation, for manual review.
// GET /api/v1/payments/mismatches?limit=50
func (h *ReconciliationHandler) GetAmountMismatches(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	entries, err := h.audit.GetAmountMismatches(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load amount mismatches")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load mismatches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"mismatches": entries, "count": len(entries)})
}
