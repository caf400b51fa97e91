package handlers

import (
	"errors"
	"net/http"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// InventoryHandler exposes seat availability reads
type InventoryHandler struct {
	inventory *services.InventoryService
	logger    *logrus.Logger
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventory *services.InventoryService, logger *logrus.Logger) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, logger: logger}
}

// GetSnapshot returns the seat availability partition for a trip
// GET /api/v1/trips/:trip_id/seats
func (h *InventoryHandler) GetSnapshot(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("trip_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return
	}

	snapshot, err := h.inventory.Snapshot(c.Request.Context(), tripID)
	if err != nil {
		if errors.Is(err, models.ErrTripNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
			return
		}
		h.logger.WithError(err).WithField("trip_id", tripID).Error("Failed to compute seat snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read seat availability"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
