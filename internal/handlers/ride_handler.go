package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/middleware"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/internal/services"
)

// RideHandler handles ride offer HTTP requests
type RideHandler struct {
	service *services.BookingService
	logger  *logrus.Logger
}

// NewRideHandler creates a new ride handler
func NewRideHandler(service *services.BookingService, logger *logrus.Logger) *RideHandler {
	return &RideHandler{
		service: service,
		logger:  logger,
	}
}

// CreateRide handles POST /api/v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid create ride request")
		respondBadRequest(c, "Invalid request format")
		return
	}

	ride, err := h.service.CreateRide(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"ride":   ride,
	})
}

// SearchRides handles GET /api/v1/rides/search?from=&to=&date=
func (h *RideHandler) SearchRides(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.RideSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBadRequest(c, "from, to and date are required")
		return
	}

	rides, err := h.service.SearchRides(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"rides":  rides,
		"total":  len(rides),
	})
}

// ListMyRides handles GET /api/v1/rides/mine
func (h *RideHandler) ListMyRides(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	rides, err := h.service.ListDriverRides(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"rides":  rides,
		"total":  len(rides),
	})
}

// GetRide handles GET /api/v1/rides/:id. Anonymous callers see the ride
// without its passenger list.
func (h *RideHandler) GetRide(c *gin.Context) {
	details, err := h.service.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if _, authenticated := middleware.GetActor(c); !authenticated {
		details.PassengerIDs = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"ride":   details,
	})
}

// CancelRide handles POST /api/v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.service.CancelRide(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Ride cancelled",
	})
}
