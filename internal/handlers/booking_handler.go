package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/internal/services"
)

// BookingHandler handles seat booking HTTP requests
type BookingHandler struct {
	service *services.BookingService
	logger  *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		logger:  logger,
	}
}

// RequestBooking handles POST /api/v1/bookings/request/:ride_id
func (h *BookingHandler) RequestBooking(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	booking, err := h.service.RequestBooking(c.Request.Context(), actor, c.Param("ride_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"booking": booking,
	})
}

// AcceptBooking handles POST /api/v1/bookings/:id/accept
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	h.transition(c, h.service.AcceptBooking)
}

// DenyBooking handles POST /api/v1/bookings/:id/deny
func (h *BookingHandler) DenyBooking(c *gin.Context) {
	h.transition(c, h.service.DenyBooking)
}

func (h *BookingHandler) transition(c *gin.Context, apply func(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	booking, err := apply(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"booking": booking,
	})
}

// DeleteBooking handles DELETE /api/v1/bookings/:id
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.service.DeleteBooking(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Booking deleted",
	})
}

// IncomingBookings handles GET /api/v1/bookings/incoming
func (h *BookingHandler) IncomingBookings(c *gin.Context) {
	h.list(c, h.service.IncomingBookings)
}

// MyBookings handles GET /api/v1/bookings/mine
func (h *BookingHandler) MyBookings(c *gin.Context) {
	h.list(c, h.service.MyBookings)
}

func (h *BookingHandler) list(c *gin.Context, load func(ctx context.Context, actor models.Actor) ([]models.BookingWithRide, error)) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	bookings, err := load(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"bookings": bookings,
		"total":    len(bookings),
	})
}
