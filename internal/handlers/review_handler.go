package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/internal/services"
)

// ReviewHandler handles review HTTP requests
type ReviewHandler struct {
	service *services.ReviewService
	logger  *logrus.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service *services.ReviewService, logger *logrus.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger,
	}
}

// CreateReview handles POST /api/v1/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid create review request")
		respondBadRequest(c, "Invalid request format")
		return
	}

	review, err := h.service.CreateReview(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"review": review,
	})
}

// ListForUser handles GET /api/v1/reviews/user/:user_id
func (h *ReviewHandler) ListForUser(c *gin.Context) {
	summary, err := h.service.ListReviewsFor(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"summary": summary,
	})
}

// ListForBooking handles GET /api/v1/reviews/booking/:booking_id
func (h *ReviewHandler) ListForBooking(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	reviews, err := h.service.ListReviewsForBooking(c.Request.Context(), actor, c.Param("booking_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"reviews": reviews,
		"total":   len(reviews),
	})
}

// ListMine handles GET /api/v1/reviews/mine
func (h *ReviewHandler) ListMine(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	reviews, err := h.service.MyReviews(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"reviews": reviews,
		"total":   len(reviews),
	})
}

// DeleteReview handles DELETE /api/v1/reviews/:id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.service.DeleteReview(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Review deleted",
	})
}
