package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/internal/services"
)

// CityHandler serves the prefetched city lists
type CityHandler struct {
	locations *services.LocationService
	logger    *logrus.Logger
}

// NewCityHandler creates a new city handler
func NewCityHandler(locations *services.LocationService, logger *logrus.Logger) *CityHandler {
	return &CityHandler{
		locations: locations,
		logger:    logger,
	}
}

// GetCities handles GET /api/v1/cities/:country (public)
func (h *CityHandler) GetCities(c *gin.Context) {
	cities, err := h.locations.GetAll(c.Request.Context(), c.Param("country"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.CityListResponse{
		Status:  "success",
		Content: cities,
	})
}
