package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/middleware"
	"github.com/triplink/triplink-backend/internal/models"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps err onto its HTTP status. Server-side failures are logged
// with their cause and answered with a generic message.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	kind := models.KindOf(err)
	message := "Internal server error"

	var appErr *models.AppError
	if errors.As(err, &appErr) && kind != models.KindInternal {
		message = appErr.Message
	}

	status := kind.StatusCode()
	if status >= http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"kind":   kind,
		}).WithError(err).Error("Request failed")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Status:  "error",
		Code:    string(kind),
		Message: message,
	})
}

// respondBadRequest rejects a body or query that could not be bound
func respondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Status:  "error",
		Code:    string(models.KindInvalidInput),
		Message: message,
	})
}

// requireActor returns the caller set by the auth middleware
func requireActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Status:  "error",
			Code:    "MISSING_USER_CONTEXT",
			Message: "Authentication required",
		})
	}
	return actor, ok
}
