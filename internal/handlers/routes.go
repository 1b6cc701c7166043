package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/middleware"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/pkg/jwt"
)

// Handlers groups every API handler mounted under /api/v1
type Handlers struct {
	Rides    *RideHandler
	Bookings *BookingHandler
	Reviews  *ReviewHandler
	Cities   *CityHandler
	Chat     *ChatHandler
}

// RegisterRoutes mounts the API on v1
func RegisterRoutes(v1 *gin.RouterGroup, h Handlers, jwtService *jwt.Service, logger *logrus.Logger) {
	auth := middleware.AuthMiddleware(jwtService, logger)

	// Public routes
	v1.GET("/cities/:country", h.Cities.GetCities)
	v1.GET("/rides/:id", middleware.OptionalAuth(jwtService, logger), h.Rides.GetRide)
	v1.GET("/reviews/user/:user_id", h.Reviews.ListForUser)

	rides := v1.Group("/rides", auth)
	{
		rides.POST("", middleware.RequireRole(models.RoleDriver, models.RoleAdmin), h.Rides.CreateRide)
		rides.GET("/search", h.Rides.SearchRides)
		rides.GET("/mine", h.Rides.ListMyRides)
		rides.POST("/:id/cancel", h.Rides.CancelRide)
	}

	bookings := v1.Group("/bookings", auth)
	{
		bookings.POST("/request/:ride_id", h.Bookings.RequestBooking)
		bookings.POST("/:id/accept", h.Bookings.AcceptBooking)
		bookings.POST("/:id/deny", h.Bookings.DenyBooking)
		bookings.DELETE("/:id", h.Bookings.DeleteBooking)
		bookings.GET("/incoming", h.Bookings.IncomingBookings)
		bookings.GET("/mine", h.Bookings.MyBookings)
	}

	reviews := v1.Group("/reviews", auth)
	{
		reviews.POST("", h.Reviews.CreateReview)
		reviews.GET("/booking/:booking_id", h.Reviews.ListForBooking)
		reviews.GET("/mine", h.Reviews.ListMine)
		reviews.DELETE("/:id", h.Reviews.DeleteReview)
	}

	v1.POST("/chat/message", auth, h.Chat.SendMessage)
}
