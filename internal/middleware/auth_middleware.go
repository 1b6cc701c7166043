package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/pkg/jwt"
)

// ActorKey is the key used to store the verified caller in the Gin context
const ActorKey = "actor"

// AuthMiddleware validates the bearer token and stores the caller as a models.Actor
func AuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, code, message := authenticate(c, jwtService)
		if code != "" {
			logger.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"ip":   c.ClientIP(),
				"code": code,
			}).Warn("Authentication failed")
			abort(c, http.StatusUnauthorized, code, message)
			return
		}

		setActor(c, actor)
		c.Next()
	}
}

// OptionalAuth stores the caller when a valid token is present and lets
// anonymous requests through. A malformed or invalid token is still rejected.
func OptionalAuth(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	required := AuthMiddleware(jwtService, logger)
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		required(c)
	}
}

// RequireRole rejects callers whose role is not in roles
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, exists := GetActor(c)
		if !exists {
			abort(c, http.StatusUnauthorized, "MISSING_USER_CONTEXT", "User context not found. Auth middleware may not be applied.")
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}

		abort(c, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS", "You don't have permission to access this resource")
	}
}

// GetActor retrieves the verified caller from the Gin context
func GetActor(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(ActorKey)
	if !exists {
		return models.Actor{}, false
	}

	actor, ok := value.(models.Actor)
	return actor, ok
}

func authenticate(c *gin.Context, jwtService *jwt.Service) (models.Actor, string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return models.Actor{}, "MISSING_AUTH_HEADER", "Authorization header is required"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return models.Actor{}, "INVALID_AUTH_FORMAT", "Invalid authorization header format. Expected: Bearer <token>"
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return models.Actor{}, "INVALID_AUTH_FORMAT", "Token cannot be empty"
	}

	claims, err := jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		if jwtService.IsTokenExpired(tokenString) {
			return models.Actor{}, "TOKEN_EXPIRED", "Access token has expired"
		}
		return models.Actor{}, "INVALID_TOKEN", "Invalid access token"
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return models.Actor{}, "INVALID_ROLE", "Access token carries an unknown role"
	}

	return models.Actor{UserID: claims.UserID, Role: role}, "", ""
}

func setActor(c *gin.Context, actor models.Actor) {
	c.Set(ActorKey, actor)
	// read by the request logger
	c.Set("user_id", actor.ID())
	c.Set("role", string(actor.Role))
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":  "error",
		"code":    code,
		"message": message,
	})
}
