package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/interviewhub/server/internal/auth"
)

const (
	// ContextKeyUserID is the context key for storing the user ID.
	ContextKeyUserID = "user_id"
	// ContextKeyUserName is the context key for storing the user's display name.
	ContextKeyUserName = "user_name"
)

// AuthMiddleware creates a middleware that resolves the session from the
// Authorization header or session cookie.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := authService.GetSession(c.Request.Context(), c.Request)
		if err != nil {
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("no valid session")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, session.User.ID)
		c.Set(ContextKeyUserName, session.User.Name)

		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

// currentUserID pulls the authenticated user ID set by AuthMiddleware.
func currentUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
