package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"bharatconnect/pkg/metrics"
	"bharatconnect/pkg/response"
)

const userIDKey = "user_id"

// TokenVerifier checks a bearer token and returns the user ID it was issued
// for. Implemented by the Firebase ID token verifier and the HS256 JWT manager.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
	Provider() string
}

// AuthMiddleware validates the Bearer token and sets user_id in the Gin
// context. m may be nil.
func AuthMiddleware(verifier TokenVerifier, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m != nil {
			m.RecordAuthAttempt(verifier.Provider())
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			recordFailure(m, verifier, "missing_header")
			response.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			recordFailure(m, verifier, "malformed_header")
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		userID, err := verifier.VerifyToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil || userID == "" {
			recordFailure(m, verifier, "invalid_token")
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// GetUserID returns the authenticated user ID set by AuthMiddleware
func GetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(userIDKey)
	if !exists {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok && userID != ""
}

func recordFailure(m *metrics.Metrics, verifier TokenVerifier, reason string) {
	if m != nil {
		m.RecordAuthFailure(verifier.Provider(), reason)
	}
}
