package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edupath-id/edupath-api/internal/service"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
	"github.com/edupath-id/edupath-api/pkg/response"
)

// ContextUserKey is the gin context key storing session claims.
const ContextUserKey = "currentUser"

// RefreshedTokenHeader carries a re-issued session token back to the client
// when the presented one crossed the rolling refresh threshold.
const RefreshedTokenHeader = "X-Session-Token"

// Session protects routes by requiring a valid session token, accepted from
// the Authorization header or the session cookie. Tokens older than the
// refresh threshold are transparently re-issued via the response header.
func Session(authService *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if refreshed, ok, err := authService.RefreshIfStale(claims); err == nil && ok {
			c.Header(RefreshedTokenHeader, refreshed)
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// OptionalSession attaches claims when a valid token is present but does not
// block unauthenticated requests.
func OptionalSession(authService *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)
		if token == "" {
			c.Next()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}

		if refreshed, ok, err := authService.RefreshIfStale(claims); err == nil && ok {
			c.Header(RefreshedTokenHeader, refreshed)
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func extractToken(c *gin.Context, cookieName string) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if cookieName != "" {
		if cookie, err := c.Cookie(cookieName); err == nil {
			return cookie
		}
	}
	return ""
}
