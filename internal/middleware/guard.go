package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edupath-id/edupath-api/internal/models"
	"github.com/edupath-id/edupath-api/internal/service"
)

// ResolveRedirect decides whether a page request must be redirected based
// solely on the session claims and the requested path. It returns the target
// and true when a redirect applies.
//
// Rules:
//   - anonymous visitors to /dashboard or /admin go to the login page with
//     the original path preserved in callbackUrl
//   - signed-in users visiting the login or register pages go to their
//     role home
//   - students visiting /admin go to /dashboard; staff visiting /dashboard
//     go to /admin
func ResolveRedirect(claims *models.SessionClaims, path string) (string, bool) {
	protected := strings.HasPrefix(path, "/dashboard") || strings.HasPrefix(path, "/admin")
	authPage := path == "/auth/login" || path == "/auth/register"

	if claims == nil {
		if protected {
			return "/auth/login?callbackUrl=" + url.QueryEscape(path), true
		}
		return "", false
	}

	if authPage {
		return service.HomePath(claims.Role), true
	}

	if strings.HasPrefix(path, "/admin") && claims.Role == models.RoleStudent {
		return "/dashboard", true
	}
	if strings.HasPrefix(path, "/dashboard") && claims.Role != models.RoleStudent {
		return "/admin", true
	}

	return "", false
}

// Guard applies ResolveRedirect to page routes. It expects OptionalSession to
// run first so that claims are attached when a valid token is present.
func Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		var claims *models.SessionClaims
		if value, ok := c.Get(ContextUserKey); ok {
			claims = value.(*models.SessionClaims)
		}

		if target, ok := ResolveRedirect(claims, c.Request.URL.Path); ok {
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}
