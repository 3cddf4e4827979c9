package core

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// CurrentUser returns the principal resolved by RequireAuth.
func CurrentUser(c *gin.Context) (User, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return User{}, false
	}
	u, ok := v.(User)
	return u, ok
}

// RequireAuth extracts the bearer token, resolves it into a principal, and
// stores the principal on the request. Missing, malformed, forged, and
// expired tokens all produce the same 401.
func RequireAuth(auth *AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if header == "" || len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c)
			return
		}

		user, err := auth.ResolveToken(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, ErrTokenInvalid) {
				unauthorized(c)
				return
			}
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to resolve user")
			c.Abort()
			return
		}

		c.Set(principalKey, user)
		c.Next()
	}
}

// RequireActive rejects principals whose account is disabled.
func RequireActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			unauthorized(c)
			return
		}
		if !user.IsActive {
			respondError(c, http.StatusBadRequest, "INACTIVE_USER", "Inactive user")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSuperuser rejects principals without the superuser flag.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			unauthorized(c)
			return
		}
		if !user.IsSuperuser {
			forbidden(c)
			return
		}
		c.Next()
	}
}

// RequirePermission gates a route on a named permission. Superusers hold
// every permission; everyone else holds none.
// TODO: consult per-user grants here once the permission table exists.
func RequirePermission(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			unauthorized(c)
			return
		}
		if !user.IsSuperuser {
			forbidden(c)
			return
		}
		_ = name
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials")
	c.Abort()
}

func forbidden(c *gin.Context) {
	respondError(c, http.StatusForbidden, "FORBIDDEN", "Not enough permissions")
	c.Abort()
}
