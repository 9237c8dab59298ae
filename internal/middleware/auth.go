package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"github.com/carewire/hospital-api/pkg/auth"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/httputil"
)

const (
	ContextClaims = "claims"
	ContextBearer = "bearer"
)

type AuthMiddleware struct {
	tokens auth.JWTService
	cache  *gocache.Cache
}

func NewAuthMiddleware(tokens auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		cache:  gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// Authenticate verifies the bearer token and stores the claims plus the raw
// bearer in the request context. The raw bearer is kept because saga legs
// forward it unchanged to the remote service.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, errors.Unauthorized(nil))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.RespondWithError(c, errors.Unauthorized(nil))
			c.Abort()
			return
		}

		claims, err := m.validate(parts[1])
		if err != nil {
			httputil.RespondWithError(c, errors.Unauthorized(err))
			c.Abort()
			return
		}

		c.Set(ContextClaims, claims)
		c.Set(ContextBearer, parts[1])
		c.Next()
	}
}

// validate caches successful validations keyed by the token itself; a cache
// hit still honors the token's own expiry.
func (m *AuthMiddleware) validate(token string) (*auth.Claims, error) {
	if cached, ok := m.cache.Get(token); ok {
		claims := cached.(*auth.Claims)
		if claims.ExpiresAt == nil || claims.ExpiresAt.After(time.Now()) {
			return claims, nil
		}
		m.cache.Delete(token)
	}

	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	m.cache.Set(token, claims, gocache.DefaultExpiration)
	return claims, nil
}

// RequireRoles rejects callers whose role claim is not in the allowed set.
func (m *AuthMiddleware) RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			httputil.RespondWithError(c, errors.Unauthorized(nil))
			c.Abort()
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		httputil.RespondWithError(c, errors.Forbidden("insufficient role"))
		c.Abort()
	}
}

// ClaimsFromContext returns the claims Authenticate stored.
func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(ContextClaims)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}

// BearerFromContext returns the raw bearer token for forwarding.
func BearerFromContext(c *gin.Context) string {
	return c.GetString(ContextBearer)
}
