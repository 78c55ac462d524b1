package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gacha-summon/internal/auth"
	"gacha-summon/internal/shopify"
)

const (
	contextClaimsKey  = "jwtClaims"
	contextSessionKey = "orderSession"
)

// orderSession is the claimed order a request acts on.
type orderSession struct {
	number        shopify.OrderNumber
	discordUserID string
}

// JWT parses the bearer token and stores its claims on the context.
func JWT(manager *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := manager.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(contextClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// RequireRole only lets through tokens issued for role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
			return
		}
		if claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

// RequireOrder admits order tokens bound to both an order and a Discord user,
// and exposes that pair through OrderSession.
func RequireOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
			return
		}
		if claims.Role != auth.RoleOrder {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		if claims.Order == 0 || claims.DiscordUserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is not bound to an order"})
			return
		}
		c.Set(contextSessionKey, orderSession{number: claims.Order, discordUserID: claims.DiscordUserID})
		c.Next()
	}
}

// OrderSession returns the order and Discord user set by RequireOrder. Both
// are zero on routes without that gate.
func OrderSession(c *gin.Context) (shopify.OrderNumber, string) {
	value, _ := c.Get(contextSessionKey)
	s, _ := value.(orderSession)
	return s.number, s.discordUserID
}

func ClaimsFromContext(c *gin.Context) *auth.Claims {
	value, exists := c.Get(contextClaimsKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*auth.Claims)
	return claims
}
