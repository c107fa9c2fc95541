package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"court-booking-service/internal/domain"
)

type AuthConfig struct {
	JWTSecret    string
	StaticTokens []string
}

const principalKey = "principal"

// principal is who presented the bearer token. A service token belongs to a
// trusted front end that names the end user in the request body.
type principal struct {
	domain.Identity
	service bool
}

// AuthMiddleware accepts an HMAC-signed JWT or one of the static service
// tokens.
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	staticTokens := make(map[string]bool, len(cfg.StaticTokens))
	for _, t := range cfg.StaticTokens {
		if t = strings.TrimSpace(t); t != "" {
			staticTokens[t] = true
		}
	}

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		tokenStr := parts[1]

		// JWT path
		if jwtSecret != "" {
			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenMalformed
				}
				return []byte(jwtSecret), nil
			}, jwt.WithLeeway(5*time.Second))
			if err == nil {
				id := identityFromClaims(claims)
				// Bookings are owned by email, so a token without one cannot act.
				if id.Email == "" {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token carries no email"})
					return
				}
				c.Set(principalKey, principal{Identity: id})
				c.Next()
				return
			}
		}

		// static tokens
		if staticTokens[tokenStr] {
			c.Set(principalKey, principal{service: true})
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
}

func identityFromClaims(claims jwt.MapClaims) domain.Identity {
	sub, _ := claims.GetSubject()
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return domain.Identity{
		Email:  strings.ToLower(strings.TrimSpace(email)),
		UserID: sub,
		Role:   role,
	}
}

// caller resolves the identity a request acts as. Token holders act as
// themselves; service callers act as the user named in the body.
func caller(c *gin.Context, email, userID string) domain.Identity {
	if p, ok := c.Get(principalKey); ok {
		if p := p.(principal); !p.service {
			return p.Identity
		}
	}
	return domain.Identity{Email: strings.ToLower(strings.TrimSpace(email)), UserID: userID}
}

// canManage reports whether the caller may act for the academy owned by
// email.
func canManage(c *gin.Context, email string) bool {
	p, ok := c.Get(principalKey)
	if !ok {
		return true
	}
	pr := p.(principal)
	return pr.service || pr.IsAdmin() || strings.EqualFold(pr.Email, email)
}
